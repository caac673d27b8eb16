package config

import (
	"context"
	"database/sql"

	myws "taskpad/internal/websocket"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
)

var (
	// Global dependencies shared across the application.
	DB          *sql.DB
	SecretKey   = []byte("secret")
	EncryptKey  = "TaskpadDevContentKey"
	UploadDir   = "uploads"
	Validate    = validator.New()
	Ctx         = context.Background()
	RedisClient *redis.Client
	Events      = myws.NewHub()
)
