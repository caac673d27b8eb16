package configs

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort            int
	DBHost             string
	DBPort             int
	DBUser             string
	DBPassword         string
	DBName             string
	DBNameTest         string
	RedisHost          string
	RedisPort          int
	JWTSecret          string
	EncryptKey         string
	UploadDir          string
	TrashRetentionDays int
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func LoadConfig() Config {
	// Load .env if present
	if err := godotenv.Load(); err != nil {
		// Only log outside test mode
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	return Config{
		AppPort:            getEnvInt("APP_PORT", 3004),
		DBHost:             getEnvString("DB_HOST", "localhost"),
		DBPort:             getEnvInt("DB_PORT", 5432),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBName:             getEnvString("DB_NAME", "taskpad"),
		DBNameTest:         getEnvString("DB_NAME_TEST", "taskpad_test"),
		RedisHost:          getEnvString("REDIS_HOST", "localhost"),
		RedisPort:          getEnvInt("REDIS_PORT", 6379),
		JWTSecret:          getEnvString("JWT_SECRET", "secret"),
		EncryptKey:         getEnvString("ENCRYPT_KEY", "TaskpadDevContentKey"),
		UploadDir:          getEnvString("UPLOAD_DIR", "uploads"),
		TrashRetentionDays: getEnvInt("TRASH_RETENTION_DAYS", 30),
	}
}
