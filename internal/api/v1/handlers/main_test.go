package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	v1 "taskpad/internal/api/v1"
	"taskpad/internal/config"
	"taskpad/internal/middleware"
	"taskpad/internal/repository"
	"taskpad/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

// TestMain spins up throwaway Postgres and Redis containers so the
// handler tests run against the real stack.
func TestMain(m *testing.M) {
	os.Setenv("GO_ENV", "test")
	logger.InitLoggers()
	defer logger.SyncLoggers()

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct docker pool: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %v", err)
	}

	pgResource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=taskpad",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=taskpad_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start Postgres container: %v", err)
	}

	dsn := fmt.Sprintf("host=localhost port=%s user=taskpad password=secret dbname=taskpad_test sslmode=disable",
		pgResource.GetPort("5432/tcp"))
	var db *sql.DB
	if err := pool.Retry(func() error {
		var err error
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		return db.Ping()
	}); err != nil {
		log.Fatalf("Could not connect to Postgres: %v", err)
	}

	redisResource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7-alpine",
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start Redis container: %v", err)
	}

	var rdb *redis.Client
	if err := pool.Retry(func() error {
		rdb = redis.NewClient(&redis.Options{
			Addr: "localhost:" + redisResource.GetPort("6379/tcp"),
		})
		return rdb.Ping(config.Ctx).Err()
	}); err != nil {
		log.Fatalf("Could not connect to Redis: %v", err)
	}

	config.DB = db
	config.RedisClient = rdb
	repository.CreateTableIfNotExists(config.DB)

	code := m.Run()

	config.DB.Close()
	config.RedisClient.Close()
	_ = pool.Purge(pgResource)
	_ = pool.Purge(redisResource)

	os.Exit(code)
}

// CreateTestApp builds a Fiber app with the full v1 route table, body
// limit matching the real app so oversize uploads reach the handler.
func CreateTestApp() *fiber.App {
	app := fiber.New(fiber.Config{BodyLimit: 10 << 20})
	app.Use(middleware.ErrorHandler())
	v1.RegisterRoutes(app)
	return app
}

// doJSON runs one request against the test app, JSON body optional.
func doJSON(t *testing.T, app *fiber.App, method, url string, body interface{}, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

// RegisterAndLogin creates a fresh user and returns its token and ID.
func RegisterAndLogin(t *testing.T, app *fiber.App) (string, int) {
	t.Helper()
	username := fmt.Sprintf("user_%d", time.Now().UnixNano())

	regResp := doJSON(t, app, "POST", "/api/v1/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password1",
	}, "")
	require.Equal(t, http.StatusCreated, regResp.StatusCode)
	regResp.Body.Close()

	loginResp := doJSON(t, app, "POST", "/api/v1/login", map[string]string{
		"username": username,
		"password": "password1",
	}, "")
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	loginResult := decodeBody(t, loginResp)

	data, ok := loginResult["data"].(map[string]interface{})
	require.True(t, ok, "expected data field in login response")
	token, ok := data["token"].(string)
	require.True(t, ok, "expected token in login response")
	require.NotEmpty(t, token)

	return token, int(data["user_id"].(float64))
}

// CreateTestCategory inserts a category through the API.
func CreateTestCategory(t *testing.T, app *fiber.App, token, name string) int {
	t.Helper()
	resp := doJSON(t, app, "POST", "/api/v1/categories", map[string]string{"name": name}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	result := decodeBody(t, resp)
	return int(result["id"].(float64))
}

// CreateTestTask inserts a task through the API.
func CreateTestTask(t *testing.T, app *fiber.App, token string, body map[string]interface{}) int {
	t.Helper()
	resp := doJSON(t, app, "POST", "/api/v1/tasks", body, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	result := decodeBody(t, resp)
	return int(result["id"].(float64))
}
