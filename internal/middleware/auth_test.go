package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskpad/internal/config"
	"taskpad/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestParseToken(t *testing.T) {
	valid := signToken(t, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, config.SecretKey)

	userID, err := middleware.ParseToken(valid)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestParseTokenExpired(t *testing.T) {
	expired := signToken(t, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}, config.SecretKey)

	_, err := middleware.ParseToken(expired)
	assert.Error(t, err)
}

func TestParseTokenWrongKey(t *testing.T) {
	forged := signToken(t, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, []byte("someone-elses-secret"))

	_, err := middleware.ParseToken(forged)
	assert.Error(t, err)
}

func TestParseTokenMissingUserID(t *testing.T) {
	anonymous := signToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}, config.SecretKey)

	_, err := middleware.ParseToken(anonymous)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := middleware.ParseToken("not.a.token")
	assert.Error(t, err)
}

func TestUseToken(t *testing.T) {
	app := fiber.New()
	app.Get("/protected", middleware.UseToken, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("userID")})
	})

	// No header
	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Wrong scheme
	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Basic abcdef")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Valid bearer token reaches the handler with the user ID in locals
	valid := signToken(t, jwt.MapClaims{
		"user_id": 7,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, config.SecretKey)
	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+valid)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
