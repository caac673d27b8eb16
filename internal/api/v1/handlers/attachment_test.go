package handlers_test

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"taskpad/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doUpload posts one file as multipart form data. The part's own
// Content-Type header matters here, so the part is built by hand.
func doUpload(t *testing.T, app *fiber.App, filename, contentType string, payload []byte, token string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/v1/attachments", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	return resp
}

func useTempUploadDir(t *testing.T) {
	t.Helper()
	old := config.UploadDir
	config.UploadDir = t.TempDir()
	t.Cleanup(func() { config.UploadDir = old })
}

func TestUploadAndDownloadAttachment(t *testing.T) {
	useTempUploadDir(t)
	app := CreateTestApp()
	token, _ := RegisterAndLogin(t, app)

	payload := []byte("not really a png but close enough")
	resp := doUpload(t, app, "diagram.png", "image/png", payload, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	result := decodeBody(t, resp)
	data := result["data"].(map[string]interface{})
	url, ok := data["url"].(string)
	require.True(t, ok, "expected url in upload response")
	assert.Equal(t, float64(len(payload)), data["size"])

	resp = doJSON(t, app, "GET", url, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, payload, body)
}

func TestUploadAttachmentRejectsBadFiles(t *testing.T) {
	useTempUploadDir(t)
	app := CreateTestApp()
	token, _ := RegisterAndLogin(t, app)

	// Disallowed extension
	resp := doUpload(t, app, "payload.exe", "image/png", []byte("mz"), token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Allowed extension but not an image
	resp = doUpload(t, app, "notes.png", "text/plain", []byte("plain text"), token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Over the 5MB cap
	resp = doUpload(t, app, "huge.png", "image/png", bytes.Repeat([]byte("x"), 6<<20), token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Missing file field entirely
	resp = doJSON(t, app, "POST", "/api/v1/attachments", map[string]string{"file": "nope"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUploadAttachmentRequiresToken(t *testing.T) {
	useTempUploadDir(t)
	app := CreateTestApp()

	resp := doUpload(t, app, "diagram.png", "image/png", []byte("png"), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
