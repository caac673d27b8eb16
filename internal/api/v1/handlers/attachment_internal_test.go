package handlers

import (
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fileHeader(name, contentType string, size int64) *multipart.FileHeader {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", contentType)
	return &multipart.FileHeader{Filename: name, Header: header, Size: size}
}

func TestValidateAttachment(t *testing.T) {
	cases := []struct {
		name string
		file *multipart.FileHeader
		ok   bool
	}{
		{"small png", fileHeader("a.png", "image/png", 100), true},
		{"jpeg", fileHeader("photo.jpeg", "image/jpeg", 1 << 20), true},
		{"uppercase extension", fileHeader("SHOT.PNG", "image/png", 100), true},
		{"webp", fileHeader("sticker.webp", "image/webp", 100), true},
		{"exactly at the cap", fileHeader("edge.gif", "image/gif", 5 << 20), true},
		{"over the cap", fileHeader("big.png", "image/png", 6 << 20), false},
		{"executable", fileHeader("payload.exe", "image/png", 100), false},
		{"no extension", fileHeader("README", "image/png", 100), false},
		{"non-image content type", fileHeader("fake.png", "text/plain", 100), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateAttachment(tc.file)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
