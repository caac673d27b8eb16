package handlers

import (
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"taskpad/internal/config"
	"taskpad/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Attachment handlers: image uploads referenced from rich-text content.

func validateAttachment(file *multipart.FileHeader) error {
	// 5MB cap
	if file.Size > 5<<20 {
		return fiber.NewError(fiber.StatusBadRequest, "File size exceeds the limit of 5MB")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowedExts := map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
	if !allowedExts[ext] {
		return fiber.NewError(fiber.StatusBadRequest, "File type not allowed")
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image") {
		return fiber.NewError(fiber.StatusBadRequest, "File must be an image")
	}

	return nil
}

func GetAttachment(c *fiber.Ctx) error {
	filename := filepath.Base(c.Params("filename"))
	filePath := path.Join(config.UploadDir, filename)
	return c.SendFile(filePath)
}

func UploadAttachment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	if _, err := os.Stat(config.UploadDir); os.IsNotExist(err) {
		if err := os.Mkdir(config.UploadDir, os.ModePerm); err != nil {
			logger.ErrorLogger.Error("Error creating upload directory", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error creating upload directory",
				"success": false,
				"status":  500,
			})
		}
	}

	file, err := c.FormFile("file")
	if err != nil {
		logger.ErrorLogger.Error("Error uploading file", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Error uploading file",
			"success": false,
			"status":  400,
		})
	}

	if err := validateAttachment(file); err != nil {
		logger.ErrorLogger.Error("Error validating file", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// Timestamp-based name keeps uploads unique and unguessable enough
	newFilename := fmt.Sprintf("%d%s", time.Now().UnixNano(), filepath.Ext(file.Filename))

	filePath := path.Join(config.UploadDir, newFilename)
	if err := c.SaveFile(file, filePath); err != nil {
		logger.ErrorLogger.Error("Error saving file", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error saving file",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Attachment uploaded", zap.String("filename", newFilename), zap.Int("user_id", userID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Attachment uploaded successfully",
		"success": true,
		"status":  201,
		"data": fiber.Map{
			"filename": newFilename,
			"url":      "/api/v1/attachments/" + newFilename,
			"size":     file.Size,
		},
	})
}
