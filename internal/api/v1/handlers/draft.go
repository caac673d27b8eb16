package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"taskpad/internal/config"
	"taskpad/internal/models"
	"taskpad/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Draft handlers. Clients autosave edits here on a debounce timer; the
// draft survives a closed tab until the task itself is saved, the draft
// is discarded, or the TTL runs out. Last write wins.

const draftTTL = 72 * time.Hour

func draftKey(userID, taskID int) string {
	return fmt.Sprintf("draft:%d:%d", userID, taskID)
}

// ownedActiveTask resolves the task behind a draft route. Trashed tasks
// read as missing, so a draft cannot resurrect a deleted note.
func ownedActiveTask(c *fiber.Ctx) (models.Task, int, bool) {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
		return models.Task{}, 0, false
	}

	task, err := fetchTask(taskID)
	if err != nil || task.UserID != userID || task.IsDeleted {
		logger.SecurityLogger.Warn("Task not found for draft", zap.Int("task_id", taskID), zap.Int("user_id", userID))
		c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
		return models.Task{}, 0, false
	}

	return task, userID, true
}

func SaveDraft(c *fiber.Ctx) error {
	task, userID, ok := ownedActiveTask(c)
	if !ok {
		return nil
	}

	type DraftRequest struct {
		Title   string `json:"title" validate:"required,max=255"`
		Content string `json:"content"`
	}

	var req DraftRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in save draft", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in save draft", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	draft := models.Draft{
		Title:   req.Title,
		Content: req.Content,
		SavedAt: time.Now().UTC(),
	}
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding draft to JSON", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error encoding draft",
			"success": false,
			"status":  500,
		})
	}

	if err := config.RedisClient.SetEX(config.Ctx, draftKey(userID, task.ID), draftJSON, draftTTL).Err(); err != nil {
		logger.ErrorLogger.Error("Error storing draft", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error storing draft",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Draft saved", zap.Int("task_id", task.ID), zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Draft saved",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"saved_at": draft.SavedAt,
		},
	})
}

func GetDraft(c *fiber.Ctx) error {
	task, userID, ok := ownedActiveTask(c)
	if !ok {
		return nil
	}

	cached, err := config.RedisClient.Get(config.Ctx, draftKey(userID, task.ID)).Result()
	if err != nil {
		logger.AuditLogger.Info("No draft found", zap.Int("task_id", task.ID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "No draft found",
			"success": false,
			"status":  404,
		})
	}

	var draft models.Draft
	if err := json.Unmarshal([]byte(cached), &draft); err != nil {
		logger.ErrorLogger.Error("Error decoding draft", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error decoding draft",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Draft found", zap.Int("task_id", task.ID), zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Draft found",
		"success": true,
		"status":  200,
		"data":    draft,
	})
}

func DiscardDraft(c *fiber.Ctx) error {
	task, userID, ok := ownedActiveTask(c)
	if !ok {
		return nil
	}

	config.RedisClient.Del(config.Ctx, draftKey(userID, task.ID))

	logger.AuditLogger.Info("Draft discarded", zap.Int("task_id", task.ID), zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Draft discarded",
		"success": true,
		"status":  200,
	})
}
