package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"taskpad/internal/config"
	"taskpad/internal/models"
	myws "taskpad/internal/websocket"
	"taskpad/pkg/crypto"
	"taskpad/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Task handlers

const taskCacheTTL = time.Hour

func taskCacheKey(taskID int) string {
	return fmt.Sprintf("task:%d", taskID)
}

// fetchTask loads a single row as stored; private content stays
// encrypted until decryptTask runs.
func fetchTask(taskID int) (models.Task, error) {
	var task models.Task
	err := config.DB.QueryRow(
		`SELECT id, user_id, category_id, title, content, is_private, is_deleted, deleted_at, created_at, updated_at
		 FROM tasks WHERE id = $1`,
		taskID).Scan(&task.ID, &task.UserID, &task.CategoryID, &task.Title, &task.Content,
		&task.IsPrivate, &task.IsDeleted, &task.DeletedAt, &task.CreatedAt, &task.UpdatedAt)
	return task, err
}

func decryptTask(task *models.Task) error {
	if task.IsPrivate && task.Content != "" {
		decrypted, err := crypto.Decrypt(task.Content, config.EncryptKey)
		if err != nil {
			return err
		}
		task.Content = decrypted
	}
	return nil
}

// cacheTask stores the decrypted task JSON in Redis. Best effort: a
// cache miss later just means one extra database read.
func cacheTask(task models.Task) {
	jsonData, err := json.Marshal(task)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding task to JSON", zap.Error(err))
		return
	}
	if err := config.RedisClient.SetEX(config.Ctx, taskCacheKey(task.ID), jsonData, taskCacheTTL).Err(); err != nil {
		logger.ErrorLogger.Error("Error caching task", zap.Error(err))
	}
}

// checkCategoryOwned verifies the category exists and belongs to the
// user before a task is filed under it.
func checkCategoryOwned(categoryID int64, userID int) bool {
	var ownerID int
	err := config.DB.QueryRow("SELECT user_id FROM categories WHERE id = $1", categoryID).Scan(&ownerID)
	return err == nil && ownerID == userID
}

func CreateTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	type TaskRequest struct {
		Title      string `json:"title" validate:"required,max=255"`
		Content    string `json:"content"`
		CategoryID *int64 `json:"category_id"`
		IsPrivate  bool   `json:"is_private"`
	}

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// category_id 0 means "no category"
	if req.CategoryID != nil && *req.CategoryID == 0 {
		req.CategoryID = nil
	}
	if req.CategoryID != nil && !checkCategoryOwned(*req.CategoryID, userID) {
		logger.AuditLogger.Warn("Invalid category in create task", zap.Int64("category_id", *req.CategoryID), zap.Int("user_id", userID))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid category",
			"success": false,
			"status":  400,
		})
	}

	content := req.Content
	if req.IsPrivate {
		encrypted, err := crypto.Encrypt(content, config.EncryptKey)
		if err != nil {
			logger.ErrorLogger.Error("Error encrypting task content", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error encrypting task content",
				"success": false,
				"status":  500,
			})
		}
		content = encrypted
	}

	var taskID int
	err := config.DB.QueryRow(
		"INSERT INTO tasks (user_id, category_id, title, content, is_private) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		userID, req.CategoryID, req.Title, content, req.IsPrivate,
	).Scan(&taskID)
	if err != nil {
		logger.ErrorLogger.Error("Error creating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating task",
			"success": false,
			"status":  500,
		})
	}

	config.Events.Publish(myws.Event{Type: "task.created", TaskID: taskID, UserID: userID})

	logger.AuditLogger.Info("Task created successfully", zap.Int("task_id", taskID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Task created successfully",
		"success": true,
		"status":  201,
		"id":      taskID,
	})
}

// ListTasks returns the user's active tasks, optionally filtered by
// category. ?deleted=true lists the trash instead.
func ListTasks(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	deleted := c.Query("deleted") == "true"

	var rows *sql.Rows
	var err error
	if categoryFilter := c.Query("category_id"); categoryFilter != "" {
		categoryID, convErr := strconv.Atoi(categoryFilter)
		if convErr != nil {
			logger.ErrorLogger.Error("Invalid category_id filter", zap.Error(convErr))
			return c.Status(400).JSON(fiber.Map{
				"message": "Invalid category_id",
				"success": false,
				"status":  400,
			})
		}
		rows, err = config.DB.Query(
			`SELECT id, user_id, category_id, title, content, is_private, is_deleted, deleted_at, created_at, updated_at
			 FROM tasks WHERE user_id = $1 AND is_deleted = $2 AND category_id = $3
			 ORDER BY updated_at DESC`,
			userID, deleted, categoryID)
	} else {
		rows, err = config.DB.Query(
			`SELECT id, user_id, category_id, title, content, is_private, is_deleted, deleted_at, created_at, updated_at
			 FROM tasks WHERE user_id = $1 AND is_deleted = $2
			 ORDER BY updated_at DESC`,
			userID, deleted)
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching tasks",
			"success": false,
			"status":  500,
		})
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var task models.Task
		err := rows.Scan(&task.ID, &task.UserID, &task.CategoryID, &task.Title, &task.Content,
			&task.IsPrivate, &task.IsDeleted, &task.DeletedAt, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			logger.ErrorLogger.Error("Error scanning tasks", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error scanning tasks",
				"success": false,
				"status":  500,
			})
		}

		if err := decryptTask(&task); err != nil {
			logger.ErrorLogger.Error("Error decrypting task content", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error decrypting task content",
				"success": false,
				"status":  500,
			})
		}

		tasks = append(tasks, task)
	}

	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error iterating over tasks",
			"success": false,
			"status":  500,
		})
	}

	// Warm the single-task cache while the rows are hot
	for _, task := range tasks {
		cacheTask(task)
	}

	logger.AuditLogger.Info("Tasks fetched successfully", zap.Int("user_id", userID), zap.Int("count", len(tasks)))
	return c.JSON(fiber.Map{
		"message": "Tasks fetched successfully",
		"success": true,
		"status":  200,
		"data":    tasks,
	})
}

func GetTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	// Try the cache first
	if cached, err := config.RedisClient.Get(config.Ctx, taskCacheKey(taskID)).Result(); err == nil {
		var task models.Task
		if err = json.Unmarshal([]byte(cached), &task); err == nil {
			// Someone else's task reads as missing
			if task.UserID != userID {
				logger.SecurityLogger.Warn("Task access denied", zap.Int("task_id", taskID), zap.Int("user_id", userID))
				return c.Status(404).JSON(fiber.Map{
					"message": "Task not found",
					"success": false,
					"status":  404,
				})
			}
			logger.AuditLogger.Info("Task found (from cache)", zap.Int("task_id", taskID))
			return c.JSON(fiber.Map{
				"message": "Task found (from cache)",
				"success": true,
				"status":  200,
				"data":    task,
			})
		}
	}

	task, err := fetchTask(taskID)
	if err != nil {
		logger.ErrorLogger.Error("Task not found", zap.Error(err))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}
	if task.UserID != userID {
		logger.SecurityLogger.Warn("Task access denied", zap.Int("task_id", taskID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}

	if err := decryptTask(&task); err != nil {
		logger.ErrorLogger.Error("Error decrypting task content", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error decrypting task content",
			"success": false,
			"status":  500,
		})
	}

	cacheTask(task)

	logger.AuditLogger.Info("Task found", zap.Int("task_id", taskID))
	return c.JSON(fiber.Map{
		"message": "Task found",
		"success": true,
		"status":  200,
		"data":    task,
	})
}

func UpdateTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	task, err := fetchTask(taskID)
	if err != nil || task.UserID != userID {
		logger.SecurityLogger.Warn("Task not found", zap.Int("task_id", taskID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}
	if task.IsDeleted {
		logger.AuditLogger.Warn("Update rejected, task is in the trash", zap.Int("task_id", taskID))
		return c.Status(409).JSON(fiber.Map{
			"message": "Task is in the trash, restore it first",
			"success": false,
			"status":  409,
		})
	}

	// Pointer fields so absent keys leave the column untouched;
	// category_id 0 clears the category.
	type UpdateTaskRequest struct {
		Title      *string `json:"title"`
		Content    *string `json:"content"`
		CategoryID *int64  `json:"category_id"`
		IsPrivate  *bool   `json:"is_private"`
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	// Merge over current values in the plaintext domain, then encrypt
	// once at the end if the result is private.
	if err := decryptTask(&task); err != nil {
		logger.ErrorLogger.Error("Error decrypting task content", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error decrypting task content",
			"success": false,
			"status":  500,
		})
	}

	if req.Title != nil {
		if *req.Title == "" {
			logger.AuditLogger.Warn("Empty title in update task", zap.Int("task_id", taskID))
			return c.Status(400).JSON(fiber.Map{
				"message": "Title cannot be empty",
				"success": false,
				"status":  400,
			})
		}
		task.Title = *req.Title
	}
	if req.Content != nil {
		task.Content = *req.Content
	}
	if req.IsPrivate != nil {
		task.IsPrivate = *req.IsPrivate
	}
	if req.CategoryID != nil {
		if *req.CategoryID == 0 {
			task.CategoryID = nil
		} else {
			if !checkCategoryOwned(*req.CategoryID, userID) {
				logger.AuditLogger.Warn("Invalid category in update task", zap.Int64("category_id", *req.CategoryID), zap.Int("user_id", userID))
				return c.Status(400).JSON(fiber.Map{
					"message": "Invalid category",
					"success": false,
					"status":  400,
				})
			}
			task.CategoryID = req.CategoryID
		}
	}

	content := task.Content
	if task.IsPrivate {
		encrypted, err := crypto.Encrypt(content, config.EncryptKey)
		if err != nil {
			logger.ErrorLogger.Error("Error encrypting task content", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error encrypting task content",
				"success": false,
				"status":  500,
			})
		}
		content = encrypted
	}

	_, err = config.DB.Exec(
		`UPDATE tasks SET title = $1, content = $2, category_id = $3, is_private = $4, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $5`,
		task.Title, content, task.CategoryID, task.IsPrivate, taskID,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error updating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error updating task",
			"success": false,
			"status":  500,
		})
	}

	// A saved task supersedes any pending draft
	config.RedisClient.Del(config.Ctx, draftKey(userID, taskID))

	// Refresh the cache with the new timestamps
	config.RedisClient.Del(config.Ctx, taskCacheKey(taskID))
	updatedTask, err := fetchTask(taskID)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching updated task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching updated task",
			"success": false,
			"status":  500,
		})
	}
	if err := decryptTask(&updatedTask); err != nil {
		logger.ErrorLogger.Error("Error decrypting task content", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error decrypting task content",
			"success": false,
			"status":  500,
		})
	}
	cacheTask(updatedTask)

	config.Events.Publish(myws.Event{Type: "task.updated", TaskID: taskID, UserID: userID})

	logger.AuditLogger.Info("Task updated", zap.Int("taskID", taskID))
	return c.JSON(fiber.Map{
		"message": "Task updated successfully",
		"success": true,
		"status":  200,
		"data":    updatedTask,
	})
}

// DeleteTask moves the task to the trash. The row stays in place so a
// restore can bring it back.
func DeleteTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	task, err := fetchTask(taskID)
	if err != nil || task.UserID != userID {
		logger.SecurityLogger.Warn("Task not found", zap.Int("task_id", taskID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}
	if task.IsDeleted {
		logger.AuditLogger.Warn("Task already deleted", zap.Int("task_id", taskID))
		return c.Status(400).JSON(fiber.Map{
			"message": "Task already deleted",
			"success": false,
			"status":  400,
		})
	}

	_, err = config.DB.Exec(
		"UPDATE tasks SET is_deleted = TRUE, deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = $1",
		taskID,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting task",
			"success": false,
			"status":  500,
		})
	}

	config.RedisClient.Del(config.Ctx, taskCacheKey(taskID))
	config.RedisClient.Del(config.Ctx, draftKey(userID, taskID))

	config.Events.Publish(myws.Event{Type: "task.deleted", TaskID: taskID, UserID: userID})

	logger.AuditLogger.Info("Task deleted", zap.Int("taskID", taskID))
	return c.JSON(fiber.Map{
		"message": "Task deleted successfully",
		"success": true,
		"status":  200,
	})
}

func RestoreTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	task, err := fetchTask(taskID)
	if err != nil || task.UserID != userID {
		logger.SecurityLogger.Warn("Task not found", zap.Int("task_id", taskID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}
	if !task.IsDeleted {
		logger.AuditLogger.Warn("Restore rejected, task is not deleted", zap.Int("task_id", taskID))
		return c.Status(400).JSON(fiber.Map{
			"message": "Task is not deleted",
			"success": false,
			"status":  400,
		})
	}

	_, err = config.DB.Exec(
		"UPDATE tasks SET is_deleted = FALSE, deleted_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = $1",
		taskID,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error restoring task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error restoring task",
			"success": false,
			"status":  500,
		})
	}

	config.RedisClient.Del(config.Ctx, taskCacheKey(taskID))

	config.Events.Publish(myws.Event{Type: "task.restored", TaskID: taskID, UserID: userID})

	logger.AuditLogger.Info("Task restored", zap.Int("taskID", taskID))
	return c.JSON(fiber.Map{
		"message": "Task restored successfully",
		"success": true,
		"status":  200,
	})
}

// PurgeTask permanently removes an already-trashed task.
func PurgeTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	task, err := fetchTask(taskID)
	if err != nil || task.UserID != userID {
		logger.SecurityLogger.Warn("Task not found", zap.Int("task_id", taskID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}
	if !task.IsDeleted {
		logger.AuditLogger.Warn("Purge rejected, task is not deleted", zap.Int("task_id", taskID))
		return c.Status(400).JSON(fiber.Map{
			"message": "Only deleted tasks can be purged",
			"success": false,
			"status":  400,
		})
	}

	_, err = config.DB.Exec("DELETE FROM tasks WHERE id = $1", taskID)
	if err != nil {
		logger.ErrorLogger.Error("Error purging task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error purging task",
			"success": false,
			"status":  500,
		})
	}

	config.RedisClient.Del(config.Ctx, taskCacheKey(taskID))
	config.RedisClient.Del(config.Ctx, draftKey(userID, taskID))

	config.Events.Publish(myws.Event{Type: "task.purged", TaskID: taskID, UserID: userID})

	logger.AuditLogger.Info("Task purged", zap.Int("taskID", taskID))
	return c.JSON(fiber.Map{
		"message": "Task purged successfully",
		"success": true,
		"status":  200,
	})
}
