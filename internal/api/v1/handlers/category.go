package handlers

import (
	"taskpad/internal/config"
	"taskpad/internal/models"
	myws "taskpad/internal/websocket"
	"taskpad/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Category handlers

func ListCategories(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	rows, err := config.DB.Query(
		"SELECT id, user_id, name, created_at FROM categories WHERE user_id = $1 ORDER BY name ASC",
		userID)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching categories", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching categories",
			"success": false,
			"status":  500,
		})
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.UserID, &category.Name, &category.CreatedAt); err != nil {
			logger.ErrorLogger.Error("Error scanning categories", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error scanning categories",
				"success": false,
				"status":  500,
			})
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over categories", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error iterating over categories",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Categories fetched successfully", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Categories fetched successfully",
		"success": true,
		"status":  200,
		"data":    categories,
	})
}

func CreateCategory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	type CategoryRequest struct {
		Name string `json:"name" validate:"required,max=255"`
	}

	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create category", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in create category", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// The unique index on (user_id, name) is the real guard against
	// duplicate names; a violation surfaces as 23505.
	var categoryID int
	err := config.DB.QueryRow(
		"INSERT INTO categories (user_id, name) VALUES ($1, $2) RETURNING id",
		userID, req.Name,
	).Scan(&categoryID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			logger.AuditLogger.Warn("Duplicate category name", zap.String("name", req.Name), zap.Int("user_id", userID))
			return c.Status(409).JSON(fiber.Map{
				"message": "Category name already exists",
				"success": false,
				"status":  409,
			})
		}
		logger.ErrorLogger.Error("Error creating category", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating category",
			"success": false,
			"status":  500,
		})
	}

	config.Events.Publish(myws.Event{Type: "category.created", CategoryID: categoryID, UserID: userID})

	logger.AuditLogger.Info("Category created successfully", zap.Int("category_id", categoryID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Category created successfully",
		"success": true,
		"status":  201,
		"id":      categoryID,
	})
}

func RenameCategory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	categoryID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid category ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid category ID",
			"success": false,
			"status":  400,
		})
	}

	type CategoryRequest struct {
		Name string `json:"name" validate:"required,max=255"`
	}

	var req CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in rename category", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in rename category", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	res, err := config.DB.Exec(
		"UPDATE categories SET name = $1 WHERE id = $2 AND user_id = $3",
		req.Name, categoryID, userID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			logger.AuditLogger.Warn("Duplicate category name", zap.String("name", req.Name), zap.Int("user_id", userID))
			return c.Status(409).JSON(fiber.Map{
				"message": "Category name already exists",
				"success": false,
				"status":  409,
			})
		}
		logger.ErrorLogger.Error("Error renaming category", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error renaming category",
			"success": false,
			"status":  500,
		})
	}

	// Ownership check folded into the WHERE clause: zero rows means the
	// category does not exist or belongs to someone else.
	if affected, _ := res.RowsAffected(); affected == 0 {
		logger.SecurityLogger.Warn("Category not found", zap.Int("category_id", categoryID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Category not found",
			"success": false,
			"status":  404,
		})
	}

	config.Events.Publish(myws.Event{Type: "category.updated", CategoryID: categoryID, UserID: userID})

	logger.AuditLogger.Info("Category renamed successfully", zap.Int("category_id", categoryID))
	return c.JSON(fiber.Map{
		"message": "Category renamed successfully",
		"success": true,
		"status":  200,
	})
}

// DeleteCategory removes the category row. Tasks pointing at it keep
// living with a NULL category_id through ON DELETE SET NULL.
func DeleteCategory(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	categoryID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid category ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid category ID",
			"success": false,
			"status":  400,
		})
	}

	// Collect tasks filed under this category so their cached copies
	// don't keep serving the old category_id.
	staleTasks := []int{}
	rows, err := config.DB.Query(
		"SELECT id FROM tasks WHERE category_id = $1 AND user_id = $2",
		categoryID, userID)
	if err != nil {
		logger.ErrorLogger.Error("Error collecting tasks for cache flush", zap.Error(err))
	} else {
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				logger.ErrorLogger.Error("Error scanning task for cache flush", zap.Error(err))
				continue
			}
			staleTasks = append(staleTasks, id)
		}
		if err := rows.Err(); err != nil {
			logger.ErrorLogger.Error("Error iterating tasks for cache flush", zap.Error(err))
		}
		rows.Close()
	}

	res, err := config.DB.Exec(
		"DELETE FROM categories WHERE id = $1 AND user_id = $2",
		categoryID, userID,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting category", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting category",
			"success": false,
			"status":  500,
		})
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		logger.SecurityLogger.Warn("Category not found", zap.Int("category_id", categoryID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Category not found",
			"success": false,
			"status":  404,
		})
	}

	for _, taskID := range staleTasks {
		config.RedisClient.Del(config.Ctx, taskCacheKey(taskID))
	}

	config.Events.Publish(myws.Event{Type: "category.deleted", CategoryID: categoryID, UserID: userID})

	logger.AuditLogger.Info("Category deleted successfully", zap.Int("category_id", categoryID))
	return c.JSON(fiber.Map{
		"message": "Category deleted successfully",
		"success": true,
		"status":  200,
	})
}
