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
	"golang.org/x/crypto/bcrypt"
)

// Profile handlers. Every account only ever sees itself; the user ID
// always comes from the token, never from the URL.

func GetProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	// Try the Redis cache first
	cacheKey := fmt.Sprintf("user:%d", userID)
	if cached, err := config.RedisClient.Get(config.Ctx, cacheKey).Result(); err == nil {
		var user models.User
		if err = json.Unmarshal([]byte(cached), &user); err == nil {
			return c.JSON(fiber.Map{
				"message": "User found (from cache)",
				"success": true,
				"status":  200,
				"data":    user,
			})
		}
	}

	var user models.User
	err := config.DB.QueryRow(
		"SELECT id, username, email, display_name, created_at, updated_at FROM users WHERE id = $1",
		userID).Scan(&user.ID, &user.Username, &user.Email, &user.DisplayName, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		logger.SecurityLogger.Warn("User not found", zap.Error(err))
		return c.Status(404).JSON(fiber.Map{
			"message": "User not found",
			"success": false,
			"status":  404,
		})
	}

	userJSON, err := json.Marshal(user)
	if err == nil {
		config.RedisClient.SetEX(config.Ctx, cacheKey, userJSON, time.Hour)
	}

	logger.AuditLogger.Info("User found", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "User found",
		"success": true,
		"status":  200,
		"data":    user,
	})
}

func UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	// Pointer fields so absent keys leave the column untouched
	type UpdateProfileRequest struct {
		Email       *string `json:"email"`
		DisplayName *string `json:"display_name"`
		Password    *string `json:"password"`
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update profile", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	// Empty email means "leave unchanged" through NULLIF, anything else
	// has to look like an address.
	if req.Email != nil && *req.Email != "" {
		if err := config.Validate.Var(*req.Email, "email"); err != nil {
			logger.AuditLogger.Warn("Invalid email in update profile", zap.Int("user_id", userID))
			return c.Status(400).JSON(fiber.Map{
				"message": "Invalid email address",
				"success": false,
				"status":  400,
			})
		}
	}

	var hashedPassword string
	if req.Password != nil {
		if len(*req.Password) < 6 {
			logger.AuditLogger.Warn("Password too short in update profile", zap.Int("user_id", userID))
			return c.Status(400).JSON(fiber.Map{
				"message": "Password must be at least 6 characters",
				"success": false,
				"status":  400,
			})
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error hashing password",
				"success": false,
				"status":  500,
			})
		}
		hashedPassword = string(hashed)
	}

	_, err := config.DB.Exec(`
        UPDATE users
        SET email = COALESCE(NULLIF($1, ''), email),
            display_name = COALESCE($2, display_name),
            password = COALESCE(NULLIF($3, ''), password),
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $4`,
		req.Email, req.DisplayName, hashedPassword, userID,
	)
	if err != nil {
		logger.ErrorLogger.Error("Error updating user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error updating user",
			"success": false,
			"status":  500,
		})
	}

	var updatedUser models.User
	err = config.DB.QueryRow(
		"SELECT id, username, email, display_name, created_at, updated_at FROM users WHERE id = $1",
		userID,
	).Scan(&updatedUser.ID, &updatedUser.Username, &updatedUser.Email, &updatedUser.DisplayName, &updatedUser.CreatedAt, &updatedUser.UpdatedAt)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching updated user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching updated user",
			"success": false,
			"status":  500,
		})
	}

	// Refresh the cache
	cacheKey := fmt.Sprintf("user:%d", userID)
	config.RedisClient.Del(config.Ctx, cacheKey)
	userJSON, err := json.Marshal(updatedUser)
	if err == nil {
		config.RedisClient.SetEX(config.Ctx, cacheKey, userJSON, time.Hour)
	}

	logger.AuditLogger.Info("User updated successfully", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"success": true,
		"status":  200,
		"data":    updatedUser,
	})
}

// DeleteAccount removes the user row; categories and tasks go with it
// through the ON DELETE CASCADE constraints.
func DeleteAccount(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	_, err := config.DB.Exec("DELETE FROM users WHERE id = $1", userID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting user", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting user",
			"success": false,
			"status":  500,
		})
	}

	cacheKey := fmt.Sprintf("user:%d", userID)
	config.RedisClient.Del(config.Ctx, cacheKey)

	logger.AuditLogger.Info("User deleted successfully", zap.Int("user_id", userID))
	return c.Status(200).JSON(fiber.Map{
		"message": "User deleted successfully",
		"success": true,
		"status":  200,
	})
}
