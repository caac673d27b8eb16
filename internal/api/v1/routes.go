package v1

import (
	"taskpad/internal/api/v1/handlers"
	"taskpad/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// Auth
	api.Post("/register", handlers.Register)
	api.Post("/login", handlers.Login)

	// Profile
	userRoutes := api.Group("/users", middleware.UseToken)
	userRoutes.Get("/me", handlers.GetProfile)
	userRoutes.Put("/me", handlers.UpdateProfile)
	userRoutes.Delete("/me", handlers.DeleteAccount)

	// Category
	categoryRoutes := api.Group("/categories", middleware.UseToken)
	categoryRoutes.Get("/", handlers.ListCategories)
	categoryRoutes.Post("/", handlers.CreateCategory)
	categoryRoutes.Put("/:id", handlers.RenameCategory)
	categoryRoutes.Delete("/:id", handlers.DeleteCategory)

	// Task; /export before /:id so the static segment wins
	taskRoutes := api.Group("/tasks", middleware.UseToken)
	taskRoutes.Get("/export", handlers.ExportTasksPDF)
	taskRoutes.Post("/", handlers.CreateTask)
	taskRoutes.Get("/", handlers.ListTasks)
	taskRoutes.Get("/:id", handlers.GetTask)
	taskRoutes.Put("/:id", handlers.UpdateTask)
	taskRoutes.Delete("/:id", handlers.DeleteTask)
	taskRoutes.Post("/:id/restore", handlers.RestoreTask)
	taskRoutes.Delete("/:id/purge", handlers.PurgeTask)

	// Draft autosave
	taskRoutes.Put("/:id/draft", handlers.SaveDraft)
	taskRoutes.Get("/:id/draft", handlers.GetDraft)
	taskRoutes.Delete("/:id/draft", handlers.DiscardDraft)

	// Attachments
	attachmentRoutes := api.Group("/attachments", middleware.UseToken)
	attachmentRoutes.Post("/", handlers.UploadAttachment)
	attachmentRoutes.Get("/:filename", handlers.GetAttachment)
}
