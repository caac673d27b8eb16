package handlers

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"taskpad/internal/config"
	"taskpad/internal/models"
	"taskpad/pkg/crypto"
	"taskpad/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// stripTags flattens editor HTML into plain text for the PDF body.
func stripTags(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
	return strings.Join(strings.Fields(replacer.Replace(text)), " ")
}

// ExportTasksPDF renders the user's active tasks (optionally one
// category) as a downloadable PDF.
func ExportTasksPDF(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	query := `SELECT t.id, t.user_id, t.category_id, t.title, t.content, t.is_private, t.is_deleted, t.deleted_at, t.created_at, t.updated_at
		 FROM tasks t WHERE t.user_id = $1 AND t.is_deleted = FALSE`
	args := []interface{}{userID}
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
		query += " AND t.category_id = $2"
		args = append(args, categoryID)
	}
	query += " ORDER BY t.updated_at DESC"

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks for export", zap.Error(err))
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
			logger.ErrorLogger.Error("Error scanning tasks for export", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error scanning tasks",
				"success": false,
				"status":  500,
			})
		}
		if task.IsPrivate && task.Content != "" {
			decrypted, err := crypto.Decrypt(task.Content, config.EncryptKey)
			if err != nil {
				logger.ErrorLogger.Error("Error decrypting task content", zap.Error(err))
				return c.Status(500).JSON(fiber.Map{
					"message": "Error decrypting task content",
					"success": false,
					"status":  500,
				})
			}
			task.Content = decrypted
		}
		tasks = append(tasks, task)
	}
	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over tasks for export", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error iterating over tasks",
			"success": false,
			"status":  500,
		})
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Taskpad Export")
	pdf.Ln(12)
	for _, task := range tasks {
		pdf.SetFont("Arial", "B", 11)
		pdf.MultiCell(0, 6, task.Title, "0", "L", false)
		pdf.SetFont("Arial", "", 10)
		if text := stripTags(task.Content); text != "" {
			pdf.MultiCell(0, 5, text, "0", "L", false)
		}
		pdf.MultiCell(0, 5, "Updated "+task.UpdatedAt.Format("2006-01-02 15:04"), "0", "L", false)
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		logger.ErrorLogger.Error("Error rendering PDF", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error rendering PDF",
			"success": false,
			"status":  500,
		})
	}

	logger.AuditLogger.Info("Tasks exported to PDF", zap.Int("user_id", userID), zap.Int("count", len(tasks)))
	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", `attachment; filename="tasks.pdf"`)
	return c.Send(buf.Bytes())
}
