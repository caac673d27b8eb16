package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID          int            `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	DisplayName sql.NullString `json:"display_name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Category struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a single rich-text note. Content holds editor HTML; when
// IsPrivate is set the content is stored encrypted and decrypted on read.
type Task struct {
	ID         int        `json:"id"`
	UserID     int        `json:"user_id"`
	CategoryID *int64     `json:"category_id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	IsPrivate  bool       `json:"is_private"`
	IsDeleted  bool       `json:"is_deleted"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Draft is an unsaved edit kept in Redis until the task is saved again.
// Last write wins.
type Draft struct {
	Title   string    `json:"title"`
	Content string    `json:"content"`
	SavedAt time.Time `json:"saved_at"`
}
