package models

import (
	"database/sql"
	"time"
)

// Roles, from least to most privileged surface.
const (
	RoleClient    = "client"
	RoleMember    = "member"
	RolePM        = "pm"
	RoleDirector  = "director"
	RolePresident = "president"
)

// Task statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// ValidRole reports whether role is one of the five known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleClient, RoleMember, RolePM, RoleDirector, RolePresident:
		return true
	default:
		return false
	}
}

// ValidStatus reports whether status is a known task status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

type User struct {
	ID             int            `json:"id"`
	Username       string         `json:"username"`
	Email          string         `json:"email"`
	Password       string         `json:"-"`
	Role           string         `json:"role"`
	Track          string         `json:"track"`
	ProfilePicture sql.NullString `json:"profile_picture"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type Project struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Client        string    `json:"client"`
	Description   *string   `json:"description,omitempty"`
	ClientContact string    `json:"client_contact,omitempty"`
	Track         string    `json:"track"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Derived on read, never stored.
	Tasks    []Task `json:"tasks"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
}

type Task struct {
	ID          int        `json:"id"`
	ProjectID   int        `json:"project_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Weight      int        `json:"weight"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
