package models

import (
	"gorm.io/gorm"
)

// Global user roles
const (
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

// User represents a user account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Profile information
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Mobile    *string `gorm:"uniqueIndex" json:"mobile,omitempty"`

	// Global role: manager or employee
	Role string `gorm:"default:'employee'" json:"role"`

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relations
	OwnedTeams   []Team           `gorm:"foreignKey:OwnerID" json:"owned_teams,omitempty"`
	TeamRoles    []TeamRole       `gorm:"foreignKey:UserID" json:"team_roles,omitempty"`
	CreatedTasks []Task           `gorm:"foreignKey:CreatedByID" json:"created_tasks,omitempty"`
	Assignments  []TaskAssignment `gorm:"foreignKey:UserID" json:"assignments,omitempty"`
}
