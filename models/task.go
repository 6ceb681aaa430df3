package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Task types
const (
	TaskTypeMeeting = "meeting"
	TaskTypeIssue   = "issue"
	TaskTypeGoal    = "goal"
	TaskTypeOther   = "other"
)

// Task and assignment statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Task represents a unit of work assigned to one or more users.
// Status is derived from the assignment set and never set by a caller.
type Task struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	TaskType      string `gorm:"not null" json:"task_type"` // meeting, issue, goal, other
	TaskTypeOther string `json:"task_type_other,omitempty"` // required when task_type is other

	Status      string     `gorm:"default:'pending'" json:"status"` // pending, in_progress, completed
	CompletedAt *time.Time `json:"completed_at"`

	CreatedByID uint `gorm:"not null;index" json:"created_by_id"`

	// Relations
	CreatedBy   User             `gorm:"foreignKey:CreatedByID" json:"-"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"assignments,omitempty"`
}

// TaskAssignment links a user to a task with an individual status
type TaskAssignment struct {
	gorm.Model
	UserID uint `gorm:"not null;uniqueIndex:idx_task_assignments_user_task" json:"user_id"`
	TaskID uint `gorm:"not null;uniqueIndex:idx_task_assignments_user_task" json:"task_id"`

	Status     string    `gorm:"default:'pending'" json:"status"` // pending, in_progress, completed
	AssignedAt time.Time `gorm:"autoCreateTime" json:"assigned_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
	Task Task `gorm:"foreignKey:TaskID" json:"-"`
}

// DeriveTaskStatus computes the aggregate task status from its assignment
// counts: no assignments means pending, all completed means completed,
// anything else is in progress.
func DeriveTaskStatus(total, completed int64) string {
	switch {
	case total == 0:
		return StatusPending
	case total == completed:
		return StatusCompleted
	default:
		return StatusInProgress
	}
}

// RecomputeTaskStatus re-derives a task's status from its assignments and
// persists it. It must run inside the same transaction as the assignment
// write that triggered it, so readers never see one without the other. The
// task row is locked FOR UPDATE first: concurrent recomputes on the same
// task serialize on that lock, so each one counts a settled assignment set.
// CompletedAt is stamped when the status transitions into completed and is
// intentionally left untouched when a completed task regresses: it records
// the last time the task was completed.
func RecomputeTaskStatus(tx *gorm.DB, taskID uint) error {
	var task Task
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&task, taskID).Error; err != nil {
		return err
	}

	var total, completed int64
	if err := tx.Model(&TaskAssignment{}).Where("task_id = ?", taskID).Count(&total).Error; err != nil {
		return err
	}
	if err := tx.Model(&TaskAssignment{}).
		Where("task_id = ? AND status = ?", taskID, StatusCompleted).
		Count(&completed).Error; err != nil {
		return err
	}

	status := DeriveTaskStatus(total, completed)
	if status == task.Status {
		return nil
	}

	updates := map[string]interface{}{"status": status}
	if status == StatusCompleted {
		now := time.Now()
		updates["completed_at"] = &now
	}

	return tx.Model(&Task{}).Where("id = ?", taskID).Updates(updates).Error
}
