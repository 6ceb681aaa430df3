package controller

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskhive/models"
	"taskhive/permissions"
	"taskhive/utils"
)

type AssignmentController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Perms  *permissions.Checker
}

func NewAssignmentController(db *gorm.DB, logger *log.Logger) *AssignmentController {
	return &AssignmentController{
		DB:     db,
		Logger: logger,
		Perms:  permissions.NewChecker(db),
	}
}

type createAssignmentInput struct {
	UserID uint   `json:"user_id" validate:"required"`
	TaskID uint   `json:"task_id" validate:"required"`
	Status string `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
}

type updateAssignmentInput struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// CreateAssignment assigns a task to a user. The caller may always assign
// themself; assigning anyone else requires the caller to be owner or
// manager of a team the target belongs to. The assignment insert and the
// task status recompute commit atomically.
func (ac *AssignmentController) CreateAssignment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input createAssignmentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var task models.Task
	if err := ac.DB.First(&task, input.TaskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch task", nil)
	}

	var target models.User
	if err := ac.DB.First(&target, input.UserID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Target user does not exist", nil)
	}

	allowed, err := ac.Perms.CanAssignUser(user.ID, input.UserID)
	if err != nil {
		utils.LogError("assignment_authz_failed", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", nil)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden,
			"You can only assign users from teams you own or manage", nil)
	}

	var existing models.TaskAssignment
	if err := ac.DB.Where("user_id = ? AND task_id = ?", input.UserID, input.TaskID).
		First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "User is already assigned to this task", nil)
	}

	status := input.Status
	if status == "" {
		status = models.StatusPending
	}

	assignment := models.TaskAssignment{
		UserID: input.UserID,
		TaskID: input.TaskID,
		Status: status,
	}

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}
		return models.RecomputeTaskStatus(tx, assignment.TaskID)
	})
	if err != nil {
		utils.LogError("assignment_create_failed", err, map[string]interface{}{
			"user_id": user.ID,
			"task_id": input.TaskID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create assignment", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(assignment))
}

// GetAssignments lists the caller's own assignments.
func (ac *AssignmentController) GetAssignments(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var assignments []models.TaskAssignment
	if err := ac.DB.Where("user_id = ?", user.ID).
		Order("assigned_at DESC").
		Find(&assignments).Error; err != nil {
		utils.LogError("assignment_list_failed", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch assignments", nil)
	}

	return c.JSON(utils.SuccessResponse(assignments))
}

// GetAssignment returns one of the caller's own assignments.
func (ac *AssignmentController) GetAssignment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	assignmentID := utils.ParseUint(c.Params("id"))

	var assignment models.TaskAssignment
	err := ac.DB.Where("user_id = ?", user.ID).First(&assignment, assignmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Assignment not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch assignment", nil)
	}

	return c.JSON(utils.SuccessResponse(assignment))
}

// UpdateAssignment changes an assignment's status and recomputes the task
// status in the same transaction.
func (ac *AssignmentController) UpdateAssignment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	assignmentID := utils.ParseUint(c.Params("id"))

	var input updateAssignmentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	assignment, err := ac.findManageable(user, assignmentID)
	if err != nil {
		return respondAssignmentLookup(c, err)
	}

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(assignment).Update("status", input.Status).Error; err != nil {
			return err
		}
		return models.RecomputeTaskStatus(tx, assignment.TaskID)
	})
	if err != nil {
		utils.LogError("assignment_update_failed", err, map[string]interface{}{
			"user_id":       user.ID,
			"assignment_id": assignment.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update assignment", nil)
	}

	return c.JSON(utils.SuccessResponse(assignment))
}

// DeleteAssignment removes an assignment and recomputes the task status in
// the same transaction. Deleting the last completed assignment reverts the
// task to pending.
func (ac *AssignmentController) DeleteAssignment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	assignmentID := utils.ParseUint(c.Params("id"))

	assignment, err := ac.findManageable(user, assignmentID)
	if err != nil {
		return respondAssignmentLookup(c, err)
	}

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(assignment).Error; err != nil {
			return err
		}
		return models.RecomputeTaskStatus(tx, assignment.TaskID)
	})
	if err != nil {
		utils.LogError("assignment_delete_failed", err, map[string]interface{}{
			"user_id":       user.ID,
			"assignment_id": assignment.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete assignment", nil)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// findManageable fetches an assignment the caller may mutate: their own, or
// one belonging to a user in a team the caller owns or manages. Assignments
// the caller may not even know about read as not found.
func (ac *AssignmentController) findManageable(user *models.User, assignmentID uint) (*models.TaskAssignment, error) {
	var assignment models.TaskAssignment
	if err := ac.DB.First(&assignment, assignmentID).Error; err != nil {
		return nil, err
	}

	if assignment.UserID == user.ID {
		return &assignment, nil
	}

	allowed, err := ac.Perms.CanAssignUser(user.ID, assignment.UserID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, gorm.ErrRecordNotFound
	}
	return &assignment, nil
}

func respondAssignmentLookup(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Assignment not found", nil)
	}
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch assignment", nil)
}
