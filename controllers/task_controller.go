package controller

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskhive/models"
	"taskhive/permissions"
	"taskhive/utils"
)

type TaskController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Perms  *permissions.Checker
}

func NewTaskController(db *gorm.DB, logger *log.Logger) *TaskController {
	return &TaskController{
		DB:     db,
		Logger: logger,
		Perms:  permissions.NewChecker(db),
	}
}

type createTaskInput struct {
	Name          string `json:"name" validate:"required,max=200"`
	Description   string `json:"description"`
	TaskType      string `json:"task_type" validate:"required,oneof=meeting issue goal other"`
	TaskTypeOther string `json:"task_type_other" validate:"omitempty,max=50"`
}

type updateTaskInput struct {
	Name          *string `json:"name" validate:"omitempty,max=200"`
	Description   *string `json:"description"`
	TaskType      *string `json:"task_type" validate:"omitempty,oneof=meeting issue goal other"`
	TaskTypeOther *string `json:"task_type_other" validate:"omitempty,max=50"`
}

// CreateTask creates a new task owned by the caller. The initial status is
// always pending; status is derived from assignments, never accepted from
// the client, and neither is created_by.
func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input createTaskInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.TaskType == models.TaskTypeOther && input.TaskTypeOther == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "task_type_other is required when task_type is other", nil)
	}

	task := models.Task{
		Name:          input.Name,
		Description:   input.Description,
		TaskType:      input.TaskType,
		TaskTypeOther: input.TaskTypeOther,
		Status:        models.StatusPending,
		CreatedByID:   user.ID,
	}

	if err := tc.DB.Create(&task).Error; err != nil {
		utils.LogError("task_create_failed", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create task", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(task))
}

// GetTasks returns the tasks visible to the caller: tasks they created or
// hold an assignment on.
func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	var tasks []models.Task
	if err := tc.Perms.TaskScope(user.ID).
		Preload("Assignments").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&tasks).Error; err != nil {
		utils.LogError("task_list_failed", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch tasks", nil)
	}

	var total int64
	if err := tc.Perms.TaskScope(user.ID).Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count tasks", nil)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  tasks,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetTask returns a single task if it is in the caller's visible scope.
// Tasks outside the scope read as not found, never as forbidden.
func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	var task models.Task
	err := tc.Perms.TaskScope(user.ID).Preload("Assignments").First(&task, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch task", nil)
	}

	return c.JSON(utils.SuccessResponse(task))
}

// UpdateTask partially updates a task in the caller's visible scope.
func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	var input updateTaskInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var task models.Task
	err := tc.Perms.TaskScope(user.ID).First(&task, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch task", nil)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.TaskType != nil {
		updates["task_type"] = *input.TaskType
	}
	if input.TaskTypeOther != nil {
		updates["task_type_other"] = *input.TaskTypeOther
	}

	// The other/other-text rule must hold for the row as it will be
	// persisted, not just for the fields present in the patch.
	taskType := task.TaskType
	if input.TaskType != nil {
		taskType = *input.TaskType
	}
	taskTypeOther := task.TaskTypeOther
	if input.TaskTypeOther != nil {
		taskTypeOther = *input.TaskTypeOther
	}
	if taskType == models.TaskTypeOther && taskTypeOther == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "task_type_other is required when task_type is other", nil)
	}

	if len(updates) > 0 {
		if err := tc.DB.Model(&task).Updates(updates).Error; err != nil {
			utils.LogError("task_update_failed", err, map[string]interface{}{
				"user_id": user.ID,
				"task_id": task.ID,
			})
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update task", nil)
		}
	}

	return c.JSON(utils.SuccessResponse(task))
}

// DeleteTask removes a task and its assignments. A repeated delete of the
// same id reads as not found.
func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))

	var task models.Task
	err := tc.Perms.TaskScope(user.ID).First(&task, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch task", nil)
	}

	err = tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
	if err != nil {
		utils.LogError("task_delete_failed", err, map[string]interface{}{
			"user_id": user.ID,
			"task_id": task.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete task", nil)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
