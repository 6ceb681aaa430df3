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

type MemberController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Perms  *permissions.Checker
}

func NewMemberController(db *gorm.DB, logger *log.Logger) *MemberController {
	return &MemberController{
		DB:     db,
		Logger: logger,
		Perms:  permissions.NewChecker(db),
	}
}

type createMemberInput struct {
	UserID uint   `json:"user_id" validate:"required"`
	TeamID uint   `json:"team_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=manager member"`
}

type updateMemberInput struct {
	Role string `json:"role" validate:"required,oneof=manager member"`
}

// CreateMember adds a user to a team. Only the team's owner or a manager
// on that team may add members. The team is fetched by id before the check
// so the decision runs against the persisted row, not the payload.
func (mc *MemberController) CreateMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input createMemberInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var team models.Team
	if err := mc.DB.First(&team, input.TeamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch team", nil)
	}

	allowed, err := mc.Perms.CanManageMembership(user.ID, &team)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", nil)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only team managers or owners can assign roles", nil)
	}

	var target models.User
	if err := mc.DB.First(&target, input.UserID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Target user does not exist", nil)
	}

	// One role per (user, team)
	var existing models.TeamRole
	if err := mc.DB.Where("user_id = ? AND team_id = ?", input.UserID, input.TeamID).
		First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "User already has a role in this team", nil)
	}

	role := input.Role
	if role == "" {
		role = models.TeamRoleMember
	}

	member := models.TeamRole{
		UserID: input.UserID,
		TeamID: input.TeamID,
		Role:   role,
	}

	if err := mc.DB.Create(&member).Error; err != nil {
		utils.LogError("member_create_failed", err, map[string]interface{}{
			"user_id": user.ID,
			"team_id": input.TeamID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add member", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(member))
}

// GetMembers lists the caller's own membership rows.
func (mc *MemberController) GetMembers(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var members []models.TeamRole
	if err := mc.DB.Where("user_id = ?", user.ID).Find(&members).Error; err != nil {
		utils.LogError("member_list_failed", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch memberships", nil)
	}

	return c.JSON(utils.SuccessResponse(members))
}

// GetMember returns one of the caller's own membership rows.
func (mc *MemberController) GetMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	memberID := utils.ParseUint(c.Params("id"))

	var member models.TeamRole
	err := mc.DB.Where("user_id = ?", user.ID).First(&member, memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Membership not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch membership", nil)
	}

	return c.JSON(utils.SuccessResponse(member))
}

// UpdateMember changes a membership's role. The authorization re-check uses
// the team referenced by the persisted row; a team id in the payload is
// never consulted.
func (mc *MemberController) UpdateMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	memberID := utils.ParseUint(c.Params("id"))

	var input updateMemberInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	member, team, err := mc.findWithTeam(memberID)
	if err != nil {
		return respondMemberLookup(c, err)
	}

	allowed, err := mc.Perms.CanManageMembership(user.ID, team)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", nil)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only team managers or owners can update roles", nil)
	}

	if err := mc.DB.Model(member).Update("role", input.Role).Error; err != nil {
		utils.LogError("member_update_failed", err, map[string]interface{}{
			"user_id":   user.ID,
			"member_id": member.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update membership", nil)
	}

	return c.JSON(utils.SuccessResponse(member))
}

// DeleteMember removes a user from a team, subject to the same
// owner-or-manager check against the persisted team.
func (mc *MemberController) DeleteMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	memberID := utils.ParseUint(c.Params("id"))

	member, team, err := mc.findWithTeam(memberID)
	if err != nil {
		return respondMemberLookup(c, err)
	}

	allowed, err := mc.Perms.CanManageMembership(user.ID, team)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", nil)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only team managers or owners can remove members", nil)
	}

	if err := mc.DB.Delete(member).Error; err != nil {
		utils.LogError("member_delete_failed", err, map[string]interface{}{
			"user_id":   user.ID,
			"member_id": member.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove member", nil)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (mc *MemberController) findWithTeam(memberID uint) (*models.TeamRole, *models.Team, error) {
	var member models.TeamRole
	if err := mc.DB.First(&member, memberID).Error; err != nil {
		return nil, nil, err
	}

	var team models.Team
	if err := mc.DB.First(&team, member.TeamID).Error; err != nil {
		return nil, nil, err
	}
	return &member, &team, nil
}

func respondMemberLookup(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Membership not found", nil)
	}
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch membership", nil)
}
