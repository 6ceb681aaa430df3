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

type TeamController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Perms  *permissions.Checker
}

func NewTeamController(db *gorm.DB, logger *log.Logger) *TeamController {
	return &TeamController{
		DB:     db,
		Logger: logger,
		Perms:  permissions.NewChecker(db),
	}
}

type createTeamInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

type updateTeamInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

// CreateTeam creates a team owned by the caller. Any owner id in the
// payload is ignored.
func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input createTeamInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	team := models.Team{
		Name:    input.Name,
		OwnerID: user.ID,
	}

	if err := tc.DB.Create(&team).Error; err != nil {
		utils.LogError("team_create_failed", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create team", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(team))
}

// GetTeams lists teams the caller owns or belongs to.
func (tc *TeamController) GetTeams(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var teams []models.Team
	if err := tc.Perms.TeamScope(user.ID).
		Preload("Members").
		Order("created_at DESC").
		Find(&teams).Error; err != nil {
		utils.LogError("team_list_failed", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch teams", nil)
	}

	return c.JSON(utils.SuccessResponse(teams))
}

// GetTeam returns a team the caller owns or belongs to. Teams outside that
// scope read as not found.
func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	team, err := tc.findInScope(c)
	if err != nil {
		return respondTeamLookup(c, err)
	}

	return c.JSON(utils.SuccessResponse(team))
}

// UpdateTeam renames a team. The caller must be the owner or a manager of
// the team; plain members get forbidden on a team they can see.
func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input updateTeamInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	team, err := tc.findInScope(c)
	if err != nil {
		return respondTeamLookup(c, err)
	}

	allowed, err := tc.Perms.CanActOnTeam(user.ID, team, c.Method())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", nil)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only team managers or owners can update the team", nil)
	}

	if err := tc.DB.Model(team).Update("name", input.Name).Error; err != nil {
		utils.LogError("team_update_failed", err, map[string]interface{}{
			"user_id": user.ID,
			"team_id": team.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update team", nil)
	}

	return c.JSON(utils.SuccessResponse(team))
}

// DeleteTeam removes a team and its membership rows. Owner only.
func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	team, err := tc.findInScope(c)
	if err != nil {
		return respondTeamLookup(c, err)
	}

	allowed, err := tc.Perms.CanActOnTeam(user.ID, team, c.Method())
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Authorization check failed", nil)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the team owner can delete the team", nil)
	}

	err = tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", team.ID).Delete(&models.TeamRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(team).Error
	})
	if err != nil {
		utils.LogError("team_delete_failed", err, map[string]interface{}{
			"user_id": user.ID,
			"team_id": team.ID,
		})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team", nil)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (tc *TeamController) findInScope(c *fiber.Ctx) (*models.Team, error) {
	user := c.Locals("user").(*models.User)
	teamID := utils.ParseUint(c.Params("id"))

	var team models.Team
	if err := tc.Perms.TeamScope(user.ID).Preload("Members").First(&team, teamID).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func respondTeamLookup(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
	}
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch team", nil)
}
