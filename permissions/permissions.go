package permissions

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskhive/models"
)

// Effective role values. "owner" and "none" exist only here: ownership is
// implicit on the Team row and is never stored as a TeamRole.
const (
	EffectiveOwner   = "owner"
	EffectiveManager = "manager"
	EffectiveMember  = "member"
	EffectiveNone    = "none"
)

// Checker answers authorization questions from the persisted relationship
// graph. It only ever reads; decisions are never based on client-supplied
// claims about ownership or membership.
type Checker struct {
	DB *gorm.DB
}

func NewChecker(db *gorm.DB) *Checker {
	return &Checker{DB: db}
}

// EffectiveRole merges implicit ownership with the explicit TeamRole row
// and returns the user's highest authority on the team.
func (p *Checker) EffectiveRole(userID uint, team *models.Team) (string, error) {
	if team.OwnerID == userID {
		return EffectiveOwner, nil
	}

	var role models.TeamRole
	err := p.DB.Where("user_id = ? AND team_id = ?", userID, team.ID).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EffectiveNone, nil
	}
	if err != nil {
		return "", err
	}

	if role.Role == models.TeamRoleManager {
		return EffectiveManager, nil
	}
	return EffectiveMember, nil
}

// CanActOnTeam decides whether a user may perform the given HTTP method on
// an existing team. Owners may do anything; members may read; managers may
// additionally update the team and its membership; only owners may delete.
func (p *Checker) CanActOnTeam(userID uint, team *models.Team, method string) (bool, error) {
	role, err := p.EffectiveRole(userID, team)
	if err != nil {
		return false, err
	}

	if role == EffectiveOwner {
		return true, nil
	}

	switch method {
	case fiber.MethodGet, fiber.MethodHead:
		return role != EffectiveNone, nil
	case fiber.MethodDelete:
		return false, nil
	case fiber.MethodPost, fiber.MethodPatch, fiber.MethodPut:
		return role == EffectiveManager, nil
	default:
		return false, nil
	}
}

// CanManageMembership decides whether a user may create, update, or delete
// membership rows on a team. The team must be the persisted row: callers
// pass the team they fetched, never one rebuilt from request data.
func (p *Checker) CanManageMembership(userID uint, team *models.Team) (bool, error) {
	role, err := p.EffectiveRole(userID, team)
	if err != nil {
		return false, err
	}
	return role == EffectiveOwner || role == EffectiveManager, nil
}

// CanAssignUser decides whether the caller may create or modify a task
// assignment targeting the given user. Self-assignment is always allowed.
// Otherwise the caller must be owner or manager of at least one team the
// target user belongs to, in any role.
func (p *Checker) CanAssignUser(callerID, targetUserID uint) (bool, error) {
	if callerID == targetUserID {
		return true, nil
	}

	var ownedIDs []uint
	if err := p.DB.Model(&models.Team{}).
		Where("owner_id = ?", callerID).
		Pluck("id", &ownedIDs).Error; err != nil {
		return false, err
	}

	var managedIDs []uint
	if err := p.DB.Model(&models.TeamRole{}).
		Where("user_id = ? AND role = ?", callerID, models.TeamRoleManager).
		Pluck("team_id", &managedIDs).Error; err != nil {
		return false, err
	}

	allowed := make(map[uint]struct{}, len(ownedIDs)+len(managedIDs))
	for _, id := range ownedIDs {
		allowed[id] = struct{}{}
	}
	for _, id := range managedIDs {
		allowed[id] = struct{}{}
	}
	if len(allowed) == 0 {
		return false, nil
	}

	var targetTeamIDs []uint
	if err := p.DB.Model(&models.TeamRole{}).
		Where("user_id = ?", targetUserID).
		Pluck("team_id", &targetTeamIDs).Error; err != nil {
		return false, err
	}

	for _, id := range targetTeamIDs {
		if _, ok := allowed[id]; ok {
			return true, nil
		}
	}
	return false, nil
}

// TaskScope narrows a query to tasks the user may see: tasks they created
// or tasks they hold an assignment on.
func (p *Checker) TaskScope(userID uint) *gorm.DB {
	return p.DB.Model(&models.Task{}).
		Where("created_by_id = ? OR id IN (?)",
			userID,
			p.DB.Model(&models.TaskAssignment{}).Select("task_id").Where("user_id = ?", userID),
		)
}

// TeamScope narrows a query to teams the user owns or belongs to.
func (p *Checker) TeamScope(userID uint) *gorm.DB {
	return p.DB.Model(&models.Team{}).
		Where("owner_id = ? OR id IN (?)",
			userID,
			p.DB.Model(&models.TeamRole{}).Select("team_id").Where("user_id = ?", userID),
		)
}
