package models

import "gorm.io/gorm"

// Team roles for explicit membership rows. Ownership is implicit via
// Team.OwnerID and is not stored as a TeamRole.
const (
	TeamRoleManager = "manager"
	TeamRoleMember  = "member"
)

// Team represents a group of users working together on tasks
type Team struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`

	// The owner has full access to the team without a TeamRole row.
	// The reference is restrict-on-delete: a user still owning teams
	// cannot be removed.
	OwnerID uint `gorm:"not null;index" json:"owner_id"`

	// Relations
	Owner   User       `gorm:"foreignKey:OwnerID;constraint:OnDelete:RESTRICT" json:"-"`
	Members []TeamRole `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

// TeamRole represents a user's membership and role within a team
type TeamRole struct {
	gorm.Model
	UserID uint `gorm:"not null;uniqueIndex:idx_team_roles_user_team" json:"user_id"`
	TeamID uint `gorm:"not null;uniqueIndex:idx_team_roles_user_team" json:"team_id"`

	Role string `gorm:"default:'member'" json:"role"` // manager, member

	// Relations
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Team Team `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"-"`
}
