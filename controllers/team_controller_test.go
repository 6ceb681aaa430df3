package controller

import (
	"log"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhive/models"
)

func newTeamApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	db, mock := setupTestDB(t)
	app := newTestApp(testUser(1))

	tc := NewTeamController(db, log.New(os.Stdout, "TEAM: ", log.LstdFlags))
	app.Post("/teams", tc.CreateTeam)
	app.Get("/teams/:id", tc.GetTeam)
	app.Patch("/teams/:id", tc.UpdateTeam)
	app.Delete("/teams/:id", tc.DeleteTeam)

	return app, mock
}

func teamScopeRows(id, ownerID uint) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "owner_id"}).AddRow(id, "Alpha", ownerID)
}

func emptyTeamRoleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "team_id", "role"})
}

func TestCreateTeam(t *testing.T) {
	t.Run("owner stamped from caller", func(t *testing.T) {
		app, mock := newTeamApp(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "teams"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
		mock.ExpectCommit()

		resp := doJSON(t, app, fiber.MethodPost, "/teams", fiber.Map{
			"name":     "Alpha",
			"owner_id": 999, // ignored
		})

		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing name", func(t *testing.T) {
		app, _ := newTeamApp(t)

		resp := doJSON(t, app, fiber.MethodPost, "/teams", fiber.Map{})

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetTeam(t *testing.T) {
	t.Run("member sees the team", func(t *testing.T) {
		app, mock := newTeamApp(t)

		mock.ExpectQuery(`SELECT \* FROM "teams"`).
			WillReturnRows(teamScopeRows(10, 99))
		mock.ExpectQuery(`SELECT \* FROM "team_roles"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "team_id", "role"}).
				AddRow(1, 1, 10, models.TeamRoleMember))

		resp := doJSON(t, app, fiber.MethodGet, "/teams/10", nil)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("stranger reads not found", func(t *testing.T) {
		app, mock := newTeamApp(t)

		mock.ExpectQuery(`SELECT \* FROM "teams"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		resp := doJSON(t, app, fiber.MethodGet, "/teams/10", nil)

		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestUpdateTeam_PlainMemberForbidden(t *testing.T) {
	app, mock := newTeamApp(t)

	// In scope as member, so the team is found, but PATCH requires
	// manager or owner.
	mock.ExpectQuery(`SELECT \* FROM "teams"`).
		WillReturnRows(teamScopeRows(10, 99))
	mock.ExpectQuery(`SELECT \* FROM "team_roles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "team_id", "role"}).
			AddRow(1, 1, 10, models.TeamRoleMember))
	mock.ExpectQuery(`SELECT \* FROM "team_roles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "team_id", "role"}).
			AddRow(1, 1, 10, models.TeamRoleMember))

	resp := doJSON(t, app, fiber.MethodPatch, "/teams/10", fiber.Map{
		"name": "Beta",
	})

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTeam(t *testing.T) {
	t.Run("manager cannot delete", func(t *testing.T) {
		app, mock := newTeamApp(t)

		mock.ExpectQuery(`SELECT \* FROM "teams"`).
			WillReturnRows(teamScopeRows(10, 99))
		mock.ExpectQuery(`SELECT \* FROM "team_roles"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "team_id", "role"}).
				AddRow(1, 1, 10, models.TeamRoleManager))
		mock.ExpectQuery(`SELECT \* FROM "team_roles"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "team_id", "role"}).
				AddRow(1, 1, 10, models.TeamRoleManager))

		resp := doJSON(t, app, fiber.MethodDelete, "/teams/10", nil)

		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("owner deletes team and memberships together", func(t *testing.T) {
		app, mock := newTeamApp(t)

		mock.ExpectQuery(`SELECT \* FROM "teams"`).
			WillReturnRows(teamScopeRows(10, 1))
		mock.ExpectQuery(`SELECT \* FROM "team_roles"`).
			WillReturnRows(emptyTeamRoleRows())
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "team_roles"`).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`UPDATE "teams"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		resp := doJSON(t, app, fiber.MethodDelete, "/teams/10", nil)

		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
