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

func newAssignmentApp(t *testing.T) (*fiber.App, sqlmock.Sqlmock) {
	db, mock := setupTestDB(t)
	app := newTestApp(testUser(1))

	ac := NewAssignmentController(db, log.New(os.Stdout, "ASSIGN: ", log.LstdFlags))
	app.Post("/tasks/assign", ac.CreateAssignment)
	app.Get("/tasks/assign/:id", ac.GetAssignment)
	app.Patch("/tasks/assign/:id", ac.UpdateAssignment)
	app.Delete("/tasks/assign/:id", ac.DeleteAssignment)

	return app, mock
}

func TestCreateAssignment(t *testing.T) {
	t.Run("unknown task", func(t *testing.T) {
		app, mock := newAssignmentApp(t)

		mock.ExpectQuery(`SELECT \* FROM "tasks"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		resp := doJSON(t, app, fiber.MethodPost, "/tasks/assign", fiber.Map{
			"user_id": 1,
			"task_id": 5,
		})

		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("unknown target user", func(t *testing.T) {
		app, mock := newAssignmentApp(t)

		mock.ExpectQuery(`SELECT \* FROM "tasks"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(5, models.StatusPending))
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		resp := doJSON(t, app, fiber.MethodPost, "/tasks/assign", fiber.Map{
			"user_id": 42,
			"task_id": 5,
		})

		// A nonexistent target is a validation failure, not a permission one.
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no shared team with target", func(t *testing.T) {
		app, mock := newAssignmentApp(t)

		mock.ExpectQuery(`SELECT \* FROM "tasks"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(5, models.StatusPending))
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		// Caller owns and manages nothing.
		mock.ExpectQuery(`SELECT "id" FROM "teams"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(`SELECT "team_id" FROM "team_roles"`).
			WillReturnRows(sqlmock.NewRows([]string{"team_id"}))

		resp := doJSON(t, app, fiber.MethodPost, "/tasks/assign", fiber.Map{
			"user_id": 2,
			"task_id": 5,
		})

		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate assignment rejected", func(t *testing.T) {
		app, mock := newAssignmentApp(t)

		mock.ExpectQuery(`SELECT \* FROM "tasks"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(5, models.StatusInProgress))
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(`SELECT \* FROM "task_assignments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "task_id"}).AddRow(9, 1, 5))

		resp := doJSON(t, app, fiber.MethodPost, "/tasks/assign", fiber.Map{
			"user_id": 1,
			"task_id": 5,
		})

		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("self assignment recomputes task status atomically", func(t *testing.T) {
		app, mock := newAssignmentApp(t)

		mock.ExpectQuery(`SELECT \* FROM "tasks"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(5, models.StatusPending))
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(`SELECT \* FROM "task_assignments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "task_assignments"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
		mock.ExpectQuery(`SELECT \* FROM "tasks"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(5, models.StatusPending))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "task_assignments"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "task_assignments"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`UPDATE "tasks"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		resp := doJSON(t, app, fiber.MethodPost, "/tasks/assign", fiber.Map{
			"user_id": 1,
			"task_id": 5,
		})

		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateAssignment_CompletingLastAssignmentCompletesTask(t *testing.T) {
	app, mock := newAssignmentApp(t)

	mock.ExpectQuery(`SELECT \* FROM "task_assignments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "task_id", "status"}).
			AddRow(9, 1, 5, models.StatusInProgress))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "task_assignments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(5, models.StatusInProgress))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "task_assignments"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "task_assignments"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`UPDATE "tasks"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp := doJSON(t, app, fiber.MethodPatch, "/tasks/assign/9", fiber.Map{
		"status": "completed",
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAssignment_RevertsCompletedTaskToPending(t *testing.T) {
	app, mock := newAssignmentApp(t)

	mock.ExpectQuery(`SELECT \* FROM "task_assignments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "task_id", "status"}).
			AddRow(9, 1, 5, models.StatusCompleted))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "task_assignments"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(5, models.StatusCompleted))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "task_assignments"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "task_assignments"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`UPDATE "tasks"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	resp := doJSON(t, app, fiber.MethodDelete, "/tasks/assign/9", nil)

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAssignment_OtherUsersAssignmentReadsAsNotFound(t *testing.T) {
	app, mock := newAssignmentApp(t)

	mock.ExpectQuery(`SELECT \* FROM "task_assignments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	resp := doJSON(t, app, fiber.MethodGet, "/tasks/assign/9", nil)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
