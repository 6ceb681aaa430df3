package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	controller "taskhive/controllers"
	"taskhive/middleware"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Auth routes group with logging and rate limiting
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}), middleware.AuthRateLimiter())

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Get("/me", controller.GetCurrentUser)
	protectedAuth.Post("/change-password", controller.ChangePassword)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB) {
	taskController := controller.NewTaskController(db, log.New(os.Stdout, "TASK: ", log.LstdFlags))
	assignmentController := controller.NewAssignmentController(db, log.New(os.Stdout, "ASSIGN: ", log.LstdFlags))
	teamController := controller.NewTeamController(db, log.New(os.Stdout, "TEAM: ", log.LstdFlags))
	memberController := controller.NewMemberController(db, log.New(os.Stdout, "MEMBER: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Task assignment routes. Registered before /tasks/:id so the literal
	// "assign" segment is not captured as a task id.
	assign := api.Group("/tasks/assign")
	assign.Post("/", assignmentController.CreateAssignment)
	assign.Get("/", assignmentController.GetAssignments)
	assign.Get("/:id", assignmentController.GetAssignment)
	assign.Patch("/:id", assignmentController.UpdateAssignment)
	assign.Delete("/:id", assignmentController.DeleteAssignment)

	// Task routes
	task := api.Group("/tasks")
	task.Post("/", taskController.CreateTask)
	task.Get("/", taskController.GetTasks)
	task.Get("/:id", taskController.GetTask)
	task.Patch("/:id", taskController.UpdateTask)
	task.Delete("/:id", taskController.DeleteTask)

	// Team membership routes, before /teams/:id for the same reason.
	member := api.Group("/teams/members")
	member.Post("/", memberController.CreateMember)
	member.Get("/", memberController.GetMembers)
	member.Get("/:id", memberController.GetMember)
	member.Patch("/:id", memberController.UpdateMember)
	member.Delete("/:id", memberController.DeleteMember)

	// Team routes
	team := api.Group("/teams")
	team.Post("/", teamController.CreateTeam)
	team.Get("/", teamController.GetTeams)
	team.Get("/:id", teamController.GetTeam)
	team.Patch("/:id", teamController.UpdateTeam)
	team.Delete("/:id", teamController.DeleteTeam)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
