package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	controller "groclist/controllers"
	"groclist/middleware"
	"groclist/utils"
)

func SetupAuthRoutes(app *fiber.App) {
	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)

	// Google OAuth routes
	auth.Get("/google", controller.GoogleOAuth)
	auth.Get("/google/callback", controller.GoogleOAuthCallback)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", controller.Logout)
	protectedAuth.Post("/change-password", controller.ChangePassword)
	protectedAuth.Get("/me", controller.GetCurrentUser)
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, baseLogger *logrus.Logger, hub *controller.Hub, mailer *utils.Mailer) {
	engine := utils.NewSuggestionEngine(db, baseLogger.WithField("component", "suggestions"))

	listController := controller.NewListController(db, baseLogger.WithField("component", "lists"), hub)
	itemController := controller.NewItemController(db, baseLogger.WithField("component", "items"), hub, engine)
	invitationController := controller.NewInvitationController(db, baseLogger.WithField("component", "invitations"), hub, mailer)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// List routes
	list := api.Group("/lists")
	list.Post("/", listController.CreateList)
	list.Get("/", listController.GetLists)
	list.Get("/:id", listController.GetList)
	list.Put("/:id", listController.UpdateList)
	list.Delete("/:id", listController.DeleteList)

	// Membership routes
	list.Get("/:id/members", listController.GetMembers)
	list.Post("/:id/members", listController.AddMember)
	list.Delete("/:id/members/:userID", listController.RemoveMember)

	// Item routes
	list.Post("/:id/items", itemController.CreateItem)
	list.Get("/:id/items", itemController.GetItems)
	list.Put("/:id/items/:itemID", itemController.UpdateItem)
	list.Delete("/:id/items/:itemID", itemController.DeleteItem)
	list.Put("/:id/items", itemController.ReorderItems)

	// Suggestion routes
	list.Get("/:id/suggestions", itemController.GetSuggestions)

	// Invitation routes with rate limiting on sends
	list.Post("/:id/invitations", middleware.InviteRateLimiter(), invitationController.CreateInvitation)
	list.Get("/:id/invitations", invitationController.GetListInvitations)

	invitation := api.Group("/invitations")
	invitation.Get("/", invitationController.GetMyInvitations)
	invitation.Post("/:id/respond", invitationController.RespondToInvitation)
	invitation.Delete("/:id", invitationController.RevokeInvitation)

	// WebSocket route for live list updates. Registered outside the
	// Protected() prefix: browser websocket clients cannot send an
	// Authorization header, so the handler authenticates via ?token=.
	app.Get("/ws", websocket.New(hub.HandleListWS(db, baseLogger.WithField("component", "ws"))))
}

func SetupRoutes(app *fiber.App, db *gorm.DB, baseLogger *logrus.Logger, hub *controller.Hub, mailer *utils.Mailer) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app)
	SetupAPIRoutes(app, db, baseLogger, hub, mailer)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
