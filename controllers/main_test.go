package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"groclist/config"
	"groclist/middleware"
	"groclist/models"
	"groclist/utils"
)

const testPassword = "password123"

// setupApp builds the handler stack against a fresh in-memory database.
// Routes are registered here rather than through the routes package to
// keep the import graph acyclic.
func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateDB(db))

	config.DB = db
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.SMTPHost = ""
	config.AppConfig.AppBaseURL = "http://localhost:3000"

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	entry := logger.WithField("component", "test")

	hub := NewHub()
	mailer := utils.NewMailer(entry)
	engine := utils.NewSuggestionEngine(db, entry)

	listController := NewListController(db, entry, hub)
	itemController := NewItemController(db, entry, hub, engine)
	invitationController := NewInvitationController(db, entry, hub, mailer)

	app := fiber.New()

	auth := app.Group("/auth")
	auth.Post("/register", Register)
	auth.Post("/login", Login)
	auth.Post("/refresh", RefreshToken)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", Logout)
	protectedAuth.Post("/change-password", ChangePassword)
	protectedAuth.Get("/me", GetCurrentUser)

	api := app.Group("/api/v1", middleware.Protected())

	list := api.Group("/lists")
	list.Post("/", listController.CreateList)
	list.Get("/", listController.GetLists)
	list.Get("/:id", listController.GetList)
	list.Put("/:id", listController.UpdateList)
	list.Delete("/:id", listController.DeleteList)
	list.Get("/:id/members", listController.GetMembers)
	list.Post("/:id/members", listController.AddMember)
	list.Delete("/:id/members/:userID", listController.RemoveMember)

	list.Post("/:id/items", itemController.CreateItem)
	list.Get("/:id/items", itemController.GetItems)
	list.Put("/:id/items/:itemID", itemController.UpdateItem)
	list.Delete("/:id/items/:itemID", itemController.DeleteItem)
	list.Put("/:id/items", itemController.ReorderItems)
	list.Get("/:id/suggestions", itemController.GetSuggestions)

	list.Post("/:id/invitations", invitationController.CreateInvitation)
	list.Get("/:id/invitations", invitationController.GetListInvitations)

	invitation := api.Group("/invitations")
	invitation.Get("/", invitationController.GetMyInvitations)
	invitation.Post("/:id/respond", invitationController.RespondToInvitation)
	invitation.Delete("/:id", invitationController.RevokeInvitation)

	app.Get("/ws", websocket.New(hub.HandleListWS(db, entry)))

	return app, db
}

// createUser registers a user directly and returns it with a valid access token
func createUser(t *testing.T, db *gorm.DB, email string) (*models.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		TokenVersion: 1,
	}
	require.NoError(t, db.Create(&user).Error)

	access, _, err := utils.GenerateJWTToken(&user, "test-agent", "127.0.0.1")
	require.NoError(t, err)
	return &user, access
}

func createListWithOwner(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.GroceryList {
	t.Helper()

	list := models.GroceryList{Name: name, CreatedBy: owner.ID}
	require.NoError(t, db.Create(&list).Error)
	member := models.ListMember{ListID: list.ID, UserID: owner.ID}
	require.NoError(t, db.Create(&member).Error)
	return &list
}

func addListMember(t *testing.T, db *gorm.DB, list *models.GroceryList, user *models.User) {
	t.Helper()
	member := models.ListMember{ListID: list.ID, UserID: user.ID}
	require.NoError(t, db.Create(&member).Error)
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func decodeData(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	var env envelope
	decodeBody(t, resp, &env)
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, out))
}
