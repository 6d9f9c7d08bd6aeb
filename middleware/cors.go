package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"groclist/config"
)

// CORS configures cross-origin access for the web client. APP_BASE_URL is
// always allowed; common local dev ports are added in development.
func CORS() fiber.Handler {
	origins := []string{config.AppConfig.AppBaseURL}
	if extra := strings.TrimSpace(config.AppConfig.Environment); extra == "development" {
		origins = append(origins, "http://localhost:3000", "http://localhost:5173")
	}

	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowCredentials: true,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Requested-With",
		ExposeHeaders:    "Content-Length",
		MaxAge:           3600,
	})
}
