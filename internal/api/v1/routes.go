package v1

import (
	"trackcrm/internal/api/v1/handlers"
	"trackcrm/internal/middleware"
	myws "trackcrm/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// Auth
	api.Post("/auth/register", handlers.Register)
	api.Post("/auth/login", handlers.Login)
	api.Get("/auth/profile", middleware.UseToken, handlers.Profile)
	api.Post("/auth/profile_picture", middleware.UseToken, handlers.UploadProfilePicture)
	api.Get("/files/:filename", handlers.GetFile)

	// Projects, with tasks nested under their project
	projectRoutes := api.Group("/projects", middleware.UseToken)
	projectRoutes.Post("/", handlers.CreateProject)
	projectRoutes.Get("/", handlers.ListProjects)
	projectRoutes.Get("/:id", handlers.GetProject)
	projectRoutes.Patch("/:id", handlers.UpdateProject)
	projectRoutes.Delete("/:id", handlers.DeleteProject)
	projectRoutes.Post("/:id/tasks", handlers.CreateTask)
	projectRoutes.Patch("/:id/tasks/:taskId", handlers.UpdateTask)
	projectRoutes.Delete("/:id/tasks/:taskId", handlers.DeleteTask)
}

// RegisterFeed wires the websocket activity feed. Subscribers authenticate
// with a ?token= parameter since websocket dials cannot set headers.
func RegisterFeed(app *fiber.App, hub *myws.Hub) {
	app.Use("/ws", middleware.UseTokenQuery, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		client := &myws.Client{Conn: c}
		hub.Register <- client
		defer func() {
			hub.Unregister <- client
		}()
		// Drain until the subscriber hangs up; the feed is one-way.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
