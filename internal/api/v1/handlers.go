package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bantaydalan/bantaydalan-api/app/controllers"
)

// Pong is the body of GET /ping
type Pong struct {
	Ping string `json:"ping"`
}

// APIServer binds the v1 routes to the controllers
type APIServer struct {
	*controllers.Controller
}

// NewAPIServer creates a new API server instance
func NewAPIServer(c *controllers.Controller) *APIServer {
	return &APIServer{Controller: c}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}
