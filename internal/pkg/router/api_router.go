package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/bantaydalan/bantaydalan-api/internal/api/v1"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/middleware"
)

// RateLimit is the budget of one limited route group.
type RateLimit struct {
	Max    int
	Window time.Duration
}

type ApiRouter struct {
	Server  *apiv1.APIServer
	Auth    *middleware.Auth
	Storage fiber.Storage
	Login   RateLimit
	Submit  RateLimit
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "BantayDalan API",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiv1.RegisterHandlers(v1, h.Server, h.Auth, apiv1.Limits{
		Login:  h.limiter("login", h.Login),
		Submit: h.limiter("submit", h.Submit),
	})
}

// limiter counts per client IP in the shared storage so limits hold across instances
func (h ApiRouter) limiter(name string, rl RateLimit) fiber.Handler {
	if rl.Max <= 0 {
		return nil
	}
	return limiter.New(limiter.Config{
		Max:        rl.Max,
		Expiration: rl.Window,
		Storage:    h.Storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "ratelimit:" + name + ":" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later")
		},
	})
}

func NewApiRouter(server *apiv1.APIServer, auth *middleware.Auth, storage fiber.Storage) *ApiRouter {
	return &ApiRouter{
		Server:  server,
		Auth:    auth,
		Storage: storage,
		Login:   RateLimit{Max: 10, Window: time.Minute},
		Submit:  RateLimit{Max: 20, Window: time.Hour},
	}
}
