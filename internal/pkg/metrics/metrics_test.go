package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/reports/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/reports/:id", "204"))
	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/reports/"+id, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/reports/:id", "204"))
	assert.Equal(t, 2.0, after-before)
}

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(statusTransitions.WithLabelValues("verified", "applied"))
	RecordTransition("verified", "applied")
	assert.Equal(t, 1.0, testutil.ToFloat64(statusTransitions.WithLabelValues("verified", "applied"))-before)
}
