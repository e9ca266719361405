package apiv1_test

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bantaydalan/bantaydalan-api/app/controllers"
	apiv1 "github.com/bantaydalan/bantaydalan-api/internal/api/v1"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/middleware"
)

const specPath = "../../../public/docs/v1/openapi.yml"

func loadSpec(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromFile(specPath)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

var routeParam = regexp.MustCompile(`:([A-Za-z]+)`)

func TestEveryRouteIsDocumented(t *testing.T) {
	doc := loadSpec(t)

	app := fiber.New()
	apiv1.RegisterHandlers(app.Group("/api/v1"), apiv1.NewAPIServer(controllers.New(controllers.Deps{})),
		middleware.NewAuth(nil, nil, nil), apiv1.Limits{})

	seen := 0
	for _, r := range app.GetRoutes(true) {
		if r.Method == fiber.MethodHead || !strings.HasPrefix(r.Path, "/api/v1/") {
			continue
		}
		path := routeParam.ReplaceAllString(strings.TrimPrefix(r.Path, "/api/v1"), "{$1}")
		item := doc.Paths.Value(path)
		if !assert.NotNil(t, item, "undocumented path %s", path) {
			continue
		}
		assert.NotNil(t, item.GetOperation(r.Method), "undocumented %s %s", r.Method, path)
		seen++
	}
	assert.Greater(t, seen, 25)
}
