package http_test

import (
	"context"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/walkies/api"
)

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(api.OpenAPI)
	require.NoError(t, err)
	return doc
}

func TestOpenAPISpec_Valid(t *testing.T) {
	doc := loadOpenAPI(t)
	require.NoError(t, doc.Validate(context.Background()))

	assert.Equal(t, "Walkies API", doc.Info.Title)
	assert.NotEmpty(t, doc.Servers)
	for _, schema := range []string{"Walk", "WalkLocation", "LocationOutcome", "RouteInfo", "APIError", "Pagination"} {
		assert.Contains(t, doc.Components.Schemas, schema)
	}
}

// Every documented path must be served, and every /v1 route must be documented.
func TestOpenAPISpec_MatchesRoutes(t *testing.T) {
	doc := loadOpenAPI(t)

	app := fiber.New()
	deps, _ := newTestDeps()
	handlerSetup(app, deps)

	served := map[string]bool{}
	for _, r := range app.GetRoutes(true) {
		if r.Method == fiber.MethodHead {
			continue
		}
		if !strings.HasPrefix(r.Path, "/v1/") && r.Path != "/graphql" {
			continue
		}
		served[openAPIPath(r.Path)] = true
	}

	for path := range doc.Paths.Map() {
		assert.True(t, served[path], "documented path %s is not served", path)
	}
	for path := range served {
		assert.NotNil(t, doc.Paths.Find(path), "served path %s is not documented", path)
	}
}

// openAPIPath turns /v1/walks/:id into /v1/walks/{id}.
func openAPIPath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") {
			parts[i] = "{" + part[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}
