package http

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPI_Valid(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	assert.Equal(t, doc.Info.Version, apiVersion())
}

func TestOpenAPI_DocumentsEveryAPIRoute(t *testing.T) {
	doc, err := GetSwagger()
	require.NoError(t, err)

	s, _ := newTestServer(t, Config{})
	err = chi.Walk(s.router(), func(method, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		switch route {
		case "/", "/metrics", "/openapi.yaml", "/swagger":
			return nil
		}
		item := doc.Paths.Find(route)
		if !assert.NotNil(t, item, "route %s is not documented", route) {
			return nil
		}
		assert.NotNil(t, item.GetOperation(method), "%s %s is not documented", method, route)
		return nil
	})
	require.NoError(t, err)
}

func TestOpenAPI_Served(t *testing.T) {
	_, h := newTestServer(t, Config{})

	w := do(h, http.MethodGet, "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "openapi: 3.0.3"))

	w = do(h, http.MethodGet, "/swagger", "")
	assert.Contains(t, w.Body.String(), "SwaggerUIBundle")
}
