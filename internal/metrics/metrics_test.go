package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewRegistry()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/api/recipes/:id/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/recipes/1/", "/api/recipes/2/"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/recipes/:id/", "200")))
}

func TestDomainCounters(t *testing.T) {
	m := NewRegistry()

	m.RecordRecipeWrite("create")
	m.RecordRecipeWrite("create")
	m.RecordShoppingList()
	m.RecordShortLink("hit")
	m.RecordRelation("favorite", "add")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecipeWrites.WithLabelValues("create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ShoppingLists))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ShortLinkResolution.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelationChanges.WithLabelValues("favorite", "add")))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var m *Registry
	assert.NotPanics(t, func() {
		m.RecordRecipeWrite("create")
		m.RecordShoppingList()
		m.RecordShortLink("miss")
		m.RecordRelation("cart", "remove")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewRegistry()
	m.RecordShoppingList()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "foodgram_shopping_lists_rendered_total 1")
}
