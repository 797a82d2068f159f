// Package metrics exposes Prometheus instrumentation for the HTTP surface and the recipe domain.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the service.
// A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	RecipeWrites        *prometheus.CounterVec
	ShoppingLists       prometheus.Counter
	ShortLinkResolution *prometheus.CounterVec
	RelationChanges     *prometheus.CounterVec
}

// NewRegistry creates a registry with the Go runtime collectors and all service metrics.
func NewRegistry() *Registry {
	m := &Registry{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodgram_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "foodgram_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"method", "route"},
		),

		RecipeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodgram_recipe_writes_total",
				Help: "Recipe writes by operation (create, update, delete)",
			},
			[]string{"operation"},
		),

		ShoppingLists: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "foodgram_shopping_lists_rendered_total",
				Help: "Total number of shopping lists downloaded",
			},
		),

		ShortLinkResolution: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodgram_short_link_resolutions_total",
				Help: "Short link resolutions by cache result (hit, miss, unknown)",
			},
			[]string{"result"},
		),

		RelationChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foodgram_relation_changes_total",
				Help: "Favorite, cart and subscription changes by kind and action",
			},
			[]string{"kind", "action"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.RecipeWrites,
		m.ShoppingLists,
		m.ShortLinkResolution,
		m.RelationChanges,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Registry) RecordRecipeWrite(operation string) {
	if m == nil {
		return
	}
	m.RecipeWrites.WithLabelValues(operation).Inc()
}

func (m *Registry) RecordShoppingList() {
	if m == nil {
		return
	}
	m.ShoppingLists.Inc()
}

func (m *Registry) RecordShortLink(result string) {
	if m == nil {
		return
	}
	m.ShortLinkResolution.WithLabelValues(result).Inc()
}

func (m *Registry) RecordRelation(kind, action string) {
	if m == nil {
		return
	}
	m.RelationChanges.WithLabelValues(kind, action).Inc()
}

// Middleware records request count and latency labelled by the route template,
// so /api/recipes/1/ and /api/recipes/2/ share a series.
func (m *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
