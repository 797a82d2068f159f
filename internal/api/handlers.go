package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
)

// Services bundles everything the HTTP surface calls into.
type Services struct {
	Auth      service.IAuthService
	Users     service.IUserService
	Recipes   service.IRecipeService
	Relations service.IRelationService
	Links     service.IShortLinkService
	Catalog   service.ICatalogService
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

// HealthCheck returns the health status of the API
func HealthCheck(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}

// RegisterRoutes registers all API routes under /api plus the short-link redirect.
// createLimit throttles recipe creation and may be nil.
func RegisterRoutes(router *gin.Engine, svc Services, pages Paginator, createLimit gin.HandlerFunc) {
	v := router.Group("/api")

	NewAuthHandler(svc.Auth).RegisterRoutes(v)
	NewUserHandler(svc.Users, svc.Relations, pages).RegisterRoutes(v, svc.Auth)
	NewRecipeHandler(svc.Recipes, svc.Relations, svc.Links, pages).RegisterRoutes(v, svc.Auth, createLimit)
	NewCatalogHandler(svc.Catalog).RegisterRoutes(v)
	NewShortLinkHandler(svc.Links).RegisterRoutes(router)
}
