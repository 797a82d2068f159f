package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/cache"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Server represents the HTTP server
type Server struct {
	cfg     *config.Config
	router  *gin.Engine
	http    *http.Server
	db      *gorm.DB
	redis   *redis.Client
	metrics *metrics.Registry
}

// New connects to the database, Redis and image storage and builds the server.
// Redis is optional: without it short links are resolved from the database,
// logout cannot revoke tokens and rate limiting is per process.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	images, err := NewImageStore(ctx, cfg)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	var rdb redis.Cmdable
	client, err := database.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without it")
	} else {
		rdb = client
	}

	s := NewWithDeps(cfg, db, rdb, images)
	s.redis = client
	return s, nil
}

// NewImageStore returns an S3 store when a bucket is configured and a local media directory otherwise.
func NewImageStore(ctx context.Context, cfg *config.Config) (service.ImageStore, error) {
	if cfg.S3Bucket == "" {
		log.Info().Str("dir", cfg.MediaDir).Msg("Storing images on local disk")
		return service.NewLocalImageStore(cfg.MediaDir, cfg.MediaBaseURL), nil
	}
	s3cfg, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure S3: %w", err)
	}
	log.Info().Str("bucket", s3cfg.BucketName).Msg("Storing images in S3")
	return service.NewS3ImageStore(s3cfg.Client, s3cfg.BucketName, s3cfg.BaseURL), nil
}

// NewWithDeps builds the router from already opened dependencies. rdb may be nil.
func NewWithDeps(cfg *config.Config, db *gorm.DB, rdb redis.Cmdable, images service.ImageStore) *Server {
	reg := metrics.NewRegistry()

	var (
		links  service.LinkCache
		denied service.TokenDenyList
	)
	if rdb != nil {
		links = cache.NewShortLinks(rdb)
		denied = cache.NewTokenDenyList(rdb)
	}

	auth := service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL, denied)
	svc := api.Services{
		Auth:      auth,
		Users:     service.NewUserService(db, images),
		Recipes:   service.NewRecipeService(db, images, links, reg),
		Relations: service.NewRelationService(db, reg),
		Links:     service.NewShortLinkService(db, links, cfg.PublicBaseURL, reg),
		Catalog:   service.NewCatalogService(db),
	}

	if cfg.Env == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.RequestLogger(),
		reg.Middleware(),
		middleware.CORS(cfg.CORSOrigins),
		middleware.ErrorHandler(),
	)

	checks := map[string]api.HealthChecker{
		"database": func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	router.GET("/health", api.HealthCheck(checks))
	router.GET("/metrics", gin.WrapH(reg.Handler()))
	if local, ok := images.(*service.LocalImageStore); ok && local != nil {
		router.Static("/media", cfg.MediaDir)
	}

	var createLimit gin.HandlerFunc
	if cfg.RecipeCreateLimit > 0 {
		createLimit = middleware.NewRecipeCreationRateLimiter(rdb, cfg.RecipeCreateLimit).RateLimitMiddleware()
	}
	api.RegisterRoutes(router, svc, api.Paginator{BaseURL: cfg.PublicBaseURL, DefaultSize: cfg.PageSize}, createLimit)

	return &Server{
		cfg:     cfg,
		router:  router,
		db:      db,
		metrics: reg,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Migrate brings the schema up to date.
func (s *Server) Migrate() error {
	return database.RunMigrations(s.db)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("Starting server")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.closeResources()
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	s.closeResources()
	return err
}

func (s *Server) closeResources() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	if err := database.Close(s.db); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}
