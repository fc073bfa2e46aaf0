package server

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"

	"github.com/shubhamforall/petstore-api/auth"
	"github.com/shubhamforall/petstore-api/cache"
	"github.com/shubhamforall/petstore-api/config"
	"github.com/shubhamforall/petstore-api/controllers"
	"github.com/shubhamforall/petstore-api/database"
	"github.com/shubhamforall/petstore-api/metrics"
	"github.com/shubhamforall/petstore-api/middlewares"
	"github.com/shubhamforall/petstore-api/permissions"
	"github.com/shubhamforall/petstore-api/pipeline"
	"github.com/shubhamforall/petstore-api/ratelimit"
	"github.com/shubhamforall/petstore-api/routes"
	"github.com/shubhamforall/petstore-api/validation"
)

// Deps are the collaborators the HTTP server is assembled from.
type Deps struct {
	Config      *config.Config
	Log         *logrus.Logger
	Pets        database.PetRepository
	Users       database.UserRepository
	Idempotency database.IdempotencyRepository
	Tokens      *auth.TokenService
	Permissions *permissions.Table
	Limiter     *ratelimit.Limiter
	Files       controllers.FileStore
	// Cache nil disables response caching.
	Cache cache.Store
	// Metrics nil disables /metrics.
	Metrics *metrics.Metrics
}

func (d Deps) check() error {
	var missing []string
	if d.Config == nil {
		missing = append(missing, "config")
	}
	if d.Log == nil {
		missing = append(missing, "logger")
	}
	if d.Pets == nil || d.Users == nil || d.Idempotency == nil {
		missing = append(missing, "repositories")
	}
	if d.Tokens == nil {
		missing = append(missing, "token service")
	}
	if d.Permissions == nil {
		missing = append(missing, "permissions")
	}
	if d.Limiter == nil {
		missing = append(missing, "rate limiter")
	}
	if d.Files == nil {
		missing = append(missing, "file store")
	}
	if len(missing) > 0 {
		return fmt.Errorf("server: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// New builds the fiber app. App-wide order: request id, request log, recover, CORS,
// request timeout, rate limit; per-route stages come from the pipeline.
func New(d Deps) (*fiber.App, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	cfg := d.Config

	app := fiber.New(fiber.Config{
		AppName:      "petstore-api",
		ErrorHandler: middlewares.ErrorHandler(d.Log),
		BodyLimit:    cfg.BodyLimitBytes,
	})

	app.Use(requestid.New())
	app.Use(middlewares.RequestLogger(d.Log, d.Metrics))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		ExposeHeaders:    "X-Cache, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After",
	}))
	app.Use(middlewares.Timeout(cfg.RequestTimeout))
	app.Use(middlewares.RateLimit(d.Limiter, d.Metrics, d.Log))

	app.Static("/uploads", cfg.Upload.Dir)
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	authenticator, err := auth.NewAuthenticator(d.Users, d.Tokens)
	if err != nil {
		return nil, err
	}
	orch, err := pipeline.New(pipeline.Options{
		Tokens:      d.Tokens,
		Permissions: d.Permissions,
		Validator:   validation.New(),
		Idempotency: d.Idempotency,
		Cache:       d.Cache,
		CacheTTL:    cfg.Cache.TTL,
		Metrics:     d.Metrics,
		Log:         d.Log,
	})
	if err != nil {
		return nil, err
	}

	err = routes.Register(app, orch, routes.Controllers{
		Auth:  controllers.NewAuthController(authenticator),
		Pets:  controllers.NewPetController(d.Pets, d.Files, d.Log),
		Users: controllers.NewUserController(d.Users),
	}, validation.FileRule{
		Field:      "images",
		MaxFiles:   cfg.Upload.MaxFiles,
		MaxBytes:   cfg.Upload.MaxFileBytes,
		ImagesOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}
	return app, nil
}
