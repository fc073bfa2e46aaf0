package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/shubhamforall/petstore-api/apperror"
	"github.com/shubhamforall/petstore-api/auth"
	"github.com/shubhamforall/petstore-api/cache"
	"github.com/shubhamforall/petstore-api/database"
	"github.com/shubhamforall/petstore-api/metrics"
	"github.com/shubhamforall/petstore-api/middlewares"
	"github.com/shubhamforall/petstore-api/permissions"
	"github.com/shubhamforall/petstore-api/response"
	"github.com/shubhamforall/petstore-api/validation"
)

// Route declares one endpoint. Action empty means public.
type Route struct {
	Method string
	Path   string
	Action string

	Params func() any
	Query  func() any
	Body   func() any
	Files  *validation.FileRule

	// Cache serves GET responses cache-aside.
	Cache bool
	// Invalidates lists path prefixes whose cached responses a 2xx result drops.
	Invalidates []string
	// Idempotent honours the Idempotency-Key header.
	Idempotent bool

	Handler Handler
}

type Options struct {
	Tokens      *auth.TokenService
	Permissions *permissions.Table
	Validator   *validation.Validator
	Idempotency database.IdempotencyRepository
	// Cache nil disables response caching.
	Cache    cache.Store
	CacheTTL time.Duration
	Metrics  *metrics.Metrics
	Log      logrus.FieldLogger
}

// Orchestrator turns Routes into ordered fiber handler chains:
// authenticate, authorize, idempotency, validate params, query and body, cache read,
// then the handler and response shaping.
type Orchestrator struct {
	opts Options
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Tokens == nil || opts.Permissions == nil {
		return nil, errors.New("pipeline needs a token service and a permission table")
	}
	if opts.Validator == nil {
		opts.Validator = validation.New()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Orchestrator{opts: opts}, nil
}

// Register mounts route on r.
func (o *Orchestrator) Register(r fiber.Router, route Route) error {
	if route.Handler == nil {
		return fmt.Errorf("%s %s: no handler", route.Method, route.Path)
	}
	if route.Action != "" && !o.opts.Permissions.Has(route.Action) {
		return fmt.Errorf("%s %s: action %q has no permission rule", route.Method, route.Path, route.Action)
	}
	if route.Cache && route.Method != fiber.MethodGet {
		return fmt.Errorf("%s %s: only GET routes can be cached", route.Method, route.Path)
	}
	if route.Idempotent && o.opts.Idempotency == nil {
		return fmt.Errorf("%s %s: idempotent route without idempotency store", route.Method, route.Path)
	}
	if route.Idempotent && route.Action == "" {
		return fmt.Errorf("%s %s: idempotency keys need an authenticated route", route.Method, route.Path)
	}

	r.Add(route.Method, route.Path, o.chain(route)...)
	return nil
}

func (o *Orchestrator) chain(route Route) []fiber.Handler {
	var h []fiber.Handler
	if route.Action != "" {
		h = append(h,
			middlewares.Authenticate(o.opts.Tokens),
			middlewares.Authorize(o.opts.Permissions, route.Action),
		)
	}
	if route.Idempotent {
		h = append(h, middlewares.Idempotency(o.opts.Idempotency, o.opts.Log))
	}
	if route.Params != nil {
		h = append(h, middlewares.Validate(o.opts.Validator, validation.SourceParams, route.Params, nil))
	}
	if route.Query != nil {
		h = append(h, middlewares.Validate(o.opts.Validator, validation.SourceQuery, route.Query, nil))
	}
	if route.Body != nil {
		h = append(h, middlewares.Validate(o.opts.Validator, validation.SourceBody, route.Body, route.Files))
	}
	if route.Cache && o.opts.Cache != nil {
		h = append(h, middlewares.ResponseCache(o.opts.Cache, o.opts.Metrics, o.opts.Log))
	}
	return append(h, o.terminal(route))
}

// terminal runs the handler and is the only stage that writes a success body.
func (o *Orchestrator) terminal(route Route) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := route.Handler(c)
		if err != nil {
			return err
		}
		if res == nil {
			return apperror.Internal(fmt.Errorf("%s %s: handler returned no result", route.Method, route.Path))
		}
		ok := res.Status >= 200 && res.Status < 300

		if ok && o.opts.Cache != nil {
			for _, prefix := range route.Invalidates {
				if err := o.opts.Cache.DeletePrefix(c.UserContext(), middlewares.CacheNamespace+prefix); err != nil {
					o.opts.Log.WithError(err).WithField("prefix", prefix).Warn("cache invalidation failed")
				}
			}
		}

		if res.Status == fiber.StatusNoContent {
			return c.SendStatus(fiber.StatusNoContent)
		}

		data, err := json.Marshal(res.Data)
		if err != nil {
			return apperror.Internal(fmt.Errorf("encode response data: %w", err))
		}
		body, err := response.Success(res.Status, res.Message, data)
		if err != nil {
			return apperror.Internal(err)
		}

		if key, cacheable := middlewares.CacheKey(c); cacheable && ok {
			o.store(c, key, middlewares.CachedResponse{Status: res.Status, Message: res.Message, Data: data})
		}
		return response.Write(c, res.Status, body)
	}
}

func (o *Orchestrator) store(c *fiber.Ctx, key string, entry middlewares.CachedResponse) {
	payload, err := json.Marshal(entry)
	if err == nil {
		err = o.opts.Cache.Set(c.UserContext(), key, payload, o.opts.CacheTTL)
	}
	if err != nil {
		o.opts.Log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}
