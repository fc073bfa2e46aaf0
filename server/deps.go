package server

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/shubhamforall/petstore-api/auth"
	"github.com/shubhamforall/petstore-api/cache"
	"github.com/shubhamforall/petstore-api/config"
	"github.com/shubhamforall/petstore-api/database"
	"github.com/shubhamforall/petstore-api/metrics"
	"github.com/shubhamforall/petstore-api/models"
	"github.com/shubhamforall/petstore-api/permissions"
	"github.com/shubhamforall/petstore-api/ratelimit"
	"github.com/shubhamforall/petstore-api/storage"
)

const redisDialTimeout = 5 * time.Second

// Build constructs every collaborator from cfg. With REDIS_URL set the rate limiter
// and response cache share redis; otherwise both live in process memory.
// The returned func releases what Build opened, except db.
func Build(cfg *config.Config, log *logrus.Logger, db *gorm.DB) (Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.BcryptCost > 0 {
		models.PasswordCost = cfg.BcryptCost
	}

	tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL, auth.WithIssuer(cfg.JWT.Issuer))
	if err != nil {
		return Deps{}, cleanup, err
	}
	files, err := storage.NewDisk(cfg.Upload.Dir, "/uploads")
	if err != nil {
		return Deps{}, cleanup, err
	}

	var (
		limitStore ratelimit.Store
		respCache  cache.Store
	)
	if cfg.Redis.URL != "" {
		client, err := connectRedis(cfg.Redis.URL)
		if err != nil {
			return Deps{}, cleanup, err
		}
		closers = append(closers, func() { _ = client.Close() })
		limitStore = ratelimit.NewRedisStore(client, "ratelimit:")
		if cfg.Cache.Enabled {
			respCache = cache.NewRedisStore(client)
		}
		log.WithField("redis", redactURL(cfg.Redis.URL)).Info("using redis for rate limits and response cache")
	} else {
		mem := ratelimit.NewMemoryStore()
		closers = append(closers, mem.Close)
		limitStore = mem
		if cfg.Cache.Enabled {
			mc := cache.NewMemoryStore()
			closers = append(closers, mc.Close)
			respCache = mc
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	return Deps{
		Config:      cfg,
		Log:         log,
		Pets:        database.NewPetStore(db),
		Users:       database.NewUserStore(db),
		Idempotency: database.NewIdempotencyStore(db),
		Tokens:      tokens,
		Permissions: permissions.New(permissions.Defaults()),
		Limiter:     ratelimit.New(limitStore, cfg.RateLimit.Max, cfg.RateLimit.Window),
		Files:       files,
		Cache:       respCache,
		Metrics:     m,
	}, cleanup, nil
}

func connectRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connect error: %w", err)
	}
	return client, nil
}

func redactURL(url string) string {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return "invalid"
	}
	return opts.Addr
}
