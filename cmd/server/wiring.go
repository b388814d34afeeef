package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jrsteele09/go-otp-auth/devices"
	devicerepofake "github.com/jrsteele09/go-otp-auth/devices/repofake"
	"github.com/jrsteele09/go-otp-auth/events"
	"github.com/jrsteele09/go-otp-auth/internal/config"
	"github.com/jrsteele09/go-otp-auth/internal/metrics"
	"github.com/jrsteele09/go-otp-auth/internal/persistence"
	"github.com/jrsteele09/go-otp-auth/login"
	"github.com/jrsteele09/go-otp-auth/notify"
	"github.com/jrsteele09/go-otp-auth/sessions"
	sessionrepofake "github.com/jrsteele09/go-otp-auth/sessions/repofake"
	"github.com/jrsteele09/go-otp-auth/token"
	"github.com/jrsteele09/go-otp-auth/users"
	userrepofake "github.com/jrsteele09/go-otp-auth/users/repofake"
	"github.com/jrsteele09/go-otp-auth/verification"
	verificationrepofake "github.com/jrsteele09/go-otp-auth/verification/repofake"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const rateLimitPrefix = "otp:rl"

// app holds the long-lived components and the resources they need released.
type app struct {
	ledger       *verification.Ledger
	orchestrator *login.Orchestrator
	metrics      *metrics.Metrics
	bus          events.Bus
	closers      []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type repos struct {
	codes    verification.Repo
	sessions sessions.Repo
	devices  devices.Repo
}

func build(ctx context.Context, c config.Config) (_ *app, err error) {
	a := &app{metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	stores, err := a.openRepos(ctx, c)
	if err != nil {
		return nil, err
	}

	var redisClient redis.UniversalClient
	if c.GetRedisAddr() != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		redisClient = client
		a.closers = append(a.closers, func() { _ = client.Close() })
	}

	issuer, err := newIssuer(c)
	if err != nil {
		return nil, err
	}

	policy := verification.NewPolicy(c.GetRequestsPerMinute(), c.GetRequestsPerHour())
	var limiter verification.RateLimiter = verification.NewStoreRateLimiter(stores.codes, policy)
	if c.GetRateLimiterBackend() == "redis" {
		if redisClient == nil {
			return nil, fmt.Errorf("redis rate limiter selected but REDIS_ADDR is not set")
		}
		limiter = verification.NewRedisRateLimiter(redisClient, rateLimitPrefix, policy)
	}

	a.ledger = verification.NewLedger(stores.codes,
		verification.WithCodeLength(c.GetCodeLength()),
		verification.WithExpiry(c.GetCodeExpiry()),
		verification.WithMaxAttempts(c.GetMaxAttempts()),
		verification.WithRateLimiter(limiter),
		verification.WithRetention(c.GetSweepRetention()),
	)
	manager := sessions.NewManager(stores.sessions, issuer, sessions.WithLifetime(c.GetSessionLifetime()))
	registry := devices.NewRegistry(stores.devices, devices.WithMultipleIPPolicy(c.GetMultipleIPThreshold(), c.GetMultipleIPWindow()))

	var bus events.Bus = events.NewLogBus(log.Logger)
	if redisClient != nil {
		bus = events.NewRedisBus(redisClient, c.GetEventChannelPrefix())
	}
	if err := bus.Connect(ctx); err != nil {
		return nil, fmt.Errorf("event bus connect: %w", err)
	}
	a.closers = append(a.closers, func() { _ = bus.Close() })
	a.bus = bus

	a.orchestrator = login.NewOrchestrator(a.ledger, manager, registry, newDirectory(c),
		login.WithChannel(newChannel(c)),
		login.WithBus(bus),
		login.WithMetrics(a.metrics),
		login.WithCodeLogging(!c.IsProduction()),
	)
	return a, nil
}

// openRepos uses Postgres when a database URL is configured and in-memory
// stores otherwise.
func (a *app) openRepos(ctx context.Context, c config.StoreConfig) (repos, error) {
	if c.GetDatabaseURL() == "" {
		log.Warn().Msg("DATABASE_URL not set, using in-memory stores")
		return repos{
			codes:    verificationrepofake.NewFakeCodeRepo(),
			sessions: sessionrepofake.NewFakeSessionRepo(),
			devices:  devicerepofake.NewFakeDeviceRepo(),
		}, nil
	}

	pool, err := persistence.NewPool(ctx, c.GetDatabaseURL(), c.GetDatabaseMaxConns())
	if err != nil {
		return repos{}, err
	}
	a.closers = append(a.closers, pool.Close)
	if err := persistence.Migrate(ctx, pool); err != nil {
		return repos{}, err
	}
	return postgresRepos(pool), nil
}

func postgresRepos(pool *pgxpool.Pool) repos {
	return repos{
		codes:    verification.NewPostgresRepo(pool),
		sessions: sessions.NewPostgresRepo(pool),
		devices:  devices.NewPostgresRepo(pool),
	}
}

func newIssuer(c config.Config) (*token.Issuer, error) {
	accessSecret, refreshSecret := c.GetAccessTokenSecret(), c.GetRefreshTokenSecret()
	if !c.IsProduction() {
		if accessSecret == "" {
			accessSecret = devSecret("JWT_SECRET")
		}
		if refreshSecret == "" {
			refreshSecret = devSecret("JWT_REFRESH_SECRET")
		}
	}
	access, refresh, err := token.NewHMACPair(accessSecret, refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("token signers: %w", err)
	}
	return token.NewIssuer(access, refresh, token.WithTTL(c.GetAccessTokenTTL(), c.GetRefreshTokenTTL())), nil
}

// devSecret generates a throwaway secret. Tokens do not survive a restart.
func devSecret(name string) string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	log.Warn().Str("var", name).Msg("secret not set, generated a random development secret")
	return hex.EncodeToString(b)
}

func newChannel(c config.DeliveryConfig) notify.Channel {
	dryRun := notify.NewLogChannel(log.Logger)
	if c.GetDeliveryDryRun() {
		return dryRun
	}

	var phone, email notify.Channel = dryRun, dryRun
	if c.GetSMSBaseURL() != "" {
		phone = notify.NewSMSChannel(c.GetSMSBaseURL(), c.GetSMSAPIKey(), c.GetSMSSender())
	}
	if c.GetSmtpHost() != "" {
		email = notify.NewSMTPEmailChannel(c.GetSmtpHost(), c.GetSmtpPort(), c.GetSmtpAccount(), c.GetSmtpPassword(), c.GetSmtpFrom())
	}
	return notify.NewRouter(phone, email)
}

func newDirectory(c config.StoreConfig) users.Directory {
	if c.GetUserServiceURL() == "" {
		log.Warn().Msg("USER_SERVICE_URL not set, using an in-memory user directory")
		return userrepofake.NewFakeDirectory()
	}
	return users.NewHTTPDirectory(c.GetUserServiceURL(), c.GetInternalAPIKey())
}
