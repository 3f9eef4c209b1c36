package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/madison-studio/madison-connect/internal/adapters/driven/auth"
	"github.com/madison-studio/madison-connect/internal/adapters/driven/memory"
	"github.com/madison-studio/madison-connect/internal/adapters/driven/postgres"
	"github.com/madison-studio/madison-connect/internal/adapters/driven/providers"
	redisadapter "github.com/madison-studio/madison-connect/internal/adapters/driven/redis"
	"github.com/madison-studio/madison-connect/internal/adapters/driven/vault"
	"github.com/madison-studio/madison-connect/internal/config"
	"github.com/madison-studio/madison-connect/internal/core/domain"
	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
	"github.com/madison-studio/madison-connect/internal/core/ports/driving"
	"github.com/madison-studio/madison-connect/internal/core/services"
)

// app holds the wired infrastructure shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db          *postgres.DB
	redisClient *redis.Client // nil without REDIS_URL
	redisLock   *redisadapter.Lock

	states driven.OAuthStateStore
	lock   driven.DistributedLock
}

// newApp connects to PostgreSQL and, when configured, Redis, then selects
// the state store and lock implementations.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, logger: cfg.Logger()}
	slog.SetDefault(a.logger)

	// ===== PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.db = db

	if cfg.DBAutoMigrate {
		if err := db.InitSchema(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
	}
	log.Println("PostgreSQL connected")

	// ===== Redis (optional) =====
	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse Redis URL: %w", err)
		}
		a.redisClient = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redisClient.Ping(pingCtx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to Redis: %w", err)
		}
		a.redisLock = redisadapter.NewLock(a.redisClient)
		log.Println("Redis connected")
	}

	// ===== State store =====
	switch cfg.StateBackend {
	case config.StateBackendRedis:
		if a.redisClient == nil {
			a.Close()
			return nil, fmt.Errorf("STATE_BACKEND=redis requires REDIS_URL")
		}
		a.states = redisadapter.NewOAuthStateStore(a.redisClient)
	case config.StateBackendMemory:
		a.states = memory.NewOAuthStateStore()
		a.logger.Warn("using in-memory OAuth state store; flows do not survive restarts or span instances")
	default:
		a.states = postgres.NewOAuthStateStore(db.DB)
	}

	// ===== Distributed lock =====
	switch {
	case a.redisLock != nil:
		a.lock = a.redisLock
	case cfg.StateBackend == config.StateBackendMemory:
		a.lock = memory.NewLock()
	default:
		a.lock = postgres.NewAdvisoryLock(db)
	}

	log.Printf("State backend: %s", cfg.StateBackend)
	return a, nil
}

func (a *app) Close() {
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// serviceSet is what the serve command runs.
type serviceSet struct {
	registry    *providers.Registry
	auth        driving.AuthService
	connections driving.ConnectionService
	janitor     *services.StateJanitor
}

// buildServices wires the vault, provider registry and domain services.
func (a *app) buildServices(flowMetrics driven.FlowMetrics) (*serviceSet, error) {
	credentialVault, err := vault.NewFromString(a.cfg.TokenEncryptionKey)
	if err != nil {
		return nil, err
	}

	registry := providers.Build(providers.Settings{
		Credentials:   a.cfg.Providers,
		Scopes:        a.cfg.ProviderScopes,
		PublicBaseURL: a.cfg.PublicBaseURL,
	})
	for _, p := range domain.SupportedProviders() {
		if _, err := registry.Client(p); err != nil {
			a.logger.Warn("provider disabled", "provider", p, "error", err)
		}
	}

	var authOpts []auth.Option
	if a.cfg.SessionIssuer != "" {
		authOpts = append(authOpts, auth.WithIssuer(a.cfg.SessionIssuer))
	}
	if a.cfg.SessionAudience != "" {
		authOpts = append(authOpts, auth.WithAudience(a.cfg.SessionAudience))
	}

	connections := services.NewConnectionService(services.ConnectionServiceConfig{
		Providers:              registry,
		States:                 a.states,
		Connections:            postgres.NewConnectionStore(a.db),
		Memberships:            postgres.NewMembershipStore(a.db.DB),
		Vault:                  credentialVault,
		Lock:                   a.lock,
		Metrics:                flowMetrics,
		Logger:                 a.logger,
		AppURL:                 a.cfg.AppURL,
		AllowedRedirectOrigins: a.cfg.AllowedRedirectOrigins,
		StateTTL:               a.cfg.StateTTL,
		RefreshLockTTL:         a.cfg.RefreshLockTTL,
	})

	return &serviceSet{
		registry:    registry,
		auth:        services.NewAuthService(auth.NewAdapter(a.cfg.SessionJWTSecret, authOpts...)),
		connections: connections,
		janitor:     a.newJanitor(flowMetrics),
	}, nil
}

func (a *app) newJanitor(flowMetrics driven.FlowMetrics) *services.StateJanitor {
	return services.NewStateJanitor(services.StateJanitorConfig{
		Store:    a.states,
		Lock:     a.lock,
		Metrics:  flowMetrics,
		Logger:   a.logger,
		Interval: a.cfg.StateCleanupInterval,
	})
}
