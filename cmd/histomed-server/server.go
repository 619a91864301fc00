package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/histomed/histomed/internal/config"
	"github.com/histomed/histomed/internal/domain/clinical"
	"github.com/histomed/histomed/internal/domain/identity"
	"github.com/histomed/histomed/internal/domain/medchat"
	"github.com/histomed/histomed/internal/domain/patient"
	"github.com/histomed/histomed/internal/platform/auth"
	"github.com/histomed/histomed/internal/platform/db"
	"github.com/histomed/histomed/internal/platform/events"
	"github.com/histomed/histomed/internal/platform/middleware"
	"github.com/histomed/histomed/internal/platform/recordstore"
)

const shutdownTimeout = 10 * time.Second

// openBackend builds the document backend selected by STORE_DRIVER. For
// postgres it also returns the pool, after applying pending migrations.
func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (recordstore.Backend, *pgxpool.Pool, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return nil, nil, err
		}
		applied, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(ctx)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info().Int("applied", applied).Msg("connected to database")
		return recordstore.NewPostgresBackend(pool), pool, nil
	case config.StoreLevelDB:
		if err := os.MkdirAll(filepath.Dir(cfg.LevelDBPath), 0o755); err != nil {
			return nil, nil, err
		}
		b, err := recordstore.NewLevelDBBackend(cfg.LevelDBPath)
		if err != nil {
			return nil, nil, err
		}
		return b, nil, nil
	default:
		return recordstore.NewFileBackend(cfg.StorePath), nil, nil
	}
}

// resolveSigningKey returns the configured key or generates a random 32-byte
// one. The second return value is true when the key was generated.
func resolveSigningKey(cfg *config.Config) ([]byte, bool, error) {
	key, err := cfg.SigningKey()
	if err != nil {
		return nil, false, err
	}
	if key != nil {
		return key, false, nil
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate signing key: %w", err)
	}
	return key, true, nil
}

// server is the wired HTTP application.
type server struct {
	echo        *echo.Echo
	hub         *events.Hub
	revocations *auth.TokenRevocationStore
	closers     []func() error
	logger      zerolog.Logger
}

func newServer(cfg *config.Config, logger zerolog.Logger, store *recordstore.Store, pool *pgxpool.Pool) (*server, error) {
	key, generated, err := resolveSigningKey(cfg)
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn().Msg("JWT_SIGNING_KEY is not set; using a random key, tokens will not survive a restart")
	}
	mode := auth.Mode(cfg.AuthMode)
	if mode == auth.ModeOpen {
		logger.Warn().Msg("AUTH_MODE=open: requests without a token act as staff")
	}

	s := &server{
		hub:         events.NewHub(),
		revocations: auth.NewTokenRevocationStore(time.Minute),
		logger:      logger,
	}
	s.revocations.OnRevoke(func(jti string) {
		if n := s.hub.DisconnectToken(jti); n > 0 {
			logger.Info().Int("streams", n).Msg("closed event streams of revoked token")
		}
	})
	publishers := []events.Publisher{s.hub}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publishers = append(publishers, kp)
		s.closers = append(s.closers, kp.Close)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing record events to kafka")
	}
	sink := events.NewDispatcher(logger, publishers...)

	tokens := auth.NewTokenManager(auth.TokenConfig{SigningKey: key, Issuer: cfg.JWTIssuer, TTL: cfg.TokenTTL})
	policy := auth.Policy{Mode: mode}

	identitySvc := identity.NewService(identity.NewStoreRepository(store), tokens, s.revocations)
	patientSvc := patient.NewService(patient.NewStoreRepository(store), patient.Config{
		PortalDomain: cfg.PortalEmailDomain,
		Events:       sink,
	})
	clinicalSvc := clinical.NewService(clinical.NewStoreRepository(store), clinical.WithEvents(sink))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders: []string{"X-Total-Count", echo.HeaderContentDisposition, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(auth.Authenticate(auth.MiddlewareConfig{
		Tokens:      tokens,
		Users:       identitySvc,
		Revocations: s.revocations,
		Mode:        mode,
		Skipper:     auth.AuthSkipper,
		Logger:      logger,
	}))
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":        "ok",
			"store":         store.Driver(),
			"event_streams": s.hub.ClientCount(),
		})
	})
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	api := e.Group("/api", middleware.RateLimit(rl))

	identity.NewHandler(identitySvc).RegisterRoutes(api)
	patient.NewHandler(patientSvc, policy).RegisterRoutes(api)
	clinical.NewHandler(clinicalSvc, policy).RegisterRoutes(api)
	medchat.NewHandler(medchat.NewResponder(nil)).RegisterRoutes(api)
	events.NewWebSocketHandler(s.hub, cfg.CORSOrigins, logger).RegisterRoutes(api)

	s.echo = e
	return s, nil
}

func (s *server) Close() {
	s.revocations.Close()
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Error().Err(err).Msg("close")
		}
	}
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	backend, pool, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	store, err := recordstore.Open(ctx, backend, recordstore.Options{
		SeedDemo:     cfg.SeedDemo,
		HashPassword: auth.DefaultHasher.Hash,
		Logger:       logger,
	})
	if err != nil {
		backend.Close()
		return fmt.Errorf("open record store: %w", err)
	}
	defer store.Close()

	srv, err := newServer(cfg, logger, store, pool)
	if err != nil {
		return err
	}
	defer srv.Close()

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("store", store.Driver()).Str("auth_mode", cfg.AuthMode).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
