// Package app wires the service's components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"voice-appointment-service/internal/catalog"
	"voice-appointment-service/internal/config"
	"voice-appointment-service/internal/events"
	"voice-appointment-service/internal/lock"
	"voice-appointment-service/internal/observability/logging"
	"voice-appointment-service/internal/observability/metrics"
	"voice-appointment-service/internal/schema"
	"voice-appointment-service/internal/service/availability"
	"voice-appointment-service/internal/service/capture"
	"voice-appointment-service/internal/service/scheduling"
	"voice-appointment-service/internal/service/stt"
	"voice-appointment-service/internal/service/stt/google"
	"voice-appointment-service/internal/service/stt/mock"
	"voice-appointment-service/internal/service/voice"
	"voice-appointment-service/internal/store"
)

// STT providers.
const (
	ProviderMock   = "mock"
	ProviderGoogle = "google"
	ProviderNone   = "none"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Catalog   *catalog.Catalog
	Parser    *voice.Parser
	Scheduler *scheduling.Service
	Publisher *events.Publisher
	Consumer  *events.Consumer
	Hub       *events.Hub
	Sessions  *capture.Generator
	Metrics   *metrics.Metrics

	location *time.Location
	pool     *pgxpool.Pool
	redis    *redis.Client
}

// New constructs a new Application from the provided configuration.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	a := &Application{
		Cfg:      cfg,
		Logger:   logging.WithComponent("application"),
		Sessions: capture.NewGenerator(),
		Hub:      events.NewHub(32),
		Metrics:  metrics.DefaultMetrics,
		location: cfg.Locale.Location(),
	}

	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	a.Catalog = cat
	a.Parser = voice.NewParser(cat,
		voice.WithLocation(a.location),
		voice.WithMetrics(a.Metrics),
	)

	scope, err := availability.ParseScope(cfg.Scheduling.Scope)
	if err != nil {
		return nil, err
	}

	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	a.Publisher = events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicOutcome:     cfg.Kafka.TopicOutcome,
		TopicAppointment: cfg.Kafka.TopicAppointment,
		Principal:        cfg.Kafka.Principal,
	})
	a.Consumer = events.NewConsumer(&events.Config{
		Brokers:          cfg.Kafka.Brokers,
		ConsumerEnabled:  cfg.Kafka.ConsumerEnabled,
		TopicTranscripts: cfg.Kafka.TopicTranscripts,
		GroupID:          cfg.Kafka.GroupID,
	}, a.Parser, a.Publisher)

	a.Scheduler = scheduling.New(scheduling.Config{
		DefaultDuration: cfg.Scheduling.DefaultDuration,
		Scope:           scope,
		Location:        a.location,
	}, scheduling.Deps{
		Store:     st,
		Validator: schema.New(cat),
		Locker:    a.newLocker(),
		Publisher: events.Tee{a.Publisher, a.Hub},
		Metrics:   a.Metrics,
	})

	a.Logger.Info().
		Str("sttProvider", cfg.STT.Provider).
		Str("scope", string(scope)).
		Str("timezone", a.location.String()).
		Bool("postgres", a.pool != nil).
		Bool("redis", a.redis != nil).
		Msg("Voice appointment service application created")
	return a, nil
}

func loadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.File == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

func (a *Application) openStore(ctx context.Context) (store.Store, error) {
	if a.Cfg.Postgres.URL == "" {
		a.Logger.Info().Msg("DATABASE_URL not set, using in-memory store")
		return store.NewMemory(), nil
	}
	pool, err := pgxpool.New(ctx, a.Cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.pool = pool
	return store.NewPostgres(pool), nil
}

func (a *Application) newLocker() lock.Locker {
	if a.Cfg.Redis.Addr == "" {
		return lock.NewLocal()
	}
	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.Cfg.Redis.Addr,
		Password: a.Cfg.Redis.Password,
		DB:       a.Cfg.Redis.DB,
	})
	lcfg := lock.DefaultRedisConfig()
	if a.Cfg.Redis.LockTTL > 0 {
		lcfg.TTL = a.Cfg.Redis.LockTTL
	}
	return lock.NewRedis(a.redis, lcfg)
}

// Location returns the configured time zone.
func (a *Application) Location() *time.Location {
	return a.location
}

// NewAdapter creates a speech adapter for the configured provider. The
// "none" provider returns nil: the client supplies transcripts itself.
func (a *Application) NewAdapter(ctx context.Context) (stt.Adapter, error) {
	switch a.Cfg.STT.Provider {
	case ProviderMock, "":
		return mock.New(), nil
	case ProviderGoogle:
		return google.New(ctx, google.Config{
			LanguageCode:   a.Cfg.STT.LanguageCode,
			SampleRateHz:   int32(a.Cfg.STT.SampleRateHz),
			InterimResults: a.Cfg.STT.InterimResults,
			AudioEncoding:  a.Cfg.STT.AudioEncoding,
			PhraseHints:    a.phraseHints(),
		})
	case ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", a.Cfg.STT.Provider)
	}
}

func (a *Application) phraseHints() []string {
	var hints []string
	for _, p := range a.Catalog.Patients {
		hints = append(hints, p.Name)
	}
	for _, o := range a.Catalog.Offices {
		hints = append(hints, o.Name)
	}
	for _, s := range a.Catalog.Services {
		hints = append(hints, s.Name)
	}
	return hints
}

// NewSession creates and starts a capture session for a client.
func (a *Application) NewSession(ctx context.Context, clientID string, sink capture.Sink) (*capture.Session, error) {
	adapter, err := a.NewAdapter(ctx)
	if err != nil {
		return nil, err
	}
	s := capture.NewSession(a.Sessions.Next(clientID), clientID, capture.Deps{
		Adapter:   adapter,
		Parser:    a.Parser,
		Sink:      sink,
		Publisher: a.Publisher,
		Metrics:   a.Metrics,
	}, capture.Limits{
		MaxAudioBytes: a.Cfg.Capture.MaxAudioBytes,
		MaxDuration:   a.Cfg.Capture.MaxDuration,
		MaxUpdates:    a.Cfg.Capture.MaxUpdates,
	})
	if err := s.Start(ctx); err != nil {
		return nil, fmt.Errorf("start capture session: %w", err)
	}
	return s, nil
}

// Ready reports whether the backing stores are reachable.
func (a *Application) Ready(ctx context.Context) error {
	var errs []error
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Start performs any startup work required before serving traffic and runs
// the transcript consumer until ctx is cancelled.
func (a *Application) Start(ctx context.Context) error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Voice appointment service starting")

	if a.Consumer != nil {
		go func() {
			if err := a.Consumer.Run(ctx); err != nil {
				a.Logger.Error().Err(err).Msg("Transcript consumer stopped")
			}
		}()
	}
	return nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	a.Logger.Info().Msg("Voice appointment service shutting down")

	if a.Consumer != nil {
		if err := a.Consumer.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close transcript consumer")
		}
	}
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close Kafka publisher")
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
