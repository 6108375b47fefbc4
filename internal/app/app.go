// Package app wires the transcription service together: job store, vocabulary,
// correction pipeline, job manager, and the HTTP server. It owns startup
// ordering and graceful shutdown; all domain logic lives in the packages it
// composes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/lexivox/lexivox/internal/config"
	"github.com/lexivox/lexivox/internal/enhance"
	"github.com/lexivox/lexivox/internal/health"
	"github.com/lexivox/lexivox/internal/httpapi"
	"github.com/lexivox/lexivox/internal/job"
	"github.com/lexivox/lexivox/internal/observe"
	"github.com/lexivox/lexivox/internal/pipeline"
	"github.com/lexivox/lexivox/internal/resolve"
	"github.com/lexivox/lexivox/internal/translate"
	"github.com/lexivox/lexivox/internal/vocab"
	"github.com/lexivox/lexivox/pkg/provider/audio"
	"github.com/lexivox/lexivox/pkg/provider/llm"
	"github.com/lexivox/lexivox/pkg/provider/stt"
)

// Providers bundles the instantiated pipeline collaborators. STT is required;
// the others are optional and their stages degrade or fail per job options.
type Providers struct {
	STT   stt.Transcriber
	Audio audio.Enhancer
	LLM   llm.Provider
}

// App is the composed transcription service.
type App struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *observe.Metrics

	pool         *pgxpool.Pool
	store        job.Store
	vocabStore   *vocab.Store
	vocabWatcher *vocab.Watcher
	manager      *job.Manager
	server       *http.Server

	shutdownTelemetry func(context.Context) error
}

// New builds the full service from configuration and instantiated providers.
// It connects to PostgreSQL (when configured), loads the vocabulary, and
// assembles pipeline, manager, and HTTP server. Nothing is started yet; call
// [App.Run].
func New(ctx context.Context, cfg *config.Config, providers *Providers) (*App, error) {
	if providers == nil || providers.STT == nil {
		return nil, errors.New("app: a transcription backend is required")
	}

	a := &App{
		cfg: cfg,
		log: slog.Default(),
	}

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "lexivox",
	})
	if err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}
	a.shutdownTelemetry = shutdownTelemetry

	a.metrics, err = observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("app: init metrics: %w", err)
	}

	if err := a.initStore(ctx); err != nil {
		return nil, err
	}
	if err := a.initVocabulary(); err != nil {
		return nil, err
	}
	a.initManager(providers)
	a.initServer()

	return a, nil
}

// initStore selects the job store backend: PostgreSQL when a DSN is
// configured, in-memory otherwise.
func (a *App) initStore(ctx context.Context) error {
	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		a.store = job.NewMemStore()
		a.log.Info("job store: in-memory")
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("app: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("app: ping postgres: %w", err)
	}

	store := job.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("app: migrate job schema: %w", err)
	}

	a.pool = pool
	a.store = store
	a.log.Info("job store: postgres")
	return nil
}

// initVocabulary loads the vocabulary table and starts the hot-reload watcher
// when configured.
func (a *App) initVocabulary() error {
	a.vocabStore = vocab.NewStore(vocab.NewTable(nil, nil))

	vc := a.cfg.Vocabulary
	if vc.Path == "" {
		a.log.Info("vocabulary: none configured, generic corrections only")
		return nil
	}

	if vc.WatchInterval > 0 {
		var opts []vocab.WatcherOption
		opts = append(opts, vocab.WithInterval(vc.WatchInterval), vocab.WithLogger(a.log))
		w, err := vocab.NewWatcher(vc.Path, a.vocabStore, opts...)
		if err != nil {
			return fmt.Errorf("app: vocabulary watcher: %w", err)
		}
		a.vocabWatcher = w
	} else {
		table, err := vocab.LoadFile(vc.Path)
		if err != nil {
			return fmt.Errorf("app: load vocabulary: %w", err)
		}
		a.vocabStore.Replace(table)
	}

	a.log.Info("vocabulary loaded",
		"path", vc.Path,
		"entries", a.vocabStore.Snapshot().Size(),
		"hot_reload", vc.WatchInterval > 0,
	)
	return nil
}

// initManager assembles the correction pipeline and the job manager over it.
func (a *App) initManager(providers *Providers) {
	var resolverOpts []resolve.Option
	if a.cfg.Vocabulary.Fuzzy.Enabled {
		resolverOpts = append(resolverOpts, resolve.WithFuzzyMatching(a.cfg.Vocabulary.Fuzzy.Threshold))
	}
	resolver := resolve.NewResolver(a.vocabStore, resolverOpts...)

	timeouts := a.cfg.Jobs.Timeouts
	pipeOpts := []pipeline.Option{
		pipeline.WithLogger(a.log),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithTimeouts(pipeline.Timeouts{
			Enhancement:   timeouts.Enhancement,
			Transcription: timeouts.Transcription,
			Semantic:      timeouts.SemanticCorrection,
			Translation:   timeouts.Translation,
		}),
	}
	if providers.Audio != nil {
		pipeOpts = append(pipeOpts, pipeline.WithEnhancer(providers.Audio))
	}
	if providers.LLM != nil {
		pipeOpts = append(pipeOpts,
			pipeline.WithSemanticEnhancer(enhance.New(providers.LLM, enhance.WithMetrics(a.metrics))),
			pipeline.WithTranslator(translate.New(providers.LLM, translate.WithMetrics(a.metrics))),
		)
	}
	pipe := pipeline.New(providers.STT, resolver, pipeOpts...)

	a.manager = job.NewManager(a.store, pipe, job.ManagerConfig{
		QueueSize:     a.cfg.Jobs.QueueSize,
		Workers:       a.cfg.Jobs.Workers,
		MaxInputBytes: a.cfg.Jobs.MaxUploadBytes,
	}, job.WithLogger(a.log), job.WithMetrics(a.metrics))
}

// initServer mounts the job API, health endpoints, and the Prometheus bridge
// behind the tracing middleware.
func (a *App) initServer() {
	mux := http.NewServeMux()

	api := httpapi.New(a.manager,
		httpapi.WithLogger(a.log),
		httpapi.WithMaxUploadBytes(a.cfg.Jobs.MaxUploadBytes),
	)
	api.Register(mux)

	health.New(a.healthCheckers()...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	a.server = &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (a *App) healthCheckers() []health.Checker {
	checkers := []health.Checker{
		health.VocabularyChecker(a.vocabStore),
	}
	for _, entry := range a.cfg.Providers.STT {
		if entry.Name == "whisper" && entry.Model != "" {
			checkers = append(checkers, health.FileChecker("whisper_model", entry.Model))
			break
		}
	}
	if a.pool != nil {
		checkers = append(checkers, health.DatabaseChecker(a.pool))
	}
	return checkers
}

// Run starts the worker pool and the HTTP server and blocks until ctx is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		errCh <- a.manager.Run(ctx)
	}()

	go func() {
		a.log.Info("http server listening", "addr", a.server.Addr, "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server, the vocabulary watcher, the store, and the
// telemetry providers. Safe to call once after [App.Run] returns.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if a.vocabWatcher != nil {
		a.vocabWatcher.Stop()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Manager exposes the job manager, mainly for tests.
func (a *App) Manager() *job.Manager {
	return a.manager
}
