// Command lexivox is the main entry point for the Lexivox transcription server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/lexivox/lexivox/internal/app"
	"github.com/lexivox/lexivox/internal/config"
	"github.com/lexivox/lexivox/internal/resilience"
	"github.com/lexivox/lexivox/pkg/provider/audio"
	"github.com/lexivox/lexivox/pkg/provider/audio/ffmpeg"
	"github.com/lexivox/lexivox/pkg/provider/llm"
	"github.com/lexivox/lexivox/pkg/provider/llm/anyllm"
	"github.com/lexivox/lexivox/pkg/provider/llm/openai"
	"github.com/lexivox/lexivox/pkg/provider/stt"
	"github.com/lexivox/lexivox/pkg/provider/stt/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lexivox: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lexivox: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("lexivox starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if threads := optInt(entry.Options, "threads"); threads > 0 {
			opts = append(opts, whisper.WithThreads(threads))
		}
		return whisper.New(entry.Model, opts...)
	})

	// ── Audio enhancement ─────────────────────────────────────────────────────

	reg.RegisterAudio("ffmpeg", func(entry config.ProviderEntry) (audio.Enhancer, error) {
		var opts []ffmpeg.Option
		if bin := optString(entry.Options, "binary"); bin != "" {
			opts = append(opts, ffmpeg.WithBinary(bin))
		}
		if dir := optString(entry.Options, "work_dir"); dir != "" {
			opts = append(opts, ffmpeg.WithWorkDir(dir))
		}
		return ffmpeg.New(opts...)
	})

	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	// anyllm routes to a local or hosted backend named in options.provider
	// (e.g. "ollama", "anthropic", "mistral").
	reg.RegisterLLM("anyllm", func(entry config.ProviderEntry) (llm.Provider, error) {
		backend := optString(entry.Options, "provider")
		if backend == "" {
			return nil, errors.New("anyllm entry requires options.provider")
		}
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(backend, entry.Model, opts...)
	})
}

// buildProviders instantiates all providers named in cfg using the registry.
// Multi-entry provider kinds are wrapped in a circuit-breaking fallback chain:
// the first entry is the primary, the rest are tried in order when it fails.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}
	fallbackCfg := resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.Providers.Circuit.MaxFailures,
			ResetTimeout: cfg.Providers.Circuit.ResetTimeout,
		},
	}

	// STT chain (required; config validation guarantees at least one entry).
	sttBackends := make([]stt.Transcriber, 0, len(cfg.Providers.STT))
	for _, entry := range cfg.Providers.STT {
		t, err := reg.CreateSTT(entry)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", entry.Name, err)
		}
		sttBackends = append(sttBackends, t)
		slog.Info("provider created", "kind", "stt", "name", entry.Name, "model", entry.Model)
	}
	if len(sttBackends) == 1 {
		ps.STT = sttBackends[0]
	} else {
		chain := resilience.NewSTTFallback(sttBackends[0], cfg.Providers.STT[0].Name, fallbackCfg)
		for i := 1; i < len(sttBackends); i++ {
			chain.AddFallback(cfg.Providers.STT[i].Name, sttBackends[i])
		}
		ps.STT = chain
	}

	// Audio enhancement (optional).
	if name := cfg.Providers.Audio.Name; name != "" {
		e, err := reg.CreateAudio(cfg.Providers.Audio)
		if err != nil {
			return nil, fmt.Errorf("create audio provider %q: %w", name, err)
		}
		ps.Audio = e
		slog.Info("provider created", "kind", "audio", "name", name)
	}

	// LLM chain (optional; semantic correction and translation degrade
	// without it).
	llmBackends := make([]llm.Provider, 0, len(cfg.Providers.LLM))
	for _, entry := range cfg.Providers.LLM {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", entry.Name, err)
		}
		llmBackends = append(llmBackends, p)
		slog.Info("provider created", "kind", "llm", "name", entry.Name, "model", entry.Model)
	}
	switch len(llmBackends) {
	case 0:
	case 1:
		ps.LLM = llmBackends[0]
	default:
		chain := resilience.NewLLMFallback(llmBackends[0], cfg.Providers.LLM[0].Name, fallbackCfg)
		for i := 1; i < len(llmBackends); i++ {
			chain.AddFallback(cfg.Providers.LLM[i].Name, llmBackends[i])
		}
		ps.LLM = chain
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Lexivox — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	sttEntry := config.ProviderEntry{}
	if len(cfg.Providers.STT) > 0 {
		sttEntry = cfg.Providers.STT[0]
	}
	llmEntry := config.ProviderEntry{}
	if len(cfg.Providers.LLM) > 0 {
		llmEntry = cfg.Providers.LLM[0]
	}
	printProvider("STT", sttEntry.Name, sttEntry.Model)
	printProvider("Audio", cfg.Providers.Audio.Name, "")
	printProvider("LLM", llmEntry.Name, llmEntry.Model)
	if cfg.Storage.PostgresDSN != "" {
		fmt.Printf("║  Job store       : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Job store       : %-19s ║\n", "in-memory")
	}
	if cfg.Vocabulary.Path != "" {
		fmt.Printf("║  Vocabulary      : %-19s ║\n", "configured")
	} else {
		fmt.Printf("║  Vocabulary      : %-19s ║\n", "(none)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optInt extracts an int value from a provider Options map[string]any,
// accepting the int the YAML decoder produces. Returns 0 when absent.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
