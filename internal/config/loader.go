package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":   {"whisper"},
	"audio": {"ffmpeg"},
	"llm":   {"openai", "anyllm"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Transcription backends. The service cannot do anything without one.
	if len(cfg.Providers.STT) == 0 {
		errs = append(errs, errors.New("providers.stt requires at least one backend"))
	}
	for i, entry := range cfg.Providers.STT {
		prefix := fmt.Sprintf("providers.stt[%d]", i)
		validateProviderName("stt", entry.Name)
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if entry.Name == "whisper" && entry.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model must point at the GGML weights file", prefix))
		}
	}

	// Audio enhancement is optional; jobs requesting it fail if unset.
	validateProviderName("audio", cfg.Providers.Audio.Name)

	// LLM backends are optional; semantic correction and translation degrade
	// to rule-only output when absent.
	for i, entry := range cfg.Providers.LLM {
		prefix := fmt.Sprintf("providers.llm[%d]", i)
		validateProviderName("llm", entry.Name)
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if entry.Name == "openai" && entry.APIKey == "" {
			slog.Warn("openai backend has no api_key; requests will be rejected unless the endpoint is unauthenticated",
				"entry", prefix)
		}
	}
	if len(cfg.Providers.LLM) == 0 {
		slog.Warn("no LLM backend configured; semantic correction and translation will be unavailable")
	}

	// Jobs
	if cfg.Jobs.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("jobs.queue_size %d must not be negative", cfg.Jobs.QueueSize))
	}
	if cfg.Jobs.Workers < 0 {
		errs = append(errs, fmt.Errorf("jobs.workers %d must not be negative", cfg.Jobs.Workers))
	}
	if cfg.Jobs.MaxUploadBytes < 0 {
		errs = append(errs, fmt.Errorf("jobs.max_upload_bytes %d must not be negative", cfg.Jobs.MaxUploadBytes))
	}
	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"enhancement", cfg.Jobs.Timeouts.Enhancement},
		{"transcription", cfg.Jobs.Timeouts.Transcription},
		{"semantic_correction", cfg.Jobs.Timeouts.SemanticCorrection},
		{"translation", cfg.Jobs.Timeouts.Translation},
	} {
		if t.d < 0 {
			errs = append(errs, fmt.Errorf("jobs.timeouts.%s must not be negative", t.name))
		}
	}

	// Storage
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; job records are kept in memory and lost on restart")
	}

	// Vocabulary
	if th := cfg.Vocabulary.Fuzzy.Threshold; th != 0 && (th <= 0 || th > 1) {
		errs = append(errs, fmt.Errorf("vocabulary.fuzzy.threshold %.2f is out of range (0, 1]", th))
	}
	if cfg.Vocabulary.WatchInterval < 0 {
		errs = append(errs, errors.New("vocabulary.watch_interval must not be negative"))
	}
	if cfg.Vocabulary.Path == "" && cfg.Vocabulary.WatchInterval > 0 {
		errs = append(errs, errors.New("vocabulary.watch_interval is set but vocabulary.path is empty"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
