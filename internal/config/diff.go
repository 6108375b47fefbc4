package config

import "reflect"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// VocabularyChanged is true if the vocabulary path, watch interval, or
	// fuzzy matching settings changed.
	VocabularyChanged bool

	// TimeoutsChanged is true if any per-stage deadline changed.
	TimeoutsChanged bool

	// RestartRequired is true if a field that cannot be hot-reloaded
	// changed, such as the listen address or a provider backend.
	RestartRequired bool
}

// Changed reports whether the diff contains any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.VocabularyChanged || d.TimeoutsChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Vocabulary != new.Vocabulary {
		d.VocabularyChanged = true
	}

	if old.Jobs.Timeouts != new.Jobs.Timeouts {
		d.TimeoutsChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) ||
		!providersEqual(old.Providers, new.Providers) ||
		old.Storage != new.Storage ||
		old.Jobs.QueueSize != new.Jobs.QueueSize ||
		old.Jobs.Workers != new.Jobs.Workers ||
		old.Jobs.MaxUploadBytes != new.Jobs.MaxUploadBytes {
		d.RestartRequired = true
	}

	return d
}

func tlsEqual(old, new *TLSConfig) bool {
	if old == nil || new == nil {
		return old == new
	}
	return *old == *new
}

func providersEqual(old, new ProvidersConfig) bool {
	if old.Circuit != new.Circuit {
		return false
	}
	if !entriesEqual(old.STT, new.STT) || !entriesEqual(old.LLM, new.LLM) {
		return false
	}
	return entryEqual(old.Audio, new.Audio)
}

func entriesEqual(old, new []ProviderEntry) bool {
	if len(old) != len(new) {
		return false
	}
	for i := range old {
		if !entryEqual(old[i], new[i]) {
			return false
		}
	}
	return true
}

func entryEqual(old, new ProviderEntry) bool {
	return old.Name == new.Name &&
		old.APIKey == new.APIKey &&
		old.BaseURL == new.BaseURL &&
		old.Model == new.Model &&
		reflect.DeepEqual(old.Options, new.Options)
}
