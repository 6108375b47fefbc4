package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lexivox/lexivox/pkg/provider/audio"
	"github.com/lexivox/lexivox/pkg/provider/llm"
	"github.com/lexivox/lexivox/pkg/provider/stt"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	stt   map[string]func(ProviderEntry) (stt.Transcriber, error)
	audio map[string]func(ProviderEntry) (audio.Enhancer, error)
	llm   map[string]func(ProviderEntry) (llm.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:   make(map[string]func(ProviderEntry) (stt.Transcriber, error)),
		audio: make(map[string]func(ProviderEntry) (audio.Enhancer, error)),
		llm:   make(map[string]func(ProviderEntry) (llm.Provider, error)),
	}
}

// RegisterSTT registers a transcription backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Transcriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterAudio registers an audio enhancer factory under name.
func (r *Registry) RegisterAudio(name string, factory func(ProviderEntry) (audio.Enhancer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// RegisterLLM registers an LLM provider factory under name.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// CreateSTT instantiates a transcription backend using the factory registered
// under entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateAudio instantiates an audio enhancer using the factory registered under entry.Name.
func (r *Registry) CreateAudio(entry ProviderEntry) (audio.Enhancer, error) {
	r.mu.RLock()
	factory, ok := r.audio[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: audio/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateLLM instantiates an LLM provider using the factory registered under entry.Name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
