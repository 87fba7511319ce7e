package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds the completion and speech backends available to a process.
// It is built from config and can be reloaded when the config file changes.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]LLMClient
	speech     map[string]SpeechClient
	llmCfg     map[string]LLMProviderConfig
	speechCfg  map[string]SpeechProviderConfig
	logger     *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
		speech:     make(map[string]SpeechClient),
		llmCfg:     make(map[string]LLMProviderConfig),
		speechCfg:  make(map[string]SpeechProviderConfig),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	r.logger.Info("registered LLM client", "name", name)
}

// RegisterSpeech registers a speech client by name.
func (r *Registry) RegisterSpeech(name string, client SpeechClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speech[name] = client
	r.logger.Info("registered speech client", "name", name)
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// GetSpeech returns a speech client by name.
func (r *Registry) GetSpeech(name string) (SpeechClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.speech[name]
	if !ok {
		return nil, fmt.Errorf("speech client not found: %s", name)
	}
	return client, nil
}

// ListLLM returns the registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListSpeech returns the registered speech client names, sorted.
func (r *Registry) ListSpeech() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.speech))
	for name := range r.speech {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	LLMProviders    map[string]LLMProviderConfig
	SpeechProviders map[string]SpeechProviderConfig
}

// LLMProviderConfig describes one completion backend with a resolved API key.
type LLMProviderConfig struct {
	Type       string // "openrouter", "gemini"
	Model      string
	APIKey     string
	RPM        int
	MaxRetries int
}

// SpeechProviderConfig describes one speech backend with a resolved API key.
type SpeechProviderConfig struct {
	Type         string // "openai"
	Model        string
	Voice        string
	Format       string
	Speed        float64
	Instructions string
	APIKey       string
	RPM          int
}

// NewRegistryFromConfig creates a registry with every provider that has an
// API key. Providers that fail to construct are logged and skipped.
func NewRegistryFromConfig(ctx context.Context, cfg RegistryConfig, logger *slog.Logger) *Registry {
	r := NewRegistry()
	if logger != nil {
		r.logger = logger
	}
	r.Reload(ctx, cfg)
	return r
}

// Reload brings the registry in line with cfg. Providers whose settings are
// unchanged keep their client and its rate limiter state.
func (r *Registry) Reload(ctx context.Context, cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, pc := range cfg.LLMProviders {
		if pc.APIKey == "" {
			continue
		}
		if old, ok := r.llmCfg[name]; ok && old == pc {
			continue
		}
		client, err := createLLMClient(ctx, pc)
		if err != nil {
			r.logger.Warn("skipping LLM provider", "name", name, "type", pc.Type, "error", err)
			continue
		}
		r.llmClients[name] = client
		r.llmCfg[name] = pc
		r.logger.Info("registered LLM client", "name", name, "type", pc.Type, "model", pc.Model)
	}
	for name, pc := range cfg.SpeechProviders {
		if pc.APIKey == "" {
			continue
		}
		if old, ok := r.speechCfg[name]; ok && old == pc {
			continue
		}
		client, err := createSpeechClient(pc)
		if err != nil {
			r.logger.Warn("skipping speech provider", "name", name, "type", pc.Type, "error", err)
			continue
		}
		r.speech[name] = client
		r.speechCfg[name] = pc
		r.logger.Info("registered speech client", "name", name, "type", pc.Type, "voice", pc.Voice)
	}

	for name := range r.llmCfg {
		if pc, ok := cfg.LLMProviders[name]; !ok || pc.APIKey == "" {
			delete(r.llmClients, name)
			delete(r.llmCfg, name)
			r.logger.Info("unregistered LLM client", "name", name)
		}
	}
	for name := range r.speechCfg {
		if pc, ok := cfg.SpeechProviders[name]; !ok || pc.APIKey == "" {
			delete(r.speech, name)
			delete(r.speechCfg, name)
			r.logger.Info("unregistered speech client", "name", name)
		}
	}
}

func createLLMClient(ctx context.Context, cfg LLMProviderConfig) (LLMClient, error) {
	switch cfg.Type {
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			RPM:          cfg.RPM,
			MaxRetries:   cfg.MaxRetries,
		}), nil
	case GeminiName:
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			RPM:          cfg.RPM,
		})
	default:
		return nil, fmt.Errorf("unknown LLM provider type %q", cfg.Type)
	}
}

func createSpeechClient(cfg SpeechProviderConfig) (SpeechClient, error) {
	switch cfg.Type {
	case OpenAITTSName:
		return NewOpenAITTSClient(OpenAITTSConfig{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			Voice:        cfg.Voice,
			Format:       cfg.Format,
			Speed:        cfg.Speed,
			Instructions: cfg.Instructions,
			RPM:          cfg.RPM,
		}), nil
	default:
		return nil, fmt.Errorf("unknown speech provider type %q", cfg.Type)
	}
}
