package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/papercast/internal/providers"
)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
	onError   func(error)
}

// NewManager loads .env files, then the config file, then PAPERCAST_*
// environment overrides on top of the defaults. With an empty cfgFile the
// file is looked up in the working directory and then in homeDir.
func NewManager(cfgFile, homeDir string) (*Manager, error) {
	loadEnvFiles(".env", filepath.Join(homeDir, ".env"))

	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}
	if err := cm.initViper(cfgFile, homeDir); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// loadEnvFiles loads each existing file. Variables already set win.
func loadEnvFiles(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile, homeDir string) error {
	if err := setDefaults(cm.v, DefaultConfig()); err != nil {
		return err
	}

	// Environment variables with PAPERCAST_ prefix, e.g. PAPERCAST_PIPELINE_METHOD.
	cm.v.SetEnvPrefix("PAPERCAST")
	cm.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cm.v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		cm.v.SetConfigFile(cfgFile)
	} else {
		cm.v.SetConfigName("config")
		cm.v.SetConfigType("yaml")
		cm.v.AddConfigPath(".")
		if homeDir != "" {
			cm.v.AddConfigPath(homeDir)
		}
	}

	// Try to read config file (not required)
	if err := cm.v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults registers every leaf of cfg as a viper default so that a
// config file can override single keys without dropping their siblings.
func setDefaults(v *viper.Viper, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var tree map[interface{}]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to unmarshal defaults: %w", err)
	}
	var walk func(prefix string, node map[interface{}]interface{})
	walk = func(prefix string, node map[interface{}]interface{}) {
		for k, val := range node {
			key := fmt.Sprint(k)
			if prefix != "" {
				key = prefix + "." + key
			}
			if child, ok := val.(map[interface{}]interface{}); ok && len(child) > 0 {
				walk(key, child)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)
	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file the configuration was read from, if any.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// OnError registers a callback for reloads that fail to parse or validate.
// The previous configuration stays in effect.
func (cm *Manager) OnError(fn func(error)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.onError = fn
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.mu.RLock()
			onError := cm.onError
			cm.mu.RUnlock()
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// Validate checks enumerated settings and cross references.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: %q is not one of %s", field, value, strings.Join(allowed, ", ")))
	}
	oneOf("pipeline.method", c.Pipeline.Method, "full", "abstract")
	oneOf("source.rasterizer", c.Source.Rasterizer, "pdftoppm", "fitz")
	oneOf("source.partitioner", c.Source.Partitioner, "none", "local", "unstructured")
	oneOf("status.backend", c.Status.Backend, "sqlite", "redis", "memory")
	if _, ok := c.LLM.Providers[c.LLM.Provider]; !ok {
		errs = append(errs, fmt.Errorf("llm.provider: %q has no entry in llm.providers", c.LLM.Provider))
	}
	if _, ok := c.TTS.Providers[c.TTS.Provider]; !ok {
		errs = append(errs, fmt.Errorf("tts.provider: %q has no entry in tts.providers", c.TTS.Provider))
	}
	if n := len(c.Pipeline.Bands.MathMax); n != 0 && n != 5 {
		errs = append(errs, fmt.Errorf("pipeline.bands.math_max: want 5 values, got %d", n))
	}
	if c.Source.Partitioner == "unstructured" && c.Source.PartitionerURL == "" {
		errs = append(errs, errors.New("source.partitioner_url is required for the unstructured partitioner"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders:    make(map[string]providers.LLMProviderConfig),
		SpeechProviders: make(map[string]providers.SpeechProviderConfig),
	}

	for name, llm := range c.LLM.Providers {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:       llm.Type,
			Model:      llm.Model,
			APIKey:     ResolveEnvVars(llm.APIKey),
			RPM:        llm.RPM,
			MaxRetries: llm.MaxRetries,
		}
	}

	for name, tts := range c.TTS.Providers {
		cfg.SpeechProviders[name] = providers.SpeechProviderConfig{
			Type:         tts.Type,
			Model:        tts.Model,
			Voice:        c.TTS.ProseVoice,
			Format:       tts.Format,
			Speed:        tts.Speed,
			Instructions: tts.Instructions,
			APIKey:       ResolveEnvVars(tts.APIKey),
			RPM:          tts.RPM,
		}
	}

	return cfg
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	header := []byte(`# Papercast configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell or in ~/.papercast/.env:
#   OPENROUTER_API_KEY=xxx OPENAI_API_KEY=xxx GEMINI_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
