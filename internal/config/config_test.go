package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if cfg.LLM.Providers["openrouter"].APIKey != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
	if len(cfg.Pipeline.Bands.MathMax) != 5 {
		t.Errorf("MathMax = %v, want 5 values", cfg.Pipeline.Bands.MathMax)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")
		if result := ResolveEnvVars("${TEST_API_KEY}"); result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		if result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}"); result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		if result := ResolveEnvVars("literal-value"); result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("partial file keeps sibling defaults", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `
pipeline:
  method: abstract
  batch_size: 5
tts:
  summary_voice: shimmer
`)
		mgr, err := NewManager(path, "")
		if err != nil {
			t.Fatalf("NewManager() error = %v", err)
		}
		cfg := mgr.Get()
		if cfg.Pipeline.Method != "abstract" || cfg.Pipeline.BatchSize != 5 {
			t.Errorf("pipeline = %+v", cfg.Pipeline)
		}
		if cfg.Pipeline.Retries != 3 || cfg.Pipeline.AuthorCap != 5 {
			t.Errorf("defaults lost: %+v", cfg.Pipeline)
		}
		if cfg.TTS.SummaryVoice != "shimmer" || cfg.TTS.ProseVoice != "onyx" {
			t.Errorf("tts = %+v", cfg.TTS)
		}
		if cfg.LLM.Providers["openrouter"].Type != "openrouter" {
			t.Errorf("llm providers = %+v", cfg.LLM.Providers)
		}
		if mgr.ConfigFile() != path {
			t.Errorf("ConfigFile() = %q, want %q", mgr.ConfigFile(), path)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "status:\n  backend: sqlite\n")
		t.Setenv("PAPERCAST_STATUS_BACKEND", "memory")
		mgr, err := NewManager(path, "")
		if err != nil {
			t.Fatalf("NewManager() error = %v", err)
		}
		if got := mgr.Get().Status.Backend; got != "memory" {
			t.Errorf("Status.Backend = %q, want memory", got)
		}
	})

	t.Run("home dir lookup and env file", func(t *testing.T) {
		home := t.TempDir()
		writeConfig(t, home, "llm:\n  provider: gemini\n")
		if err := os.WriteFile(filepath.Join(home, ".env"), []byte("PAPERCAST_TEST_ENV_FILE_KEY=from-dotenv\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.Unsetenv("PAPERCAST_TEST_ENV_FILE_KEY") })

		wd, _ := os.Getwd()
		if err := os.Chdir(t.TempDir()); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { os.Chdir(wd) })

		mgr, err := NewManager("", home)
		if err != nil {
			t.Fatalf("NewManager() error = %v", err)
		}
		if got := mgr.Get().LLM.Provider; got != "gemini" {
			t.Errorf("LLM.Provider = %q, want gemini", got)
		}
		if got := os.Getenv("PAPERCAST_TEST_ENV_FILE_KEY"); got != "from-dotenv" {
			t.Errorf(".env not loaded, got %q", got)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `
pipeline:
  method: tldr
source:
  rasterizer: ghostscript
`)
		_, err := NewManager(path, "")
		if err == nil {
			t.Fatal("NewManager() error = nil")
		}
		for _, want := range []string{"pipeline.method", "source.rasterizer"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q does not mention %s", err, want)
			}
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "or-key-123")
	cfg := DefaultConfig()
	or := cfg.LLM.Providers["openrouter"]
	or.APIKey = "${TEST_OPENROUTER_KEY}"
	cfg.LLM.Providers["openrouter"] = or
	tts := cfg.TTS.Providers["openai"]
	tts.APIKey = "direct-key"
	cfg.TTS.Providers["openai"] = tts

	rc := cfg.ToProviderRegistryConfig()
	if got := rc.LLMProviders["openrouter"].APIKey; got != "or-key-123" {
		t.Errorf("openrouter APIKey = %q", got)
	}
	sp := rc.SpeechProviders["openai"]
	if sp.APIKey != "direct-key" || sp.Voice != "onyx" || sp.Format != "mp3" {
		t.Errorf("speech provider = %+v", sp)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	mgr, err := NewManager(path, "")
	if err != nil {
		t.Fatalf("NewManager() on written default error = %v", err)
	}
	if got := mgr.Get().Pipeline.Bands.CitationMin; got != 0.7 {
		t.Errorf("CitationMin = %v, want 0.7", got)
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "pipeline:\n  retries: 2\n")
	mgr, err := NewManager(path, "")
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "pipeline:\n  retries: 2\n")
	mgr, err := NewManager(path, "")
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().Pipeline.Retries
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "tts:\n  prose_voice: onyx\n")
	mgr, err := NewManager(path, "")
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value
	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.TTS.ProseVoice)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("tts:\n  prose_voice: echo\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().TTS.ProseVoice; got != "echo" {
		t.Errorf("config not updated: expected echo, got %s", got)
	}
	if v := lastValue.Load(); v != "echo" {
		t.Errorf("callback received wrong value: expected echo, got %v", v)
	}
}
