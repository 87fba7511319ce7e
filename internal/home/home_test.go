package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-papercast")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-papercast" {
			t.Errorf("expected path /tmp/test-papercast, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-papercast")

	tests := map[string]struct {
		got, want string
	}{
		"ConfigPath":   {dir.ConfigPath(), "/tmp/test-papercast/config.yaml"},
		"EnvPath":      {dir.EnvPath(), "/tmp/test-papercast/.env"},
		"BlobsPath":    {dir.BlobsPath(), "/tmp/test-papercast/blobs"},
		"StatusDBPath": {dir.StatusDBPath(), "/tmp/test-papercast/status.db"},
		"PromptsPath":  {dir.PromptsPath(), "/tmp/test-papercast/prompts"},
		"InboxPath":    {dir.InboxPath(), "/tmp/test-papercast/inbox"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	dir, err := New(filepath.Join(t.TempDir(), "papercast-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir.Exists() {
		t.Fatal("directory should not exist yet")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}
	for _, p := range []string{dir.BlobsPath(), dir.PromptsPath(), dir.InboxPath()} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Errorf("%s was not created", p)
		}
	}
	if dir.ConfigExists() {
		t.Error("config should not exist")
	}

	// Calling again is a no-op.
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() second call error = %v", err)
	}
}
