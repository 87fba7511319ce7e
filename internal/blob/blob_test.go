package blob

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFS_PutGet(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS() error = %v", err)
	}

	u, err := s.Put("runs/abc/audio.mp3", []byte("audio"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/runs/abc/audio.mp3") {
		t.Errorf("Put() url = %q", u)
	}
	got, err := s.Get("runs/abc/audio.mp3")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "audio" {
		t.Errorf("Get() = %q, want audio", got)
	}

	if _, err := s.Put("runs/abc/audio.mp3", []byte("v2")); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}
	got, _ = s.Get("runs/abc/audio.mp3")
	if string(got) != "v2" {
		t.Errorf("Get() after overwrite = %q, want v2", got)
	}

	entries, _ := os.ReadDir(filepath.Join(s.Root(), "runs", "abc"))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestFS_GetMissing(t *testing.T) {
	s, _ := NewFS(t.TempDir())
	if _, err := s.Get("nope.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFS_PathsStayUnderRoot(t *testing.T) {
	root := t.TempDir()
	s, _ := NewFS(filepath.Join(root, "blobs"))

	if _, err := s.Put("../../escape.txt", []byte("x")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "escape.txt")); err != nil {
		t.Errorf("object not confined to root: %v", err)
	}
	if _, err := s.Put("", []byte("x")); err == nil {
		t.Error("Put(\"\") error = nil")
	}
}
