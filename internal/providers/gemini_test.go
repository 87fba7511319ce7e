package providers

import (
	"context"
	"testing"

	genai "google.golang.org/genai"
)

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "page 1", Images: [][]byte{[]byte("\x89PNG\r\n\x1a\n")}},
		{Role: "assistant", Content: "{}"},
	})
	if system != "be terse" {
		t.Errorf("system = %q", system)
	}
	if len(contents) != 2 {
		t.Fatalf("len(contents) = %d, want 2", len(contents))
	}
	if contents[0].Role != genai.RoleUser || len(contents[0].Parts) != 2 {
		t.Errorf("user content = %+v", contents[0])
	}
	if contents[0].Parts[1].InlineData.MIMEType != "image/png" {
		t.Errorf("MIMEType = %s", contents[0].Parts[1].InlineData.MIMEType)
	}
	if contents[1].Role != genai.RoleModel {
		t.Errorf("assistant role = %s", contents[1].Role)
	}
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(context.Background(), GeminiConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}
