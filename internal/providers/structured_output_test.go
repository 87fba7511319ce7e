package providers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeReply(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"bare", `{"ok": true}`, `{"ok":true}`, false},
		{"fenced", "```json\n{\"ok\":true}\n```", `{"ok":true}`, false},
		{"fence without tag", "```\n[1, 2]\n```", `[1,2]`, false},
		{"prose around", "Here you go:\n{\"label_number\":\"4\"}\nThanks!", `{"label_number":"4"}`, false},
		{"array before object", `items: [{"a":1}] done`, `[{"a":1}]`, false},
		{"empty", "  ", "", true},
		{"no json", "I cannot help with that.", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeReply(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeReply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("decodeReply() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidateReply_EnforcesBounds(t *testing.T) {
	schema := json.RawMessage(`{
		"name":"math_frequency",
		"strict":true,
		"schema":{
			"type":"object",
			"properties":{
				"frequency":{"type":"integer","minimum":1,"maximum":5}
			},
			"required":["frequency"],
			"additionalProperties":false
		}
	}`)

	if err := validateReply(schema, json.RawMessage(`{"frequency":2}`)); err != nil {
		t.Fatalf("validateReply(valid) error = %v", err)
	}
	if err := validateReply(schema, json.RawMessage(`{"frequency":9}`)); err == nil {
		t.Fatal("validateReply(out of range) error = nil")
	}
	// second use hits the compiled cache
	if err := validateReply(schema, json.RawMessage(`{}`)); err == nil {
		t.Fatal("validateReply(missing field) error = nil")
	}
}

func TestInnerSchema(t *testing.T) {
	want := `{"type":"object"}`
	for _, raw := range []string{
		`{"name":"x","strict":true,"schema":{"type":"object"}}`,
		`{"type":"json_schema","json_schema":{"schema":{"type":"object"}}}`,
		`{"type":"object"}`,
	} {
		got, err := innerSchema(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("innerSchema(%s) error = %v", raw, err)
		}
		if string(got) != want {
			t.Errorf("innerSchema(%s) = %s, want %s", raw, got, want)
		}
	}
}

func TestOpenRouterFormat(t *testing.T) {
	rf := &ResponseFormat{Type: "json_schema", JSONSchema: testSchema}

	got, err := openRouterFormat("google/gemini-2.5-flash", rf)
	if err != nil {
		t.Fatalf("openRouterFormat() error = %v", err)
	}
	if got == nil || got.Type != "json_schema" {
		t.Fatalf("openRouterFormat() = %+v", got)
	}

	got, err = openRouterFormat("anthropic/claude-sonnet-4", rf)
	if err != nil || got != nil {
		t.Errorf("anthropic format = %+v, %v; want nil, nil", got, err)
	}
}

func TestChatStructured_Repairs(t *testing.T) {
	replies := []string{"not json at all", `{"label_number":"7"}`}
	var seen []*ChatRequest
	send := func(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
		seen = append(seen, req)
		content := replies[len(seen)-1]
		return &ChatResult{Content: content, PromptTokens: 10, Attempts: 1}, nil
	}

	req := &ChatRequest{
		Messages:       []Message{{Role: "user", Content: "label?"}},
		ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: testSchema},
	}
	res, err := chatStructured(context.Background(), req, send)
	if err != nil {
		t.Fatalf("chatStructured() error = %v", err)
	}
	if string(res.ParsedJSON) != `{"label_number":"7"}` {
		t.Errorf("ParsedJSON = %s", res.ParsedJSON)
	}
	if res.Attempts != 2 || res.PromptTokens != 20 {
		t.Errorf("Attempts = %d, PromptTokens = %d; want 2, 20", res.Attempts, res.PromptTokens)
	}
	last := seen[1].Messages
	if len(last) != 3 || !strings.Contains(last[2].Content, "Validation issue") {
		t.Errorf("repair request messages = %+v", last)
	}
}

func TestChatStructured_StopsAfterRepairRounds(t *testing.T) {
	calls := 0
	send := func(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
		calls++
		return &ChatResult{Content: "still prose", Attempts: 1}, nil
	}
	req := &ChatRequest{ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: testSchema}}
	res, err := chatStructured(context.Background(), req, send)
	if err == nil {
		t.Fatal("chatStructured() error = nil")
	}
	if calls != repairRounds+1 {
		t.Errorf("calls = %d, want %d", calls, repairRounds+1)
	}
	if res.Success || res.ErrorType != "json_parse" {
		t.Errorf("result = %+v", res)
	}

	boom := errors.New("transport down")
	_, err = chatStructured(context.Background(), req, func(context.Context, *ChatRequest) (*ChatResult, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("chatStructured() error = %v, want transport error", err)
	}
}
