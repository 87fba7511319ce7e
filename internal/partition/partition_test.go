package partition

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestByPage(t *testing.T) {
	elements := []Element{
		{Type: TypeHeader, Text: "Journal of Things", PageNumber: 1},
		{Type: TypeTitle, Text: "A Paper", PageNumber: 1},
		{Type: TypeNarrativeText, Text: " First paragraph. ", PageNumber: 1},
		{Type: TypeNarrativeText, Text: "Second page.", PageNumber: 2},
		{Type: TypePageNumber, Text: "2", PageNumber: 2},
		{Type: TypeNarrativeText, Text: "orphan", PageNumber: 0},
	}
	got := ByPage(elements)
	want := map[int]string{
		1: "A Paper\nFirst paragraph.",
		2: "Second page.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ByPage() = %#v, want %#v", got, want)
	}
	if pages := Pages(elements); !reflect.DeepEqual(pages, []int{1, 2}) {
		t.Errorf("Pages() = %v, want [1 2]", pages)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantNil bool
		wantErr bool
	}{
		{Config{}, true, false},
		{Config{Kind: KindNone}, true, false},
		{Config{Kind: KindLocal}, false, false},
		{Config{Kind: KindUnstructured, URL: "http://localhost:8000/general/v0/general"}, false, false},
		{Config{Kind: KindUnstructured}, true, true},
		{Config{Kind: "textract"}, true, true},
	}
	for _, tt := range tests {
		p, err := New(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
		if (p == nil) != tt.wantNil {
			t.Errorf("New(%+v) = %v, wantNil %v", tt.cfg, p, tt.wantNil)
		}
	}
}

func TestHTTP_Partition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("unstructured-api-key") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		f, hdr, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "paper.pdf" || string(data) != "%PDF-1.7" {
			http.Error(w, "bad upload", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"type": "Title", "text": "Attention", "metadata": map[string]any{"page_number": 1}},
			{"type": "NarrativeText", "text": "We propose.", "metadata": map[string]any{"page_number": 1}},
		})
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, "secret")
	got, err := h.Partition(context.Background(), []byte("%PDF-1.7"), "paper.pdf")
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	want := []Element{
		{Type: TypeTitle, Text: "Attention", PageNumber: 1},
		{Type: TypeNarrativeText, Text: "We propose.", PageNumber: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Partition() = %+v, want %+v", got, want)
	}

	h.APIKey = "wrong"
	if _, err := h.Partition(context.Background(), []byte("%PDF-1.7"), "paper.pdf"); err == nil {
		t.Error("Partition() with bad key error = nil")
	}
}

func TestLocal_RejectsGarbage(t *testing.T) {
	if _, err := (&Local{}).Partition(context.Background(), []byte("not a pdf"), "x.pdf"); err == nil {
		t.Error("Partition() error = nil, want error")
	}
}

func TestIsPageNumber(t *testing.T) {
	for s, want := range map[string]bool{"12": true, " 3 ": true, "12a": false, "": false, "12345": false} {
		if got := isPageNumber(s); got != want {
			t.Errorf("isPageNumber(%q) = %v, want %v", s, got, want)
		}
	}
}
