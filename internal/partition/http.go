package partition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTP calls an Unstructured-compatible partition endpoint.
type HTTP struct {
	URL    string
	APIKey string
	Client *http.Client
}

// NewHTTP returns an HTTP partitioner with a bounded client.
func NewHTTP(url, apiKey string) *HTTP {
	return &HTTP{
		URL:    url,
		APIKey: apiKey,
		Client: &http.Client{Timeout: 5 * time.Minute},
	}
}

type wireElement struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Metadata struct {
		PageNumber int `json:"page_number"`
	} `json:"metadata"`
}

// Partition uploads the document as multipart form data and decodes the
// returned element array.
func (h *HTTP) Partition(ctx context.Context, data []byte, name string) ([]Element, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("files", name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := w.WriteField("strategy", "auto"); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if h.APIKey != "" {
		req.Header.Set("unstructured-api-key", h.APIKey)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("partition request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("partition request: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var wire []wireElement
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode partition response: %w", err)
	}
	out := make([]Element, 0, len(wire))
	for _, e := range wire {
		out = append(out, Element{Type: e.Type, Text: e.Text, PageNumber: e.Metadata.PageNumber})
	}
	return out, nil
}
