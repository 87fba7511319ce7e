package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/jackzampolin/papercast/internal/failure"
	"github.com/jackzampolin/papercast/internal/stages/synth"
	"github.com/jackzampolin/papercast/internal/status"
)

// Artifacts are the blob URLs of a run's outputs.
type Artifacts struct {
	Audio    string `json:"audio"`
	Metadata string `json:"metadata"`
	TOC      string `json:"toc"`
	Items    string `json:"items"`
	Calls    string `json:"calls"`
}

// Metadata is the audio metadata document stored next to the track.
type Metadata struct {
	RunID    string          `json:"run_id"`
	Title    string          `json:"title"`
	Authors  string          `json:"authors,omitempty"`
	Method   string          `json:"summarization_method"`
	Format   string          `json:"format"`
	Duration float64         `json:"duration_seconds"`
	Segments []synth.Segment `json:"segments"`
}

// ObjectPath returns the blob path of a run artifact.
func ObjectPath(runID, name string) string {
	return path.Join("runs", runID, name)
}

func (rn *run) upload(ctx context.Context) error {
	audio, err := os.ReadFile(rn.result.AudioPath)
	if err != nil {
		return fmt.Errorf("read narration: %w", err)
	}
	var urls Artifacts
	if urls.Audio, err = rn.svc.Blob.Put(ObjectPath(rn.id, "narration."+rn.result.Format), audio); err != nil {
		return fmt.Errorf("upload narration: %w", err)
	}

	meta := Metadata{
		RunID:    rn.id,
		Title:    rn.out.Title,
		Authors:  rn.out.Authors,
		Method:   rn.method,
		Format:   rn.result.Format,
		Duration: rn.result.Duration,
		Segments: rn.result.Segments,
	}
	docs := []struct {
		name string
		v    any
		url  *string
	}{
		{"metadata.json", meta, &urls.Metadata},
		{"toc.json", rn.result.TOC, &urls.TOC},
		{"items.json", rn.list, &urls.Items},
	}
	for _, d := range docs {
		data, err := json.MarshalIndent(d.v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", d.name, err)
		}
		if *d.url, err = rn.svc.Blob.Put(ObjectPath(rn.id, d.name), data); err != nil {
			return fmt.Errorf("upload %s: %w", d.name, err)
		}
	}
	urls.Calls = rn.putCalls()
	rn.out.URLs = urls

	return rn.svc.Status.Complete(ctx, rn.id, func(rs *status.RunStatus) {
		rs.Title = rn.out.Title
		rs.Duration = rn.result.Duration
		rs.AudioURL = urls.Audio
		rs.MetadataURL = urls.Metadata
		rs.TOCURL = urls.TOC
		rs.ItemsURL = urls.Items
		rs.CallsURL = urls.Calls
	})
}

// putCalls stores the LLM call log. Failures are logged, not returned.
func (rn *run) putCalls() string {
	var buf bytes.Buffer
	if err := rn.calls.WriteJSONL(&buf); err != nil {
		rn.log.Warn("failed to encode call log", "error", err)
		return ""
	}
	u, err := rn.svc.Blob.Put(ObjectPath(rn.id, "calls.jsonl"), buf.Bytes())
	if err != nil {
		rn.log.Warn("failed to upload call log", "error", err)
		return ""
	}
	return u
}

// putErrorLog stores the diagnostic artifact of a failed run.
func (rn *run) putErrorLog(cause error, typ failure.Type) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "run: %s\n", rn.id)
	fmt.Fprintf(&buf, "time: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&buf, "error_type: %s\n", typ)
	fmt.Fprintf(&buf, "items: %d\n", len(rn.list))
	fmt.Fprintf(&buf, "error: %v\n", cause)
	for _, s := range rn.calls.Summary() {
		fmt.Fprintf(&buf, "calls: stage=%s calls=%d failures=%d\n", s.Stage, s.Calls, s.Failures)
	}
	u, err := rn.svc.Blob.Put(ObjectPath(rn.id, "error.log"), buf.Bytes())
	if err != nil {
		rn.log.Warn("failed to upload error log", "error", err)
		return ""
	}
	return u
}
