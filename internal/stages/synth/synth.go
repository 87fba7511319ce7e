// Package synth narrates the final item list and assembles the audio track
// with its segment and table-of-contents metadata.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackzampolin/papercast/internal/attempt"
	"github.com/jackzampolin/papercast/internal/audio"
	"github.com/jackzampolin/papercast/internal/batch"
	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/providers"
)

// Stage is the stage name used in logs.
const Stage = "synth"

// DefaultPauseCue is appended to items that end a thought so the speech
// backend leaves an audible gap.
const DefaultPauseCue = "..."

// Audio issue codes recorded on segments.
const (
	IssueEmptyAudio   = "empty_audio"
	IssueZeroDuration = "zero_duration"
	IssueSplitChunk   = "split_chunk"
)

// Segment is one narrated item in the final track. Times are in seconds.
type Segment struct {
	Type        items.Type `json:"type"`
	StartTime   float64    `json:"start_time"`
	Duration    float64    `json:"duration"`
	Transcript  string     `json:"transcript"`
	Page        int        `json:"page"`
	Index       int        `json:"index"`
	AudioIssues []string   `json:"audio_issues,omitempty"`
}

// TOCEntry is a navigation target in the track.
type TOCEntry struct {
	Title     string     `json:"title"`
	Type      items.Type `json:"type"`
	StartTime float64    `json:"start_time"`
	Index     int        `json:"index"`
}

// Result is the assembled narration.
type Result struct {
	AudioPath string
	Format    string
	Segments  []Segment
	TOC       []TOCEntry
	// Duration is the sum of all segment durations, in seconds.
	Duration float64
}

// Synthesizer turns items into audio.
type Synthesizer struct {
	Speech providers.SpeechClient
	Tools  audio.Toolkit
	Logger *slog.Logger

	ProseVoice   string
	SummaryVoice string
	MaxChars     int
	PauseCue     string
	MarkupPauses bool
	BatchSize    int
	Retries      int
}

type rendered struct {
	path     string
	format   string
	duration float64
	issues   []string
}

// Run narrates list in order into dir and returns the track and metadata.
// Any item failing after retries fails the run.
func (s *Synthesizer) Run(ctx context.Context, list []*items.Item, dir string) (*Result, error) {
	log := s.logger().With("stage", Stage)
	var narrated []*items.Item
	for _, it := range list {
		if !it.Empty() {
			narrated = append(narrated, it)
		}
	}
	if len(narrated) == 0 {
		return nil, fmt.Errorf("synth: nothing to narrate")
	}

	size := s.BatchSize
	if size <= 0 {
		size = batch.DefaultSize
	}
	parts, err := batch.Run(ctx, narrated, size, func(ctx context.Context, idx int, it *items.Item) (rendered, error) {
		r, err := s.renderItem(ctx, it, idx, dir)
		if err != nil {
			return r, fmt.Errorf("item %d (%s, page %d): %w", idx, it.Type, it.Page, err)
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	res := &Result{Format: parts[0].format}
	paths := make([]string, len(parts))
	start := 0.0
	for i, p := range parts {
		it := narrated[i]
		paths[i] = p.path
		res.Segments = append(res.Segments, Segment{
			Type:        it.Type,
			StartTime:   start,
			Duration:    p.duration,
			Transcript:  strings.TrimSpace(it.Content),
			Page:        it.Page,
			Index:       i,
			AudioIssues: p.issues,
		})
		start += p.duration
	}
	res.Duration = start
	res.TOC = TOC(res.Segments)

	res.AudioPath = filepath.Join(dir, "narration."+res.Format)
	if err := s.Tools.Concat(ctx, paths, res.AudioPath); err != nil {
		return nil, fmt.Errorf("synth: assemble track: %w", err)
	}
	log.Info("narration assembled", "segments", len(res.Segments), "seconds", res.Duration, "toc", len(res.TOC))
	return res, nil
}

func (s *Synthesizer) renderItem(ctx context.Context, it *items.Item, idx int, dir string) (rendered, error) {
	var r rendered
	text := strings.TrimSpace(it.Content)
	if !it.IsEndCutOff() {
		text += " " + s.pauseCue()
	}
	voice := s.ProseVoice
	if it.Type.IsSpecial() {
		voice = s.SummaryVoice
	}

	chunks := audio.Chunks(text, s.MaxChars)
	var files []string
	for ci, chunk := range chunks {
		res, err := attempt.Do(ctx, s.retries(), func(ctx context.Context) (*providers.SpeechResult, error) {
			return s.Speech.Synthesize(ctx, &providers.SpeechRequest{Text: chunk, Voice: voice, MarkupPauses: s.MarkupPauses})
		}, attempt.Options{Logger: s.logger(), Op: "synthesize"})
		if err != nil {
			return r, err
		}
		if r.format == "" {
			r.format = res.Format
		}
		if len(res.Audio) == 0 {
			r.issues = appendIssue(r.issues, IssueEmptyAudio)
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("item_%05d_%03d.%s", idx, ci, res.Format))
		if err := os.WriteFile(path, res.Audio, 0o644); err != nil {
			return r, fmt.Errorf("write chunk: %w", err)
		}
		files = append(files, path)
	}
	if r.format == "" {
		r.format = "mp3"
	}
	if len(chunks) > 1 && hasSplitSentence(chunks) {
		r.issues = appendIssue(r.issues, IssueSplitChunk)
	}
	if len(files) == 0 {
		return r, fmt.Errorf("no audio produced")
	}

	r.path = filepath.Join(dir, fmt.Sprintf("item_%05d.%s", idx, r.format))
	if err := s.Tools.Concat(ctx, files, r.path); err != nil {
		return r, err
	}
	d, err := s.Tools.Duration(ctx, r.path)
	if err != nil {
		return r, err
	}
	r.duration = d.Seconds()
	if r.duration <= 0 {
		r.issues = appendIssue(r.issues, IssueZeroDuration)
	}
	return r, nil
}

// TOC selects the segments that are navigation targets.
func TOC(segments []Segment) []TOCEntry {
	var out []TOCEntry
	for _, seg := range segments {
		if !seg.Type.IsTOC() {
			continue
		}
		out = append(out, TOCEntry{
			Title:     seg.Transcript,
			Type:      seg.Type,
			StartTime: seg.StartTime,
			Index:     seg.Index,
		})
	}
	return out
}

// hasSplitSentence reports whether a chunk boundary fell inside a sentence.
func hasSplitSentence(chunks []string) bool {
	for _, c := range chunks[:len(chunks)-1] {
		switch c[len(c)-1] {
		case '.', '!', '?', '"', ')':
		default:
			return true
		}
	}
	return false
}

func appendIssue(issues []string, issue string) []string {
	for _, i := range issues {
		if i == issue {
			return issues
		}
	}
	return append(issues, issue)
}

func (s *Synthesizer) pauseCue() string {
	if s.PauseCue == "" {
		return DefaultPauseCue
	}
	return s.PauseCue
}

func (s *Synthesizer) retries() int {
	if s.Retries <= 0 {
		return 3
	}
	return s.Retries
}

func (s *Synthesizer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
