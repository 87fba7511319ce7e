package llmcall

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/jackzampolin/papercast/internal/providers"
)

// Recorder collects the calls of one run. It is safe for concurrent use.
// A nil *Recorder discards everything.
type Recorder struct {
	mu    sync.Mutex
	calls []*Call
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record captures a chat result.
func (r *Recorder) Record(result *providers.ChatResult, callErr error, opts RecordOptions) {
	r.RecordCall(FromChatResult(result, callErr, opts))
}

// RecordCall captures an already-constructed Call.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || call == nil {
		return
	}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

// Calls returns the recorded calls in recording order.
func (r *Recorder) Calls() []*Call {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Call(nil), r.calls...)
}

// WriteJSONL writes one JSON object per call.
func (r *Recorder) WriteJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, c := range r.Calls() {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode call %s: %w", c.ID, err)
		}
	}
	return nil
}

// StageSummary aggregates the calls of one stage.
type StageSummary struct {
	Stage        string  `json:"stage"`
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	LatencyMs    int     `json:"latency_ms"`
}

// Summary aggregates calls per stage, sorted by stage name.
func (r *Recorder) Summary() []StageSummary {
	byStage := make(map[string]*StageSummary)
	for _, c := range r.Calls() {
		s, ok := byStage[c.Stage]
		if !ok {
			s = &StageSummary{Stage: c.Stage}
			byStage[c.Stage] = s
		}
		s.Calls++
		if !c.Success {
			s.Failures++
		}
		s.InputTokens += c.InputTokens
		s.OutputTokens += c.OutputTokens
		s.CostUSD += c.CostUSD
		s.LatencyMs += c.LatencyMs
	}

	out := make([]StageSummary, 0, len(byStage))
	for _, s := range byStage {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}

// LogSummary writes one Info line per stage plus a total.
func (r *Recorder) LogSummary(logger *slog.Logger) {
	var total StageSummary
	for _, s := range r.Summary() {
		logger.Info("llm usage",
			"stage", s.Stage,
			"calls", s.Calls,
			"failures", s.Failures,
			"input_tokens", s.InputTokens,
			"output_tokens", s.OutputTokens,
			"cost_usd", fmt.Sprintf("%.4f", s.CostUSD))
		total.Calls += s.Calls
		total.InputTokens += s.InputTokens
		total.OutputTokens += s.OutputTokens
		total.CostUSD += s.CostUSD
	}
	logger.Info("llm usage total",
		"calls", total.Calls,
		"input_tokens", total.InputTokens,
		"output_tokens", total.OutputTokens,
		"cost_usd", fmt.Sprintf("%.4f", total.CostUSD))
}
