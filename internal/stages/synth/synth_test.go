package synth

import (
	"context"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/providers"
	"github.com/jackzampolin/papercast/internal/testutil"
)

// fakeTools concatenates bytes and reports 10ms of audio per byte.
type fakeTools struct{}

func (fakeTools) Concat(_ context.Context, inputs []string, output string) error {
	var all []byte
	for _, in := range inputs {
		b, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		all = append(all, b...)
	}
	return os.WriteFile(output, all, 0o644)
}

func (fakeTools) Duration(_ context.Context, path string) (time.Duration, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return time.Duration(info.Size()) * 10 * time.Millisecond, nil
}

func newSynth(speech providers.SpeechClient) *Synthesizer {
	return &Synthesizer{
		Speech:       speech,
		Tools:        fakeTools{},
		Logger:       testutil.Logger(),
		ProseVoice:   "onyx",
		SummaryVoice: "nova",
		MaxChars:     40,
		BatchSize:    3,
		Retries:      2,
	}
}

func sampleItems() []*items.Item {
	cut := items.New(items.TypeText, "This sentence runs onto the", 1)
	cut.Text.IsEndCutOff = true
	fig := items.New(items.TypeFigureImage, "A bar chart. It shows growth.", 2)
	return []*items.Item{
		items.New(items.TypeMainTitle, "A Study", 1),
		items.New(items.TypeHeading, "Introduction", 1),
		cut,
		items.New(items.TypeText, "next page. Then a second sentence follows it here. And a third one.", 2),
		fig,
		items.New(items.TypeText, "   ", 2),
		items.New(items.TypeEndMarker, "This is the end of the paper.", 3),
	}
}

func TestRun_TimingIsContiguous(t *testing.T) {
	speech := providers.NewMockSpeechClient()
	res, err := newSynth(speech).Run(context.Background(), sampleItems(), t.TempDir())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Segments) != 6 {
		t.Fatalf("Run() returned %d segments, want 6", len(res.Segments))
	}
	if res.Segments[0].StartTime != 0 {
		t.Errorf("first StartTime = %v, want 0", res.Segments[0].StartTime)
	}
	sum := 0.0
	for i, seg := range res.Segments {
		if seg.Index != i {
			t.Errorf("segment %d Index = %d", i, seg.Index)
		}
		if i > 0 {
			prev := res.Segments[i-1]
			if seg.StartTime != prev.StartTime+prev.Duration {
				t.Errorf("segment %d StartTime = %v, want %v", i, seg.StartTime, prev.StartTime+prev.Duration)
			}
		}
		if seg.Duration <= 0 {
			t.Errorf("segment %d Duration = %v", i, seg.Duration)
		}
		sum += seg.Duration
	}
	if res.Duration != sum {
		t.Errorf("Duration = %v, want %v", res.Duration, sum)
	}

	track, err := os.ReadFile(res.AudioPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := (time.Duration(len(track)) * 10 * time.Millisecond).Seconds(); math.Abs(got-res.Duration) > 1e-9 {
		t.Errorf("track length %v does not match Duration %v", got, res.Duration)
	}
}

func TestRun_VoicesChunksAndPauses(t *testing.T) {
	speech := providers.NewMockSpeechClient()
	res, err := newSynth(speech).Run(context.Background(), sampleItems(), t.TempDir())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	calls := speech.Calls()
	var figureCalls, pauseCalls int
	for _, c := range calls {
		if len([]rune(c.Text)) > 40 {
			t.Errorf("chunk exceeds limit: %q", c.Text)
		}
		if c.Voice == "nova" {
			figureCalls++
		}
		if strings.HasSuffix(c.Text, DefaultPauseCue) {
			pauseCalls++
		}
		if strings.Contains(c.Text, "runs onto the "+DefaultPauseCue) {
			t.Error("pause cue appended to end-cut-off item")
		}
	}
	if figureCalls == 0 {
		t.Error("summary voice never used for the figure")
	}
	if pauseCalls != 5 {
		t.Errorf("pause cue calls = %d, want 5", pauseCalls)
	}
	if res.Segments[2].Transcript != "This sentence runs onto the" {
		t.Errorf("transcript = %q, want content without cue", res.Segments[2].Transcript)
	}
}

func TestRun_TOC(t *testing.T) {
	res, err := newSynth(providers.NewMockSpeechClient()).Run(context.Background(), sampleItems(), t.TempDir())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []items.Type{items.TypeMainTitle, items.TypeHeading, items.TypeEndMarker}
	if len(res.TOC) != len(want) {
		t.Fatalf("TOC = %+v", res.TOC)
	}
	for i, e := range res.TOC {
		if e.Type != want[i] {
			t.Errorf("TOC[%d].Type = %s, want %s", i, e.Type, want[i])
		}
		if e.StartTime != res.Segments[e.Index].StartTime {
			t.Errorf("TOC[%d].StartTime = %v, want segment start", i, e.StartTime)
		}
	}
}

func TestRun_SpeechFailureIsFatal(t *testing.T) {
	speech := providers.NewMockSpeechClient()
	speech.ShouldFail = true
	if _, err := newSynth(speech).Run(context.Background(), sampleItems(), t.TempDir()); err == nil {
		t.Fatal("Run() error = nil, want failure")
	}
	if got := len(speech.Calls()); got < 2 {
		t.Errorf("Synthesize calls = %d, want retries", got)
	}
}

func TestRun_NothingToNarrate(t *testing.T) {
	_, err := newSynth(providers.NewMockSpeechClient()).Run(context.Background(), []*items.Item{items.New(items.TypeText, "", 1)}, t.TempDir())
	if err == nil {
		t.Fatal("Run() error = nil for empty list")
	}
}
