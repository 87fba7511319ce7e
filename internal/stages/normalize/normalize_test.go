package normalize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/providers"
	"github.com/jackzampolin/papercast/internal/testutil"
)

func textItem(content string) *items.Item {
	return items.New(items.TypeText, content, 1)
}

func textReply(t *testing.T, text string) string {
	return testutil.JSON(t, map[string]string{"text": text})
}

func TestRun_RejectsTruncatedCitationRewrite(t *testing.T) {
	original := strings.Repeat("a", 491) + " [1], [2]"
	if len(original) != 500 {
		t.Fatalf("len(original) = %d, want 500", len(original))
	}
	it := textItem(original)
	it.Text.HasCitations = true

	rewrite := strings.Repeat("b", 200)
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		return textReply(t, rewrite), nil
	}, RegisterPrompts)

	st, err := Run(context.Background(), env.Env, []*items.Item{it}, Options{Abbreviations: []Abbreviation{}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if it.Content != original {
		t.Errorf("content changed to %d chars, want original 500", len(it.Content))
	}
	rep := it.Text.CitationReplacement
	if rep == nil {
		t.Fatal("CitationReplacement = nil, want recorded attempt")
	}
	if rep.Accepted || rep.OriginalText != original || rep.TransformedText != rewrite {
		t.Errorf("CitationReplacement = %+v", rep)
	}
	if it.Text.ReplacedCitations {
		t.Error("ReplacedCitations = true for rejected rewrite")
	}
	if st.Citations.Rejected != 1 {
		t.Errorf("Stats.Citations = %+v", st.Citations)
	}
}

func TestRun_AcceptsCitationRewrite(t *testing.T) {
	it := textItem("Transformers [12] replaced recurrent models.")
	it.Text.HasCitations = true
	other := textItem("No citations here.")

	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		if len(req.Messages) != 6 {
			return "", errors.New("few-shot examples missing")
		}
		return textReply(t, "Transformers replaced recurrent models."), nil
	}, RegisterPrompts)

	if _, err := Run(context.Background(), env.Env, []*items.Item{it, other}, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if it.Content != "Transformers replaced recurrent models." {
		t.Errorf("content = %q", it.Content)
	}
	if !it.Text.ReplacedCitations || !it.Text.CitationReplacement.Accepted {
		t.Errorf("attrs = %+v", it.Text)
	}
	if env.Mock.RequestCount() != 1 {
		t.Errorf("RequestCount() = %d, want 1", env.Mock.RequestCount())
	}
}

func TestRun_MathBandScalesWithFrequency(t *testing.T) {
	tests := []struct {
		freq   int
		factor int
		accept bool
	}{
		{1, 2, false},
		{2, 2, true},
		{3, 4, false},
		{5, 8, true},
	}
	for _, tt := range tests {
		it := textItem("x^2 + y^2 = z^2")
		it.Text.MathSymbolFrequency = tt.freq
		env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
			return textReply(t, strings.Repeat("w", tt.factor*len("x^2 + y^2 = z^2"))), nil
		}, RegisterPrompts)

		if _, err := Run(context.Background(), env.Env, []*items.Item{it}, Options{}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if it.Text.OptimizedMath != tt.accept {
			t.Errorf("freq %d factor %d: OptimizedMath = %v, want %v", tt.freq, tt.factor, it.Text.OptimizedMath, tt.accept)
		}
		if it.Text.MathReplacement == nil {
			t.Errorf("freq %d: MathReplacement not recorded", tt.freq)
		}
	}
}

func TestRun_MathTokenBudgetFollowsBand(t *testing.T) {
	original := strings.Repeat("x^2 + ", 400)
	budget := func(freq int) int {
		it := textItem(original)
		it.Text.MathSymbolFrequency = freq
		got := 0
		env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
			got = req.MaxTokens
			return textReply(t, original), nil
		}, RegisterPrompts)
		if _, err := Run(context.Background(), env.Env, []*items.Item{it}, Options{}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		return got
	}

	dense := budget(5)
	if want := len(original) * 10 / 3; dense < want {
		t.Errorf("freq 5 MaxTokens = %d, want >= %d for a 10x rewrite", dense, want)
	}
	if light := budget(1); light >= dense {
		t.Errorf("freq 1 MaxTokens = %d, want below freq 5 budget %d", light, dense)
	}
	if got := maxTokensFor("short", 10); got != 512 {
		t.Errorf("maxTokensFor(short) = %d, want floor 512", got)
	}
}

func TestRun_FailureKeepsOriginal(t *testing.T) {
	it := textItem("The exam- ple text.")
	it.Text.HasHyphenatedWords = true
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		return "", errors.New("down")
	}, RegisterPrompts)

	st, err := Run(context.Background(), env.Env, []*items.Item{it}, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if it.Content != "The exam- ple text." || it.Text.HyphenationReplacement != nil {
		t.Errorf("item = %+v", it)
	}
	if st.Hyphenation.Failed != 1 {
		t.Errorf("Stats.Hyphenation = %+v", st.Hyphenation)
	}
}

func TestRun_RunsPassesInOrder(t *testing.T) {
	it := textItem("Model f(x) [3] is a well- known LLM.")
	it.Text.HasCitations = true
	it.Text.MathSymbolFrequency = 1
	it.Text.HasHyphenatedWords = true

	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		sys := testutil.SystemText(req)
		switch {
		case strings.Contains(sys, "citations"):
			return textReply(t, "Model f(x) is a well- known LLM."), nil
		case strings.Contains(sys, "mathematical notation"):
			return textReply(t, "Model f of x is a well- known LLM."), nil
		default:
			return textReply(t, "Model f of x is a well-known LLM."), nil
		}
	}, RegisterPrompts)

	st, err := Run(context.Background(), env.Env, []*items.Item{it}, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if it.Content != "Model f of x is a well-known L.L.M." {
		t.Errorf("content = %q", it.Content)
	}
	if st.Citations.Accepted != 1 || st.Math.Accepted != 1 || st.Hyphenation.Accepted != 1 || st.Abbreviations != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LLMs are large.", "L.L.M.s are large."},
		{"An LLM, e.g. GPT, works.", "An L.L.M., for example G.P.T., works."},
		{"Smith et al. showed it.", "Smith and colleagues showed it."},
		{"See Eq. 3 and Eqs. 4-5.", "See Equation 3 and Equations 4-5."},
		{"AIR and TRAIL stay.", "AIR and TRAIL stay."},
		{"URL and RL differ.", "U.R.L. and R.L. differ."},
		{"(AI)", "(A.I.)"},
		{"We train an LLM.", "We train an L.L.M."},
		{"We test CNNs, RNNs, etc. The results follow.", "We test C.N.N.s, R.N.N.s, et cetera. The results follow."},
		{"Scores rise, resp.", "Scores rise, respectively."},
		{"Jones et al. Later work agrees.", "Jones and colleagues. Later work agrees."},
		{"Smith et al. (2020) agree.", "Smith and colleagues (2020) agree."},
		{"Compare vs. Baseline models.", "Compare versus Baseline models."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, _ := Expand(tt.in, DefaultAbbreviations)
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWithin(t *testing.T) {
	if !Within("abcdefghij", "abcdefgh", 0.7, 1.1) {
		t.Error("Within(0.8) = false")
	}
	if Within("abcdefghij", "abc", 0.7, 1.1) {
		t.Error("Within(0.3) = true")
	}
	if Within("", "abc", 0, 10) {
		t.Error("Within(empty original) = true")
	}
}
