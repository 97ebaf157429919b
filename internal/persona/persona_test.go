package persona

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/xkilldash9x/postlens/internal/config"
	"github.com/xkilldash9x/postlens/internal/engagement"
)

const sampleResponse = `Here is the analysis you asked for.

PERSONA: Growth-Minded Product Leaders
DESCRIPTION: Senior product people scaling SaaS teams.
JOB_TITLES: Product Manager, VP Product ,
INDUSTRIES: Software Development, SaaS
MOTIVATION: Learning repeatable launch playbooks
CONTENT_TIP: Share metrics-backed launch retrospectives

---

**PERSONA:** Founders
**DESCRIPTION:** Early-stage founders.
**JOB_TITLES:** Founder, CEO
**INDUSTRIES:** Technology
`

func TestParseResponse(t *testing.T) {
	got := ParseResponse(sampleResponse)

	want := []Persona{
		{
			Name:        "Growth-Minded Product Leaders",
			Description: "Senior product people scaling SaaS teams.",
			JobTitles:   []string{"Product Manager", "VP Product"},
			Industries:  []string{"Software Development", "SaaS"},
			Motivation:  "Learning repeatable launch playbooks",
			ContentTip:  "Share metrics-backed launch retrospectives",
		},
		{
			Name:        "Founders",
			Description: "Early-stage founders.",
			JobTitles:   []string{"Founder", "CEO"},
			Industries:  []string{"Technology"},
			Motivation:  "",
			ContentTip:  "",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseResponse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponse_NoBlocks(t *testing.T) {
	assert.Nil(t, ParseResponse("I cannot help with that."))
	assert.Nil(t, ParseResponse(""))
}

func TestParseResponse_MissingName(t *testing.T) {
	got := ParseResponse("PERSONA:\nDESCRIPTION: anonymous")
	require.Len(t, got, 1)
	assert.Equal(t, "Unknown Persona", got[0].Name)
	assert.Equal(t, "anonymous", got[0].Description)
	assert.Equal(t, []string{}, got[0].JobTitles)
}

func TestBuildPrompt(t *testing.T) {
	name := "Ann"
	prompt, err := BuildPrompt([]engagement.InteractorProfile{{ProfileURL: "https://www.linkedin.com/in/ann", Name: &name}})
	require.NoError(t, err)

	assert.Contains(t, prompt, "2-5 meaningful audience personas")
	assert.Contains(t, prompt, "CONTENT_TIP:")
	assert.Contains(t, prompt, "\n  {\n    \"profileUrl\": \"https://www.linkedin.com/in/ann\",")
	assert.Contains(t, prompt, `"headline": null`)
}

type fakeGenerator struct {
	text   string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

func TestAnalyzer(t *testing.T) {
	profiles := []engagement.InteractorProfile{{ProfileURL: "https://www.linkedin.com/in/ann"}}

	t.Run("parses personas", func(t *testing.T) {
		gen := &fakeGenerator{text: sampleResponse}
		a, err := NewAnalyzer(gen, zaptest.NewLogger(t))
		require.NoError(t, err)

		report, err := a.Analyze(context.Background(), profiles)
		require.NoError(t, err)
		assert.Len(t, report.Personas, 2)
		assert.Contains(t, gen.prompt, "https://www.linkedin.com/in/ann")
	})

	t.Run("unparseable response falls back", func(t *testing.T) {
		a, err := NewAnalyzer(&fakeGenerator{text: "no structure here"}, zaptest.NewLogger(t))
		require.NoError(t, err)

		report, err := a.Analyze(context.Background(), profiles)
		require.NoError(t, err)
		assert.Equal(t, []Persona{Fallback()}, report.Personas)
	})

	t.Run("generator error", func(t *testing.T) {
		a, err := NewAnalyzer(&fakeGenerator{err: errors.New("quota")}, zaptest.NewLogger(t))
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), profiles)
		assert.ErrorContains(t, err, "quota")
	})

	t.Run("no profiles", func(t *testing.T) {
		gen := &fakeGenerator{}
		a, err := NewAnalyzer(gen, nil)
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNoProfiles)
		assert.Empty(t, gen.prompt)
	})

	t.Run("nil generator", func(t *testing.T) {
		_, err := NewAnalyzer(nil, nil)
		assert.Error(t, err)
	})
}

// scriptedModels returns the queued results in order.
type scriptedModels struct {
	results []scriptedResult
	calls   int
	model   string
	config  *genai.GenerateContentConfig
}

type scriptedResult struct {
	text string
	err  error
}

func (s *scriptedModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	r := s.results[s.calls]
	s.calls++
	s.model = model
	s.config = cfg
	if r.err != nil {
		return nil, r.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(r.text, genai.RoleModel),
		}},
	}, nil
}

func newTestGenerator(t *testing.T, models *scriptedModels) *GeminiGenerator {
	t.Helper()
	cfg := config.NewDefaultConfig().LLM
	cfg.APIKey = "test-key"
	g := newGeminiGenerator(models, cfg, zaptest.NewLogger(t))
	g.backoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
	}
	return g
}

func TestGeminiGenerator_Generate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		models := &scriptedModels{results: []scriptedResult{{text: "  PERSONA: A  "}}}
		g := newTestGenerator(t, models)

		text, err := g.Generate(context.Background(), "prompt")
		require.NoError(t, err)
		assert.Equal(t, "PERSONA: A", text)
		assert.Equal(t, config.NewDefaultConfig().LLM.Model, models.model)
		require.NotNil(t, models.config.Temperature)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		models := &scriptedModels{results: []scriptedResult{
			{err: genai.APIError{Code: 503, Message: "overloaded"}},
			{err: errors.New("connection reset")},
			{text: "ok"},
		}}
		g := newTestGenerator(t, models)

		text, err := g.Generate(context.Background(), "prompt")
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, 3, models.calls)
	})

	t.Run("permanent error stops", func(t *testing.T) {
		models := &scriptedModels{results: []scriptedResult{
			{err: genai.APIError{Code: 400, Message: "bad request"}},
			{text: "never"},
		}}
		g := newTestGenerator(t, models)

		_, err := g.Generate(context.Background(), "prompt")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "gemini API error"))
		assert.Equal(t, 1, models.calls)
	})

	t.Run("empty text is permanent", func(t *testing.T) {
		models := &scriptedModels{results: []scriptedResult{{text: "   "}, {text: "never"}}}
		g := newTestGenerator(t, models)

		_, err := g.Generate(context.Background(), "prompt")
		assert.ErrorContains(t, err, "no text")
		assert.Equal(t, 1, models.calls)
	})
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), config.LLMConfig{}, nil)
	assert.Error(t, err)
}
