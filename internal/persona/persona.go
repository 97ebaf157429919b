// Package persona groups the profiles that engaged with a post into audience
// personas using a text-generation model.
package persona

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/postlens/internal/engagement"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Persona is one audience segment.
type Persona struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	JobTitles   []string `json:"jobTitles"`
	Industries  []string `json:"industries"`
	Motivation  string   `json:"motivation"`
	ContentTip  string   `json:"contentTip"`
}

// Report is the result of one persona analysis.
type Report struct {
	Personas []Persona `json:"personas"`
}

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNoProfiles is returned when there is nothing to analyze.
var ErrNoProfiles = errors.New("no profiles to analyze")

// Analyzer builds the prompt, calls the generator and parses its answer.
type Analyzer struct {
	gen    Generator
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(gen Generator, logger *zap.Logger) (*Analyzer, error) {
	if gen == nil {
		return nil, errors.New("persona analyzer requires a generator")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{gen: gen, logger: logger.Named("persona")}, nil
}

// Analyze returns personas for profiles. A response that cannot be parsed
// yields the single fallback persona rather than an error.
func (a *Analyzer) Analyze(ctx context.Context, profiles []engagement.InteractorProfile) (Report, error) {
	if len(profiles) == 0 {
		return Report{}, ErrNoProfiles
	}
	prompt, err := BuildPrompt(profiles)
	if err != nil {
		return Report{}, err
	}

	a.logger.Info("Requesting persona analysis.", zap.Int("profiles", len(profiles)))
	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return Report{}, fmt.Errorf("persona generation failed: %w", err)
	}

	personas := ParseResponse(text)
	if len(personas) == 0 {
		a.logger.Warn("Could not parse personas from model response; using fallback.", zap.Int("response_len", len(text)))
		personas = []Persona{Fallback()}
	}
	return Report{Personas: personas}, nil
}

const promptTemplate = `
Analyze the following LinkedIn profiles and group them into 2-5 meaningful audience personas.
For each persona, return a structured response with the following format:

PERSONA: [Persona Name]
DESCRIPTION: [Description of this persona]
JOB_TITLES: [Common job titles, comma separated]
INDUSTRIES: [Common industries, comma separated]
MOTIVATION: [Shared motivation or intent]
CONTENT_TIP: [Suggested content strategy]

---

PROFILES:
%s

Please provide a clear, concise analysis that would be helpful for a content creator trying to understand their audience.
`

// BuildPrompt renders the persona prompt with profiles as indented JSON.
func BuildPrompt(profiles []engagement.InteractorProfile) (string, error) {
	body, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode profiles: %w", err)
	}
	return fmt.Sprintf(promptTemplate, body), nil
}

var (
	sectionMarker = regexp.MustCompile(`(?m)^[\s*#]*PERSONA:`)
	fieldPatterns = map[string]*regexp.Regexp{
		"description": fieldPattern("DESCRIPTION"),
		"job_titles":  fieldPattern("JOB_TITLES"),
		"industries":  fieldPattern("INDUSTRIES"),
		"motivation":  fieldPattern("MOTIVATION"),
		"content_tip": fieldPattern("CONTENT_TIP"),
	}
)

func fieldPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[\s*#-]*` + label + `:[* \t]*([^\n]*)`)
}

// ParseResponse extracts the PERSONA blocks from text. Text before the first
// block is ignored. It returns nil when no block is found.
func ParseResponse(text string) []Persona {
	starts := sectionMarker.FindAllStringIndex(text, -1)
	if len(starts) == 0 {
		return nil
	}

	personas := make([]Persona, 0, len(starts))
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		section := text[loc[1]:end]

		name := cleanValue(firstLine(section))
		if name == "" {
			name = "Unknown Persona"
		}
		personas = append(personas, Persona{
			Name:        name,
			Description: field(section, "description"),
			JobTitles:   splitList(field(section, "job_titles")),
			Industries:  splitList(field(section, "industries")),
			Motivation:  field(section, "motivation"),
			ContentTip:  field(section, "content_tip"),
		})
	}
	return personas
}

// Fallback is returned when the model's answer has no recognizable personas.
func Fallback() Persona {
	return Persona{
		Name:        "General Audience",
		Description: "Unable to parse specific personas from the response",
		JobTitles:   []string{},
		Industries:  []string{},
		Motivation:  "Unknown",
		ContentTip:  "Focus on general professional content",
	}
}

func field(section, key string) string {
	m := fieldPatterns[key].FindStringSubmatch(section)
	if m == nil {
		return ""
	}
	return cleanValue(m[1])
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// cleanValue trims whitespace and markdown emphasis.
func cleanValue(s string) string {
	return strings.Trim(strings.TrimSpace(s), "* ")
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if v := cleanValue(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
