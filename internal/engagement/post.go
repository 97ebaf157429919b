package engagement

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	// actorLabelPattern matches "View: <name> • <tagline>".
	actorLabelPattern = regexp.MustCompile(`^View:\s*(.+?)\s*•\s*(.+?)\s*$`)
	// countPattern is the first run of digits, allowing thousands separators.
	countPattern = regexp.MustCompile(`\d[\d,]*`)
)

// Count keywords, matched case-insensitively against button labels.
const (
	keywordReactions = "reaction"
	keywordComments  = "comment"
	keywordReposts   = "repost"
)

// PostExtractor turns a rendered post into a PostRecord.
type PostExtractor struct {
	logger *zap.Logger
}

// NewPostExtractor creates an extractor.
func NewPostExtractor(logger *zap.Logger) *PostExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostExtractor{logger: logger.Named("post_extractor")}
}

// Extract reads the post once and parses every field it can. Missing
// elements become nil fields. The only error returned is context
// cancellation; any other read failure yields an all-absent record.
func (x *PostExtractor) Extract(ctx context.Context, reader PostReader) (PostRecord, error) {
	raw, err := reader.ReadPost(ctx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return emptyRecord(), err
		}
		x.logger.Warn("Failed to read post; returning empty record.", zap.Error(err))
		return emptyRecord(), nil
	}

	record := ParsePost(raw)
	x.logger.Debug("Post extracted.",
		zap.Bool("has_author", record.Author != nil),
		zap.Bool("has_content", record.Content != nil),
		zap.Int("hashtags", len(record.Hashtags)),
	)
	return record, nil
}

// ParsePost applies the field rules to a raw snapshot.
func ParsePost(raw RawPost) PostRecord {
	record := emptyRecord()

	record.Author, record.Tagline = ParseActorLabel(raw.ActorLabel)
	record.ProfileURL = stringPtr(strings.TrimSpace(raw.ActorHref))
	record.Content = stringPtr(strings.TrimSpace(raw.BodyText))
	record.Hashtags = parseHashtags(raw.BodyLinks)

	record.Reactions = countFor(raw.Buttons, keywordReactions)
	record.Comments = countFor(raw.Buttons, keywordComments)
	record.Reposts = countFor(raw.Buttons, keywordReposts)
	return record
}

func emptyRecord() PostRecord {
	return PostRecord{Hashtags: []string{}}
}

// ParseActorLabel splits an accessible label of the form
// "View: <name> • <tagline>". Anything else yields two nils.
func ParseActorLabel(label string) (author, tagline *string) {
	m := actorLabelPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return nil, nil
	}
	name, line := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	if name == "" || line == "" {
		return nil, nil
	}
	return &name, &line
}

// ParseCount returns the first number in text, with commas removed.
func ParseCount(text string) *int {
	match := countPattern.FindString(text)
	if match == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

// countFor finds the first button whose label mentions keyword and parses its text.
func countFor(buttons []RawButton, keyword string) *int {
	for _, b := range buttons {
		if strings.Contains(strings.ToLower(b.Label), keyword) {
			return ParseCount(b.Text)
		}
	}
	return nil
}

func parseHashtags(links []string) []string {
	tags := []string{}
	seen := make(map[string]struct{}, len(links))
	for _, text := range links {
		tag := strings.TrimSpace(text)
		if !strings.HasPrefix(tag, "#") {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
