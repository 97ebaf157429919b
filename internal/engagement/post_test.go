package engagement

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseActorLabel(t *testing.T) {
	tests := []struct {
		name        string
		label       string
		wantAuthor  *string
		wantTagline *string
	}{
		{"standard", "View: Jane Doe • Product Manager", ptr("Jane Doe"), ptr("Product Manager")},
		{"extra whitespace", "  View:Jane Doe   •   Product Manager at Acme  ", ptr("Jane Doe"), ptr("Product Manager at Acme")},
		{"tagline with bullet", "View: Jane Doe • PM • Hiring", ptr("Jane Doe"), ptr("PM • Hiring")},
		{"no prefix", "Jane Doe • Product Manager", nil, nil},
		{"no separator", "View: Jane Doe", nil, nil},
		{"blank name", "View:  • Product Manager", nil, nil},
		{"empty", "", nil, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			author, tagline := ParseActorLabel(tc.label)
			assert.Equal(t, tc.wantAuthor, author)
			assert.Equal(t, tc.wantTagline, tagline)
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		text string
		want *int
	}{
		{"1,234 reactions", ptr(1234)},
		{"56", ptr(56)},
		{"12 comments", ptr(12)},
		{"Reposted by 3 people", ptr(3)},
		{"1,000,000", ptr(1000000)},
		{"Like", nil},
		{"", nil},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseCount(tc.text))
		})
	}
}

func TestParsePost(t *testing.T) {
	raw := RawPost{
		ActorLabel: "View: Jane Doe • Product Manager",
		ActorHref:  "https://www.linkedin.com/in/janedoe",
		BodyText:   "  Shipping day! #launch #product  ",
		BodyLinks:  []string{"#launch", "Acme Corp", " #product ", "#launch"},
		Buttons: []RawButton{
			{Label: "React Like", Text: "Like"},
			{Label: "1,234 Reactions", Text: "1,234"},
			{Label: "56 comments on Jane's post", Text: "56 comments"},
			{Label: "7 reposts of Jane's post", Text: "7 reposts"},
		},
	}

	want := PostRecord{
		Author:     ptr("Jane Doe"),
		Tagline:    ptr("Product Manager"),
		ProfileURL: ptr("https://www.linkedin.com/in/janedoe"),
		Content:    ptr("Shipping day! #launch #product"),
		Hashtags:   []string{"#launch", "#product"},
		Reactions:  ptr(1234),
		Comments:   ptr(56),
		Reposts:    ptr(7),
	}
	if diff := cmp.Diff(want, ParsePost(raw)); diff != "" {
		t.Errorf("ParsePost mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePost_MissingElements(t *testing.T) {
	got := ParsePost(RawPost{
		Buttons: []RawButton{{Label: "React Like", Text: "Like"}},
	})

	assert.Nil(t, got.Author)
	assert.Nil(t, got.Tagline)
	assert.Nil(t, got.ProfileURL)
	assert.Nil(t, got.Content)
	assert.NotNil(t, got.Hashtags)
	assert.Empty(t, got.Hashtags)
	assert.Nil(t, got.Reactions, "no reaction control means absent, not zero")
	assert.Nil(t, got.Comments)
	assert.Nil(t, got.Reposts)
}

func TestParsePost_FirstMatchingButtonWins(t *testing.T) {
	got := ParsePost(RawPost{Buttons: []RawButton{
		{Label: "Reactions summary", Text: "no digits here"},
		{Label: "More reactions", Text: "99"},
	}})
	assert.Nil(t, got.Reactions)
}

func TestPostExtractor_Extract(t *testing.T) {
	x := NewPostExtractor(zaptest.NewLogger(t))

	t.Run("reads and parses", func(t *testing.T) {
		page := &fakePage{raw: RawPost{ActorLabel: "View: Jane Doe • Product Manager"}}
		rec, err := x.Extract(context.Background(), page)
		require.NoError(t, err)
		assert.Equal(t, ptr("Jane Doe"), rec.Author)
	})

	t.Run("read failure yields empty record", func(t *testing.T) {
		page := &fakePage{readErr: errPageGone}
		rec, err := x.Extract(context.Background(), page)
		require.NoError(t, err)
		assert.Equal(t, emptyRecord(), rec)
	})

	t.Run("cancellation is surfaced", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := x.Extract(ctx, &fakePage{})
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
