package engagement

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is a PageReader over saved HTML. It lets the extraction rules
// run without a browser, e.g. against a page saved from a real session.
// The panel is static: scrolling never reveals more rows.
type Snapshot struct {
	doc *goquery.Document
}

var _ PageReader = (*Snapshot)(nil)

// NewSnapshot parses an HTML document.
func NewSnapshot(r io.Reader) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: failed to parse html: %w", err)
	}
	return &Snapshot{doc: doc}, nil
}

// AwaitPost succeeds when the post container is present.
func (s *Snapshot) AwaitPost(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.doc.Find(SelectorPostContainer).Length() == 0 {
		return fmt.Errorf("snapshot: post container %q not found", SelectorPostContainer)
	}
	return nil
}

// ReadPost collects the raw post fields.
func (s *Snapshot) ReadPost(ctx context.Context) (RawPost, error) {
	if err := ctx.Err(); err != nil {
		return RawPost{}, err
	}
	var raw RawPost

	if actor := s.doc.Find(SelectorActorLink).First(); actor.Length() > 0 {
		raw.ActorLabel = actor.AttrOr("aria-label", "")
		raw.ActorHref = actor.AttrOr("href", "")
	}

	if body := s.doc.Find(SelectorPostBody).First(); body.Length() > 0 {
		raw.BodyText = collapseSpace(body.Text())
		body.Find("a").Each(func(_ int, a *goquery.Selection) {
			raw.BodyLinks = append(raw.BodyLinks, strings.TrimSpace(a.Text()))
		})
	}

	s.doc.Find(SelectorLabeledButtons).Each(func(_ int, b *goquery.Selection) {
		raw.Buttons = append(raw.Buttons, RawButton{
			Label: b.AttrOr("aria-label", ""),
			Text:  collapseSpace(b.Text()),
		})
	})
	return raw, nil
}

// OpenReactions requires both the reaction control and a rendered panel.
func (s *Snapshot) OpenReactions(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.doc.Find(SelectorReactionsOpen).Length() == 0 {
		return NewError(ErrCodeReactionsPanel, "snapshot.OpenReactions", fmt.Errorf("no control matching %q", SelectorReactionsOpen))
	}
	if s.doc.Find(SelectorPanelContent).Length() == 0 {
		return NewError(ErrCodeReactionsPanel, "snapshot.OpenReactions", fmt.Errorf("panel %q not captured", SelectorPanelContent))
	}
	return nil
}

// ReadInteractors lists the profile rows inside the panel.
func (s *Snapshot) ReadInteractors(ctx context.Context) ([]RawInteractor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []RawInteractor
	s.doc.Find(SelectorPanelProfiles).Each(func(_ int, a *goquery.Selection) {
		rows = append(rows, RawInteractor{
			Href:     a.AttrOr("href", ""),
			Name:     collapseSpace(a.Find(SelectorEntryName).First().Text()),
			Headline: collapseSpace(a.Find(SelectorEntryHeadline).First().Text()),
		})
	})
	return rows, nil
}

// ScrollPanelToBottom reports the row count as the extent, which never changes.
func (s *Snapshot) ScrollPanelToBottom(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(s.doc.Find(SelectorPanelProfiles).Length()), nil
}

// ClosePanel is a no-op for a snapshot.
func (s *Snapshot) ClosePanel(ctx context.Context) error {
	return ctx.Err()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
