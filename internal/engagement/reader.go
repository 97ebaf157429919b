package engagement

import "context"

// Selectors for the post detail view and its reactions modal. Both the live
// browser reader and the HTML snapshot reader use these.
const (
	SelectorPostContainer  = ".feed-shared-update-v2"
	SelectorActorLink      = ".update-components-actor__meta-link"
	SelectorPostBody       = ".feed-shared-update-v2__description"
	SelectorReactionsOpen  = `button[aria-label*="reaction"]`
	SelectorPanelContent   = ".artdeco-modal__content"
	SelectorPanelProfiles  = `.artdeco-modal__content a[href*="/in/"]`
	SelectorEntryName      = ".artdeco-entity-lockup__title"
	SelectorEntryHeadline  = ".artdeco-entity-lockup__subtitle"
	SelectorPanelDismiss   = ".artdeco-modal__dismiss"
	SelectorLabeledButtons = "button[aria-label]"
)

// PostReader reads the post itself.
type PostReader interface {
	// AwaitPost blocks until the post container is rendered.
	AwaitPost(ctx context.Context) error
	// ReadPost returns the raw actor, body and button data of the post.
	ReadPost(ctx context.Context) (RawPost, error)
}

// PanelReader drives the reactions panel.
type PanelReader interface {
	// OpenReactions opens the panel. It returns ErrReactionsPanelUnavailable
	// when the control is missing or the panel never appears.
	OpenReactions(ctx context.Context) error
	// ReadInteractors returns every profile row currently rendered.
	ReadInteractors(ctx context.Context) ([]RawInteractor, error)
	// ScrollPanelToBottom scrolls the panel and returns its scroll extent.
	ScrollPanelToBottom(ctx context.Context) (int64, error)
	ClosePanel(ctx context.Context) error
}

// PageReader is everything the extractor and collector need from a page.
type PageReader interface {
	PostReader
	PanelReader
}
