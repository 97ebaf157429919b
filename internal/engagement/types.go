// Package engagement extracts post metadata and the people who reacted to a
// post from a rendered post page. It depends only on the PageReader
// capability, never on a concrete browser.
package engagement

// PostRecord is the metadata of one post. Nil fields were not found on the page.
type PostRecord struct {
	Author     *string  `json:"author"`
	Tagline    *string  `json:"tagline"`
	ProfileURL *string  `json:"profileUrl"`
	Content    *string  `json:"content"`
	Hashtags   []string `json:"hashtags"`
	Reactions  *int     `json:"reactions"`
	Comments   *int     `json:"comments"`
	Reposts    *int     `json:"reposts"`
}

// InteractorProfile is one person listed in the reactions panel.
type InteractorProfile struct {
	ProfileURL string  `json:"profileUrl"`
	Name       *string `json:"name"`
	Headline   *string `json:"headline"`
}

// AnalysisResult is what a single post analysis produces.
type AnalysisResult struct {
	Post        PostRecord          `json:"post"`
	Interactors []InteractorProfile `json:"interactors"`
}

// RawPost is the unparsed view of a post as read from the page.
type RawPost struct {
	ActorLabel string      `json:"actorLabel"`
	ActorHref  string      `json:"actorHref"`
	BodyText   string      `json:"bodyText"`
	BodyLinks  []string    `json:"bodyLinks"`
	Buttons    []RawButton `json:"buttons"`
}

// RawButton is an interactive control with its accessible label and visible text.
type RawButton struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// RawInteractor is one row of the reactions panel as read from the page.
type RawInteractor struct {
	Href     string `json:"href"`
	Name     string `json:"name"`
	Headline string `json:"headline"`
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
