package engagement

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/xkilldash9x/postlens/internal/humanoid"
	"go.uber.org/zap"
)

// InteractorSet accumulates profiles keyed by profile link, in first-sighting order.
type InteractorSet struct {
	index map[string]int
	items []InteractorProfile
}

// NewInteractorSet returns an empty set.
func NewInteractorSet() *InteractorSet {
	return &InteractorSet{index: make(map[string]int)}
}

// Add merges one sighting. The first sighting fixes the position; later ones
// only fill a name or headline that is still missing. Rows without a link
// are ignored. It reports whether the link was new.
func (s *InteractorSet) Add(raw RawInteractor) bool {
	link := NormalizeProfileURL(raw.Href)
	if link == "" {
		return false
	}
	name := stringPtr(strings.TrimSpace(raw.Name))
	headline := stringPtr(strings.TrimSpace(raw.Headline))

	if i, ok := s.index[link]; ok {
		existing := &s.items[i]
		if existing.Name == nil {
			existing.Name = name
		}
		if existing.Headline == nil {
			existing.Headline = headline
		}
		return false
	}

	s.index[link] = len(s.items)
	s.items = append(s.items, InteractorProfile{ProfileURL: link, Name: name, Headline: headline})
	return true
}

// Len is the number of distinct profiles.
func (s *InteractorSet) Len() int { return len(s.items) }

// Profiles returns a copy of the profiles in first-sighting order.
func (s *InteractorSet) Profiles() []InteractorProfile {
	out := make([]InteractorProfile, len(s.items))
	copy(out, s.items)
	return out
}

// NormalizeProfileURL drops the query, fragment and trailing slash so the
// same profile reached through different tracking parameters is one key.
func NormalizeProfileURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// Collector pages through the reactions panel.
type Collector struct {
	pacer         *humanoid.Policy
	maxIterations int
	logger        *zap.Logger
}

// NewCollector creates a Collector. maxIterations <= 0 means no cap.
func NewCollector(pacer *humanoid.Policy, maxIterations int, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pacer == nil {
		pacer = humanoid.NoDelay()
	}
	return &Collector{
		pacer:         pacer,
		maxIterations: maxIterations,
		logger:        logger.Named("interactor_collector"),
	}
}

// Collect opens the panel, scrolls it until its extent stops growing, and
// returns every distinct profile seen. Any failure along the way produces
// an empty (non-nil) slice; only context cancellation is returned as an error.
func (c *Collector) Collect(ctx context.Context, panel PanelReader) ([]InteractorProfile, error) {
	profiles, err := c.collect(ctx, panel)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return []InteractorProfile{}, err
		}
		if errors.Is(err, ErrReactionsPanelUnavailable) {
			c.logger.Info("Reactions panel unavailable; no interactors collected.", zap.Error(err))
		} else {
			c.logger.Warn("Interactor collection failed; discarding partial results.", zap.Error(err))
		}
		return []InteractorProfile{}, nil
	}
	return profiles, nil
}

func (c *Collector) collect(ctx context.Context, panel PanelReader) ([]InteractorProfile, error) {
	// 1. Open the panel.
	if err := panel.OpenReactions(ctx); err != nil {
		return nil, err
	}
	if err := c.pacer.Pause(ctx, humanoid.General); err != nil {
		return nil, err
	}

	// 2. Read, scroll, repeat until the extent holds still.
	set := NewInteractorSet()
	var previous int64
	for iteration := 1; ; iteration++ {
		rows, err := panel.ReadInteractors(ctx)
		if err != nil {
			return nil, err
		}
		added := 0
		for _, row := range rows {
			if set.Add(row) {
				added++
			}
		}

		extent, err := panel.ScrollPanelToBottom(ctx)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("Scrolled reactions panel.",
			zap.Int("iteration", iteration),
			zap.Int64("extent", extent),
			zap.Int("new_profiles", added),
			zap.Int("total_profiles", set.Len()),
		)
		if extent == previous {
			break
		}
		if c.maxIterations > 0 && iteration >= c.maxIterations {
			c.logger.Warn("Reached scroll iteration cap; stopping early.", zap.Int("max_iterations", c.maxIterations))
			break
		}
		previous = extent

		if err := c.pacer.Pause(ctx, humanoid.Scroll); err != nil {
			return nil, err
		}
	}

	// 3. Close it again.
	if err := panel.ClosePanel(ctx); err != nil {
		return nil, err
	}
	return set.Profiles(), nil
}
