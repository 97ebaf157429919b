package engagement

import (
	"context"
	"errors"
	"sync"
)

// fakePage is a scripted PageReader. Each ReadInteractors/ScrollPanelToBottom
// call consumes the next batch/extent; once exhausted the last one repeats.
type fakePage struct {
	mu sync.Mutex

	raw     RawPost
	readErr error

	openErr   error
	closeErr  error
	readRows  [][]RawInteractor
	extents   []int64
	scrollErr error

	reads, scrolls, closes, opens int
}

func (f *fakePage) AwaitPost(ctx context.Context) error { return ctx.Err() }

func (f *fakePage) ReadPost(ctx context.Context) (RawPost, error) {
	if err := ctx.Err(); err != nil {
		return RawPost{}, err
	}
	return f.raw, f.readErr
}

func (f *fakePage) OpenReactions(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	return f.openErr
}

func (f *fakePage) ReadInteractors(ctx context.Context) ([]RawInteractor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := f.reads
	f.reads++
	if len(f.readRows) == 0 {
		return nil, nil
	}
	if i >= len(f.readRows) {
		i = len(f.readRows) - 1
	}
	return f.readRows[i], nil
}

func (f *fakePage) ScrollPanelToBottom(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scrollErr != nil {
		return 0, f.scrollErr
	}
	i := f.scrolls
	f.scrolls++
	if len(f.extents) == 0 {
		return 0, nil
	}
	if i >= len(f.extents) {
		i = len(f.extents) - 1
	}
	return f.extents[i], nil
}

func (f *fakePage) ClosePanel(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return f.closeErr
}

var errPageGone = errors.New("target closed")

func row(href, name, headline string) RawInteractor {
	return RawInteractor{Href: href, Name: name, Headline: headline}
}

func ptr[T any](v T) *T { return &v }
