// Package walker locates a comment reachable from a list of stories.
//
// The top ranked story may be brand new and have no comments yet, so the
// walker scans a bounded window of stories in rank order and stops at the
// first one with children. Finding nothing is a valid outcome, not an error.
package walker

import (
	"context"
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/hncheck/packages/item"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxStories bounds the scan when no option overrides it.
const DefaultMaxStories = 20

// ErrCommentMissing is returned when a story lists a child that resolves to null.
var ErrCommentMissing = errors.New("listed comment is missing")

// Fetcher resolves an item id. A nil item with a nil error means the
// upstream answered null.
type Fetcher interface {
	FetchItem(ctx context.Context, id int64) (*item.Item, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id int64) (*item.Item, error)

func (f FetcherFunc) FetchItem(ctx context.Context, id int64) (*item.Item, error) {
	return f(ctx, id)
}

// Found is a comment paired with the story it was reached from. CommentID
// is the id listed in the story's kids, which the fetched comment is
// expected to carry.
type Found struct {
	Comment       *item.Item
	CommentID     int64
	ParentStoryID int64
	Scanned       int // stories inspected, including the matching one
}

type config struct {
	maxStories int
	prefetch   int
}

// Option configures FindFirstComment.
type Option func(*config)

// WithMaxStories bounds how many stories are inspected. Values below 1 keep the default.
func WithMaxStories(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxStories = n
		}
	}
}

// WithPrefetch fetches up to n stories of the window concurrently. Results
// are still evaluated in rank order, so the match is the same as a
// sequential scan; stories past the match may be fetched and discarded.
func WithPrefetch(n int) Option {
	return func(c *config) {
		c.prefetch = n
	}
}

// FindFirstComment scans storyIDs in order, bounded by the max stories
// option, and returns the first kid of the first story that has kids. The
// bool result is false when no scanned story has comments. A fetch error
// aborts the scan and is returned wrapped.
func FindFirstComment(ctx context.Context, storyIDs []int64, fetch Fetcher, opts ...Option) (Found, bool, error) {
	cfg := config{maxStories: DefaultMaxStories}
	for _, opt := range opts {
		opt(&cfg)
	}

	window := storyIDs
	if len(window) > cfg.maxStories {
		window = window[:cfg.maxStories]
	}

	if cfg.prefetch > 1 {
		return findPrefetched(ctx, window, fetch, cfg.prefetch)
	}

	for i, id := range window {
		if err := ctx.Err(); err != nil {
			return Found{Scanned: i}, false, err
		}
		story, err := fetch.FetchItem(ctx, id)
		if err != nil {
			return Found{Scanned: i + 1}, false, fmt.Errorf("scan story %d: %w", id, err)
		}
		found, ok, err := firstComment(ctx, id, story, fetch)
		found.Scanned = i + 1
		if err != nil || ok {
			return found, ok, err
		}
	}
	return Found{Scanned: len(window)}, false, nil
}

// firstComment fetches the first kid of story, if any.
func firstComment(ctx context.Context, storyID int64, story *item.Item, fetch Fetcher) (Found, bool, error) {
	if story == nil {
		return Found{}, false, nil
	}
	kid, ok := story.FirstKid()
	if !ok {
		return Found{}, false, nil
	}

	comment, err := fetch.FetchItem(ctx, kid)
	if err != nil {
		return Found{}, false, fmt.Errorf("fetch comment %d of story %d: %w", kid, storyID, err)
	}
	if comment == nil {
		return Found{}, false, fmt.Errorf("%w: comment %d of story %d", ErrCommentMissing, kid, storyID)
	}
	return Found{Comment: comment, CommentID: kid, ParentStoryID: storyID}, true, nil
}

type fetchResult struct {
	story *item.Item
	err   error
}

func findPrefetched(ctx context.Context, window []int64, fetch Fetcher, limit int) (Found, bool, error) {
	ctx, cancel := context.WithCancel(ctx)

	slots := make([]chan fetchResult, len(window))
	for i := range slots {
		slots[i] = make(chan fetchResult, 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i, id := range window {
			if gctx.Err() != nil {
				return
			}
			i, id := i, id
			g.Go(func() error {
				story, err := fetch.FetchItem(gctx, id)
				slots[i] <- fetchResult{story: story, err: err}
				return nil
			})
		}
	}()
	defer func() {
		cancel()
		<-launched
		_ = g.Wait()
	}()

	for i, id := range window {
		var res fetchResult
		select {
		case res = <-slots[i]:
		case <-ctx.Done():
			return Found{Scanned: i}, false, ctx.Err()
		}
		if res.err != nil {
			return Found{Scanned: i + 1}, false, fmt.Errorf("scan story %d: %w", id, res.err)
		}
		found, ok, err := firstComment(ctx, id, res.story, fetch)
		found.Scanned = i + 1
		if err != nil || ok {
			return found, ok, err
		}
	}
	return Found{Scanned: len(window)}, false, nil
}
