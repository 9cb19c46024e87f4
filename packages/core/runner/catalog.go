package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/abdul-hamid-achik/hncheck/packages/assertions"
	"github.com/abdul-hamid-achik/hncheck/packages/fixture"
	"github.com/abdul-hamid-achik/hncheck/packages/item"
	"github.com/abdul-hamid-achik/hncheck/packages/schema"
	"github.com/abdul-hamid-achik/hncheck/packages/walker"
)

const (
	// DefaultUnknownItemID is far above any id the upstream has assigned.
	DefaultUnknownItemID int64 = 9_999_999_999
	// DefaultMalformedRef is a non-numeric item reference.
	DefaultMalformedRef = "anudeep"
	// NoSuffixFixture names the recorded body of the suffixless item request.
	NoSuffixFixture = "hn-06-item-nosuffix"
)

// Catalog returns the default scenarios in execution order.
func Catalog() []Scenario {
	return []Scenario{
		{
			ID:   "hn-01",
			Name: "top stories return a list of ids",
			Tags: []string{"topstories"},
			Run:  checkTopStories,
		},
		{
			ID:   "hn-02",
			Name: "top stories ignore unexpected query parameters",
			Tags: []string{"topstories", "edge"},
			Run:  checkTopStoriesQuery,
		},
		{
			ID:   "hn-03",
			Name: "current top story is a story or job",
			Tags: []string{"item"},
			Run:  checkTopItem,
		},
		{
			ID:   "hn-04",
			Name: "non-existent item id returns null",
			Tags: []string{"item", "edge"},
			Run:  checkUnknownItem,
		},
		{
			ID:   "hn-05",
			Name: "malformed item id returns null",
			Tags: []string{"item", "edge"},
			Run:  checkMalformedItem,
		},
		{
			ID:   "hn-06",
			Name: "valid id without .json suffix returns 200",
			Tags: []string{"item", "edge"},
			Run:  checkMissingSuffix,
		},
		{
			ID:   "hn-07",
			Name: "top story and its first comment",
			Tags: []string{"comments"},
			Run:  checkTopStoryComment,
		},
		{
			ID:   "hn-08",
			Name: "first commented story in the top window",
			Tags: []string{"comments", "walker"},
			Run:  checkAnyStoryComment,
		},
		{
			ID:   "hn-09",
			Name: "pretty and compact top stories share a shape",
			Tags: []string{"topstories"},
			Run:  checkPrettyTopStories,
		},
		{
			ID:   "hn-10",
			Name: "top story matches its item schema",
			Tags: []string{"item", "schema"},
			Run:  checkTopItemSchema,
		},
	}
}

func checkTopStories(ctx context.Context, env *Env) Outcome {
	body, err := env.Gateway.FetchTopStories(ctx, false)
	if err != nil {
		return fromError(err)
	}
	return validateList(body)
}

func checkTopStoriesQuery(ctx context.Context, env *Env) Outcome {
	body, err := env.Gateway.FetchTopStoriesWithQuery(ctx, url.Values{"pick": {"invalid"}})
	if err != nil {
		return fromError(err)
	}
	return validateList(body)
}

func validateList(body []byte) Outcome {
	v, err := assertions.ValidateTopStoriesJSON(body)
	return Outcome{Verdict: v, Err: err}
}

// topStoryID returns the first id of the top stories list. A list without
// ids is a BoundsError, not an error.
func topStoryID(ctx context.Context, env *Env) (int64, *Outcome) {
	ids, err := env.Gateway.TopStoryIDs(ctx)
	if err != nil {
		o := fromError(err)
		return 0, &o
	}
	if len(ids) == 0 {
		o := verdict(assertions.Failf(assertions.BoundsError, "", "empty result"))
		return 0, &o
	}
	return ids[0], nil
}

func checkTopItem(ctx context.Context, env *Env) Outcome {
	id, failed := topStoryID(ctx, env)
	if failed != nil {
		return *failed
	}
	it, err := env.Gateway.FetchItem(ctx, id)
	if err != nil {
		return fromError(err)
	}
	return verdict(assertions.ValidateItem(it, id, item.NewKindSet(item.KindStory, item.KindJob)))
}

func checkUnknownItem(ctx context.Context, env *Env) Outcome {
	return checkNullRef(ctx, env, strconv.FormatInt(env.UnknownItemID, 10))
}

func checkMalformedItem(ctx context.Context, env *Env) Outcome {
	return checkNullRef(ctx, env, env.MalformedRef)
}

func checkNullRef(ctx context.Context, env *Env, ref string) Outcome {
	resp, err := env.Gateway.FetchItemRaw(ctx, ref, true)
	if err != nil {
		return fromError(err)
	}
	v, err := assertions.ValidateNullItemJSON(resp.Body)
	return Outcome{Verdict: v, Err: err}
}

// checkMissingSuffix only requires a 2xx; the body is compared against a
// recorded fixture when a store is configured and drift is a warning.
func checkMissingSuffix(ctx context.Context, env *Env) Outcome {
	id, failed := topStoryID(ctx, env)
	if failed != nil {
		return *failed
	}
	resp, err := env.Gateway.FetchItemRaw(ctx, strconv.FormatInt(id, 10), false)
	if err != nil {
		return fromError(err)
	}

	out := pass()
	if env.Fixtures == nil {
		return out
	}
	result := env.Fixtures.Compare(&fixture.Fixture{
		Name:       NoSuffixFixture,
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	})
	if !result.Passed {
		out = out.Warn(result.Message)
	}
	return out
}

func checkTopStoryComment(ctx context.Context, env *Env) Outcome {
	id, failed := topStoryID(ctx, env)
	if failed != nil {
		return *failed
	}
	found, ok, err := walker.FindFirstComment(ctx, []int64{id}, env.Gateway, walker.WithMaxStories(1))
	if err != nil {
		return fromError(err)
	}
	if !ok {
		return pass().Warn("the top story has no comments at this time")
	}
	return verdict(assertions.ValidateComment(found.Comment, found.CommentID, found.ParentStoryID))
}

func checkAnyStoryComment(ctx context.Context, env *Env) Outcome {
	ids, err := env.Gateway.TopStoryIDs(ctx)
	if err != nil {
		return fromError(err)
	}

	max := env.MaxStories
	if max <= 0 {
		max = walker.DefaultMaxStories
	}
	found, ok, err := walker.FindFirstComment(ctx, ids, env.Gateway,
		walker.WithMaxStories(max),
		walker.WithPrefetch(env.Prefetch))
	if err != nil {
		return fromError(err)
	}
	if !ok {
		return pass().Warn(fmt.Sprintf("no stories in the top %d had comments at this time", max))
	}
	env.logger().Debug("comment found", "comment", found.CommentID, "story", found.ParentStoryID, "scanned", found.Scanned)
	return verdict(assertions.ValidateComment(found.Comment, found.CommentID, found.ParentStoryID))
}

func checkPrettyTopStories(ctx context.Context, env *Env) Outcome {
	compact, err := env.Gateway.FetchTopStories(ctx, false)
	if err != nil {
		return fromError(err)
	}
	pretty, err := env.Gateway.FetchTopStories(ctx, true)
	if err != nil {
		return fromError(err)
	}

	cv, err := assertions.ValidateTopStoriesJSON(compact)
	if err != nil {
		return Outcome{Verdict: cv, Err: err}
	}
	pv, err := assertions.ValidateTopStoriesJSON(pretty)
	if err != nil {
		return Outcome{Verdict: pv, Err: err}
	}

	v := cv.Merge(pv)
	if cs, ps := fixture.Shape(compact), fixture.Shape(pretty); cs != ps {
		v = v.Merge(assertions.Failf(assertions.MismatchError, "", "pretty shape %s differs from compact shape %s", ps, cs))
	}
	out := verdict(v)
	if !bytes.ContainsRune(pretty, '\n') {
		out = out.Warn("print=pretty returned compact output")
	}
	return out
}

func checkTopItemSchema(ctx context.Context, env *Env) Outcome {
	id, failed := topStoryID(ctx, env)
	if failed != nil {
		return *failed
	}
	resp, err := env.Gateway.FetchItemRaw(ctx, strconv.FormatInt(id, 10), true)
	if err != nil {
		return fromError(err)
	}

	it, err := item.Decode(resp.Body)
	if err != nil {
		return fromError(fmt.Errorf("item %d: %w", id, err))
	}
	if it == nil {
		return verdict(assertions.Failf(assertions.ShapeError, "", "item %d is null", id))
	}

	v, err := assertions.ValidateSchema(resp.Body, it.Kind)
	if errors.Is(err, schema.ErrUnknownKind) {
		return verdict(assertions.Failf(assertions.MismatchError, "type", "unknown item type %q", it.Kind))
	}
	if err != nil {
		return fromError(err)
	}
	return verdict(v)
}
