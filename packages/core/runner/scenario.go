package runner

import (
	"context"
	"errors"
	"log/slog"

	"github.com/abdul-hamid-achik/hncheck/packages/assertions"
	"github.com/abdul-hamid-achik/hncheck/packages/fixture"
	"github.com/abdul-hamid-achik/hncheck/packages/hnapi"
	"github.com/abdul-hamid-achik/hncheck/packages/item"
	"github.com/abdul-hamid-achik/hncheck/packages/stats"
	"github.com/abdul-hamid-achik/hncheck/packages/walker"
)

// Status is the final state of a scenario.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
	StatusSkipped Status = "skipped"
)

// Outcome is what a scenario reports back to the runner.
type Outcome struct {
	Verdict  assertions.Verdict
	Warnings []string
	Err      error // FetchFailure, DecodeError or cancellation
}

// Status derives the scenario state from the outcome.
func (o Outcome) Status() Status {
	switch {
	case o.Err != nil:
		return StatusErrored
	case !o.Verdict.OK:
		return StatusFailed
	default:
		return StatusPassed
	}
}

// Warn appends a warning.
func (o Outcome) Warn(msg string) Outcome {
	o.Warnings = append(o.Warnings, msg)
	return o
}

func pass() Outcome {
	return Outcome{Verdict: assertions.Pass()}
}

func verdict(v assertions.Verdict) Outcome {
	return Outcome{Verdict: v}
}

// fromError turns a gateway or walker error into an outcome. Decode errors
// also carry a DecodeError violation so reporters show the code.
func fromError(err error) Outcome {
	var decodeErr *item.DecodeError
	if errors.As(err, &decodeErr) {
		return Outcome{
			Verdict: assertions.Failf(assertions.DecodeError, "", "%v", decodeErr),
			Err:     err,
		}
	}
	if errors.Is(err, walker.ErrCommentMissing) {
		return verdict(assertions.Failf(assertions.MismatchError, "kids[0]", "%v", err))
	}
	return Outcome{Verdict: assertions.Pass(), Err: err}
}

// Env is everything a scenario needs to talk to the upstream.
type Env struct {
	Gateway  *hnapi.Gateway
	Fixtures *fixture.Store // nil disables fixture comparison
	Stats    *stats.Recorder
	Logger   *slog.Logger

	MaxStories    int
	Prefetch      int
	UnknownItemID int64
	MalformedRef  string
}

// Scenario is one named contract check.
type Scenario struct {
	ID   string
	Name string
	Tags []string
	Run  func(ctx context.Context, env *Env) Outcome
}
