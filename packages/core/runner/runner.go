package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abdul-hamid-achik/hncheck/packages/assertions"
	"github.com/abdul-hamid-achik/hncheck/packages/core/config"
	"github.com/abdul-hamid-achik/hncheck/packages/fixture"
	"github.com/abdul-hamid-achik/hncheck/packages/hnapi"
	"github.com/abdul-hamid-achik/hncheck/packages/http"
	"github.com/abdul-hamid-achik/hncheck/packages/stats"
)

const (
	// DefaultConcurrency is the default number of concurrent scenarios in parallel mode
	DefaultConcurrency = 5
)

type Runner struct {
	env       *Env
	config    *Config
	scenarios []Scenario
}

type Config struct {
	NameFilter  string
	TagsFilter  []string
	Parallel    bool
	Concurrency int
	Bail        bool
}

// NewRunner runs scenarios against env. With no scenarios the default
// catalog is used.
func NewRunner(env *Env, cfg *Config, scenarios ...Scenario) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}
	if len(scenarios) == 0 {
		scenarios = Catalog()
	}
	return &Runner{env: env, config: cfg, scenarios: scenarios}
}

// NewEnv builds a scenario environment from the harness configuration. Every
// upstream request is recorded in the returned Env's Stats.
func NewEnv(cfg *config.Config, logger *slog.Logger) (*Env, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rec := stats.NewRecorder()

	clientOpts := []http.ClientOption{
		http.WithRateLimit(cfg.RateLimit, 1),
		http.WithValidateSSL(cfg.GetValidateSSL()),
		http.WithDefaultHeaders(cfg.Headers),
		http.WithObserver(func(req *http.Request, resp *http.Response) {
			rec.ObserveNamed(endpoint(resp.URL), resp.Duration)
		}),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.TimeoutDuration()))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}

	gw, err := hnapi.New(hnapi.Config{BaseURL: cfg.BaseURL},
		hnapi.WithClient(http.NewClient(clientOpts...)),
		hnapi.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	return &Env{
		Gateway:       gw,
		Stats:         rec,
		Logger:        logger,
		MaxStories:    cfg.MaxStories,
		Prefetch:      cfg.Prefetch,
		UnknownItemID: DefaultUnknownItemID,
		MalformedRef:  DefaultMalformedRef,
	}, nil
}

// WithFixtures enables fixture comparison for scenarios that record bodies.
func (e *Env) WithFixtures(store *fixture.Store) *Env {
	e.Fixtures = store
	return e
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Logger
}

// endpoint groups request URLs for latency reporting.
func endpoint(u string) string {
	switch {
	case strings.Contains(u, "/topstories.json"):
		return "topstories"
	case strings.Contains(u, "/item/"):
		return "item"
	default:
		return "other"
	}
}

type RunResult struct {
	StartedAt time.Time
	Results   []*Result
	Duration  time.Duration
	Passed    int
	Failed    int
	Errored   int
	Skipped   int
	Warnings  int
	Latency   stats.Snapshot
	Endpoints map[string]stats.Snapshot
}

// OK reports whether no scenario failed or errored.
func (r *RunResult) OK() bool {
	return r.Failed == 0 && r.Errored == 0
}

// Violations counts violations across all scenarios.
func (r *RunResult) Violations() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Violations)
	}
	return n
}

type Result struct {
	ID         string
	Name       string
	Tags       []string
	Status     Status
	SkipReason string
	Duration   time.Duration
	Violations []assertions.Violation
	Warnings   []string
	Error      error
}

func (r *Runner) Run(ctx context.Context) *RunResult {
	start := time.Now()
	result := &RunResult{StartedAt: start}
	if r.env.Stats != nil {
		r.env.Stats.Reset()
	}

	var selected []Scenario
	for _, sc := range r.scenarios {
		if !r.shouldRun(sc) {
			result.Results = append(result.Results, skipped(sc, "filtered out"))
			result.Skipped++
			continue
		}
		selected = append(selected, sc)
	}

	var results []*Result
	if r.config.Parallel {
		results = r.runParallel(ctx, selected)
	} else {
		results = r.runSequential(ctx, selected)
	}

	for _, res := range results {
		result.Results = append(result.Results, res)
		result.Warnings += len(res.Warnings)
		switch res.Status {
		case StatusPassed:
			result.Passed++
		case StatusFailed:
			result.Failed++
		case StatusErrored:
			result.Errored++
		case StatusSkipped:
			result.Skipped++
		}
	}

	result.Duration = time.Since(start)
	if r.env.Stats != nil {
		result.Latency = r.env.Stats.Snapshot()
		result.Endpoints = r.env.Stats.Named()
	}
	return result
}

func (r *Runner) runSequential(ctx context.Context, scenarios []Scenario) []*Result {
	results := make([]*Result, 0, len(scenarios))
	bailed := false
	for _, sc := range scenarios {
		if bailed {
			results = append(results, skipped(sc, "bail"))
			continue
		}
		res := r.runScenario(ctx, sc)
		results = append(results, res)
		if r.config.Bail && isFailure(res) {
			bailed = true
		}
	}
	return results
}

func (r *Runner) runParallel(ctx context.Context, scenarios []Scenario) []*Result {
	concurrency := r.config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*Result, len(scenarios))
	var wg sync.WaitGroup
	var bailed atomic.Bool
	sem := make(chan struct{}, concurrency)

	for i, sc := range scenarios {
		wg.Add(1)
		sem <- struct{}{} // acquire semaphore

		go func(idx int, sc Scenario) {
			defer wg.Done()
			defer func() { <-sem }() // release semaphore

			if bailed.Load() {
				results[idx] = skipped(sc, "bail")
				return
			}
			res := r.runScenario(ctx, sc)
			if r.config.Bail && isFailure(res) {
				bailed.Store(true)
			}
			results[idx] = res
		}(i, sc)
	}

	wg.Wait()
	return results
}

func (r *Runner) runScenario(ctx context.Context, sc Scenario) (res *Result) {
	res = &Result{ID: sc.ID, Name: sc.Name, Tags: sc.Tags}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		if p := recover(); p != nil {
			res.Status = StatusErrored
			res.Error = fmt.Errorf("scenario %s panicked: %v", sc.ID, p)
		}
		r.env.logger().Debug("scenario finished",
			"id", sc.ID,
			"status", res.Status,
			"violations", len(res.Violations),
			"duration", res.Duration)
	}()

	if err := ctx.Err(); err != nil {
		res.Status = StatusErrored
		res.Error = err
		return res
	}

	out := sc.Run(ctx, r.env)
	res.Status = out.Status()
	res.Violations = out.Verdict.Violations
	res.Warnings = out.Warnings
	res.Error = out.Err
	return res
}

func (r *Runner) shouldRun(sc Scenario) bool {
	if r.config.NameFilter != "" {
		if !matchesPattern(sc.ID, r.config.NameFilter) && !matchesPattern(sc.Name, r.config.NameFilter) {
			return false
		}
	}

	if len(r.config.TagsFilter) > 0 {
		if !hasAnyTag(sc.Tags, r.config.TagsFilter) {
			return false
		}
	}

	return true
}

func skipped(sc Scenario, reason string) *Result {
	return &Result{ID: sc.ID, Name: sc.Name, Tags: sc.Tags, Status: StatusSkipped, SkipReason: reason}
}

func isFailure(res *Result) bool {
	return res.Status == StatusFailed || res.Status == StatusErrored
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if len(pattern) > 1 && pattern[0] == '*' && pattern[len(pattern)-1] == '*' {
		return strings.Contains(name, pattern[1:len(pattern)-1])
	}

	if pattern[0] == '*' {
		return strings.HasSuffix(name, pattern[1:])
	}

	if pattern[len(pattern)-1] == '*' {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}

	return name == pattern
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}
