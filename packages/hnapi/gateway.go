// Package hnapi is the fetch gateway for the upstream content API.
//
// It turns HTTP exchanges into raw payloads or decoded items and keeps two
// outcomes apart: a transport or status failure (*FetchFailure) and an
// absent item (nil *item.Item with a nil error).
package hnapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hncheck/packages/http"
	"github.com/abdul-hamid-achik/hncheck/packages/item"
)

// DefaultBaseURL is the public upstream.
const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

// FetchFailure is a transport error or a non-2xx response.
type FetchFailure struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchFailure) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchFailure) Unwrap() error {
	return e.Err
}

// Config selects the upstream and transport limits.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 means unlimited
	Proxy     string
	Insecure  bool
}

// Gateway fetches top stories and items.
type Gateway struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Option configures a Gateway.
type Option func(*gatewayOptions)

type gatewayOptions struct {
	logger    *slog.Logger
	observers []http.Observer
	client    *http.Client
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *gatewayOptions) {
		o.logger = l
	}
}

// WithObserver is notified of every round trip, e.g. to record latencies.
func WithObserver(fn http.Observer) Option {
	return func(o *gatewayOptions) {
		o.observers = append(o.observers, fn)
	}
}

// WithClient replaces the transport entirely; Config transport fields are then ignored.
func WithClient(c *http.Client) Option {
	return func(o *gatewayOptions) {
		o.client = c
	}
}

// New validates cfg and builds a Gateway.
func New(cfg Config, opts ...Option) (*Gateway, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if err := http.ValidateURL(base); err != nil {
		return nil, fmt.Errorf("base URL %q: %w", base, err)
	}

	o := gatewayOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	client := o.client
	if client == nil {
		clientOpts := []http.ClientOption{
			http.WithRateLimit(cfg.RateLimit, 1),
			http.WithValidateSSL(!cfg.Insecure),
		}
		if cfg.Timeout > 0 {
			clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
		}
		if cfg.Proxy != "" {
			clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
		}
		for _, obs := range o.observers {
			clientOpts = append(clientOpts, http.WithObserver(obs))
		}
		client = http.NewClient(clientOpts...)
	}

	return &Gateway{baseURL: base, client: client, logger: o.logger}, nil
}

// BaseURL returns the normalized upstream base.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// TopStoriesURL builds the top stories endpoint.
func (g *Gateway) TopStoriesURL(pretty bool) string {
	u := g.baseURL + "/topstories.json"
	if pretty {
		u += "?print=pretty"
	}
	return u
}

// ItemURL builds the item endpoint for ref. ref is not required to be numeric,
// and suffix=false drops the ".json" extension.
func (g *Gateway) ItemURL(ref string, suffix bool) string {
	u := g.baseURL + "/item/" + url.PathEscape(ref)
	if suffix {
		u += ".json"
	}
	return u
}

// FetchTopStories returns the raw top stories body.
func (g *Gateway) FetchTopStories(ctx context.Context, pretty bool) ([]byte, error) {
	resp, err := g.get(ctx, g.TopStoriesURL(pretty), nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// FetchTopStoriesWithQuery appends arbitrary query parameters, which the
// upstream is expected to ignore.
func (g *Gateway) FetchTopStoriesWithQuery(ctx context.Context, query url.Values) ([]byte, error) {
	resp, err := g.get(ctx, g.TopStoriesURL(false), query)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// TopStoryIDs fetches and decodes the top stories list. Elements that are
// not integers are dropped; validate the raw body first when that matters.
func (g *Gateway) TopStoryIDs(ctx context.Context) ([]int64, error) {
	body, err := g.FetchTopStories(ctx, false)
	if err != nil {
		return nil, err
	}
	return DecodeIDs(body)
}

// FetchItem returns the item for id, or nil when the upstream answers null.
func (g *Gateway) FetchItem(ctx context.Context, id int64) (*item.Item, error) {
	resp, err := g.get(ctx, g.ItemURL(strconv.FormatInt(id, 10), true), nil)
	if err != nil {
		return nil, err
	}
	if resp.IsNullBody() {
		return nil, nil
	}
	it, err := item.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("item %d: %w", id, err)
	}
	return it, nil
}

// FetchItemRaw returns the full response for any ref, including
// non-numeric ones and requests without the ".json" suffix.
func (g *Gateway) FetchItemRaw(ctx context.Context, ref string, suffix bool) (*http.Response, error) {
	return g.get(ctx, g.ItemURL(ref, suffix), nil)
}

func (g *Gateway) get(ctx context.Context, target string, query url.Values) (*http.Response, error) {
	req := http.NewRequest("GET", target)
	if query != nil {
		req.AddQueryParams(query)
	}

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		g.logger.Debug("fetch failed", "url", target, "error", err)
		return nil, &FetchFailure{URL: req.BuildURL(), Err: err}
	}
	g.logger.Debug("fetched", "url", resp.URL, "status", resp.StatusCode, "duration", resp.Duration)

	if !resp.IsSuccess() {
		return nil, &FetchFailure{
			URL:        resp.URL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", resp.Status),
		}
	}
	return resp, nil
}
