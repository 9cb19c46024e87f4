// Package mock provides a fake upstream that serves the top stories list and
// items from an in-memory seed, with the same quirks as the public API.
package mock

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

//go:embed seed/default.json
var defaultSeed []byte

// Seed is the on-disk form of the upstream data set.
type Seed struct {
	TopStories []int64           `json:"topstories"`
	Items      []json.RawMessage `json:"items"`
	Faults     map[string]int    `json:"faults,omitempty"`
}

// Server is a fake upstream for the item API.
type Server struct {
	router *Router
	port   int
	delay  time.Duration
	prefix string
	logger *slog.Logger

	mu         sync.RWMutex
	topStories []int64
	items      map[int64]json.RawMessage
	faults     map[string]int
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithPrefix mounts all routes under prefix, e.g. "/v0".
func WithPrefix(prefix string) Option {
	return func(s *Server) {
		s.prefix = strings.TrimRight(prefix, "/")
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates an empty fake upstream.
func NewServer(opts ...Option) *Server {
	s := &Server{
		router: NewRouter(),
		port:   3000,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		items:  make(map[int64]json.RawMessage),
		faults: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// NewDefaultServer creates a fake upstream loaded with the built-in seed.
func NewDefaultServer(opts ...Option) (*Server, error) {
	s := NewServer(opts...)
	if err := s.LoadSeed(defaultSeed); err != nil {
		return nil, fmt.Errorf("default seed: %w", err)
	}
	return s, nil
}

func (s *Server) registerRoutes() {
	// ".json" routes first: the suffixless pattern would also match them.
	s.router.AddRoute(&Route{
		Method:      http.MethodGet,
		PathPattern: s.prefix + "/topstories.json",
		Name:        "topstories",
		Handler:     s.handleTopStories,
	})
	s.router.AddRoute(&Route{
		Method:      http.MethodGet,
		PathPattern: s.prefix + "/item/{{ref}}.json",
		Name:        "item",
		Handler:     s.handleItem,
	})
	s.router.AddRoute(&Route{
		Method:      http.MethodGet,
		PathPattern: s.prefix + "/item/{{ref}}",
		Name:        "item-nosuffix",
		Handler:     nullHandler,
	})
}

// LoadSeed replaces the data set with the decoded seed document.
func (s *Server) LoadSeed(data []byte) error {
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}

	items := make(map[int64]json.RawMessage, len(seed.Items))
	for i, raw := range seed.Items {
		var head struct {
			ID *int64 `json:"id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("seed item %d: %w", i, err)
		}
		if head.ID == nil {
			return fmt.Errorf("seed item %d: missing id", i)
		}
		items[*head.ID] = raw
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.topStories = seed.TopStories
	s.items = items
	s.faults = make(map[string]int, len(seed.Faults))
	for path, status := range seed.Faults {
		s.faults[path] = status
	}
	return nil
}

// LoadSeedFile reads a seed document from disk.
func (s *Server) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed %s: %w", path, err)
	}
	return s.LoadSeed(data)
}

// SetTopStories replaces the top stories list.
func (s *Server) SetTopStories(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topStories = append([]int64(nil), ids...)
}

// SetItem stores the raw JSON for id. A nil raw removes the item.
func (s *Server) SetItem(id int64, raw json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw == nil {
		delete(s.items, id)
		return
	}
	s.items[id] = raw
}

// SetFault makes path (without prefix) answer with status and an empty body.
// A zero status clears the fault.
func (s *Server) SetFault(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.faults, path)
		return
	}
	s.faults[path] = status
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	status := s.serve(w, r)
	s.logger.Debug("mock request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"duration", time.Since(start))
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) int {
	s.mu.RLock()
	fault, faulted := s.faults[strings.TrimPrefix(normalizePath(r.URL.Path), s.prefix)]
	s.mu.RUnlock()
	if faulted {
		w.WriteHeader(fault)
		return fault
	}

	route, params := s.router.Match(r.Method, r.URL.Path)
	if route == nil {
		http.NotFound(w, r)
		return http.StatusNotFound
	}

	resp := route.Handler(params, r.URL.Query())
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write([]byte(resp.Body))
	return resp.StatusCode
}

func (s *Server) handleTopStories(_ map[string]string, query map[string][]string) *MockResponse {
	s.mu.RLock()
	ids := append([]int64{}, s.topStories...)
	s.mu.RUnlock()

	body, _ := json.Marshal(ids)
	if isPretty(query) {
		var buf bytes.Buffer
		_ = json.Indent(&buf, body, "", "  ")
		buf.WriteByte('\n')
		body = buf.Bytes()
	}
	return jsonResponse(string(body))
}

func (s *Server) handleItem(params map[string]string, query map[string][]string) *MockResponse {
	id, err := strconv.ParseInt(params["ref"], 10, 64)
	if err != nil {
		return jsonResponse("null")
	}

	s.mu.RLock()
	raw, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return jsonResponse("null")
	}

	if isPretty(query) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err == nil {
			return jsonResponse(buf.String())
		}
	}
	return jsonResponse(string(raw))
}

func nullHandler(map[string]string, map[string][]string) *MockResponse {
	return jsonResponse("null")
}

func jsonResponse(body string) *MockResponse {
	return &MockResponse{
		StatusCode:  http.StatusOK,
		ContentType: "application/json; charset=utf-8",
		Body:        body,
	}
}

func isPretty(query map[string][]string) bool {
	for _, v := range query["print"] {
		if v == "pretty" {
			return true
		}
	}
	return false
}

// Start listens on the configured port until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("mock upstream listening", "addr", ln.Addr().String(), "routes", len(s.router.routes))
	for _, route := range s.router.routes {
		s.logger.Debug("route", "method", route.Method, "path", route.PathPattern, "name", route.Name)
	}

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Routes returns all registered routes
func (s *Server) Routes() []*Route {
	return s.router.routes
}

// ItemIDs returns the seeded item ids in ascending order.
func (s *Server) ItemIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
