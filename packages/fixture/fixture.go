// Package fixture records upstream responses to disk and compares later
// responses against them by shape.
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// Dir is the directory name for storing fixtures
	Dir = "__fixtures__"
	// Ext is the file extension for fixture files
	Ext = ".fixture.json"
)

// ErrNotFound is returned by Load when no fixture with the name exists.
var ErrNotFound = errors.New("fixture not found")

var invalidName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Fixture is one recorded upstream response.
type Fixture struct {
	Name       string          `json:"name"`
	URL        string          `json:"url"`
	StatusCode int             `json:"statusCode"`
	RecordedAt time.Time       `json:"recordedAt"`
	Body       json.RawMessage `json:"body"`
}

// Shape returns the structural skeleton of the body.
func (f *Fixture) Shape() string {
	return Shape(f.Body)
}

// Store keeps fixtures under <baseDir>/__fixtures__.
type Store struct {
	dir        string
	updateMode bool

	mu    sync.Mutex
	cache map[string]*Fixture
}

// NewStore creates a store rooted at baseDir. In update mode Compare
// overwrites missing or mismatched fixtures instead of failing.
func NewStore(baseDir string, updateMode bool) *Store {
	return &Store{
		dir:        filepath.Join(baseDir, Dir),
		updateMode: updateMode,
		cache:      make(map[string]*Fixture),
	}
}

// Dir returns the fixture directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file that holds the fixture called name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, SanitizeName(name)+Ext)
}

// SanitizeName maps name to a safe file stem.
func SanitizeName(name string) string {
	n := strings.Trim(invalidName.ReplaceAllString(name, "_"), "_")
	if n == "" {
		return "unnamed"
	}
	return n
}

// Record writes fx to disk, replacing any previous fixture with the same name.
// A body that is not valid JSON is stored as a JSON string.
func (s *Store) Record(fx *Fixture) error {
	if fx.RecordedAt.IsZero() {
		fx.RecordedAt = time.Now().UTC()
	}
	if len(fx.Body) == 0 || !json.Valid(fx.Body) {
		quoted, _ := json.Marshal(string(fx.Body))
		fx.Body = quoted
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create fixture dir: %w", err)
	}
	data, err := json.MarshalIndent(fx, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(fx.Name), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", fx.Name, err)
	}

	s.mu.Lock()
	s.cache[fx.Name] = fx
	s.mu.Unlock()
	return nil
}

// Load reads the fixture called name.
func (s *Store) Load(name string) (*Fixture, error) {
	s.mu.Lock()
	cached, ok := s.cache[name]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	fx, err := readFixture(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}

	s.mu.Lock()
	s.cache[name] = fx
	s.mu.Unlock()
	return fx, nil
}

// List returns every fixture in the store, sorted by name.
func (s *Store) List() ([]*Fixture, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+Ext))
	if err != nil {
		return nil, err
	}
	fixtures := make([]*Fixture, 0, len(matches))
	for _, path := range matches {
		fx, err := readFixture(path)
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, fx)
	}
	sort.Slice(fixtures, func(i, j int) bool { return fixtures[i].Name < fixtures[j].Name })
	return fixtures, nil
}

func readFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &fx, nil
}

// Result represents the outcome of a fixture comparison.
type Result struct {
	Passed     bool
	Message    string
	Expected   string
	Actual     string
	IsNew      bool
	WasUpdated bool
}

// Compare checks actual against the stored fixture by status and shape.
// Values are allowed to drift; keys and JSON types are not.
func (s *Store) Compare(actual *Fixture) *Result {
	result := &Result{Actual: fmt.Sprintf("%d %s", actual.StatusCode, Shape(actual.Body))}

	expected, err := s.Load(actual.Name)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			result.Message = fmt.Sprintf("failed to load fixture: %v", err)
			return result
		}
		if !s.updateMode {
			result.Message = "fixture does not exist (run with --update-fixtures to create)"
			return result
		}
		if err := s.Record(actual); err != nil {
			result.Message = fmt.Sprintf("failed to save fixture: %v", err)
			return result
		}
		result.Passed = true
		result.IsNew = true
		result.Expected = result.Actual
		result.Message = "new fixture created"
		return result
	}

	result.Expected = fmt.Sprintf("%d %s", expected.StatusCode, expected.Shape())
	if result.Expected == result.Actual {
		result.Passed = true
		return result
	}

	if s.updateMode {
		if err := s.Record(actual); err != nil {
			result.Message = fmt.Sprintf("failed to update fixture: %v", err)
			return result
		}
		result.Passed = true
		result.WasUpdated = true
		result.Message = "fixture updated"
		return result
	}

	result.Message = fmt.Sprintf("fixture mismatch: expected %s, got %s", result.Expected, result.Actual)
	return result
}

// Shape renders the type skeleton of a JSON document: object keys in sorted
// order with their shapes, arrays by the shape of their first element, and
// scalars by type name.
func Shape(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return "invalid"
	}
	return shapeOf(gjson.ParseBytes(raw))
}

func shapeOf(v gjson.Result) string {
	switch {
	case v.IsObject():
		var keys []string
		fields := make(map[string]string)
		v.ForEach(func(k, val gjson.Result) bool {
			keys = append(keys, k.String())
			fields[k.String()] = shapeOf(val)
			return true
		})
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + fields[k]
		}
		return "{" + strings.Join(parts, ",") + "}"
	case v.IsArray():
		elems := v.Array()
		if len(elems) == 0 {
			return "[]"
		}
		return "[" + shapeOf(elems[0]) + "]"
	}

	switch v.Type {
	case gjson.Null:
		return "null"
	case gjson.True, gjson.False:
		return "bool"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	default:
		return "unknown"
	}
}
