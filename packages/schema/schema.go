// Package schema holds the JSON Schemas describing each item kind and
// validates raw item payloads against them.
package schema

import (
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/abdul-hamid-achik/hncheck/packages/item"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var files embed.FS

// ErrUnknownKind is returned when no schema exists for the requested kind.
var ErrUnknownKind = errors.New("no schema for item kind")

// FieldError is one schema violation.
type FieldError struct {
	Field       string
	Type        string // gojsonschema error type, e.g. "required", "invalid_type"
	Description string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// Validator keeps one compiled schema per kind.
type Validator struct {
	schemas map[item.Kind]*gojsonschema.Schema
}

// Load compiles the embedded schemas.
func Load() (*Validator, error) {
	v := &Validator{schemas: make(map[item.Kind]*gojsonschema.Schema, len(item.AllKinds))}
	for _, k := range item.AllKinds {
		data, err := files.ReadFile("schemas/" + string(k) + ".json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", k, err)
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", k, err)
		}
		v.schemas[k] = s
	}
	return v, nil
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// Default returns a process-wide validator compiled on first use. The
// schemas are embedded and immutable, so sharing it is safe.
func Default() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = Load()
	})
	return defaultValidator, defaultErr
}

// Validate checks raw against the schema for kind. A nil slice means valid.
func (v *Validator) Validate(raw []byte, kind item.Kind) ([]FieldError, error) {
	s, ok := v.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, FieldError{
			Field:       desc.Field(),
			Type:        desc.Type(),
			Description: desc.Description(),
		})
	}
	return errs, nil
}

// Source returns the raw schema document for kind, for the CLI's docs output.
func Source(kind item.Kind) ([]byte, error) {
	data, err := files.ReadFile("schemas/" + string(kind) + ".json")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return data, nil
}
