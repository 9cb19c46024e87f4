package item

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is wrapped by DecodeError when the payload is valid JSON but
// neither an object nor null.
var ErrNotObject = errors.New("payload is not a JSON object")

// DecodeError reports a payload that could not be turned into an Item.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode item: %v (payload %q)", e.Err, e.Payload)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError builds a DecodeError, truncating the payload for readability.
func NewDecodeError(payload []byte, err error) *DecodeError {
	const max = 120
	p := string(payload)
	if len(p) > max {
		p = p[:max] + "..."
	}
	return &DecodeError{Payload: p, Err: err}
}

// Item is a single upstream record.
type Item struct {
	ID          int64   `json:"id"`
	Kind        Kind    `json:"type"`
	Deleted     *bool   `json:"deleted,omitempty"`
	Dead        *bool   `json:"dead,omitempty"`
	By          *string `json:"by,omitempty"`
	Time        *int64  `json:"time,omitempty"`
	Text        *string `json:"text,omitempty"`
	Title       *string `json:"title,omitempty"`
	URL         *string `json:"url,omitempty"`
	Score       *int    `json:"score,omitempty"`
	Descendants *int    `json:"descendants,omitempty"`
	Parent      *int64  `json:"parent,omitempty"`
	Poll        *int64  `json:"poll,omitempty"`
	Kids        []int64 `json:"kids,omitempty"`
	Parts       []int64 `json:"parts,omitempty"`
}

// Decode parses a single item payload. The literal null yields (nil, nil).
// Unknown fields are ignored and missing optional fields stay nil.
func Decode(raw []byte) (*Item, error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return nil, NewDecodeError(raw, errors.New("invalid JSON"))
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '{' {
		return nil, NewDecodeError(raw, ErrNotObject)
	}

	var it Item
	if err := json.Unmarshal(trimmed, &it); err != nil {
		return nil, NewDecodeError(raw, err)
	}
	return &it, nil
}

// IsDeleted reports whether the deleted flag is present and true.
func (it *Item) IsDeleted() bool {
	return it.Deleted != nil && *it.Deleted
}

// FirstKid returns the first child in display order.
func (it *Item) FirstKid() (int64, bool) {
	if len(it.Kids) == 0 {
		return 0, false
	}
	return it.Kids[0], true
}

// ParentID returns the parent id, or 0 when absent.
func (it *Item) ParentID() int64 {
	if it.Parent == nil {
		return 0
	}
	return *it.Parent
}
