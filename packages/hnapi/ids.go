package hnapi

import (
	"errors"
	"math"

	"github.com/abdul-hamid-achik/hncheck/packages/item"
	"github.com/tidwall/gjson"
)

// ErrNotArray is wrapped by the DecodeError returned for a list payload
// that is valid JSON but not an array.
var ErrNotArray = errors.New("payload is not a JSON array")

// DecodeIDs extracts the integer ids of a list payload in order. Elements
// that are not numbers with an integral value, such as "x" or 2.5, are
// dropped.
func DecodeIDs(body []byte) ([]int64, error) {
	if !gjson.ValidBytes(body) {
		return nil, item.NewDecodeError(body, errors.New("invalid JSON"))
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, item.NewDecodeError(body, ErrNotArray)
	}

	var ids []int64
	parsed.ForEach(func(_, value gjson.Result) bool {
		if value.Type == gjson.Number && value.Num == math.Trunc(value.Num) {
			ids = append(ids, value.Int())
		}
		return true
	})
	return ids, nil
}
