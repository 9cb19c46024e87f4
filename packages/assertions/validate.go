package assertions

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hncheck/packages/item"
	"github.com/abdul-hamid-achik/hncheck/packages/schema"
	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("invalid JSON")

// MaxTopStories is the documented upper bound of the top stories list.
const MaxTopStories = 500

// ValidateTopStories checks a top stories payload. All checks run, so the
// verdict lists every violation rather than the first one.
func ValidateTopStories(payload gjson.Result) Verdict {
	v := Pass()

	if !payload.IsArray() {
		v.add(ShapeError, "", "expected array, got %s", typeName(payload))
		return v
	}

	ids := payload.Array()
	if len(ids) > MaxTopStories {
		v.add(BoundsError, "", "too many stories: %d > %d", len(ids), MaxTopStories)
	}
	if len(ids) == 0 {
		v.add(BoundsError, "", "empty result")
	}

	for i, id := range ids {
		if !isInteger(id) {
			v.add(TypeError, index(i), "non-numeric id: %s", id.Raw)
		}
	}

	seen := make(map[int64]int, len(ids))
	for i, id := range ids {
		if !isInteger(id) {
			continue
		}
		n := id.Int()
		seen[n]++
		if seen[n] == 2 {
			v.add(DuplicateError, index(i), "duplicate id %d", n)
		}
	}

	for i, id := range ids {
		if isInteger(id) && id.Int() <= 0 {
			v.add(BoundsError, index(i), "non-positive id: %d", id.Int())
		}
	}

	return v
}

// ValidateTopStoriesJSON parses raw and validates it. Unparseable input is
// returned as an *item.DecodeError alongside a DecodeError verdict.
func ValidateTopStoriesJSON(raw []byte) (Verdict, error) {
	if !gjson.ValidBytes(raw) {
		return decodeFailure(raw)
	}
	return ValidateTopStories(gjson.ParseBytes(raw)), nil
}

// ValidateItem checks a front page entry: id, kind within kinds, by and title present.
func ValidateItem(it *item.Item, expectedID int64, kinds item.KindSet) Verdict {
	v := Pass()
	if it == nil {
		v.add(ShapeError, "", "item %d is null", expectedID)
		return v
	}

	if it.ID != expectedID {
		v.add(MismatchError, "id", "expected id %d, got %d", expectedID, it.ID)
	}
	if !kinds.Contains(it.Kind) {
		v.add(MismatchError, "type", "expected type %s, got %q", kinds, it.Kind)
	}
	if it.By == nil {
		v.add(MissingField, "by", "item %d has no author", it.ID)
	}
	if it.Title == nil {
		v.add(MissingField, "title", "item %d has no title", it.ID)
	}
	return v
}

// ValidateComment checks a comment's id, kind and parent. by and text are
// required only while the comment is not deleted.
func ValidateComment(it *item.Item, expectedID, expectedParentID int64) Verdict {
	v := Pass()
	if it == nil {
		v.add(ShapeError, "", "comment %d is null", expectedID)
		return v
	}

	if it.ID != expectedID {
		v.add(MismatchError, "id", "expected id %d, got %d", expectedID, it.ID)
	}
	if it.Kind != item.KindComment {
		v.add(MismatchError, "type", "expected type %s, got %q", item.KindComment, it.Kind)
	}
	switch {
	case it.Parent == nil:
		v.add(MissingField, "parent", "comment %d has no parent", it.ID)
	case *it.Parent != expectedParentID:
		v.add(MismatchError, "parent", "expected parent %d, got %d", expectedParentID, *it.Parent)
	}

	if !it.IsDeleted() {
		if it.By == nil {
			v.add(MissingField, "by", "comment %d has no author", it.ID)
		}
		if it.Text == nil {
			v.add(MissingField, "text", "comment %d has no text", it.ID)
		}
	}
	return v
}

// ValidateNullItem passes only for the JSON literal null.
func ValidateNullItem(payload gjson.Result) Verdict {
	v := Pass()
	if strings.TrimSpace(payload.Raw) != "null" {
		v.add(ShapeError, "", "expected null, got %s", typeName(payload))
	}
	return v
}

// ValidateNullItemJSON is ValidateNullItem over raw bytes.
func ValidateNullItemJSON(raw []byte) (Verdict, error) {
	if !gjson.ValidBytes(raw) {
		return decodeFailure(raw)
	}
	return ValidateNullItem(gjson.ParseBytes(raw)), nil
}

// ValidateSchema checks raw against the embedded schema for kind.
func ValidateSchema(raw []byte, kind item.Kind) (Verdict, error) {
	if !gjson.ValidBytes(raw) {
		return decodeFailure(raw)
	}
	validator, err := schema.Default()
	if err != nil {
		return Verdict{}, err
	}
	fieldErrs, err := validator.Validate(raw, kind)
	if err != nil {
		return Verdict{}, err
	}

	v := Pass()
	for _, fe := range fieldErrs {
		switch fe.Type {
		case "required":
			v.add(MissingField, fe.Field, "%s", fe.Description)
		case "invalid_type":
			v.add(TypeError, fe.Field, "%s", fe.Description)
		case "const", "enum":
			v.add(MismatchError, fe.Field, "%s", fe.Description)
		case "number_gte", "number_gt":
			v.add(BoundsError, fe.Field, "%s", fe.Description)
		default:
			v.add(ShapeError, fe.Field, "%s", fe.Description)
		}
	}
	return v, nil
}

func decodeFailure(raw []byte) (Verdict, error) {
	err := item.NewDecodeError(raw, errInvalidJSON)
	v := Pass()
	v.add(DecodeError, "", "%v", err)
	return v, err
}

// isInteger accepts JSON numbers with an integral value, e.g. 7 and 7.0.
func isInteger(r gjson.Result) bool {
	if r.Type != gjson.Number {
		return false
	}
	if _, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
		return true
	}
	return r.Num == math.Trunc(r.Num) && math.Abs(r.Num) < 1<<53
}

func typeName(r gjson.Result) string {
	switch {
	case r.Raw == "":
		return "empty payload"
	case r.IsArray():
		return "array"
	case r.IsObject():
		return "object"
	case r.Type == gjson.Null:
		return "null"
	case r.Type == gjson.True, r.Type == gjson.False:
		return "boolean"
	case r.Type == gjson.Number:
		return "number"
	case r.Type == gjson.String:
		return "string"
	default:
		return r.Type.String()
	}
}

func index(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}
