package assertions

import (
	"fmt"
	"strings"
)

// Code classifies a violation. The set is closed.
type Code string

const (
	ShapeError     Code = "ShapeError"
	BoundsError    Code = "BoundsError"
	TypeError      Code = "TypeError"
	DuplicateError Code = "DuplicateError"
	MissingField   Code = "MissingField"
	MismatchError  Code = "MismatchError"
	DecodeError    Code = "DecodeError"
)

func (c Code) String() string {
	return string(c)
}

// Violation is one broken rule.
type Violation struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"` // element or field the violation refers to
}

func (v Violation) String() string {
	if v.Path != "" {
		return fmt.Sprintf("%s at %s: %s", v.Code, v.Path, v.Message)
	}
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// Verdict is the outcome of a validator call.
type Verdict struct {
	OK         bool        `json:"ok"`
	Violations []Violation `json:"violations"`
}

// Pass returns a successful verdict.
func Pass() Verdict {
	return Verdict{OK: true, Violations: []Violation{}}
}

// Failf returns a failed verdict with a single violation.
func Failf(code Code, path, format string, args ...any) Verdict {
	v := Pass()
	v.add(code, path, format, args...)
	return v
}

func (v *Verdict) add(code Code, path, format string, args ...any) {
	v.Violations = append(v.Violations, Violation{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	})
	v.OK = false
}

// Has reports whether any violation carries code.
func (v Verdict) Has(code Code) bool {
	for _, viol := range v.Violations {
		if viol.Code == code {
			return true
		}
	}
	return false
}

// Codes returns the code of each violation, in order.
func (v Verdict) Codes() []Code {
	codes := make([]Code, len(v.Violations))
	for i, viol := range v.Violations {
		codes[i] = viol.Code
	}
	return codes
}

// Merge appends the violations of others to v, preserving order.
func (v Verdict) Merge(others ...Verdict) Verdict {
	out := Verdict{OK: v.OK, Violations: append([]Violation{}, v.Violations...)}
	for _, o := range others {
		out.Violations = append(out.Violations, o.Violations...)
		out.OK = out.OK && o.OK
	}
	return out
}

// Err returns nil for a passing verdict, otherwise a *VerdictError.
func (v Verdict) Err() error {
	if v.OK {
		return nil
	}
	return &VerdictError{Violations: v.Violations}
}

// VerdictError carries every violation of a failed verdict.
type VerdictError struct {
	Violations []Violation
}

func (e *VerdictError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%d contract violation(s): %s", len(e.Violations), strings.Join(parts, "; "))
}
