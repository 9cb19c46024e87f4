package item

import (
	"sort"
	"strings"
)

// Kind is the item type reported in the "type" field.
type Kind string

const (
	KindStory   Kind = "story"
	KindComment Kind = "comment"
	KindJob     Kind = "job"
	KindPoll    Kind = "poll"
	KindPollOpt Kind = "pollopt"
)

// AllKinds lists the closed set of kinds in declaration order.
var AllKinds = []Kind{KindStory, KindComment, KindJob, KindPoll, KindPollOpt}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a wire value into a Kind. The second result is false
// when the value is outside the closed set.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.TrimSpace(s))
	return k, k.Valid()
}

// KindSet is a set of acceptable kinds, e.g. {story, job} for a front page entry.
type KindSet map[Kind]struct{}

func NewKindSet(kinds ...Kind) KindSet {
	set := make(KindSet, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set
}

func (s KindSet) Contains(k Kind) bool {
	_, ok := s[k]
	return ok
}

// String renders the set as "job|story", sorted for stable messages.
func (s KindSet) String() string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}
