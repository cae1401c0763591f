package engine

import (
	"sort"
	"strings"
)

// ChangedSet holds the identifiers received from change notifications,
// kept sorted and deduplicated. Members are consumed at most once per
// reconciliation pass: a member is spent when it suffix-matches the name
// of a registered sensor that is then rebuilt.
type ChangedSet struct {
	members []string
}

// NewChangedSet builds a set from the given identifiers.
func NewChangedSet(ids ...string) *ChangedSet {
	s := &ChangedSet{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts an identifier, keeping the set sorted and unique.
func (s *ChangedSet) Add(id string) {
	i := sort.SearchStrings(s.members, id)
	if i < len(s.members) && s.members[i] == id {
		return
	}
	s.members = append(s.members, "")
	copy(s.members[i+1:], s.members[i:])
	s.members[i] = id
}

// ConsumeSuffixOf removes and returns the first member that is a suffix
// match for the given sensor name (the member ends with the name, the
// way a record identifier path ends in the object it names).
func (s *ChangedSet) ConsumeSuffixOf(name string) (string, bool) {
	for i, member := range s.members {
		if strings.HasSuffix(member, name) {
			s.members = append(s.members[:i], s.members[i+1:]...)
			return member, true
		}
	}
	return "", false
}

// Len reports the number of unconsumed members.
func (s *ChangedSet) Len() int { return len(s.members) }

// Members returns a copy of the unconsumed identifiers, sorted.
func (s *ChangedSet) Members() []string {
	out := make([]string, len(s.members))
	copy(out, s.members)
	return out
}
