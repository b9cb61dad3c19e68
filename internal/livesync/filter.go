package livesync

import (
	"fmt"
	"strings"

	"go-aging-risk-dashboard/internal/aging"
)

// FilterState is the operator's search text and status tag selection.
type FilterState struct {
	Query string
	Tags  map[aging.Status]struct{}
}

// NewFilterState builds a state from a query and tags.
func NewFilterState(query string, tags ...aging.Status) FilterState {
	f := FilterState{Query: query, Tags: make(map[aging.Status]struct{}, len(tags))}
	for _, t := range tags {
		f.Tags[t] = struct{}{}
	}
	return f
}

// TrimmedQuery is the query as sent and matched.
func (f FilterState) TrimmedQuery() string {
	return strings.TrimSpace(f.Query)
}

// Empty reports whether neither a query nor a tag is set.
func (f FilterState) Empty() bool {
	return f.TrimmedQuery() == "" && len(f.Tags) == 0
}

// HasTag reports whether s is selected.
func (f FilterState) HasTag(s aging.Status) bool {
	_, ok := f.Tags[s]
	return ok
}

// TagList returns the selected tags in display order.
func (f FilterState) TagList() []aging.Status {
	out := make([]aging.Status, 0, len(f.Tags))
	for _, s := range aging.Statuses {
		if f.HasTag(s) {
			out = append(out, s)
		}
	}
	return out
}

// StatusParam is the comma-joined tag list used on the wire.
func (f FilterState) StatusParam() string {
	return aging.JoinStatuses(f.TagList())
}

// Clone returns a copy that shares nothing with f.
func (f FilterState) Clone() FilterState {
	out := FilterState{Query: f.Query, Tags: make(map[aging.Status]struct{}, len(f.Tags))}
	for t := range f.Tags {
		out.Tags[t] = struct{}{}
	}
	return out
}

// Match applies the server's filter rules to one record: the query must
// match the store id and, when tags are set, any selected status must
// hold capital.
func (f FilterState) Match(r StoreRecord) bool {
	if !aging.MatchStoreQuery(r.ID, f.Query) {
		return false
	}
	if len(f.Tags) == 0 {
		return true
	}
	for t := range f.Tags {
		if r.Aging.Value(t) > 0 {
			return true
		}
	}
	return false
}

// FilterSnapshot filters s locally, preserving order.
func FilterSnapshot(s Snapshot, f FilterState) Snapshot {
	out := make(Snapshot, 0, len(s))
	for _, r := range s {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func filterStatusText(shown, total int, f FilterState) string {
	parts := []string{fmt.Sprintf("Showing %d of %d stores", shown, total)}
	if n := len(f.Tags); n > 0 {
		parts = append(parts, fmt.Sprintf("%d status tags active", n))
	}
	if f.TrimmedQuery() != "" {
		parts = append(parts, "Search active")
	}
	return strings.Join(parts, ". ") + "."
}
