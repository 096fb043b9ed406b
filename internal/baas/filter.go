package baas

import "strings"

// Filter is the conjunction of predicates this application ever asks for.
// Empty fields are not part of the expression.
type Filter struct {
	// EventID restricts posts to one event: event = "<id>"
	EventID string
	// OwnerID restricts posts to one owner: op = "<id>"
	OwnerID string
	// RankedOnly keeps posts that have been ranked: rank > 0
	RankedOnly bool
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.EventID == "" && f.OwnerID == "" && !f.RankedOnly
}

// String renders the filter in the backend's expression syntax, joining the
// predicates with &&. Values are quoted; embedded quotes and backslashes are escaped.
func (f Filter) String() string {
	var parts []string
	if f.EventID != "" {
		parts = append(parts, "event = "+quote(f.EventID))
	}
	if f.OwnerID != "" {
		parts = append(parts, "op = "+quote(f.OwnerID))
	}
	if f.RankedOnly {
		parts = append(parts, "rank > 0")
	}
	return strings.Join(parts, " && ")
}

var filterEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(v string) string {
	return `"` + filterEscaper.Replace(v) + `"`
}
