package postgres

import (
	"fmt"
	"strings"

	"github.com/we-be/vibe-chuck/internal/baas"
)

const (
	defaultPerPage = 30
	maxPerPage     = 500
)

// table describes how one collection maps onto SQL.
type table struct {
	// from is the FROM clause including any joins used for expansion.
	from string
	// idColumn is the qualified primary key, used as the final sort tiebreak.
	idColumn string
	// sortable maps record field names onto qualified columns.
	sortable map[string]string
	// where translates a filter into predicates and arguments.
	where func(f baas.Filter, args *argList) ([]string, error)
}

type argList struct {
	values []any
}

// add appends v and returns its positional placeholder.
func (a *argList) add(v any) string {
	a.values = append(a.values, v)
	return fmt.Sprintf("$%d", len(a.values))
}

// whereClause renders the filter, or "" when it matches everything.
func (t table) whereClause(f baas.Filter, args *argList) (string, error) {
	if f.IsZero() {
		return "", nil
	}
	preds, err := t.where(f, args)
	if err != nil {
		return "", err
	}
	return " WHERE " + strings.Join(preds, " AND "), nil
}

// orderClause parses a comma separated sort expression such as "-start,created".
// A leading "-" sorts descending. Unknown fields are rejected like the backend does.
func (t table) orderClause(sort string) (string, error) {
	var terms []string
	for _, raw := range strings.Split(sort, ",") {
		field := strings.TrimSpace(raw)
		if field == "" {
			continue
		}
		dir := "ASC"
		switch field[0] {
		case '-':
			dir = "DESC"
			field = field[1:]
		case '+':
			field = field[1:]
		}
		col, ok := t.sortable[field]
		if !ok {
			return "", fmt.Errorf("invalid sort field %q: %w", field, baas.ErrBadRequest)
		}
		terms = append(terms, col+" "+dir)
	}
	terms = append(terms, t.idColumn+" ASC")
	return " ORDER BY " + strings.Join(terms, ", "), nil
}

// normalizeListPage applies the backend's list defaults.
func normalizeListPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

func totalPages(total, perPage int) int {
	if total == 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

var postsTable = table{
	from:     "posts p LEFT JOIN users u ON u.id = p.op",
	idColumn: "p.id",
	sortable: map[string]string{
		"id":      "p.id",
		"rank":    "p.rank",
		"votes":   "p.votes",
		"title":   "p.title",
		"created": "p.created",
		"updated": "p.updated",
	},
	where: func(f baas.Filter, args *argList) ([]string, error) {
		var preds []string
		if f.EventID != "" {
			preds = append(preds, "p.event = "+args.add(f.EventID))
		}
		if f.OwnerID != "" {
			preds = append(preds, "p.op = "+args.add(f.OwnerID))
		}
		if f.RankedOnly {
			preds = append(preds, "p.rank > 0")
		}
		return preds, nil
	},
}

var eventsTable = table{
	from:     "events e",
	idColumn: "e.id",
	sortable: map[string]string{
		"id":          "e.id",
		"start":       "e.starts_at",
		"displayName": "e.display_name",
		"created":     "e.created",
		"updated":     "e.updated",
	},
	where: func(f baas.Filter, _ *argList) ([]string, error) {
		return nil, fmt.Errorf("events cannot be filtered by %q: %w", f.String(), baas.ErrBadRequest)
	},
}
