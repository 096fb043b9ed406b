package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/lib/pq"

	"github.com/we-be/vibe-chuck/internal/baas"
)

// Records are emitted in the backend's JSON shape so projections cannot tell the
// mirror from the live API.
const recordTimeFormat = "2006-01-02 15:04:05.000Z"

const (
	postColumns = `p.id, p.collection_id, p.title, p.description, p.imgs, p.rank, p.votes,
		p.event, p.op, p.created, p.updated,
		u.id, u.collection_id, u.name, u.username`
	eventColumns = `e.id, e.collection_id, e.display_name, e.starts_at, e.created, e.updated`
)

// Mirror serves reads from the local copy of the backend collections.
// It implements baas.Backend but not baas.Writer.
type Mirror struct {
	db           *sql.DB
	filesBaseURL string
}

// NewMirror creates a mirror backend. File URLs keep pointing at filesBaseURL,
// the backend host that stores the uploads.
func NewMirror(db *sql.DB, filesBaseURL string) *Mirror {
	return &Mirror{db: db, filesBaseURL: filesBaseURL}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// collection describes how to read one collection.
type collection struct {
	table   table
	columns string
	scan    func(row rowScanner, expand []string) (baas.Record, error)
}

func lookupCollection(name string) (collection, error) {
	switch name {
	case baas.CollectionPosts:
		return collection{table: postsTable, columns: postColumns, scan: scanPost}, nil
	case baas.CollectionEvents:
		return collection{table: eventsTable, columns: eventColumns, scan: scanEvent}, nil
	default:
		return collection{}, fmt.Errorf("collection %q is not mirrored: %w", name, baas.ErrNotFound)
	}
}

// List returns one page of matching records and the total match count.
func (m *Mirror) List(ctx context.Context, name string, query baas.ListQuery) (*baas.ListResult, error) {
	coll, err := lookupCollection(name)
	if err != nil {
		return nil, err
	}

	args := &argList{}
	where, err := coll.table.whereClause(query.Filter, args)
	if err != nil {
		return nil, err
	}
	order, err := coll.table.orderClause(query.Sort)
	if err != nil {
		return nil, err
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM " + coll.table.from + where
	if err := m.db.QueryRowContext(ctx, countQuery, args.values...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", name, err)
	}

	page, perPage := normalizeListPage(query.Page, query.PerPage)
	limit := args.add(perPage)
	offset := args.add((page - 1) * perPage)
	selectQuery := "SELECT " + coll.columns + " FROM " + coll.table.from + where + order +
		" LIMIT " + limit + " OFFSET " + offset

	items, err := m.query(ctx, coll, query.Expand, selectQuery, args.values...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", name, err)
	}

	return &baas.ListResult{
		Items:      items,
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages(total, perPage),
	}, nil
}

// GetFullList returns every matching record in sort order.
func (m *Mirror) GetFullList(ctx context.Context, name string, query baas.ListQuery) ([]baas.Record, error) {
	coll, err := lookupCollection(name)
	if err != nil {
		return nil, err
	}

	args := &argList{}
	where, err := coll.table.whereClause(query.Filter, args)
	if err != nil {
		return nil, err
	}
	order, err := coll.table.orderClause(query.Sort)
	if err != nil {
		return nil, err
	}

	selectQuery := "SELECT " + coll.columns + " FROM " + coll.table.from + where + order
	items, err := m.query(ctx, coll, query.Expand, selectQuery, args.values...)
	if err != nil {
		return nil, fmt.Errorf("failed to list all %s: %w", name, err)
	}
	return items, nil
}

// GetOne retrieves a single record by id.
func (m *Mirror) GetOne(ctx context.Context, name string, id string, expand ...string) (baas.Record, error) {
	coll, err := lookupCollection(name)
	if err != nil {
		return nil, err
	}

	selectQuery := "SELECT " + coll.columns + " FROM " + coll.table.from + " WHERE " + coll.table.idColumn + " = $1"
	rec, err := coll.scan(m.db.QueryRowContext(ctx, selectQuery, id), expand)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %q: %w", name, id, baas.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %q: %w", name, id, err)
	}
	return rec, nil
}

// FileURL resolves file references against the backend host.
func (m *Mirror) FileURL(record baas.Record, filename string) string {
	return baas.FileURL(m.filesBaseURL, record, filename)
}

func (m *Mirror) query(ctx context.Context, coll collection, expand []string, query string, args ...any) ([]baas.Record, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	items := []baas.Record{}
	for rows.Next() {
		rec, err := coll.scan(rows, expand)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func scanPost(row rowScanner, expand []string) (baas.Record, error) {
	var (
		id, collectionID, title, description string
		imgs                                 []string
		rank, votes                          int
		event, op                            sql.NullString
		created, updated                     time.Time
		ownerID, ownerCollection             sql.NullString
		ownerName, ownerUsername             sql.NullString
	)
	err := row.Scan(&id, &collectionID, &title, &description, pq.Array(&imgs), &rank, &votes,
		&event, &op, &created, &updated,
		&ownerID, &ownerCollection, &ownerName, &ownerUsername)
	if err != nil {
		return nil, err
	}

	imgList := make([]any, 0, len(imgs))
	for _, img := range imgs {
		imgList = append(imgList, img)
	}

	rec := baas.Record{
		"id":             id,
		"collectionId":   collectionID,
		"collectionName": baas.CollectionPosts,
		"title":          title,
		"description":    description,
		"imgs":           imgList,
		"rank":           float64(rank),
		"votes":          float64(votes),
		"event":          event.String,
		"op":             op.String,
		"created":        formatTime(created),
		"updated":        formatTime(updated),
	}

	if slices.Contains(expand, "op") && ownerID.Valid {
		rec["expand"] = map[string]any{
			"op": map[string]any{
				"id":             ownerID.String,
				"collectionId":   ownerCollection.String,
				"collectionName": baas.CollectionUsers,
				"name":           ownerName.String,
				"username":       ownerUsername.String,
			},
		}
	}

	return rec, nil
}

func scanEvent(row rowScanner, _ []string) (baas.Record, error) {
	var (
		id, collectionID, displayName string
		start                         sql.NullTime
		created, updated              time.Time
	)
	if err := row.Scan(&id, &collectionID, &displayName, &start, &created, &updated); err != nil {
		return nil, err
	}

	startStr := ""
	if start.Valid {
		startStr = formatTime(start.Time)
	}

	return baas.Record{
		"id":             id,
		"collectionId":   collectionID,
		"collectionName": baas.CollectionEvents,
		"displayName":    displayName,
		"start":          startStr,
		"created":        formatTime(created),
		"updated":        formatTime(updated),
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(recordTimeFormat)
}
