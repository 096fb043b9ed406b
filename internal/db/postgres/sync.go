package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/we-be/vibe-chuck/internal/baas"
)

// SyncStats summarizes one mirror refresh.
type SyncStats struct {
	Events  int
	Posts   int
	Users   int
	Removed int
}

// Sync copies every event and post visible through source into the mirror, with
// the expanded post owners. Posts that disappeared from the source are removed.
// The refresh runs in one transaction, so readers never see a partial copy.
func Sync(ctx context.Context, db *sql.DB, source baas.Backend) (*SyncStats, error) {
	events, err := source.GetFullList(ctx, baas.CollectionEvents, baas.ListQuery{Sort: "start"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	posts, err := source.GetFullList(ctx, baas.CollectionPosts, baas.ListQuery{Sort: "created", Expand: []string{"op"}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stats := &SyncStats{}

	for _, ev := range events {
		if err := upsertEvent(ctx, tx, ev); err != nil {
			return nil, err
		}
		stats.Events++
	}

	seenUsers := make(map[string]bool)
	postIDs := make([]string, 0, len(posts))
	for _, post := range posts {
		if post.ID() == "" {
			slog.Warn("skipping post without id")
			continue
		}

		if owner, ok := post.Expand("op"); ok && owner.ID() != "" && !seenUsers[owner.ID()] {
			if err := upsertUser(ctx, tx, owner); err != nil {
				return nil, err
			}
			seenUsers[owner.ID()] = true
			stats.Users++
		}
		if err := ensureReferences(ctx, tx, post); err != nil {
			return nil, err
		}
		if err := upsertPost(ctx, tx, post); err != nil {
			return nil, err
		}
		postIDs = append(postIDs, post.ID())
		stats.Posts++
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE NOT (id = ANY($1))`, pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to prune posts: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		stats.Removed = int(n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync: %w", err)
	}
	return stats, nil
}

func upsertEvent(ctx context.Context, tx *sql.Tx, ev baas.Record) error {
	name, _ := ev.String("displayName")
	if name == "" {
		name, _ = ev.String("name")
	}
	var start sql.NullTime
	if t, ok := ev.Time("start"); ok {
		start = sql.NullTime{Time: t, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO events (id, collection_id, display_name, starts_at, created, updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			collection_id = EXCLUDED.collection_id,
			display_name = EXCLUDED.display_name,
			starts_at = EXCLUDED.starts_at,
			updated = EXCLUDED.updated`,
		ev.ID(), collectionIDOr(ev, "pbc_events"), name, start, recordTime(ev, "created"), recordTime(ev, "updated"))
	if err != nil {
		return fmt.Errorf("failed to upsert event %s: %w", ev.ID(), err)
	}
	return nil
}

func upsertUser(ctx context.Context, tx *sql.Tx, user baas.Record) error {
	name, _ := user.String("name")
	username, _ := user.String("username")

	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, collection_id, name, username, created, updated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			collection_id = EXCLUDED.collection_id,
			name = EXCLUDED.name,
			username = EXCLUDED.username,
			updated = EXCLUDED.updated`,
		user.ID(), collectionIDOr(user, "_pb_users_auth_"), name, username, recordTime(user, "created"), recordTime(user, "updated"))
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID(), err)
	}
	return nil
}

// ensureReferences inserts placeholder rows for an event or owner the source did
// not return, e.g. because its collection rules hide it from this viewer.
func ensureReferences(ctx context.Context, tx *sql.Tx, post baas.Record) error {
	if event, _ := post.String("event"); event != "" {
		if _, err := tx.ExecContext(ctx, `INSERT INTO events (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, event); err != nil {
			return fmt.Errorf("failed to reference event %s: %w", event, err)
		}
	}
	if op, _ := post.String("op"); op != "" {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, op); err != nil {
			return fmt.Errorf("failed to reference user %s: %w", op, err)
		}
	}
	return nil
}

func upsertPost(ctx context.Context, tx *sql.Tx, post baas.Record) error {
	title, _ := post.String("title")
	description, _ := post.String("description")
	imgs, _ := post.Strings("imgs")
	if imgs == nil {
		imgs = []string{}
	}
	rank, _ := post.Int("rank")
	votes, _ := post.Int("votes")

	_, err := tx.ExecContext(ctx, `
		INSERT INTO posts (id, collection_id, title, description, imgs, rank, votes, event, op, created, updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			collection_id = EXCLUDED.collection_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			imgs = EXCLUDED.imgs,
			rank = EXCLUDED.rank,
			votes = EXCLUDED.votes,
			event = EXCLUDED.event,
			op = EXCLUDED.op,
			updated = EXCLUDED.updated`,
		post.ID(), collectionIDOr(post, "pbc_posts"), title, description, pq.Array(imgs), rank, votes,
		nullString(post, "event"), nullString(post, "op"), recordTime(post, "created"), recordTime(post, "updated"))
	if err != nil {
		return fmt.Errorf("failed to upsert post %s: %w", post.ID(), err)
	}
	return nil
}

func collectionIDOr(rec baas.Record, fallback string) string {
	if id := rec.CollectionID(); id != "" {
		return id
	}
	return fallback
}

func nullString(rec baas.Record, key string) sql.NullString {
	v, _ := rec.String(key)
	return sql.NullString{String: v, Valid: v != ""}
}

// recordTime falls back to now for records without system timestamps.
func recordTime(rec baas.Record, key string) time.Time {
	if t, ok := rec.Time(key); ok {
		return t
	}
	return time.Now().UTC()
}
