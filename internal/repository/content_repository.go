package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/fullfuel-tv/internal/model"
)

// ContentRepo stores catalog entries (videos, mixes, events, gallery).
// Every query is scoped by kind so an id from one section never resolves
// in another.
type ContentRepo struct{ DB *sql.DB }

func NewContentRepo(db *sql.DB) *ContentRepo { return &ContentRepo{DB: db} }

const contentColumns = "id,kind,title,description,media_url,thumbnail_url,artist,starts_at,created_at,updated_at"

// Create inserts c, assigning a new UUID when c.ID is empty, and returns the
// stored row.
func (r *ContentRepo) Create(ctx context.Context, c model.Content) (model.Content, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO content_items (id,kind,title,description,media_url,thumbnail_url,artist,starts_at) VALUES (?,?,?,?,?,?,?,?)",
		c.ID, string(c.Kind), c.Title, c.Description, c.MediaURL, c.ThumbnailURL, c.Artist, nullTime(c))
	if err != nil {
		return model.Content{}, err
	}
	return r.Get(ctx, c.Kind, c.ID)
}

// Get fetches one entry of the given kind.
func (r *ContentRepo) Get(ctx context.Context, kind model.Kind, id string) (model.Content, error) {
	c, err := scanContent(r.DB.QueryRowContext(ctx,
		"SELECT "+contentColumns+" FROM content_items WHERE kind=? AND id=? LIMIT 1", string(kind), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Content{}, ErrNotFound
	}
	return c, err
}

// List returns entries of a kind, newest first.
func (r *ContentRepo) List(ctx context.Context, kind model.Kind, limit, offset int) ([]model.Content, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+contentColumns+" FROM content_items WHERE kind=? ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		string(kind), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Content{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update overwrites the editable fields of an existing entry.
func (r *ContentRepo) Update(ctx context.Context, c model.Content) (model.Content, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE content_items SET title=?, description=?, media_url=?, thumbnail_url=?, artist=?, starts_at=? WHERE kind=? AND id=?",
		c.Title, c.Description, c.MediaURL, c.ThumbnailURL, c.Artist, nullTime(c), string(c.Kind), c.ID)
	if err != nil {
		return model.Content{}, err
	}
	if err := requireRow(res); err != nil {
		return model.Content{}, err
	}
	return r.Get(ctx, c.Kind, c.ID)
}

// Delete removes an entry.
func (r *ContentRepo) Delete(ctx context.Context, kind model.Kind, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM content_items WHERE kind=? AND id=?", string(kind), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanContent(s scanner) (model.Content, error) {
	var (
		c        model.Content
		kind     string
		desc     sql.NullString
		startsAt sql.NullTime
	)
	if err := s.Scan(&c.ID, &kind, &c.Title, &desc, &c.MediaURL, &c.ThumbnailURL, &c.Artist,
		&startsAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return model.Content{}, err
	}
	c.Kind = model.Kind(kind)
	c.Description = desc.String
	if startsAt.Valid {
		t := startsAt.Time
		c.StartsAt = &t
	}
	return c, nil
}

func nullTime(c model.Content) sql.NullTime {
	if c.StartsAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: c.StartsAt.UTC(), Valid: true}
}
