package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/iliyamo/fullfuel-tv/internal/model"
)

// UserRepo is the credential store.  Uniqueness of email and username is
// enforced by the table's unique keys, so two concurrent inserts for the
// same email cannot both succeed.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,username,password_hash,role,bio,favorite_artists,purchased_tickets,created_at,updated_at"

// NormalizeEmail trims and lower-cases an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts u and returns its new ID.  Duplicate keys come back as
// ErrEmailExists or ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	fav, err := encodeList(u.FavoriteArtists)
	if err != nil {
		return 0, err
	}
	tickets, err := encodeList(u.PurchasedTickets)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name,email,username,password_hash,role,bio,favorite_artists,purchased_tickets) VALUES (?,?,?,?,?,?,?,?)",
		u.Name, NormalizeEmail(u.Email), nullString(u.Username), u.PasswordHash, u.Role, u.Bio, fav, tickets)
	if err != nil {
		return 0, duplicateKey(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username)
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateProfile overwrites the mutable profile fields of a user.
func (r *UserRepo) UpdateProfile(ctx context.Context, u model.User) error {
	fav, err := encodeList(u.FavoriteArtists)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, username=?, bio=?, favorite_artists=? WHERE id=?",
		u.Name, nullString(u.Username), u.Bio, fav, u.ID)
	if err != nil {
		return duplicateKey(err)
	}
	return requireRow(res)
}

// UpdateRole sets the role of a user.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

type scanner interface{ Scan(dest ...any) error }

func scanUser(s scanner) (model.User, error) {
	var (
		u                 model.User
		username, bio     sql.NullString
		favRaw, ticketRaw []byte
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &username, &u.PasswordHash, &u.Role, &bio,
		&favRaw, &ticketRaw, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Username = username.String
	u.Bio = bio.String
	if u.FavoriteArtists, err = decodeList(favRaw); err != nil {
		return model.User{}, err
	}
	if u.PurchasedTickets, err = decodeList(ticketRaw); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// encodeList stores a nil list as an empty JSON array.
func encodeList(v []string) ([]byte, error) {
	if v == nil {
		v = []string{}
	}
	return json.Marshal(v)
}

func decodeList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
