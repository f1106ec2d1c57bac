package model

import (
	"strings"
	"time"
)

// Roles a user record may carry.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a credential record as stored in the `users` table.
// Every record carries a password hash, including accounts created through
// Google sign-in (those hash a random secret the user never sees).
//
// Fields:
//
//	ID               – primary key identifier, immutable.
//	Name             – display name, embedded in session tokens.
//	Email            – unique email address.
//	Username         – unique handle; derived from the email local part when not given.
//	PasswordHash     – bcrypt hash.
//	Role             – RoleUser or RoleAdmin.
//	Bio              – free-form profile text.
//	FavoriteArtists  – profile list, stored as JSON.
//	PurchasedTickets – ticket references, stored as JSON.
type User struct {
	ID               uint64    // users.id
	Name             string    // users.name
	Email            string    // users.email
	Username         string    // users.username
	PasswordHash     string    // users.password_hash
	Role             string    // users.role
	Bio              string    // users.bio
	FavoriteArtists  []string  // users.favorite_artists
	PurchasedTickets []string  // users.purchased_tickets
	CreatedAt        time.Time // users.created_at
	UpdatedAt        time.Time // users.updated_at
}

// PublicUser is the scrubbed view of a User returned to clients.  It has no
// password field at all.
type PublicUser struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Username         string    `json:"username"`
	Role             string    `json:"role"`
	Bio              string    `json:"bio"`
	FavoriteArtists  []string  `json:"favoriteArtists"`
	PurchasedTickets []string  `json:"purchasedTickets"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Public returns the scrubbed view of u.
func (u User) Public() PublicUser {
	fav := u.FavoriteArtists
	if fav == nil {
		fav = []string{}
	}
	tickets := u.PurchasedTickets
	if tickets == nil {
		tickets = []string{}
	}
	return PublicUser{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Username:         u.Username,
		Role:             u.Role,
		Bio:              u.Bio,
		FavoriteArtists:  fav,
		PurchasedTickets: tickets,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// IsAdmin reports whether the record carries the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// ValidRole reports whether r is a role a record may be assigned.
func ValidRole(r string) bool { return r == RoleUser || r == RoleAdmin }

// UsernameFromEmail returns the local part of an email address (the text
// before the first '@'), or the whole string if there is no '@'.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
