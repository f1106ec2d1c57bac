package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fullfuel-tv/internal/httpx"
	"github.com/iliyamo/fullfuel-tv/internal/middleware"
	"github.com/iliyamo/fullfuel-tv/internal/model"
	"github.com/iliyamo/fullfuel-tv/internal/service"
)

// UserDirectory is the part of *repository.UserRepo the profile endpoints
// use.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, u model.User) error
	UpdateRole(ctx context.Context, id uint64, role string) error
}

// UserHandler serves /api/users.  Every route runs behind RequireUser or
// RequireAdmin, so the caller is always in the context.
type UserHandler struct {
	Users   UserDirectory
	Logger  *slog.Logger
	Timeout time.Duration
}

func NewUserHandler(users UserDirectory, log *slog.Logger, timeout time.Duration) *UserHandler {
	return &UserHandler{Users: users, Logger: log, Timeout: timeout}
}

const (
	msgUserNotFound = "User not found"
	msgInvalidID    = "Invalid id"
)

// profileReq holds the editable profile fields.  Absent fields are left
// unchanged.
type profileReq struct {
	Name            *string   `json:"name"`
	Username        *string   `json:"username"`
	Bio             *string   `json:"bio"`
	FavoriteArtists *[]string `json:"favoriteArtists"`
}

type roleReq struct {
	Role string `json:"role"`
}

type usersResp struct {
	Users []model.PublicUser `json:"users"`
}

// Get: GET /api/users/:id
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return httpx.Message(c, http.StatusBadRequest, msgInvalidID)
	}
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return storeError(c, h.Logger, "get user", err, msgUserNotFound)
	}
	return c.JSON(http.StatusOK, userResp{User: u.Public()})
}

// UpdateProfile: PUT /api/users/:id/profile, allowed for the owner of the
// record and for admins.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return httpx.Message(c, http.StatusBadRequest, msgInvalidID)
	}
	caller, _ := middleware.UserFrom(c)
	if caller.ID != id && !caller.IsAdmin() {
		return httpx.Message(c, http.StatusForbidden, "You can only edit your own profile")
	}

	var req profileReq
	if err := c.Bind(&req); err != nil {
		return httpx.Message(c, http.StatusBadRequest, msgInvalidBody)
	}

	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return storeError(c, h.Logger, "get user", err, msgUserNotFound)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return httpx.Message(c, http.StatusBadRequest, "Name cannot be empty")
		}
		u.Name = name
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return httpx.Message(c, http.StatusBadRequest, "Username cannot be empty")
		}
		u.Username = username
	}
	if req.Bio != nil {
		u.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.FavoriteArtists != nil {
		u.FavoriteArtists = cleanList(*req.FavoriteArtists)
	}

	if err := h.Users.UpdateProfile(ctx, u); err != nil {
		return storeError(c, h.Logger, "update profile", err, msgUserNotFound)
	}
	return c.JSON(http.StatusOK, userResp{User: u.Public()})
}

// UpdateRole: PUT /api/users/:id/role, admin only.
func (h *UserHandler) UpdateRole(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return httpx.Message(c, http.StatusBadRequest, msgInvalidID)
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return httpx.Message(c, http.StatusBadRequest, msgInvalidBody)
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !model.ValidRole(role) {
		return httpx.Error(c, service.ErrInvalidInput)
	}

	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()
	if err := h.Users.UpdateRole(ctx, id, role); err != nil {
		return storeError(c, h.Logger, "update role", err, msgUserNotFound)
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return storeError(c, h.Logger, "get user", err, msgUserNotFound)
	}
	return c.JSON(http.StatusOK, userResp{User: u.Public()})
}

// List: GET /api/users, admin only.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := storeCtx(c, h.Timeout)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return storeError(c, h.Logger, "list users", err, msgUserNotFound)
	}
	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return c.JSON(http.StatusOK, usersResp{Users: out})
}

// cleanList trims entries and drops blanks.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
