package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fullfuel-tv/internal/httpx"
	"github.com/iliyamo/fullfuel-tv/internal/model"
)

// ContentStore is the part of *repository.ContentRepo the catalog
// endpoints use.
type ContentStore interface {
	Create(ctx context.Context, c model.Content) (model.Content, error)
	Get(ctx context.Context, kind model.Kind, id string) (model.Content, error)
	List(ctx context.Context, kind model.Kind, limit, offset int) ([]model.Content, error)
	Update(ctx context.Context, c model.Content) (model.Content, error)
	Delete(ctx context.Context, kind model.Kind, id string) error
}

// ContentHandler serves the catalog sections.  Each method returns the
// handler bound to one kind.
type ContentHandler struct {
	Store   ContentStore
	Logger  *slog.Logger
	Timeout time.Duration
}

func NewContentHandler(store ContentStore, log *slog.Logger, timeout time.Duration) *ContentHandler {
	return &ContentHandler{Store: store, Logger: log, Timeout: timeout}
}

const msgContentNotFound = "Content not found"

type contentReq struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	MediaURL     string     `json:"mediaUrl"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	Artist       string     `json:"artist"`
	StartsAt     *time.Time `json:"startsAt"`
}

type listResp struct {
	Items  []model.Content `json:"items"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// bind reads and validates a create/update body.
func (h *ContentHandler) bind(c echo.Context, kind model.Kind) (model.Content, bool, error) {
	var req contentReq
	if err := c.Bind(&req); err != nil {
		return model.Content{}, false, httpx.Message(c, http.StatusBadRequest, msgInvalidBody)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Content{}, false, httpx.Message(c, http.StatusBadRequest, "Title is required")
	}
	item := model.Content{
		Kind:         kind,
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		MediaURL:     strings.TrimSpace(req.MediaURL),
		ThumbnailURL: strings.TrimSpace(req.ThumbnailURL),
		Artist:       strings.TrimSpace(req.Artist),
	}
	if kind == model.KindEvent && req.StartsAt != nil {
		t := req.StartsAt.UTC()
		item.StartsAt = &t
	}
	return item, true, nil
}

// List: GET /api/:collection?limit=&offset=
func (h *ContentHandler) List(kind model.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := page(c)
		ctx, cancel := storeCtx(c, h.Timeout)
		defer cancel()
		items, err := h.Store.List(ctx, kind, limit, offset)
		if err != nil {
			return storeError(c, h.Logger, "list content", err, msgContentNotFound)
		}
		if items == nil {
			items = []model.Content{}
		}
		return c.JSON(http.StatusOK, listResp{Items: items, Limit: limit, Offset: offset})
	}
}

// Get: GET /api/:collection/:id
func (h *ContentHandler) Get(kind model.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := storeCtx(c, h.Timeout)
		defer cancel()
		item, err := h.Store.Get(ctx, kind, c.Param("id"))
		if err != nil {
			return storeError(c, h.Logger, "get content", err, msgContentNotFound)
		}
		return c.JSON(http.StatusOK, item)
	}
}

// Create: POST /api/:collection, admin only.
func (h *ContentHandler) Create(kind model.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		item, ok, err := h.bind(c, kind)
		if !ok {
			return err
		}
		ctx, cancel := storeCtx(c, h.Timeout)
		defer cancel()
		created, err := h.Store.Create(ctx, item)
		if err != nil {
			return storeError(c, h.Logger, "create content", err, msgContentNotFound)
		}
		return c.JSON(http.StatusCreated, created)
	}
}

// Update: PUT /api/:collection/:id, admin only.  The body replaces every
// editable field.
func (h *ContentHandler) Update(kind model.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		item, ok, err := h.bind(c, kind)
		if !ok {
			return err
		}
		item.ID = c.Param("id")
		ctx, cancel := storeCtx(c, h.Timeout)
		defer cancel()
		updated, err := h.Store.Update(ctx, item)
		if err != nil {
			return storeError(c, h.Logger, "update content", err, msgContentNotFound)
		}
		return c.JSON(http.StatusOK, updated)
	}
}

// Delete: DELETE /api/:collection/:id, admin only.
func (h *ContentHandler) Delete(kind model.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := storeCtx(c, h.Timeout)
		defer cancel()
		if err := h.Store.Delete(ctx, kind, c.Param("id")); err != nil {
			return storeError(c, h.Logger, "delete content", err, msgContentNotFound)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
