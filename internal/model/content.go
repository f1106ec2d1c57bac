package model

import "time"

// Kind names a section of the media catalog.
type Kind string

const (
	KindVideo   Kind = "video"
	KindMix     Kind = "mix"
	KindEvent   Kind = "event"
	KindGallery Kind = "gallery"
)

// Kinds lists every catalog section in route order.
var Kinds = []Kind{KindVideo, KindMix, KindEvent, KindGallery}

// Valid reports whether k is a known catalog section.
func (k Kind) Valid() bool {
	switch k {
	case KindVideo, KindMix, KindEvent, KindGallery:
		return true
	}
	return false
}

// Content is one catalog entry in the `content_items` table.  StartsAt is
// only meaningful for events.
type Content struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"kind"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	MediaURL     string     `json:"mediaUrl"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	Artist       string     `json:"artist"`
	StartsAt     *time.Time `json:"startsAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Collection is the route segment for k: videos, mixes, events, galleries.
func (k Kind) Collection() string {
	switch k {
	case KindMix:
		return "mixes"
	case KindGallery:
		return "galleries"
	}
	return string(k) + "s"
}
