// Package musicapi talks to external music catalog services. The rest of the
// application consumes the Client interface; Spotify is the only provider.
package musicapi

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the external service has no item for the requested id.
	ErrNotFound = errors.New("item not found in external catalog")
	// ErrAuthFailed means token acquisition was rejected. Retryable.
	ErrAuthFailed = errors.New("external catalog authentication failed")
	// ErrUnavailable means the external service errored or timed out. Retryable.
	ErrUnavailable = errors.New("external catalog unavailable")
)

// Artist is an artist as described by the external service.
type Artist struct {
	ExternalID string   `json:"external_id"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
}

// Album is an album as described by the external service.
type Album struct {
	ExternalID  string `json:"external_id"`
	URI         string `json:"uri"`
	Name        string `json:"name"`
	ArtistID    string `json:"artist_id,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
	TrackCount  int    `json:"track_count,omitempty"`
}

// Track is a track as described by the external service.
type Track struct {
	ExternalID    string `json:"external_id"`
	URI           string `json:"uri"`
	Name          string `json:"name"`
	ArtistID      string `json:"artist_id,omitempty"`
	AlbumID       string `json:"album_id,omitempty"`
	DurationMS    int    `json:"duration_ms"`
	AlbumCoverURL string `json:"album_cover_url,omitempty"`
}

// SearchResults groups matches by type.
type SearchResults struct {
	Artists []Artist `json:"artists"`
	Albums  []Album  `json:"albums"`
	Tracks  []Track  `json:"tracks"`
}

// Client defines the operations the catalog resolver and search surface need
// from an external music service.
type Client interface {
	// GetArtist retrieves artist details by external id.
	GetArtist(ctx context.Context, artistID string) (*Artist, error)

	// GetAlbum retrieves album details by external id.
	GetAlbum(ctx context.Context, albumID string) (*Album, error)

	// GetTrack retrieves track details by external id.
	GetTrack(ctx context.Context, trackID string) (*Track, error)

	// ListAlbumTracks enumerates the tracks belonging to an album.
	ListAlbumTracks(ctx context.Context, albumID string) ([]Track, error)

	// Search performs a search limited to one kind ("artist", "album",
	// "track") or across all kinds when kind is empty.
	Search(ctx context.Context, query, kind string, limit int) (*SearchResults, error)
}
