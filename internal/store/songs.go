package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrSongNotFound signals a missing song record.
var ErrSongNotFound = errors.New("song not found")

// Song models a track. The album link is optional: songs resolved directly
// from the external catalog always carry one, administrative inserts may not.
type Song struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	ArtistID      int64   `json:"artist_id"`
	AlbumID       *int64  `json:"album_id,omitempty"`
	Duration      int     `json:"duration_seconds"`
	ImageURL      string  `json:"image_url,omitempty"`
	SpotifyURI    string  `json:"spotify_uri,omitempty"`
	AverageRating float64 `json:"average_rating"`
}

// DisplayTitle implements subject.Displayable.
func (s Song) DisplayTitle() string { return s.Title }

// DisplayImage implements subject.Displayable.
func (s Song) DisplayImage() string { return s.ImageURL }

// DisplayDescription implements subject.Displayable.
func (s Song) DisplayDescription() string { return "" }

const songColumns = `id, title, artist_id, album_id, COALESCE(duration_seconds, 0), COALESCE(image_url, ''), COALESCE(spotify_uri, ''), average_rating`

// CreateSong inserts a song created through the administrative surface.
func (s *Store) CreateSong(ctx context.Context, song Song) (Song, error) {
	song.Title = strings.TrimSpace(song.Title)
	switch {
	case song.Title == "":
		return Song{}, fmt.Errorf("song title is required")
	case song.ArtistID <= 0:
		return Song{}, fmt.Errorf("song artist is required")
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO songs (title, artist_id, album_id, duration_seconds, image_url, spotify_uri)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, song.Title, song.ArtistID, song.AlbumID, song.Duration, nullIfEmpty(song.ImageURL), nullIfEmpty(song.SpotifyURI)).Scan(&song.ID)
	if err != nil {
		return Song{}, fmt.Errorf("insert song: %w", err)
	}
	return song, nil
}

// SongByID returns a single song by its identifier.
func (s *Store) SongByID(ctx context.Context, id int64) (Song, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE id = $1
	`, id)

	song, err := scanSong(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Song{}, ErrSongNotFound
		}
		return Song{}, err
	}
	return song, nil
}

// SongsByAlbum lists the songs belonging to an album.
func (s *Store) SongsByAlbum(ctx context.Context, albumID int64) ([]Song, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE album_id = $1
		ORDER BY id ASC
	`, albumID)
	if err != nil {
		return nil, fmt.Errorf("select songs: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

// GetOrCreateSongByURI atomically resolves a song keyed by its external URI.
func (s *Store) GetOrCreateSongByURI(ctx context.Context, song Song) (Song, bool, error) {
	if song.SpotifyURI == "" {
		return Song{}, false, fmt.Errorf("song spotify_uri is required")
	}
	if song.ArtistID <= 0 {
		return Song{}, false, fmt.Errorf("song artist is required")
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO songs (title, artist_id, album_id, duration_seconds, image_url, spotify_uri)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (spotify_uri) DO NOTHING
		RETURNING `+songColumns+`
	`, song.Title, song.ArtistID, song.AlbumID, song.Duration, nullIfEmpty(song.ImageURL), song.SpotifyURI)

	created, err := scanSong(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Song{}, false, fmt.Errorf("insert song: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE spotify_uri = $1
	`, song.SpotifyURI)

	existing, err := scanSong(row)
	if err != nil {
		return Song{}, false, fmt.Errorf("fetch song by uri: %w", err)
	}
	return existing, false, nil
}

func scanSong(scanner rowScanner) (Song, error) {
	var (
		song    Song
		albumID sql.NullInt64
	)
	if err := scanner.Scan(&song.ID, &song.Title, &song.ArtistID, &albumID, &song.Duration, &song.ImageURL, &song.SpotifyURI, &song.AverageRating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Song{}, err
		}
		return Song{}, fmt.Errorf("scan song: %w", err)
	}
	if albumID.Valid {
		song.AlbumID = &albumID.Int64
	}
	return song, nil
}
