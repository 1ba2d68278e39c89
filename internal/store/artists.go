package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrArtistNotFound signals a missing artist record.
var ErrArtistNotFound = errors.New("artist not found")

// Artist models a performer in the local catalog.
type Artist struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Genre         string  `json:"genre"`
	Description   string  `json:"description,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
	SpotifyURI    string  `json:"spotify_uri,omitempty"`
	AverageRating float64 `json:"average_rating"`
}

// DisplayTitle implements subject.Displayable.
func (a Artist) DisplayTitle() string { return a.Name }

// DisplayImage implements subject.Displayable.
func (a Artist) DisplayImage() string { return a.ImageURL }

// DisplayDescription implements subject.Displayable.
func (a Artist) DisplayDescription() string { return a.Description }

const artistColumns = `id, name, genre, COALESCE(description, ''), COALESCE(image_url, ''), COALESCE(spotify_uri, ''), average_rating`

// CreateArtist inserts an artist created through the administrative surface.
func (s *Store) CreateArtist(ctx context.Context, artist Artist) (Artist, error) {
	artist.Name = strings.TrimSpace(artist.Name)
	if artist.Name == "" {
		return Artist{}, fmt.Errorf("artist name is required")
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO artists (name, genre, description, image_url, spotify_uri)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, artist.Name, artist.Genre, nullIfEmpty(artist.Description), nullIfEmpty(artist.ImageURL), nullIfEmpty(artist.SpotifyURI)).Scan(&artist.ID)
	if err != nil {
		return Artist{}, fmt.Errorf("insert artist: %w", err)
	}
	return artist, nil
}

// ArtistByID returns a single artist by its identifier.
func (s *Store) ArtistByID(ctx context.Context, id int64) (Artist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+artistColumns+`
		FROM artists
		WHERE id = $1
	`, id)

	artist, err := scanArtist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artist{}, ErrArtistNotFound
		}
		return Artist{}, err
	}
	return artist, nil
}

// ListArtists returns artists, optionally filtered by a name fragment.
func (s *Store) ListArtists(ctx context.Context, name string) ([]Artist, error) {
	query := `
		SELECT ` + artistColumns + `
		FROM artists
	`
	var args []any
	if name = strings.TrimSpace(name); name != "" {
		args = append(args, "%"+name+"%")
		query += " WHERE name ILIKE $1"
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select artists: %w", err)
	}
	defer rows.Close()

	var artists []Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, artist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artists: %w", err)
	}
	return artists, nil
}

// GetOrCreateArtistByURI atomically resolves an artist keyed by its external
// URI. The insert relies on the unique constraint on spotify_uri: a
// concurrent resolution of the same URI makes the insert a no-op and the
// existing row is fetched instead.
func (s *Store) GetOrCreateArtistByURI(ctx context.Context, artist Artist) (Artist, bool, error) {
	if artist.SpotifyURI == "" {
		return Artist{}, false, fmt.Errorf("artist spotify_uri is required")
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO artists (name, genre, description, image_url, spotify_uri)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (spotify_uri) DO NOTHING
		RETURNING `+artistColumns+`
	`, artist.Name, artist.Genre, nullIfEmpty(artist.Description), nullIfEmpty(artist.ImageURL), artist.SpotifyURI)

	created, err := scanArtist(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Artist{}, false, fmt.Errorf("insert artist: %w", err)
	}

	// Conflict: the row already exists, re-fetch it.
	row = s.db.QueryRowContext(ctx, `
		SELECT `+artistColumns+`
		FROM artists
		WHERE spotify_uri = $1
	`, artist.SpotifyURI)

	existing, err := scanArtist(row)
	if err != nil {
		return Artist{}, false, fmt.Errorf("fetch artist by uri: %w", err)
	}
	return existing, false, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtist(scanner rowScanner) (Artist, error) {
	var a Artist
	if err := scanner.Scan(&a.ID, &a.Name, &a.Genre, &a.Description, &a.ImageURL, &a.SpotifyURI, &a.AverageRating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Artist{}, err
		}
		return Artist{}, fmt.Errorf("scan artist: %w", err)
	}
	return a, nil
}
