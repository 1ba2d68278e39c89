package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// ErrAlbumNotFound signals a missing album record.
var ErrAlbumNotFound = errors.New("album not found")

// Album models a release owned by an artist.
type Album struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	ArtistID      int64     `json:"artist_id"`
	ArtistName    string    `json:"artist_name,omitempty"`
	Genre         string    `json:"genre"`
	ReleaseDate   time.Time `json:"release_date"`
	CoverURL      string    `json:"cover_url,omitempty"`
	TrackCount    int       `json:"track_count,omitempty"`
	SpotifyURI    string    `json:"spotify_uri,omitempty"`
	AverageRating float64   `json:"average_rating"`
}

// DisplayTitle implements subject.Displayable.
func (a Album) DisplayTitle() string { return a.Title }

// DisplayImage implements subject.Displayable.
func (a Album) DisplayImage() string { return a.CoverURL }

// DisplayDescription implements subject.Displayable.
func (a Album) DisplayDescription() string { return a.Genre }

const albumColumns = `id, title, artist_id, genre, release_date, COALESCE(cover_url, ''), COALESCE(track_count, 0), COALESCE(spotify_uri, ''), average_rating`

// AlbumFilter constrains the results returned by ListAlbums.
type AlbumFilter struct {
	Title    string
	Genre    string
	ArtistID int64
}

// CreateAlbum inserts an album created through the administrative surface.
func (s *Store) CreateAlbum(ctx context.Context, album Album) (Album, error) {
	album.Title = strings.TrimSpace(album.Title)
	switch {
	case album.Title == "":
		return Album{}, fmt.Errorf("album title is required")
	case album.ArtistID <= 0:
		return Album{}, fmt.Errorf("album artist is required")
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO albums (title, artist_id, genre, release_date, cover_url, track_count, spotify_uri)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, album.Title, album.ArtistID, album.Genre, album.ReleaseDate, nullIfEmpty(album.CoverURL), album.TrackCount, nullIfEmpty(album.SpotifyURI)).Scan(&album.ID)
	if err != nil {
		return Album{}, fmt.Errorf("insert album: %w", err)
	}
	return album, nil
}

// AlbumByID returns a single album by its identifier.
func (s *Store) AlbumByID(ctx context.Context, id int64) (Album, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+albumColumns+`
		FROM albums
		WHERE id = $1
	`, id)

	album, err := scanAlbum(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, ErrAlbumNotFound
		}
		return Album{}, err
	}
	return album, nil
}

// ListAlbums returns albums matching the provided filter.
func (s *Store) ListAlbums(ctx context.Context, filter AlbumFilter) ([]Album, error) {
	query := `
		SELECT ` + albumColumns + `
		FROM albums
	`

	var (
		clauses []string
		args    []any
	)

	if title := strings.TrimSpace(filter.Title); title != "" {
		args = append(args, "%"+title+"%")
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if genre := strings.TrimSpace(filter.Genre); genre != "" {
		args = append(args, genre)
		clauses = append(clauses, fmt.Sprintf("genre = $%d", len(args)))
	}
	if filter.ArtistID > 0 {
		args = append(args, filter.ArtistID)
		clauses = append(clauses, fmt.Sprintf("artist_id = $%d", len(args)))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY release_date DESC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select albums: %w", err)
	}
	defer rows.Close()

	albums, err := scanAlbumRows(rows)
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}

// RecommendedAlbums returns the highest-rated albums within the given genres.
func (s *Store) RecommendedAlbums(ctx context.Context, genres []string, limit int) ([]Album, error) {
	if len(genres) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+albumColumns+`
		FROM albums
		WHERE genre = ANY($1)
		ORDER BY average_rating DESC, id ASC
		LIMIT $2
	`, pq.Array(genres), limit)
	if err != nil {
		return nil, fmt.Errorf("select recommendations: %w", err)
	}
	defer rows.Close()

	albums, err := scanAlbumRows(rows)
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}
	return albums, nil
}

// GetOrCreateAlbumByURI atomically resolves an album keyed by its external
// URI, following the same conflict-then-refetch pattern as artists.
func (s *Store) GetOrCreateAlbumByURI(ctx context.Context, album Album) (Album, bool, error) {
	if album.SpotifyURI == "" {
		return Album{}, false, fmt.Errorf("album spotify_uri is required")
	}
	if album.ArtistID <= 0 {
		return Album{}, false, fmt.Errorf("album artist is required")
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO albums (title, artist_id, genre, release_date, cover_url, track_count, spotify_uri)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (spotify_uri) DO NOTHING
		RETURNING `+albumColumns+`
	`, album.Title, album.ArtistID, album.Genre, album.ReleaseDate, nullIfEmpty(album.CoverURL), album.TrackCount, album.SpotifyURI)

	created, err := scanAlbum(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Album{}, false, fmt.Errorf("insert album: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT `+albumColumns+`
		FROM albums
		WHERE spotify_uri = $1
	`, album.SpotifyURI)

	existing, err := scanAlbum(row)
	if err != nil {
		return Album{}, false, fmt.Errorf("fetch album by uri: %w", err)
	}
	return existing, false, nil
}

func scanAlbum(scanner rowScanner) (Album, error) {
	var a Album
	if err := scanner.Scan(&a.ID, &a.Title, &a.ArtistID, &a.Genre, &a.ReleaseDate, &a.CoverURL, &a.TrackCount, &a.SpotifyURI, &a.AverageRating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, err
		}
		return Album{}, fmt.Errorf("scan album: %w", err)
	}
	return a, nil
}

func scanAlbumRows(rows *sql.Rows) ([]Album, error) {
	var albums []Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, nil
}
