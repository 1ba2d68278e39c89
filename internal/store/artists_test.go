package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func artistRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "genre", "description", "image_url", "spotify_uri", "average_rating",
	})
}

func TestGetOrCreateArtistCreates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	mock.ExpectQuery(regexp.QuoteMeta(`
		INSERT INTO artists (name, genre, description, image_url, spotify_uri)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (spotify_uri) DO NOTHING
		RETURNING id, name, genre, COALESCE(description, ''), COALESCE(image_url, ''), COALESCE(spotify_uri, ''), average_rating
	`)).
		WithArgs("Radiohead", "art rock", nil, "http://img", "spotify:artist:abc").
		WillReturnRows(artistRows().AddRow(int64(1), "Radiohead", "art rock", "", "http://img", "spotify:artist:abc", 0.0))

	artist, created, err := s.GetOrCreateArtistByURI(context.Background(), Artist{
		Name:       "Radiohead",
		Genre:      "art rock",
		ImageURL:   "http://img",
		SpotifyURI: "spotify:artist:abc",
	})
	if err != nil {
		t.Fatalf("GetOrCreateArtistByURI: %v", err)
	}
	if !created {
		t.Fatal("expected created=true")
	}
	if artist.ID != 1 {
		t.Fatalf("expected artist ID 1, got %d", artist.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOrCreateArtistConflictRefetches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	// ON CONFLICT DO NOTHING returns no row when the URI already exists.
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO artists`)).
		WithArgs("Radiohead", "art rock", nil, nil, "spotify:artist:abc").
		WillReturnError(sql.ErrNoRows)

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, name, genre, COALESCE(description, ''), COALESCE(image_url, ''), COALESCE(spotify_uri, ''), average_rating
		FROM artists
		WHERE spotify_uri = $1
	`)).
		WithArgs("spotify:artist:abc").
		WillReturnRows(artistRows().AddRow(int64(7), "Radiohead", "art rock", "", "", "spotify:artist:abc", 4.5))

	artist, created, err := s.GetOrCreateArtistByURI(context.Background(), Artist{
		Name:       "Radiohead",
		Genre:      "art rock",
		SpotifyURI: "spotify:artist:abc",
	})
	if err != nil {
		t.Fatalf("GetOrCreateArtistByURI: %v", err)
	}
	if created {
		t.Fatal("expected created=false on conflict")
	}
	if artist.ID != 7 || artist.AverageRating != 4.5 {
		t.Fatalf("unexpected artist: %#v", artist)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOrCreateArtistRequiresURI(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	if _, _, err := s.GetOrCreateArtistByURI(context.Background(), Artist{Name: "No URI"}); err == nil {
		t.Fatal("expected error for missing spotify_uri")
	}
}

func TestArtistByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM artists`)).
		WithArgs(int64(999)).
		WillReturnError(sql.ErrNoRows)

	if _, err := s.ArtistByID(context.Background(), 999); !errors.Is(err, ErrArtistNotFound) {
		t.Fatalf("expected ErrArtistNotFound, got %v", err)
	}
}

func TestListArtistsNameFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE name ILIKE $1 ORDER BY name ASC, id ASC`)).
		WithArgs("%radio%").
		WillReturnRows(artistRows().AddRow(int64(1), "Radiohead", "art rock", "", "", "", 0.0))

	artists, err := s.ListArtists(context.Background(), "radio")
	if err != nil {
		t.Fatalf("ListArtists: %v", err)
	}
	if len(artists) != 1 || artists[0].Name != "Radiohead" {
		t.Fatalf("unexpected artists: %#v", artists)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
