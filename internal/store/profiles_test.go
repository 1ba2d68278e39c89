package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestProfileByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	mock.ExpectQuery(regexp.QuoteMeta(`
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
	`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "username", "bio", "display_picture_url", "favorite_genres",
		}).AddRow(int64(3), int64(42), "alice", "hi", "", pq.Array([]string{"rock", "jazz"})))

	profile, err := s.ProfileByUser(context.Background(), 42)
	if err != nil {
		t.Fatalf("ProfileByUser: %v", err)
	}
	if profile.ID != 3 || profile.Username != "alice" {
		t.Fatalf("unexpected profile: %#v", profile)
	}
	if len(profile.FavoriteGenres) != 2 {
		t.Fatalf("unexpected genres: %#v", profile.FavoriteGenres)
	}
}

func TestUpdateProfileNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	mock.ExpectExec(regexp.QuoteMeta(`
		UPDATE profiles
		SET bio = $2, display_picture_url = $3, favorite_genres = $4
		WHERE user_id = $1
	`)).
		WithArgs(int64(404), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.UpdateProfile(context.Background(), 404, "bio", "", []string{"rock"})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestSearchProfilesEmptyQuery(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	profiles, err := s.SearchProfiles(context.Background(), "   ", 10)
	if err != nil {
		t.Fatalf("SearchProfiles: %v", err)
	}
	if profiles != nil {
		t.Fatalf("expected no profiles for blank query, got %#v", profiles)
	}
}

func TestSearchProfilesMatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE u.username ILIKE $1`)).
		WithArgs("%ali%", 5).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "username", "bio", "display_picture_url", "favorite_genres",
		}).AddRow(int64(3), int64(42), "alice", "", "", pq.Array([]string{})))

	profiles, err := s.SearchProfiles(context.Background(), "ali", 5)
	if err != nil {
		t.Fatalf("SearchProfiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Username != "alice" {
		t.Fatalf("unexpected profiles: %#v", profiles)
	}
}
