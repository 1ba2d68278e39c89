package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"melodex/internal/subject"
)

func TestRecordSearchUpsertsAndEvicts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id
		FROM profiles
		WHERE id = $1
		FOR UPDATE
	`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO recent_searches (profile_id, subject_type, subject_id, searched_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (profile_id, subject_type, subject_id)
		DO UPDATE SET searched_at = NOW()
	`)).
		WithArgs(int64(3), "artist", int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`
		DELETE FROM recent_searches
		WHERE profile_id = $1 AND id IN (
			SELECT id
			FROM recent_searches
			WHERE profile_id = $1
			ORDER BY searched_at DESC, id DESC
			OFFSET $2
		)
	`)).
		WithArgs(int64(3), RecentSearchLimit).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.RecordSearch(context.Background(), 3, subject.Ref{Kind: subject.KindArtist, ID: 8}); err != nil {
		t.Fatalf("RecordSearch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSearchProfileMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err = s.RecordSearch(context.Background(), 404, subject.Ref{Kind: subject.KindSong, ID: 1})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordSearchInvalidRef(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)

	err = s.RecordSearch(context.Background(), 3, subject.Ref{Kind: "playlist", ID: 1})
	if !errors.Is(err, subject.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestRecentSearchesNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := New(db, testSecret)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT profile_id, subject_type, subject_id, searched_at
		FROM recent_searches
		WHERE profile_id = $1
		ORDER BY searched_at DESC, id DESC
		LIMIT $2
	`)).
		WithArgs(int64(3), RecentSearchLimit).
		WillReturnRows(sqlmock.NewRows([]string{"profile_id", "subject_type", "subject_id", "searched_at"}).
			AddRow(int64(3), "album", int64(10), now).
			AddRow(int64(3), "artist", int64(8), now.Add(-time.Minute)))

	searches, err := s.RecentSearches(context.Background(), 3)
	if err != nil {
		t.Fatalf("RecentSearches: %v", err)
	}
	if len(searches) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(searches))
	}
	if searches[0].Subject.Kind != subject.KindAlbum {
		t.Fatalf("expected newest entry first, got %#v", searches[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
