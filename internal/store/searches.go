package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"melodex/internal/subject"
)

// RecentSearchLimit caps how many recent-search entries a profile holds.
const RecentSearchLimit = 10

// RecentSearch records that a profile viewed or searched a subject.
type RecentSearch struct {
	ProfileID  int64       `json:"profile_id"`
	Subject    subject.Ref `json:"subject"`
	SearchedAt time.Time   `json:"searched_at"`
}

// RecordSearch notes that the profile touched a subject. An existing
// (profile, subject) entry only has its timestamp refreshed; a new entry may
// push the profile past the cap, in which case the single oldest entry is
// evicted before the transaction commits. The profile row is locked for the
// duration so concurrent records for one profile serialize and the cap holds.
func (s *Store) RecordSearch(ctx context.Context, profileID int64, ref subject.Ref) error {
	if !ref.Valid() {
		return fmt.Errorf("%w: %s", subject.ErrInvalidKind, ref.Kind)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	var locked int64
	err = tx.QueryRowContext(ctx, `
		SELECT id
		FROM profiles
		WHERE id = $1
		FOR UPDATE
	`, profileID).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProfileNotFound
		}
		return fmt.Errorf("lock profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO recent_searches (profile_id, subject_type, subject_id, searched_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (profile_id, subject_type, subject_id)
		DO UPDATE SET searched_at = NOW()
	`, profileID, ref.Kind, ref.ID); err != nil {
		return fmt.Errorf("upsert recent search: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM recent_searches
		WHERE profile_id = $1 AND id IN (
			SELECT id
			FROM recent_searches
			WHERE profile_id = $1
			ORDER BY searched_at DESC, id DESC
			OFFSET $2
		)
	`, profileID, RecentSearchLimit); err != nil {
		return fmt.Errorf("evict recent searches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recent search: %w", err)
	}
	tx = nil

	return nil
}

// RecentSearches lists the profile's entries, most recently touched first.
func (s *Store) RecentSearches(ctx context.Context, profileID int64) ([]RecentSearch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_id, subject_type, subject_id, searched_at
		FROM recent_searches
		WHERE profile_id = $1
		ORDER BY searched_at DESC, id DESC
		LIMIT $2
	`, profileID, RecentSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("select recent searches: %w", err)
	}
	defer rows.Close()

	var searches []RecentSearch
	for rows.Next() {
		var rs RecentSearch
		if err := rows.Scan(&rs.ProfileID, &rs.Subject.Kind, &rs.Subject.ID, &rs.SearchedAt); err != nil {
			return nil, fmt.Errorf("scan recent search: %w", err)
		}
		searches = append(searches, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent searches: %w", err)
	}
	return searches, nil
}
