package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"melodex/internal/subject"
)

var (
	// ErrFavoriteAlreadyExists signals the (user, subject) pair is already favorited.
	// Favorites fail on duplicates; reviews upsert. The asymmetry is deliberate.
	ErrFavoriteAlreadyExists = errors.New("favorite already exists")
	// ErrFavoriteNotFound signals a missing favorite record.
	ErrFavoriteNotFound = errors.New("favorite not found")
)

// Favorite marks a subject a user has saved. Immutable once created.
type Favorite struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Subject   subject.Ref `json:"subject"`
	CreatedAt time.Time   `json:"created_at"`
}

// AddFavorite saves a subject for the user. A duplicate (user, subject) pair
// is a conflict, surfaced as ErrFavoriteAlreadyExists via the unique
// constraint rather than a pre-read, so concurrent inserts race safely.
func (s *Store) AddFavorite(ctx context.Context, userID int64, ref subject.Ref) (Favorite, error) {
	if !ref.Reviewable() {
		return Favorite{}, fmt.Errorf("%w: cannot favorite a %s", ErrInvalidSubject, ref.Kind)
	}

	exists, err := subjectExists(ctx, s.db, ref)
	if err != nil {
		return Favorite{}, err
	}
	if !exists {
		return Favorite{}, ErrSubjectNotFound
	}

	fav := Favorite{UserID: userID, Subject: ref}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO favorites (user_id, subject_type, subject_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, userID, ref.Kind, ref.ID).Scan(&fav.ID, &fav.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Favorite{}, ErrFavoriteAlreadyExists
		}
		return Favorite{}, fmt.Errorf("insert favorite: %w", err)
	}
	return fav, nil
}

// ListFavorites returns the user's favorites, optionally restricted to one
// subject kind, newest first.
func (s *Store) ListFavorites(ctx context.Context, userID int64, kind subject.Kind) ([]Favorite, error) {
	query := `
		SELECT id, user_id, subject_type, subject_id, created_at
		FROM favorites
		WHERE user_id = $1
	`
	args := []any{userID}
	if kind != "" {
		args = append(args, kind)
		query += fmt.Sprintf(" AND subject_type = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select favorites: %w", err)
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.Subject.Kind, &f.Subject.ID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return favorites, nil
}

// RemoveFavorite deletes one of the user's favorites.
func (s *Store) RemoveFavorite(ctx context.Context, userID int64, ref subject.Ref) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM favorites
		WHERE user_id = $1 AND subject_type = $2 AND subject_id = $3
	`, userID, ref.Kind, ref.ID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}
