package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"melodex/internal/subject"
)

var (
	// ErrInvalidReview indicates validation failure for review data.
	ErrInvalidReview = errors.New("invalid review")
	// ErrReviewNotFound signals a missing review record.
	ErrReviewNotFound = errors.New("review not found")
	// ErrInvalidSubject indicates the subject kind is not allowed for the operation.
	ErrInvalidSubject = errors.New("subject kind not allowed")
)

// Review captures a user's rating and text for an artist, album, or song.
type Review struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Subject   subject.Ref `json:"subject"`
	Rating    float64     `json:"rating"`
	Text      string      `json:"review_text"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SubmitReview stores the user's review of a subject. A repeat submission by
// the same user for the same subject overwrites rating and text on the
// existing row; identity and creation timestamp are preserved. The insert is
// backed by the unique constraint on (user_id, subject_type, subject_id), so
// two concurrent submissions cannot produce two rows.
//
// The subject's average rating is recomputed inside the same transaction.
func (s *Store) SubmitReview(ctx context.Context, userID int64, ref subject.Ref, rating float64, text string) (Review, error) {
	if !ref.Reviewable() {
		return Review{}, fmt.Errorf("%w: cannot review a %s", ErrInvalidSubject, ref.Kind)
	}
	if rating < 0 || rating > 5 {
		return Review{}, fmt.Errorf("%w: rating must be between 0 and 5", ErrInvalidReview)
	}
	// Ratings carry one decimal place.
	rating = math.Round(rating*10) / 10

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Review{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	exists, err := subjectExists(ctx, tx, ref)
	if err != nil {
		return Review{}, err
	}
	if !exists {
		return Review{}, ErrSubjectNotFound
	}

	review := Review{UserID: userID, Subject: ref, Rating: rating, Text: text}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO reviews (user_id, subject_type, subject_id, rating, review_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (user_id, subject_type, subject_id)
		DO UPDATE SET rating = EXCLUDED.rating, review_text = EXCLUDED.review_text, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, userID, ref.Kind, ref.ID, rating, text).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		return Review{}, fmt.Errorf("upsert review: %w", err)
	}

	if err := recomputeAverageRating(ctx, tx, ref); err != nil {
		return Review{}, err
	}

	if err := tx.Commit(); err != nil {
		return Review{}, fmt.Errorf("commit review: %w", err)
	}
	tx = nil

	return review, nil
}

// recomputeAverageRating stores the one-decimal mean of the subject's reviews
// on the subject row. A subject with zero reviews is left untouched: the
// previous average persists. That matters after the last review is deleted —
// the stale value remains observable, which is long-standing behavior callers
// depend on.
func recomputeAverageRating(ctx context.Context, q execQuerier, ref subject.Ref) error {
	var avg sql.NullFloat64
	if err := q.QueryRowContext(ctx, `
		SELECT ROUND(AVG(rating)::numeric, 1)
		FROM reviews
		WHERE subject_type = $1 AND subject_id = $2
	`, ref.Kind, ref.ID).Scan(&avg); err != nil {
		return fmt.Errorf("aggregate ratings: %w", err)
	}
	if !avg.Valid {
		return nil
	}

	table, err := subjectTable(ref.Kind)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET average_rating = $1 WHERE id = $2`, table),
		avg.Float64, ref.ID,
	); err != nil {
		return fmt.Errorf("update average rating: %w", err)
	}
	return nil
}

// ReviewsBySubject lists all reviews attached to a subject, newest first.
func (s *Store) ReviewsBySubject(ctx context.Context, ref subject.Ref) ([]Review, error) {
	if !ref.Reviewable() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSubject, ref.Kind)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, subject_type, subject_id, rating, review_text, created_at, updated_at
		FROM reviews
		WHERE subject_type = $1 AND subject_id = $2
		ORDER BY created_at DESC, id DESC
	`, ref.Kind, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.Subject.Kind, &r.Subject.ID, &r.Rating, &r.Text, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}

// DeleteReview removes a review owned by the user. The subject's average
// rating is deliberately not recomputed here (see recomputeAverageRating).
func (s *Store) DeleteReview(ctx context.Context, userID, reviewID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM reviews
		WHERE id = $1 AND user_id = $2
	`, reviewID, userID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrReviewNotFound
	}
	return nil
}
