package reviews

import (
	"context"

	"melodex/internal/store"
	"melodex/internal/subject"
)

// Store defines persistence operations required for review workflows.
type Store interface {
	SubmitReview(ctx context.Context, userID int64, ref subject.Ref, rating float64, text string) (store.Review, error)
	ReviewsBySubject(ctx context.Context, ref subject.Ref) ([]store.Review, error)
	DeleteReview(ctx context.Context, userID, reviewID int64) error
	UserIDByToken(ctx context.Context, token string) (int64, error)
}

// Service describes review operations used by HTTP handlers.
type Service interface {
	Submit(ctx context.Context, token string, ref subject.Ref, rating float64, text string) (store.Review, error)
	BySubject(ctx context.Context, ref subject.Ref) ([]store.Review, error)
	Delete(ctx context.Context, token string, reviewID int64) error
}

type service struct {
	store Store
}

// New constructs a reviews Service backed by the given store.
func New(st Store) Service {
	return &service{store: st}
}

func (s *service) Submit(ctx context.Context, token string, ref subject.Ref, rating float64, text string) (store.Review, error) {
	userID, err := s.store.UserIDByToken(ctx, token)
	if err != nil {
		return store.Review{}, err
	}
	return s.store.SubmitReview(ctx, userID, ref, rating, text)
}

func (s *service) BySubject(ctx context.Context, ref subject.Ref) ([]store.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ReviewsBySubject(ctx, ref)
}

func (s *service) Delete(ctx context.Context, token string, reviewID int64) error {
	userID, err := s.store.UserIDByToken(ctx, token)
	if err != nil {
		return err
	}
	return s.store.DeleteReview(ctx, userID, reviewID)
}
