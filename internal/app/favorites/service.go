package favorites

import (
	"context"

	"melodex/internal/store"
	"melodex/internal/subject"
)

// Store defines persistence operations required for favorites workflows.
type Store interface {
	AddFavorite(ctx context.Context, userID int64, ref subject.Ref) (store.Favorite, error)
	RemoveFavorite(ctx context.Context, userID int64, ref subject.Ref) error
	ListFavorites(ctx context.Context, userID int64, kind subject.Kind) ([]store.Favorite, error)
	UserIDByToken(ctx context.Context, token string) (int64, error)
}

// Service describes favoriting operations used by HTTP handlers.
type Service interface {
	Add(ctx context.Context, token string, ref subject.Ref) (store.Favorite, error)
	Remove(ctx context.Context, token string, ref subject.Ref) error
	List(ctx context.Context, token string, kind subject.Kind) ([]store.Favorite, error)
}

type service struct {
	store Store
}

// New constructs a favorites Service backed by the given store.
func New(st Store) Service {
	return &service{store: st}
}

func (s *service) Add(ctx context.Context, token string, ref subject.Ref) (store.Favorite, error) {
	userID, err := s.store.UserIDByToken(ctx, token)
	if err != nil {
		return store.Favorite{}, err
	}
	return s.store.AddFavorite(ctx, userID, ref)
}

func (s *service) Remove(ctx context.Context, token string, ref subject.Ref) error {
	userID, err := s.store.UserIDByToken(ctx, token)
	if err != nil {
		return err
	}
	return s.store.RemoveFavorite(ctx, userID, ref)
}

func (s *service) List(ctx context.Context, token string, kind subject.Kind) ([]store.Favorite, error) {
	userID, err := s.store.UserIDByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.store.ListFavorites(ctx, userID, kind)
}
