package users

import (
	"context"

	"melodex/internal/store"
)

// Store defines persistence operations required for account workflows.
type Store interface {
	CreateUser(ctx context.Context, username, password string) (int64, error)
	Authenticate(ctx context.Context, username, password string) (string, error)
	UserIDByToken(ctx context.Context, token string) (int64, error)
	ProfileByUser(ctx context.Context, userID int64) (store.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, bio, pictureURL string, genres []string) error
}

// Service describes account and profile operations used by HTTP handlers.
type Service interface {
	Register(ctx context.Context, username, password string) (int64, error)
	Login(ctx context.Context, username, password string) (string, error)
	Profile(ctx context.Context, token string) (store.Profile, error)
	UpdateProfile(ctx context.Context, token, bio, pictureURL string, genres []string) error
}

type service struct {
	store Store
}

// New constructs a users Service backed by the given store.
func New(st Store) Service {
	return &service{store: st}
}

func (s *service) Register(ctx context.Context, username, password string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.store.CreateUser(ctx, username, password)
}

func (s *service) Login(ctx context.Context, username, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.store.Authenticate(ctx, username, password)
}

func (s *service) Profile(ctx context.Context, token string) (store.Profile, error) {
	userID, err := s.store.UserIDByToken(ctx, token)
	if err != nil {
		return store.Profile{}, err
	}
	return s.store.ProfileByUser(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, token, bio, pictureURL string, genres []string) error {
	userID, err := s.store.UserIDByToken(ctx, token)
	if err != nil {
		return err
	}
	return s.store.UpdateProfile(ctx, userID, bio, pictureURL, genres)
}
