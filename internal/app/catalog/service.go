package catalog

import (
	"context"

	"melodex/internal/store"
)

// Store defines persistence operations required for catalog workflows.
type Store interface {
	ListArtists(ctx context.Context, name string) ([]store.Artist, error)
	ArtistByID(ctx context.Context, id int64) (store.Artist, error)
	ListAlbums(ctx context.Context, filter store.AlbumFilter) ([]store.Album, error)
	AlbumByID(ctx context.Context, id int64) (store.Album, error)
	SongByID(ctx context.Context, id int64) (store.Song, error)
	SongsByAlbum(ctx context.Context, albumID int64) ([]store.Song, error)
	RecommendedAlbums(ctx context.Context, genres []string, limit int) ([]store.Album, error)
	UserIDByToken(ctx context.Context, token string) (int64, error)
	ProfileByUser(ctx context.Context, userID int64) (store.Profile, error)
}

// Service describes read-side catalog operations used by HTTP handlers.
type Service interface {
	Artists(ctx context.Context, name string) ([]store.Artist, error)
	Artist(ctx context.Context, id int64) (store.Artist, error)
	Albums(ctx context.Context, filter store.AlbumFilter) ([]store.Album, error)
	Album(ctx context.Context, id int64) (store.Album, error)
	Song(ctx context.Context, id int64) (store.Song, error)
	AlbumSongs(ctx context.Context, albumID int64) ([]store.Song, error)
	Recommendations(ctx context.Context, token string) ([]store.Album, error)
}

type service struct {
	store Store
}

// New constructs a catalog Service backed by the given store.
func New(st Store) Service {
	return &service{store: st}
}

func (s *service) Artists(ctx context.Context, name string) ([]store.Artist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListArtists(ctx, name)
}

func (s *service) Artist(ctx context.Context, id int64) (store.Artist, error) {
	return s.store.ArtistByID(ctx, id)
}

func (s *service) Albums(ctx context.Context, filter store.AlbumFilter) ([]store.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListAlbums(ctx, filter)
}

func (s *service) Album(ctx context.Context, id int64) (store.Album, error) {
	return s.store.AlbumByID(ctx, id)
}

func (s *service) Song(ctx context.Context, id int64) (store.Song, error) {
	return s.store.SongByID(ctx, id)
}

func (s *service) AlbumSongs(ctx context.Context, albumID int64) ([]store.Song, error) {
	return s.store.SongsByAlbum(ctx, albumID)
}

// Recommendations surfaces the top-rated albums in the caller's favorite
// genres.
func (s *service) Recommendations(ctx context.Context, token string) ([]store.Album, error) {
	userID, err := s.store.UserIDByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	profile, err := s.store.ProfileByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.store.RecommendedAlbums(ctx, profile.FavoriteGenres, 10)
}
