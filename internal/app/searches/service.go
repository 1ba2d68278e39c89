// Package searches provides the unified search surface: external catalog
// queries, local profile matching, and the per-profile recent-search list.
package searches

import (
	"context"
	"strings"

	"melodex/internal/musicapi"
	"melodex/internal/store"
	"melodex/internal/subject"
)

// Store defines persistence operations required for search workflows.
type Store interface {
	RecordSearch(ctx context.Context, profileID int64, ref subject.Ref) error
	RecentSearches(ctx context.Context, profileID int64) ([]store.RecentSearch, error)
	SearchProfiles(ctx context.Context, query string, limit int) ([]store.Profile, error)
	UserIDByToken(ctx context.Context, token string) (int64, error)
	ProfileByUser(ctx context.Context, userID int64) (store.Profile, error)
	ProfileByID(ctx context.Context, id int64) (store.Profile, error)
}

// Results groups search matches: catalog hits come from the external
// service, profile hits from the local store.
type Results struct {
	Artists  []musicapi.Artist `json:"artists"`
	Albums   []musicapi.Album  `json:"albums"`
	Tracks   []musicapi.Track  `json:"tracks"`
	Profiles []store.Profile   `json:"profiles"`
}

// Service describes search operations used by HTTP handlers.
type Service interface {
	Search(ctx context.Context, query, kind string, limit int) (*Results, error)
	Record(ctx context.Context, token string, ref subject.Ref) error
	RecordProfile(ctx context.Context, token string, profileID int64) (store.Profile, error)
	Recent(ctx context.Context, token string) ([]store.RecentSearch, error)
}

type service struct {
	store  Store
	client musicapi.Client
}

// New constructs a searches Service over the store and external client.
// A nil client disables external search.
func New(st Store, client musicapi.Client) Service {
	return &service{store: st, client: client}
}

// Search queries one subject kind, or everything when kind is empty. Profile
// search never reaches the external service.
func (s *service) Search(ctx context.Context, query, kind string, limit int) (*Results, error) {
	results := &Results{
		Artists:  []musicapi.Artist{},
		Albums:   []musicapi.Album{},
		Tracks:   []musicapi.Track{},
		Profiles: []store.Profile{},
	}

	kind = strings.ToLower(strings.TrimSpace(kind))

	if kind == "" || kind == string(subject.KindProfile) {
		profiles, err := s.store.SearchProfiles(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		if profiles != nil {
			results.Profiles = profiles
		}
		if kind == string(subject.KindProfile) {
			return results, nil
		}
	}

	if s.client == nil {
		return results, nil
	}

	external, err := s.client.Search(ctx, query, kind, limit)
	if err != nil {
		return nil, err
	}
	results.Artists = external.Artists
	results.Albums = external.Albums
	results.Tracks = external.Tracks

	return results, nil
}

func (s *service) Record(ctx context.Context, token string, ref subject.Ref) error {
	profile, err := s.callerProfile(ctx, token)
	if err != nil {
		return err
	}
	return s.store.RecordSearch(ctx, profile.ID, ref)
}

// RecordProfile adds a local profile to the caller's recent searches.
// Profiles live only in this store, so no external resolution is involved;
// the target must already exist.
func (s *service) RecordProfile(ctx context.Context, token string, profileID int64) (store.Profile, error) {
	target, err := s.store.ProfileByID(ctx, profileID)
	if err != nil {
		return store.Profile{}, err
	}

	caller, err := s.callerProfile(ctx, token)
	if err != nil {
		return store.Profile{}, err
	}

	ref := subject.Ref{Kind: subject.KindProfile, ID: target.ID}
	if err := s.store.RecordSearch(ctx, caller.ID, ref); err != nil {
		return store.Profile{}, err
	}
	return target, nil
}

func (s *service) Recent(ctx context.Context, token string) ([]store.RecentSearch, error) {
	profile, err := s.callerProfile(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.store.RecentSearches(ctx, profile.ID)
}

func (s *service) callerProfile(ctx context.Context, token string) (store.Profile, error) {
	userID, err := s.store.UserIDByToken(ctx, token)
	if err != nil {
		return store.Profile{}, err
	}
	return s.store.ProfileByUser(ctx, userID)
}
