// Package resolver materializes external catalog references as local
// Artist/Album/Song rows, creating dependencies as needed.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"melodex/internal/musicapi"
	"melodex/internal/store"
	"melodex/internal/subject"
)

var (
	// ErrNotFoundExternal means the external service has no item for the id;
	// the resolution (and anything depending on it) aborts.
	ErrNotFoundExternal = errors.New("external item not found")
	// ErrDepthExceeded means the external data implied a deeper dependency
	// chain than artist <- album <- song, which only malformed responses do.
	ErrDepthExceeded = errors.New("resolution depth exceeded")
)

// A resolution tree is at most song -> album -> artist.
const maxResolveDepth = 3

// Store is the persistence surface the resolver needs: atomic get-or-create
// keyed by external URI for each entity kind.
type Store interface {
	GetOrCreateArtistByURI(ctx context.Context, artist store.Artist) (store.Artist, bool, error)
	GetOrCreateAlbumByURI(ctx context.Context, album store.Album) (store.Album, bool, error)
	GetOrCreateSongByURI(ctx context.Context, song store.Song) (store.Song, bool, error)
}

// Resolved is the outcome of a resolution: the local reference plus the
// entity behind it.
type Resolved struct {
	Ref    subject.Ref         `json:"ref"`
	Entity subject.Displayable `json:"entity"`
}

// Resolver turns external identifiers into local catalog rows.
type Resolver struct {
	store  Store
	client musicapi.Client
	group  singleflight.Group
	log    zerolog.Logger
}

// New builds a Resolver over the given store and external client.
func New(st Store, client musicapi.Client, log zerolog.Logger) *Resolver {
	return &Resolver{store: st, client: client, log: log}
}

// resolution is the call-scoped state of one Resolve tree: entities already
// resolved in this tree are memoized by URI so a song's album and artist are
// fetched and written once each.
type resolution struct {
	artists map[string]store.Artist
	albums  map[string]store.Album
}

// Resolve materializes the external item (and its dependencies) locally and
// returns its reference. Repeated and concurrent calls for the same id are
// safe: in-process duplicates coalesce, and the store's unique constraint on
// the external URI guarantees a single row across processes.
func (r *Resolver) Resolve(ctx context.Context, kind subject.Kind, externalID string) (Resolved, error) {
	if r.client == nil {
		return Resolved{}, musicapi.ErrUnavailable
	}

	id := bareID(externalID)
	key := string(kind) + ":" + id

	v, err, _ := r.group.Do(key, func() (any, error) {
		state := &resolution{
			artists: make(map[string]store.Artist),
			albums:  make(map[string]store.Album),
		}

		switch kind {
		case subject.KindArtist:
			artist, err := r.resolveArtist(ctx, state, id, 1)
			if err != nil {
				return Resolved{}, err
			}
			return Resolved{Ref: subject.Ref{Kind: subject.KindArtist, ID: artist.ID}, Entity: artist}, nil
		case subject.KindAlbum:
			album, err := r.resolveAlbum(ctx, state, id, 1)
			if err != nil {
				return Resolved{}, err
			}
			return Resolved{Ref: subject.Ref{Kind: subject.KindAlbum, ID: album.ID}, Entity: album}, nil
		case subject.KindSong:
			song, err := r.resolveSong(ctx, state, id, 1)
			if err != nil {
				return Resolved{}, err
			}
			return Resolved{Ref: subject.Ref{Kind: subject.KindSong, ID: song.ID}, Entity: song}, nil
		default:
			return Resolved{}, fmt.Errorf("%w: cannot resolve a %s", subject.ErrInvalidKind, kind)
		}
	})
	if err != nil {
		return Resolved{}, err
	}
	return v.(Resolved), nil
}

func (r *Resolver) resolveArtist(ctx context.Context, state *resolution, id string, depth int) (store.Artist, error) {
	if depth > maxResolveDepth {
		return store.Artist{}, ErrDepthExceeded
	}

	uri := spotifyURI("artist", id)
	if artist, ok := state.artists[uri]; ok {
		return artist, nil
	}

	ext, err := r.client.GetArtist(ctx, id)
	if err != nil {
		return store.Artist{}, wrapLookup("artist", id, err)
	}

	genre := ""
	if len(ext.Genres) > 0 {
		genre = ext.Genres[0]
	}

	artist, _, err := r.store.GetOrCreateArtistByURI(ctx, store.Artist{
		Name:       ext.Name,
		Genre:      genre,
		ImageURL:   ext.ImageURL,
		SpotifyURI: uri,
	})
	if err != nil {
		return store.Artist{}, fmt.Errorf("resolve artist %s: %w", id, err)
	}

	state.artists[uri] = artist
	return artist, nil
}

func (r *Resolver) resolveAlbum(ctx context.Context, state *resolution, id string, depth int) (store.Album, error) {
	if depth > maxResolveDepth {
		return store.Album{}, ErrDepthExceeded
	}

	uri := spotifyURI("album", id)
	if album, ok := state.albums[uri]; ok {
		return album, nil
	}

	ext, err := r.client.GetAlbum(ctx, id)
	if err != nil {
		return store.Album{}, wrapLookup("album", id, err)
	}
	if ext.ArtistID == "" {
		return store.Album{}, fmt.Errorf("album %s: external data carries no artist", id)
	}

	artist, err := r.resolveArtist(ctx, state, bareID(ext.ArtistID), depth+1)
	if err != nil {
		return store.Album{}, err
	}

	album, created, err := r.store.GetOrCreateAlbumByURI(ctx, store.Album{
		Title:       ext.Name,
		ArtistID:    artist.ID,
		Genre:       artist.Genre, // the external album object carries none
		ReleaseDate: parseReleaseDate(ext.ReleaseDate),
		CoverURL:    ext.CoverURL,
		TrackCount:  ext.TrackCount,
		SpotifyURI:  uri,
	})
	if err != nil {
		return store.Album{}, fmt.Errorf("resolve album %s: %w", id, err)
	}

	state.albums[uri] = album

	if created {
		r.ingestAlbumTracks(ctx, album, artist, id)
	}

	return album, nil
}

// ingestAlbumTracks pulls the track list of a freshly created album. A
// failure here is not fatal to the album: it stays without songs and a later
// direct track resolution backfills them.
func (r *Resolver) ingestAlbumTracks(ctx context.Context, album store.Album, artist store.Artist, albumExternalID string) {
	tracks, err := r.client.ListAlbumTracks(ctx, albumExternalID)
	if err != nil {
		r.log.Warn().
			Err(err).
			Int64("album_id", album.ID).
			Str("external_id", albumExternalID).
			Msg("album created but track enumeration failed")
		return
	}

	for _, track := range tracks {
		if _, _, err := r.store.GetOrCreateSongByURI(ctx, store.Song{
			Title:      track.Name,
			ArtistID:   artist.ID,
			AlbumID:    &album.ID,
			Duration:   track.DurationMS / 1000,
			ImageURL:   album.CoverURL,
			SpotifyURI: spotifyURI("track", bareID(track.ExternalID)),
		}); err != nil {
			r.log.Warn().
				Err(err).
				Int64("album_id", album.ID).
				Str("track", track.Name).
				Msg("skipping track during album ingest")
		}
	}
}

func (r *Resolver) resolveSong(ctx context.Context, state *resolution, id string, depth int) (store.Song, error) {
	if depth > maxResolveDepth {
		return store.Song{}, ErrDepthExceeded
	}

	uri := spotifyURI("track", id)

	ext, err := r.client.GetTrack(ctx, id)
	if err != nil {
		return store.Song{}, wrapLookup("track", id, err)
	}
	if ext.ArtistID == "" {
		return store.Song{}, fmt.Errorf("track %s: external data carries no artist", id)
	}

	artist, err := r.resolveArtist(ctx, state, bareID(ext.ArtistID), depth+1)
	if err != nil {
		return store.Song{}, err
	}

	var albumID *int64
	if ext.AlbumID != "" {
		album, err := r.resolveAlbum(ctx, state, bareID(ext.AlbumID), depth+1)
		if err != nil {
			return store.Song{}, err
		}
		albumID = &album.ID
	}

	song, _, err := r.store.GetOrCreateSongByURI(ctx, store.Song{
		Title:      ext.Name,
		ArtistID:   artist.ID,
		AlbumID:    albumID,
		Duration:   ext.DurationMS / 1000,
		ImageURL:   ext.AlbumCoverURL,
		SpotifyURI: uri,
	})
	if err != nil {
		return store.Song{}, fmt.Errorf("resolve track %s: %w", id, err)
	}
	return song, nil
}

func wrapLookup(kind, id string, err error) error {
	if errors.Is(err, musicapi.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFoundExternal, kind, id)
	}
	return fmt.Errorf("lookup %s %s: %w", kind, id, err)
}

// bareID accepts either a bare external id or a full URI like
// "spotify:track:abc" and returns the id portion.
func bareID(raw string) string {
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

func spotifyURI(kind, id string) string {
	return "spotify:" + kind + ":" + id
}

// parseReleaseDate handles the external service's year, year-month, and full
// date precisions. Unparseable input yields the zero time.
func parseReleaseDate(raw string) time.Time {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
