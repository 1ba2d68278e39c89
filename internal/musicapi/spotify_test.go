package musicapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*SpotifyClient, *httptest.Server) {
	t.Helper()

	var tokenRequests int
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests++
		json.NewEncoder(w).Encode(spotifyTokenResponse{AccessToken: "test-token", ExpiresIn: 3600})
	})
	mux.HandleFunc("/", handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewSpotifyClient("id", "secret")
	client.baseURL = srv.URL
	client.accountsURL = srv.URL + "/token"
	return client, srv
}

func TestGetArtistConvertsResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artists/abc" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode(spotifyArtist{
			ID:     "abc",
			URI:    "spotify:artist:abc",
			Name:   "Radiohead",
			Genres: []string{"art rock", "alternative"},
			Images: []spotifyImage{{URL: "http://big"}, {URL: "http://small"}},
		})
	})

	artist, err := client.GetArtist(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetArtist: %v", err)
	}
	if artist.Name != "Radiohead" || artist.ImageURL != "http://big" {
		t.Fatalf("unexpected artist: %#v", artist)
	}
	if len(artist.Genres) != 2 {
		t.Fatalf("unexpected genres: %#v", artist.Genres)
	}
}

func TestGetAlbumPicksFirstArtist(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(spotifyAlbum{
			ID:          "alb",
			Name:        "OK Computer",
			Artists:     []spotifySimpleArtist{{ID: "abc"}, {ID: "other"}},
			ReleaseDate: "1997-06-16",
			TotalTracks: 12,
			Images:      []spotifyImage{{URL: "http://cover"}},
		})
	})

	album, err := client.GetAlbum(context.Background(), "alb")
	if err != nil {
		t.Fatalf("GetAlbum: %v", err)
	}
	if album.ArtistID != "abc" || album.ReleaseDate != "1997-06-16" {
		t.Fatalf("unexpected album: %#v", album)
	}
}

func TestListAlbumTracksStampsAlbumID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/albums/alb/tracks" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(struct {
			Items []spotifyTrack `json:"items"`
		}{Items: []spotifyTrack{
			{ID: "t1", Name: "Airbag", Artists: []spotifySimpleArtist{{ID: "abc"}}, Duration: 284000},
		}})
	})

	tracks, err := client.ListAlbumTracks(context.Background(), "alb")
	if err != nil {
		t.Fatalf("ListAlbumTracks: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	if tracks[0].AlbumID != "alb" {
		t.Fatalf("album id not stamped: %#v", tracks[0])
	}
}

func TestListAlbumTracksPaginates(t *testing.T) {
	const total = 60

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
		if err != nil {
			t.Fatalf("missing offset: %v", err)
		}

		count := total - offset
		if count > albumTracksPageSize {
			count = albumTracksPageSize
		}
		items := make([]spotifyTrack, 0, count)
		for i := 0; i < count; i++ {
			items = append(items, spotifyTrack{ID: fmt.Sprintf("t%d", offset+i), Name: "Track"})
		}

		json.NewEncoder(w).Encode(struct {
			Items []spotifyTrack `json:"items"`
			Total int            `json:"total"`
		}{Items: items, Total: total})
	})

	tracks, err := client.ListAlbumTracks(context.Background(), "alb")
	if err != nil {
		t.Fatalf("ListAlbumTracks: %v", err)
	}
	if len(tracks) != total {
		t.Fatalf("expected %d tracks across pages, got %d", total, len(tracks))
	}
	if tracks[total-1].ExternalID != fmt.Sprintf("t%d", total-1) {
		t.Fatalf("unexpected last track: %#v", tracks[total-1])
	}
}

func TestSearchMapsSongToTrack(t *testing.T) {
	var gotType string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.URL.Query().Get("type")
		json.NewEncoder(w).Encode(spotifySearchResponse{})
	})

	results, err := client.Search(context.Background(), "kid a", "song", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotType != "track" {
		t.Fatalf("expected type=track, got %q", gotType)
	}
	if results.Artists == nil || results.Albums == nil || results.Tracks == nil {
		t.Fatalf("result slices must be non-nil: %#v", results)
	}
}

func TestSearchDefaultsToAllKinds(t *testing.T) {
	var gotType string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.URL.Query().Get("type")
		json.NewEncoder(w).Encode(spotifySearchResponse{})
	})

	if _, err := client.Search(context.Background(), "ok", "", 5); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotType != "artist,album,track" {
		t.Fatalf("expected all kinds, got %q", gotType)
	}
}

func TestDoRequestNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := client.GetArtist(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuthenticateFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewSpotifyClient("id", "bad-secret")
	client.baseURL = srv.URL
	client.accountsURL = srv.URL + "/token"

	if _, err := client.GetArtist(context.Background(), "abc"); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestAuthenticateCachesToken(t *testing.T) {
	var tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		json.NewEncoder(w).Encode(spotifyTokenResponse{AccessToken: "test-token", ExpiresIn: 3600})
	})
	mux.HandleFunc("/artists/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(spotifyArtist{ID: "abc", Name: "X"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewSpotifyClient("id", "secret")
	client.baseURL = srv.URL
	client.accountsURL = srv.URL + "/token"

	for i := 0; i < 3; i++ {
		if _, err := client.GetArtist(context.Background(), "abc"); err != nil {
			t.Fatalf("GetArtist: %v", err)
		}
	}
	if tokenCalls != 1 {
		t.Fatalf("expected 1 token request, got %d", tokenCalls)
	}
}
