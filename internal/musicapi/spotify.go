package musicapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	spotifyAccountsURL = "https://accounts.spotify.com/api/token"
	spotifyAPIURL      = "https://api.spotify.com/v1"
)

// SpotifyClient implements the Client interface for Spotify.
type SpotifyClient struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	baseURL      string
	accountsURL  string

	mu          sync.RWMutex
	accessToken string
	tokenExpiry time.Time
}

// NewSpotifyClient creates a new Spotify API client.
func NewSpotifyClient(clientID, clientSecret string) *SpotifyClient {
	return &SpotifyClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     spotifyAPIURL,
		accountsURL: spotifyAccountsURL,
	}
}

// Spotify API response structures.

type spotifyArtist struct {
	ID     string         `json:"id"`
	URI    string         `json:"uri"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []spotifyImage `json:"images"`
}

type spotifyAlbum struct {
	ID          string                `json:"id"`
	URI         string                `json:"uri"`
	Name        string                `json:"name"`
	Artists     []spotifySimpleArtist `json:"artists"`
	ReleaseDate string                `json:"release_date"`
	TotalTracks int                   `json:"total_tracks"`
	Images      []spotifyImage        `json:"images"`
}

type spotifyTrack struct {
	ID       string                `json:"id"`
	URI      string                `json:"uri"`
	Name     string                `json:"name"`
	Artists  []spotifySimpleArtist `json:"artists"`
	Album    *spotifyAlbum         `json:"album,omitempty"`
	Duration int                   `json:"duration_ms"`
}

type spotifySimpleArtist struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type spotifySearchResponse struct {
	Artists *struct {
		Items []spotifyArtist `json:"items"`
	} `json:"artists,omitempty"`
	Albums *struct {
		Items []spotifyAlbum `json:"items"`
	} `json:"albums,omitempty"`
	Tracks *struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks,omitempty"`
}

// authenticate obtains an access token via the client-credentials flow.
func (c *SpotifyClient) authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.tokenExpiry) {
		return nil
	}

	authString := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))

	data := url.Values{}
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, "POST", c.accountsURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("create auth request: %w", err)
	}

	req.Header.Set("Authorization", "Basic "+authString)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", ErrAuthFailed, resp.Status, string(body))
	}

	var tokenResp spotifyTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	return nil
}

// doRequest performs an authenticated GET against the Spotify API.
func (c *SpotifyClient) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := c.authenticate(ctx); err != nil {
		return err
	}

	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()

	apiURL := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuthFailed, resp.Status)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", ErrUnavailable, resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// GetArtist retrieves artist details by external id.
func (c *SpotifyClient) GetArtist(ctx context.Context, artistID string) (*Artist, error) {
	var sa spotifyArtist
	if err := c.doRequest(ctx, "artists/"+artistID, nil, &sa); err != nil {
		return nil, err
	}

	artist := convertArtist(sa)
	return &artist, nil
}

// GetAlbum retrieves album details by external id.
func (c *SpotifyClient) GetAlbum(ctx context.Context, albumID string) (*Album, error) {
	var sa spotifyAlbum
	if err := c.doRequest(ctx, "albums/"+albumID, nil, &sa); err != nil {
		return nil, err
	}

	album := convertAlbum(sa)
	return &album, nil
}

// GetTrack retrieves track details by external id.
func (c *SpotifyClient) GetTrack(ctx context.Context, trackID string) (*Track, error) {
	var st spotifyTrack
	if err := c.doRequest(ctx, "tracks/"+trackID, nil, &st); err != nil {
		return nil, err
	}

	track := convertTrack(st)
	return &track, nil
}

// The track listing endpoint caps pages at 50 entries.
const albumTracksPageSize = 50

// ListAlbumTracks enumerates the tracks of an album, paging until the full
// listing is fetched. Track entries returned by this endpoint carry no album
// object; the album id is stamped in so the caller still sees a complete
// Track.
func (c *SpotifyClient) ListAlbumTracks(ctx context.Context, albumID string) ([]Track, error) {
	var tracks []Track
	for offset := 0; ; offset += albumTracksPageSize {
		params := url.Values{}
		params.Set("limit", fmt.Sprintf("%d", albumTracksPageSize))
		params.Set("offset", fmt.Sprintf("%d", offset))

		var page struct {
			Items []spotifyTrack `json:"items"`
			Total int            `json:"total"`
		}
		if err := c.doRequest(ctx, "albums/"+albumID+"/tracks", params, &page); err != nil {
			return nil, err
		}

		for _, st := range page.Items {
			track := convertTrack(st)
			track.AlbumID = albumID
			tracks = append(tracks, track)
		}

		if len(page.Items) == 0 || offset+len(page.Items) >= page.Total {
			break
		}
	}
	return tracks, nil
}

// Search queries Spotify for one kind or all kinds.
func (c *SpotifyClient) Search(ctx context.Context, query, kind string, limit int) (*SearchResults, error) {
	if limit <= 0 {
		limit = 10
	}

	searchType := "artist,album,track"
	switch strings.ToLower(kind) {
	case "artist", "album", "track":
		searchType = strings.ToLower(kind)
	case "song":
		searchType = "track"
	}

	params := url.Values{
		"q":     []string{query},
		"type":  []string{searchType},
		"limit": []string{fmt.Sprintf("%d", limit)},
	}

	var result spotifySearchResponse
	if err := c.doRequest(ctx, "search", params, &result); err != nil {
		return nil, err
	}

	results := &SearchResults{
		Artists: []Artist{},
		Albums:  []Album{},
		Tracks:  []Track{},
	}
	if result.Artists != nil {
		for _, sa := range result.Artists.Items {
			results.Artists = append(results.Artists, convertArtist(sa))
		}
	}
	if result.Albums != nil {
		for _, sa := range result.Albums.Items {
			results.Albums = append(results.Albums, convertAlbum(sa))
		}
	}
	if result.Tracks != nil {
		for _, st := range result.Tracks.Items {
			results.Tracks = append(results.Tracks, convertTrack(st))
		}
	}
	return results, nil
}

// Helpers to convert Spotify types to common types.

func convertArtist(sa spotifyArtist) Artist {
	imageURL := ""
	if len(sa.Images) > 0 {
		imageURL = sa.Images[0].URL
	}

	return Artist{
		ExternalID: sa.ID,
		URI:        sa.URI,
		Name:       sa.Name,
		Genres:     sa.Genres,
		ImageURL:   imageURL,
	}
}

func convertAlbum(sa spotifyAlbum) Album {
	artistID := ""
	if len(sa.Artists) > 0 {
		artistID = sa.Artists[0].ID
	}

	coverURL := ""
	if len(sa.Images) > 0 {
		coverURL = sa.Images[0].URL
	}

	return Album{
		ExternalID:  sa.ID,
		URI:         sa.URI,
		Name:        sa.Name,
		ArtistID:    artistID,
		ReleaseDate: sa.ReleaseDate,
		CoverURL:    coverURL,
		TrackCount:  sa.TotalTracks,
	}
}

func convertTrack(st spotifyTrack) Track {
	artistID := ""
	if len(st.Artists) > 0 {
		artistID = st.Artists[0].ID
	}

	albumID := ""
	albumCover := ""
	if st.Album != nil {
		albumID = st.Album.ID
		if len(st.Album.Images) > 0 {
			albumCover = st.Album.Images[0].URL
		}
	}

	return Track{
		ExternalID:    st.ID,
		URI:           st.URI,
		Name:          st.Name,
		ArtistID:      artistID,
		AlbumID:       albumID,
		DurationMS:    st.Duration,
		AlbumCoverURL: albumCover,
	}
}
