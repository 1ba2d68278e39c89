package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"melodex/internal/app/catalog"
	"melodex/internal/app/favorites"
	"melodex/internal/app/reviews"
	"melodex/internal/app/searches"
	"melodex/internal/app/users"
	"melodex/internal/musicapi"
	"melodex/internal/resolver"
	"melodex/internal/store"
	"melodex/internal/subject"
)

// ResolverService imports external catalog items into the local store.
type ResolverService interface {
	Resolve(ctx context.Context, kind subject.Kind, externalID string) (resolver.Resolved, error)
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users     users.Service
	catalog   catalog.Service
	reviews   reviews.Service
	favorites favorites.Service
	searches  searches.Service
	resolver  ResolverService
}

// New configures a Server with the given service implementations.
func New(
	users users.Service,
	catalog catalog.Service,
	reviews reviews.Service,
	favorites favorites.Service,
	searches searches.Service,
	resolver ResolverService,
) *Server {
	return &Server{
		users:     users,
		catalog:   catalog,
		reviews:   reviews,
		favorites: favorites,
		searches:  searches,
		resolver:  resolver,
	}
}

// Routes exposes the HTTP handlers for the public API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("/api/v1/users/profile", s.handleProfile)

	mux.HandleFunc("GET /api/v1/artists", s.handleListArtists)
	mux.HandleFunc("GET /api/v1/artists/{id}", s.handleGetArtist)
	mux.HandleFunc("GET /api/v1/albums", s.handleListAlbums)
	mux.HandleFunc("GET /api/v1/albums/{id}", s.handleGetAlbum)
	mux.HandleFunc("GET /api/v1/albums/{id}/songs", s.handleAlbumSongs)
	mux.HandleFunc("GET /api/v1/songs/{id}", s.handleGetSong)
	mux.HandleFunc("GET /api/v1/recommendations", s.handleRecommendations)

	mux.HandleFunc("GET /api/v1/reviews", s.handleListReviews)
	mux.HandleFunc("POST /api/v1/reviews", s.handleSubmitReview)
	mux.HandleFunc("DELETE /api/v1/reviews/{id}", s.handleDeleteReview)

	mux.HandleFunc("GET /api/v1/favorites", s.handleListFavorites)
	mux.HandleFunc("POST /api/v1/favorites", s.handleAddFavorite)
	mux.HandleFunc("DELETE /api/v1/favorites", s.handleRemoveFavorite)

	mux.HandleFunc("GET /api/v1/search", s.handleSearch)
	mux.HandleFunc("POST /api/v1/search/add", s.handleSearchAdd)
	mux.HandleFunc("GET /api/v1/me/searches", s.handleRecentSearches)

	return mux
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type profileRequest struct {
	Bio            string   `json:"bio"`
	PictureURL     string   `json:"pictureUrl"`
	FavoriteGenres []string `json:"favoriteGenres"`
}

type subjectRequest struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

type reviewRequest struct {
	Subject subjectRequest `json:"subject"`
	Rating  float64        `json:"rating"`
	Text    string         `json:"text"`
}

type searchAddRequest struct {
	Type       string `json:"type"`
	ExternalID string `json:"externalId"`
	// ID identifies a local profile; profiles have no external ids.
	ID int64 `json:"id"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	id, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrUserExists):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "username already taken"})
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		ID int64 `json:"id"`
	}{ID: id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	token, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, store.ErrInvalidCredentials) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := s.users.Profile(r.Context(), token)
		if err != nil {
			writeJSON(w, authStatus(err), errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		var req profileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
			return
		}
		if err := s.users.UpdateProfile(r.Context(), token, req.Bio, req.PictureURL, req.FavoriteGenres); err != nil {
			writeJSON(w, authStatus(err), errorResponse{Error: err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := s.catalog.Artists(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Artists []store.Artist `json:"artists"`
	}{Artists: artists})
}

func (s *Server) handleGetArtist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	artist, err := s.catalog.Artist(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrArtistNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "artist not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.AlbumFilter{
		Title: query.Get("title"),
		Genre: query.Get("genre"),
	}

	if artistStr := query.Get("artistId"); artistStr != "" {
		artistID, err := strconv.ParseInt(artistStr, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid artistId parameter"})
			return
		}
		filter.ArtistID = artistID
	}

	albums, err := s.catalog.Albums(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Albums []store.Album `json:"albums"`
	}{Albums: albums})
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	album, err := s.catalog.Album(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrAlbumNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "album not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleAlbumSongs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	songs, err := s.catalog.AlbumSongs(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Songs []store.Song `json:"songs"`
	}{Songs: songs})
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	song, err := s.catalog.Song(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrSongNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "song not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	albums, err := s.catalog.Recommendations(r.Context(), token)
	if err != nil {
		writeJSON(w, authStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Albums []store.Album `json:"albums"`
	}{Albums: albums})
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	ref, ok := queryRef(w, r)
	if !ok {
		return
	}

	list, err := s.reviews.BySubject(r.Context(), ref)
	if err != nil {
		if errors.Is(err, store.ErrInvalidSubject) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Reviews []store.Review `json:"reviews"`
	}{Reviews: list})
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	ref, err := parseRef(req.Subject)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	review, err := s.reviews.Submit(r.Context(), token, ref, req.Rating, req.Text)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, store.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, store.ErrInvalidReview), errors.Is(err, store.ErrInvalidSubject):
			status = http.StatusBadRequest
		case errors.Is(err, store.ErrSubjectNotFound):
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.reviews.Delete(r.Context(), token, id); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, store.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, store.ErrReviewNotFound):
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	var kind subject.Kind
	if typeStr := r.URL.Query().Get("type"); typeStr != "" {
		parsed, err := subject.ParseKind(typeStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid type parameter"})
			return
		}
		kind = parsed
	}

	list, err := s.favorites.List(r.Context(), token, kind)
	if err != nil {
		writeJSON(w, authStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Favorites []store.Favorite `json:"favorites"`
	}{Favorites: list})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	var req subjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	ref, err := parseRef(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	favorite, err := s.favorites.Add(r.Context(), token, ref)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, store.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, store.ErrInvalidSubject):
			status = http.StatusBadRequest
		case errors.Is(err, store.ErrSubjectNotFound):
			status = http.StatusNotFound
		case errors.Is(err, store.ErrFavoriteAlreadyExists):
			status = http.StatusConflict
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, favorite)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	ref, ok := queryRef(w, r)
	if !ok {
		return
	}

	if err := s.favorites.Remove(r.Context(), token, ref); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, store.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, store.ErrFavoriteNotFound):
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := strings.TrimSpace(query.Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing q parameter"})
		return
	}

	limit := 20
	if limitStr := query.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 50 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit parameter"})
			return
		}
		limit = parsed
	}

	results, err := s.searches.Search(r.Context(), q, query.Get("type"), limit)
	if err != nil {
		writeJSON(w, externalStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSearchAdd(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	var req searchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	kind, err := subject.ParseKind(req.Type)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid subject"})
		return
	}

	// Profiles are local records; they are recorded directly instead of
	// passing through external resolution.
	if kind == subject.KindProfile {
		if req.ID < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid subject"})
			return
		}
		profile, err := s.searches.RecordProfile(r.Context(), token, req.ID)
		if err != nil {
			writeJSON(w, authStatus(err), errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			Type   subject.Kind        `json:"type"`
			ID     int64               `json:"id"`
			Entity subject.Displayable `json:"entity"`
		}{Type: subject.KindProfile, ID: profile.ID, Entity: profile})
		return
	}

	if req.ExternalID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid subject"})
		return
	}

	resolved, err := s.resolver.Resolve(r.Context(), kind, req.ExternalID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, resolver.ErrNotFoundExternal):
			status = http.StatusNotFound
		case errors.Is(err, subject.ErrInvalidKind):
			status = http.StatusBadRequest
		case errors.Is(err, musicapi.ErrUnavailable), errors.Is(err, musicapi.ErrAuthFailed):
			status = http.StatusBadGateway
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	if err := s.searches.Record(r.Context(), token, resolved.Ref); err != nil {
		writeJSON(w, authStatus(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Type   subject.Kind        `json:"type"`
		ID     int64               `json:"id"`
		Entity subject.Displayable `json:"entity"`
	}{Type: resolved.Ref.Kind, ID: resolved.Ref.ID, Entity: resolved.Entity})
}

func (s *Server) handleRecentSearches(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	list, err := s.searches.Recent(r.Context(), token)
	if err != nil {
		writeJSON(w, authStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Searches []store.RecentSearch `json:"searches"`
	}{Searches: list})
}

// pathID extracts the {id} path value, writing a 400 on malformed input.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// queryRef reads a subject reference from the type and id query parameters.
func queryRef(w http.ResponseWriter, r *http.Request) (subject.Ref, bool) {
	query := r.URL.Query()

	kind, err := subject.ParseKind(query.Get("type"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid type parameter"})
		return subject.Ref{}, false
	}

	id, err := strconv.ParseInt(query.Get("id"), 10, 64)
	if err != nil || id < 1 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id parameter"})
		return subject.Ref{}, false
	}

	return subject.Ref{Kind: kind, ID: id}, true
}

func parseRef(req subjectRequest) (subject.Ref, error) {
	kind, err := subject.ParseKind(req.Type)
	if err != nil {
		return subject.Ref{}, err
	}
	ref := subject.Ref{Kind: kind, ID: req.ID}
	if !ref.Valid() {
		return subject.Ref{}, subject.ErrInvalidKind
	}
	return ref, nil
}

// authStatus maps token and profile lookup failures onto HTTP statuses.
func authStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrProfileNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// externalStatus maps external catalog failures onto HTTP statuses.
func externalStatus(err error) int {
	switch {
	case errors.Is(err, musicapi.ErrUnavailable), errors.Is(err, musicapi.ErrAuthFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
