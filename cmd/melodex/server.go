package main

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"melodex/internal/app/catalog"
	"melodex/internal/app/favorites"
	"melodex/internal/app/reviews"
	"melodex/internal/app/searches"
	"melodex/internal/app/users"
	"melodex/internal/httpapi"
	"melodex/internal/musicapi"
	"melodex/internal/resolver"
	"melodex/internal/store"
)

func newHTTPHandler(cfg Config, dataStore *store.Store) http.Handler {
	userSvc := users.New(dataStore)
	catalogSvc := catalog.New(dataStore)
	reviewSvc := reviews.New(dataStore)
	favoriteSvc := favorites.New(dataStore)

	client := newMusicClient(cfg)
	searchSvc := searches.New(dataStore, client)
	catalogResolver := resolver.New(dataStore, client, log.Logger)

	server := httpapi.New(userSvc, catalogSvc, reviewSvc, favoriteSvc, searchSvc, catalogResolver)

	handler := httpapi.RequestLogging()(server.Routes())
	handler = httpapi.Recovery()(handler)

	return withCORS(cfg.AllowedOrigins, handler)
}

func newMusicClient(cfg Config) musicapi.Client {
	if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
		log.Warn().Msg("Spotify credentials not provided, external search disabled")
		return nil
	}
	log.Info().Msg("Spotify client initialized")
	return musicapi.NewSpotifyClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
}

func withCORS(allowedOrigins []string, next http.Handler) http.Handler {
	originAllowed := func(origin string) bool {
		if len(allowedOrigins) == 0 || origin == "" {
			return false
		}
		for _, o := range allowedOrigins {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
