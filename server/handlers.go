package server

import (
	"encoding/json"
	"net/http"

	"TuneCrate/cache"
	"TuneCrate/config"
	"TuneCrate/core/auth"
	"TuneCrate/core/ingest"
	"TuneCrate/repository"
	"TuneCrate/storage"
)

// APIHandler handles all API requests.
type APIHandler struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	songRepo repository.SongRepository
	pipeline *ingest.Pipeline
	registry *ingest.Registry
	blobs    *storage.Store
	queue    *cache.QueueCache
	tokens   *auth.TokenIssuer
	hub      *ProgressHub
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	cfg *config.Config,
	userRepo repository.UserRepository,
	songRepo repository.SongRepository,
	pipeline *ingest.Pipeline,
	registry *ingest.Registry,
	blobs *storage.Store,
	queue *cache.QueueCache,
	tokens *auth.TokenIssuer,
	hub *ProgressHub,
) *APIHandler {
	return &APIHandler{
		cfg:      cfg,
		userRepo: userRepo,
		songRepo: songRepo,
		pipeline: pipeline,
		registry: registry,
		blobs:    blobs,
		queue:    queue,
		tokens:   tokens,
		hub:      hub,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
