package server

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"TuneCrate/logger"
)

// GetSongsHandler returns the full library.
func (h *APIHandler) GetSongsHandler(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songRepo.GetAll()
	if err != nil {
		logger.Error("Failed to load library", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load library")
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

// GetSongHandler returns one song record.
func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	song, err := h.songRepo.GetByID(id)
	if err != nil {
		logger.Error("Failed to load song", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to load song")
		return
	}
	if song == nil {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// MediaHandler serves a song's audio or cover art blob from object storage.
func (h *APIHandler) MediaHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := vars["kind"]
	id := vars["id"]

	song, err := h.songRepo.GetByID(id)
	if err != nil || song == nil {
		writeError(w, http.StatusNotFound, "Song not found")
		return
	}

	var key, contentType string
	switch kind {
	case "audio":
		key = song.AudioKey
		contentType = song.ContentType
	case "covers":
		key = song.ArtworkKey
	default:
		writeError(w, http.StatusNotFound, "Unknown media kind")
		return
	}
	if key == "" {
		writeError(w, http.StatusNotFound, "No media for song")
		return
	}

	if contentType == "" {
		if info, err := h.blobs.Stat(r.Context(), key); err == nil {
			contentType = info.ContentType
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	obj, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "Media not found")
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000") // Immutable blobs
	if _, err := io.Copy(w, obj); err != nil {
		logger.Warn("Error serving media", logger.String("key", key), logger.ErrorField(err))
	}
}
