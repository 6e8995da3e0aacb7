package server

import (
	"encoding/json"
	"net/http"

	"TuneCrate/cache"
	"TuneCrate/logger"
)

// QueueHandler manages the caller's play queue.
// GET lists the queue, POST appends a song, DELETE removes a song (or clears
// the queue when no songId is given).
func (h *APIHandler) QueueHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := h.queue.Get(r.Context(), userID)
		if err != nil {
			logger.Error("Failed to read queue", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Failed to read queue")
			return
		}
		writeJSON(w, http.StatusOK, items)

	case http.MethodPost:
		var req struct {
			SongID string `json:"songId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SongID == "" {
			writeError(w, http.StatusBadRequest, "songId is required")
			return
		}

		song, err := h.songRepo.GetByID(req.SongID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load song")
			return
		}
		if song == nil {
			writeError(w, http.StatusNotFound, "Song not found")
			return
		}

		item := cache.QueueItem{
			SongID: song.ID,
			Title:  song.Title,
			Artist: song.Artist,
			Album:  song.Album,
		}
		if err := h.queue.Add(r.Context(), userID, item); err != nil {
			logger.Error("Failed to add to queue", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Failed to add to queue")
			return
		}
		writeJSON(w, http.StatusOK, item)

	case http.MethodDelete:
		songID := r.URL.Query().Get("songId")
		if songID == "" {
			if err := h.queue.Clear(r.Context(), userID); err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to clear queue")
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
			return
		}
		if err := h.queue.Remove(r.Context(), userID, songID); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to remove from queue")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
