package server

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"TuneCrate/core/extract"
	"TuneCrate/core/ingest"
	"TuneCrate/logger"
	"TuneCrate/model"
)

// batchResponse is the batch snapshot returned to the admin UI.
type batchResponse struct {
	BatchID    string              `json:"batchId"`
	Items      []ingest.StagedItem `json:"items"`
	Processed  int                 `json:"processed"`
	Total      int                 `json:"total"`
	Processing bool                `json:"processing"`
}

func newBatchResponse(batch *ingest.Batch) batchResponse {
	processed, total := batch.Counts()
	return batchResponse{
		BatchID:    batch.ID,
		Items:      batch.Snapshot(),
		Processed:  processed,
		Total:      total,
		Processing: batch.Processing(),
	}
}

// StageHandler accepts a multipart upload of audio files and appends them to
// the caller's batch as pending items.
// Expected multipart form field: "files" (repeatable).
func (h *APIHandler) StageHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(128 << 20); err != nil { // 128MB max memory
		writeError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "Missing 'files' in form")
		return
	}

	batch := h.registry.GetOrCreate(userID)
	if batch.Processing() {
		writeError(w, http.StatusConflict, "Batch is currently being processed")
		return
	}

	staged := make([]ingest.StagedFile, 0, len(fileHeaders))
	var stagingKeys []string
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to open uploaded file")
			return
		}

		// Embedded tags, when complete, let the pipeline skip the model call.
		var tagGuess *model.TrackGuess
		if guess, ok := extract.ProbeTags(file); ok {
			tagGuess = &guess
		}
		if _, err := file.Seek(0, 0); err != nil {
			file.Close()
			writeError(w, http.StatusInternalServerError, "Failed to rewind uploaded file")
			return
		}

		ext := strings.ToLower(filepath.Ext(header.Filename))
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = mime.TypeByExtension(ext)
		}

		audioKey := "staging/" + batch.ID + "/" + uuid.NewString() + ext
		if err := h.blobs.PutStream(r.Context(), audioKey, file, header.Size, contentType); err != nil {
			file.Close()
			logger.Error("Failed to store staged audio", logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
			return
		}
		file.Close()
		stagingKeys = append(stagingKeys, audioKey)

		staged = append(staged, ingest.StagedFile{
			Filename:    header.Filename,
			AudioKey:    audioKey,
			Size:        header.Size,
			ContentType: contentType,
			TagGuess:    tagGuess,
		})
	}

	if _, err := h.pipeline.Stage(batch, staged); err != nil {
		// A run started between the check above and now; the blobs just
		// written have no items to own them.
		h.blobs.RemoveAll(r.Context(), stagingKeys)
		writeError(w, http.StatusConflict, "Batch is currently being processed")
		return
	}
	writeJSON(w, http.StatusOK, newBatchResponse(batch))
}

// ProcessHandler kicks off sequential processing of the caller's batch. The
// run continues in the background; per-item progress is pushed over the
// websocket feed and reflected in batch snapshots.
func (h *APIHandler) ProcessHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	batch := h.registry.Get(userID)
	if batch == nil {
		writeError(w, http.StatusNotFound, "No staged batch")
		return
	}
	if batch.Processing() {
		writeError(w, http.StatusConflict, "Batch is already being processed")
		return
	}

	// Detached from the request context: once started, a run cannot be
	// canceled from outside.
	go func() {
		if err := h.pipeline.ProcessAll(context.Background(), batch); err != nil {
			logger.Warn("Batch processing rejected", logger.ErrorField(err))
		}
	}()

	writeJSON(w, http.StatusAccepted, newBatchResponse(batch))
}

// BatchHandler returns the caller's batch snapshot.
func (h *APIHandler) BatchHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	batch := h.registry.Get(userID)
	if batch == nil {
		writeError(w, http.StatusNotFound, "No staged batch")
		return
	}

	writeJSON(w, http.StatusOK, newBatchResponse(batch))
}

// CommitHandler commits the batch's success items to the library, then clears
// the batch and releases its staging blobs.
func (h *APIHandler) CommitHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	batch := h.registry.Get(userID)
	if batch == nil {
		writeError(w, http.StatusNotFound, "No staged batch")
		return
	}
	if batch.Processing() {
		writeError(w, http.StatusConflict, "Batch is currently being processed")
		return
	}

	songs, err := h.pipeline.Commit(r.Context(), batch, userID)
	if err != nil {
		if errors.Is(err, ingest.ErrBatchBusy) {
			writeError(w, http.StatusConflict, "Batch is currently being processed")
			return
		}
		// Whole-commit failure: release blobs written before the store failed.
		var commitErr *ingest.CommitError
		if errors.As(err, &commitErr) {
			h.blobs.RemoveAll(r.Context(), commitErr.UploadedKeys)
		}
		logger.Error("Library commit failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to commit batch to library")
		return
	}

	// With zero successes the batch stays staged so failed items can be
	// reprocessed. Otherwise the staging blobs are no longer needed.
	if len(songs) > 0 {
		h.blobs.RemoveAll(r.Context(), batch.StagingKeys())
		h.registry.Remove(userID)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"committed": len(songs),
		"songs":     songs,
	})
}

// ClearHandler discards the caller's batch and releases its staging blobs.
func (h *APIHandler) ClearHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	batch := h.registry.Get(userID)
	if batch == nil {
		writeError(w, http.StatusNotFound, "No staged batch")
		return
	}
	if batch.Processing() {
		writeError(w, http.StatusConflict, "Batch is currently being processed")
		return
	}

	h.blobs.RemoveAll(r.Context(), batch.StagingKeys())
	h.registry.Remove(userID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
