package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"TuneCrate/core/extract"
	"TuneCrate/core/ingest"
	"TuneCrate/logger"
	"TuneCrate/model"
	"TuneCrate/storage"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".m4a":  true,
	".ogg":  true,
	".aac":  true,
}

// Watcher ingests audio files dropped into a local directory. Each new file is
// staged, run through the pipeline and committed automatically.
type Watcher struct {
	dir      string
	ownerID  int64
	pipeline *ingest.Pipeline
	blobs    *storage.Store
}

// New creates a drop-folder watcher committing on behalf of the given admin.
func New(dir string, ownerID int64, pipeline *ingest.Pipeline, blobs *storage.Store) *Watcher {
	return &Watcher{
		dir:      dir,
		ownerID:  ownerID,
		pipeline: pipeline,
		blobs:    blobs,
	}
}

// Run watches the drop folder until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.dir); err != nil {
		return err
	}

	logger.Info("Watching drop folder", logger.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			ext := strings.ToLower(filepath.Ext(event.Name))
			if !audioExtensions[ext] {
				continue
			}
			// Give the writer a moment to finish the file.
			time.Sleep(2 * time.Second)
			w.ingestFile(ctx, event.Name)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", logger.ErrorField(err))
		}
	}
}

// ingestFile stages, processes and commits a single dropped file. Failures are
// logged and leave the file in place.
func (w *Watcher) ingestFile(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("Failed to open dropped file", logger.String("path", path), logger.ErrorField(err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logger.Warn("Failed to stat dropped file", logger.String("path", path), logger.ErrorField(err))
		return
	}

	var tagGuess *model.TrackGuess
	if guess, ok := extract.ProbeTags(f); ok {
		tagGuess = &guess
	}
	if _, err := f.Seek(0, 0); err != nil {
		logger.Warn("Failed to rewind dropped file", logger.String("path", path), logger.ErrorField(err))
		return
	}

	batch := ingest.NewBatch(w.ownerID)
	filename := filepath.Base(path)
	audioKey := "staging/" + batch.ID + "/" + filename

	if err := w.blobs.PutStream(ctx, audioKey, f, info.Size(), contentTypeForExt(filepath.Ext(filename))); err != nil {
		logger.Warn("Failed to stage dropped file", logger.String("path", path), logger.ErrorField(err))
		return
	}

	if _, err := w.pipeline.Stage(batch, []ingest.StagedFile{{
		Filename:    filename,
		AudioKey:    audioKey,
		Size:        info.Size(),
		ContentType: contentTypeForExt(filepath.Ext(filename)),
		TagGuess:    tagGuess,
	}}); err != nil {
		w.blobs.RemoveAll(ctx, []string{audioKey})
		logger.Warn("Failed to stage dropped file", logger.String("path", path), logger.ErrorField(err))
		return
	}

	if err := w.pipeline.ProcessAll(ctx, batch); err != nil {
		logger.Warn("Drop folder processing failed", logger.String("path", path), logger.ErrorField(err))
		return
	}

	songs, err := w.pipeline.Commit(ctx, batch, w.ownerID)
	w.blobs.RemoveAll(ctx, batch.StagingKeys())
	if err != nil {
		var commitErr *ingest.CommitError
		if errors.As(err, &commitErr) {
			w.blobs.RemoveAll(ctx, commitErr.UploadedKeys)
		}
		logger.Warn("Drop folder commit failed", logger.String("path", path), logger.ErrorField(err))
		return
	}
	if len(songs) == 0 {
		for _, item := range batch.Snapshot() {
			logger.Warn("Dropped file not ingested",
				logger.String("path", path),
				logger.String("reason", item.Error))
		}
		return
	}

	logger.Info("Dropped file ingested",
		logger.String("path", path),
		logger.String("songId", songs[0].ID),
		logger.String("title", songs[0].Title))

	if err := os.Remove(path); err != nil {
		logger.Warn("Failed to remove ingested file", logger.String("path", path), logger.ErrorField(err))
	}
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".aac":
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}
