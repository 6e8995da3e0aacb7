package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"TuneCrate/core/artwork"
	"TuneCrate/core/catalog"
	"TuneCrate/logger"
	"TuneCrate/model"
)

// Extractor produces a title/artist guess for a raw filename.
type Extractor interface {
	Extract(ctx context.Context, filename string) (model.TrackGuess, error)
}

// Catalog looks up the best match for a free-text term.
type Catalog interface {
	Search(ctx context.Context, term string) (*model.CatalogMatch, error)
}

// ArtFetcher downloads cover art binaries.
type ArtFetcher interface {
	Fetch(ctx context.Context, url string) (*model.ArtworkBlob, error)
}

// SongStore persists finalized song records.
type SongStore interface {
	PutAll(songs []*model.Song) error
}

// BlobStore moves binary blobs between staging and the library.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Copy(ctx context.Context, dst, src string) error
	Remove(ctx context.Context, key string) error
}

// ProgressUpdate is published after every item state change.
type ProgressUpdate struct {
	BatchID   string `json:"batchId"`
	ItemID    string `json:"itemId"`
	Filename  string `json:"filename"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// Notifier receives progress updates. May be nil.
type Notifier func(ownerID int64, update ProgressUpdate)

// resolvedTrack is the outcome of a successful per-item run.
type resolvedTrack struct {
	title   string
	artist  string
	album   string
	artwork *model.ArtworkBlob
}

// Pipeline runs staged files through extraction, catalog lookup and artwork
// fetch, one file at a time, and commits successes to the library.
type Pipeline struct {
	extractor Extractor
	catalog   Catalog
	artwork   ArtFetcher
	songs     SongStore
	blobs     BlobStore
	notify    Notifier
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(extractor Extractor, cat Catalog, art ArtFetcher, songs SongStore, blobs BlobStore, notify Notifier) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		catalog:   cat,
		artwork:   art,
		songs:     songs,
		blobs:     blobs,
		notify:    notify,
	}
}

// Stage appends new pending items to the batch and returns copies of them.
// Staging is rejected while a run over the batch is in flight.
func (p *Pipeline) Stage(batch *Batch, files []StagedFile) ([]StagedItem, error) {
	items, err := batch.add(files)
	if err != nil {
		return nil, err
	}
	logger.Info("Staged files",
		logger.String("batchId", batch.ID),
		logger.Int("added", len(items)))
	return items, nil
}

// ProcessAll runs the per-item pipeline sequentially over the batch, in the
// exact order items were staged. Items already in success are left untouched;
// pending and error items are (re)attempted. A failure marks its item error
// and processing continues with the next item.
func (p *Pipeline) ProcessAll(ctx context.Context, batch *Batch) error {
	if !batch.tryBeginProcessing() {
		return ErrBatchBusy
	}
	defer batch.endProcessing()

	start := time.Now()
	for _, item := range batch.Snapshot() {
		if item.Status == StatusSuccess || item.Status == StatusProcessing {
			continue
		}

		p.setStatus(batch, item.ID, StatusProcessing, "")

		res, err := p.processOne(ctx, item)
		if err != nil {
			logger.Warn("Item failed",
				logger.String("itemId", item.ID),
				logger.String("filename", item.Filename),
				logger.ErrorField(err))
			p.setStatus(batch, item.ID, StatusError, err.Error())
			continue
		}

		batch.storeResult(item.ID, res)
		p.setStatus(batch, item.ID, StatusSuccess, "")
	}

	terminal, total := batch.Counts()
	logger.Info("Batch processing finished",
		logger.String("batchId", batch.ID),
		logger.Int("terminal", terminal),
		logger.Int("total", total),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// setStatus applies a state transition under the batch lock and publishes it.
func (p *Pipeline) setStatus(batch *Batch, itemID string, status Status, errMsg string) {
	item, terminal, total, ok := batch.setItemStatus(itemID, status, errMsg)
	if !ok || p.notify == nil {
		return
	}
	p.notify(batch.OwnerID, ProgressUpdate{
		BatchID:   batch.ID,
		ItemID:    item.ID,
		Filename:  item.Filename,
		Status:    status,
		Error:     errMsg,
		Processed: terminal,
		Total:     total,
	})
}

// processOne runs the per-item pipeline: extract, look up, fetch artwork. It
// works on an item copy; results flow back into the batch via storeResult.
func (p *Pipeline) processOne(ctx context.Context, item StagedItem) (resolvedTrack, error) {
	// Step 1: title/artist guess. The embedded-tag probe from staging time
	// short-circuits the model call; otherwise ask the extractor.
	var guess model.TrackGuess
	if item.TagGuess != nil && item.TagGuess.Complete() {
		guess = *item.TagGuess
	} else {
		g, err := p.extractor.Extract(ctx, item.Filename)
		if err != nil {
			return resolvedTrack{}, &ExtractionError{Filename: item.Filename, Err: err}
		}
		guess = g
	}

	// Step 2: catalog lookup on "artist title".
	term := strings.TrimSpace(guess.Artist + " " + guess.Title)
	match, err := p.catalog.Search(ctx, term)
	if err != nil {
		if errors.Is(err, catalog.ErrNoResults) {
			return resolvedTrack{}, &LookupError{Title: guess.Title}
		}
		return resolvedTrack{}, &LookupError{Title: guess.Title, Err: err}
	}

	// Step 3: resolve fields. An unknown album deliberately falls back to the
	// extracted title so it displays as the track name.
	res := resolvedTrack{
		title:  fallback(match.TrackName, guess.Title),
		artist: fallback(match.ArtistName, guess.Artist),
		album:  fallback(match.CollectionName, guess.Title),
	}

	// Steps 4-5: artwork URL upgrade and download.
	if match.ArtworkURL == "" {
		return resolvedTrack{}, &ArtworkURLError{Title: res.title}
	}
	hiRes := artwork.HiResURL(match.ArtworkURL)

	blob, err := p.artwork.Fetch(ctx, hiRes)
	if err != nil {
		return resolvedTrack{}, &ArtworkFetchError{URL: hiRes, Err: err}
	}
	res.artwork = blob

	return res, nil
}

func fallback(value, alt string) string {
	if strings.TrimSpace(value) == "" {
		return alt
	}
	return value
}

// Commit builds immutable song records from the batch's success items, copies
// their blobs into the library prefix and writes the records in one store
// call. Commit takes the batch's processing slot so it can never overlap a
// pipeline run. A batch with zero successes performs no store write. On
// failure the returned CommitError lists the blob keys already uploaded;
// releasing them is the caller's responsibility.
func (p *Pipeline) Commit(ctx context.Context, batch *Batch, ownerID int64) ([]*model.Song, error) {
	if !batch.tryBeginProcessing() {
		return nil, ErrBatchBusy
	}
	defer batch.endProcessing()

	var successes []StagedItem
	for _, item := range batch.Snapshot() {
		if item.Status == StatusSuccess {
			successes = append(successes, item)
		}
	}
	if len(successes) == 0 {
		return []*model.Song{}, nil
	}

	var uploaded []string
	songs := make([]*model.Song, 0, len(successes))

	for _, item := range successes {
		id := uuid.NewString()

		audioKey := "audio/" + id + strings.ToLower(filepath.Ext(item.Filename))
		if err := p.blobs.Copy(ctx, audioKey, item.AudioKey); err != nil {
			return nil, &CommitError{UploadedKeys: uploaded, Err: fmt.Errorf("copy audio for %q: %w", item.Filename, err)}
		}
		uploaded = append(uploaded, audioKey)

		artKey := "covers/" + id + artExt(item.Artwork.ContentType)
		if err := p.blobs.Put(ctx, artKey, item.Artwork.Data, item.Artwork.ContentType); err != nil {
			return nil, &CommitError{UploadedKeys: uploaded, Err: fmt.Errorf("store artwork for %q: %w", item.Filename, err)}
		}
		uploaded = append(uploaded, artKey)

		songs = append(songs, &model.Song{
			ID:          id,
			Title:       item.Title,
			Artist:      item.Artist,
			Album:       item.Album,
			AudioKey:    audioKey,
			ArtworkKey:  artKey,
			ContentType: item.ContentType,
			Size:        item.Size,
			UploadedBy:  ownerID,
		})
	}

	if err := p.songs.PutAll(songs); err != nil {
		return nil, &CommitError{UploadedKeys: uploaded, Err: err}
	}

	logger.Info("Batch committed to library",
		logger.String("batchId", batch.ID),
		logger.Int("songs", len(songs)))
	return songs, nil
}

func artExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
