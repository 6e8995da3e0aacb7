package ingest

import (
	"sync"

	"github.com/google/uuid"

	"TuneCrate/model"
)

// StagedItem is one user-selected audio file undergoing enrichment. Item state
// is only ever written inside Batch methods under its lock; readers get value
// copies through Snapshot.
type StagedItem struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename"`
	AudioKey    string            `json:"-"` // Staging object key of the audio blob
	Size        int64             `json:"size"`
	ContentType string            `json:"contentType"`
	TagGuess    *model.TrackGuess `json:"-"` // Embedded-tag probe result, if any
	Status      Status            `json:"status"`
	Error       string            `json:"error,omitempty"`

	// Resolved metadata, populated on success.
	Title   string             `json:"title,omitempty"`
	Artist  string             `json:"artist,omitempty"`
	Album   string             `json:"album,omitempty"`
	Artwork *model.ArtworkBlob `json:"-"`
}

// StagedFile describes a file handed to Stage.
type StagedFile struct {
	Filename    string
	AudioKey    string
	Size        int64
	ContentType string
	TagGuess    *model.TrackGuess
}

// Batch is a staged-item collection owned by one admin. The mutex covers all
// item access; the processing flag serializes pipeline runs and commits.
type Batch struct {
	ID      string
	OwnerID int64

	mu         sync.Mutex
	items      []*StagedItem
	processing bool
}

// NewBatch creates an empty batch for the given owner.
func NewBatch(ownerID int64) *Batch {
	return &Batch{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
	}
}

// add appends new pending items for the given files and returns copies of
// them. Existing items are never mutated by staging; staging into a batch
// whose run is in flight is rejected.
func (b *Batch) add(files []StagedFile) ([]StagedItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.processing {
		return nil, ErrBatchBusy
	}

	added := make([]StagedItem, 0, len(files))
	for _, f := range files {
		item := &StagedItem{
			ID:          uuid.NewString(),
			Filename:    f.Filename,
			AudioKey:    f.AudioKey,
			Size:        f.Size,
			ContentType: f.ContentType,
			TagGuess:    f.TagGuess,
			Status:      StatusPending,
		}
		b.items = append(b.items, item)
		added = append(added, *item)
	}
	return added, nil
}

// tryBeginProcessing marks the batch as in flight. Returns false when a run is
// already active; there is no mid-flight cancellation, callers must wait.
func (b *Batch) tryBeginProcessing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.processing {
		return false
	}
	b.processing = true
	return true
}

func (b *Batch) endProcessing() {
	b.mu.Lock()
	b.processing = false
	b.mu.Unlock()
}

// Processing reports whether a pipeline run is currently in flight.
func (b *Batch) Processing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processing
}

// setItemStatus transitions one item under the lock. It returns a copy of the
// updated item and the batch's (terminal, total) counts, so the caller can
// publish the change without holding the lock.
func (b *Batch) setItemStatus(itemID string, status Status, errMsg string) (StagedItem, int, int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, item := range b.items {
		if item.ID != itemID {
			continue
		}
		item.Status = status
		item.Error = errMsg
		terminal, total := b.countsLocked()
		return *item, terminal, total, true
	}
	return StagedItem{}, 0, 0, false
}

// storeResult records the resolved metadata and artwork for one item.
func (b *Batch) storeResult(itemID string, res resolvedTrack) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, item := range b.items {
		if item.ID == itemID {
			item.Title = res.title
			item.Artist = res.artist
			item.Album = res.album
			item.Artwork = res.artwork
			return
		}
	}
}

// Snapshot returns value copies of the item list, safe to read and marshal
// while a run mutates the batch.
func (b *Batch) Snapshot() []StagedItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]StagedItem, len(b.items))
	for i, item := range b.items {
		out[i] = *item
	}
	return out
}

// Counts returns (terminal, total) item counts.
func (b *Batch) Counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.countsLocked()
}

func (b *Batch) countsLocked() (int, int) {
	terminal := 0
	for _, item := range b.items {
		if item.Status.Terminal() {
			terminal++
		}
	}
	return terminal, len(b.items)
}

// StagingKeys returns the staging object keys of all items. Used when a batch
// is cleared so the transient blobs can be released.
func (b *Batch) StagingKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.items))
	for _, item := range b.items {
		if item.AudioKey != "" {
			keys = append(keys, item.AudioKey)
		}
	}
	return keys
}

// Registry holds the active batch per admin user.
type Registry struct {
	mu      sync.Mutex
	batches map[int64]*Batch
}

// NewRegistry creates an empty batch registry.
func NewRegistry() *Registry {
	return &Registry{batches: make(map[int64]*Batch)}
}

// GetOrCreate returns the user's batch, creating one if needed.
func (r *Registry) GetOrCreate(ownerID int64) *Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[ownerID]
	if !ok {
		b = NewBatch(ownerID)
		r.batches[ownerID] = b
	}
	return b
}

// Get returns the user's batch or nil.
func (r *Registry) Get(ownerID int64) *Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[ownerID]
}

// Remove drops the user's batch.
func (r *Registry) Remove(ownerID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.batches, ownerID)
}
