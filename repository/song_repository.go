package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"TuneCrate/model"
)

// SongRepository defines the interface for song record persistence. The
// pipeline only ever writes whole batches and reads; no update or delete is
// exposed.
type SongRepository interface {
	PutAll(songs []*model.Song) error
	GetAll() ([]*model.Song, error)
	GetByID(id string) (*model.Song, error)
}

// gormSongRepository implements SongRepository on GORM.
type gormSongRepository struct {
	db *gorm.DB
}

// NewSongRepository creates a GORM-backed song repository.
func NewSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

// PutAll writes all records in a single transaction. Either every record
// lands or none does.
func (r *gormSongRepository) PutAll(songs []*model.Song) error {
	if len(songs) == 0 {
		return nil
	}
	if err := r.db.Create(songs).Error; err != nil {
		return fmt.Errorf("failed to put songs: %w", err)
	}
	return nil
}

// GetAll returns the full library, newest first.
func (r *gormSongRepository) GetAll() ([]*model.Song, error) {
	var songs []*model.Song
	if err := r.db.Order("created_at DESC").Find(&songs).Error; err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	return songs, nil
}

// GetByID returns a song by id, or nil when not found.
func (r *gormSongRepository) GetByID(id string) (*model.Song, error) {
	var song model.Song
	err := r.db.First(&song, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query song %s: %w", id, err)
	}
	return &song, nil
}
