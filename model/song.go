package model

import "time"

// Song represents a committed song record in the library. Records are
// immutable once written; the pipeline exposes no update or delete.
type Song struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Artist      string    `json:"artist" gorm:"size:255;not null"`
	Album       string    `json:"album" gorm:"size:255"`
	AudioKey    string    `json:"-" gorm:"size:512;not null"` // Object key of the audio blob
	ArtworkKey  string    `json:"-" gorm:"size:512"`          // Object key of the cover art blob
	ContentType string    `json:"contentType" gorm:"size:100"`
	Size        int64     `json:"size"`
	UploadedBy  int64     `json:"uploadedBy" gorm:"index"`
	CreatedAt   time.Time `json:"createdAt"`
}
