package ingest

import (
	"errors"
	"fmt"
)

// ErrBatchBusy is returned when staging, processing or committing is attempted
// while a run over the same batch is in flight.
var ErrBatchBusy = errors.New("batch is currently being processed")

// ExtractionError reports a missing or malformed extractor result.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract metadata from %q: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// LookupError reports a catalog miss or lookup failure for a title.
type LookupError struct {
	Title string
	Err   error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog lookup failed for %q: %v", e.Title, e.Err)
	}
	return fmt.Sprintf("no catalog match found for %q", e.Title)
}

func (e *LookupError) Unwrap() error { return e.Err }

// ArtworkURLError reports a catalog match that carries no artwork URL.
type ArtworkURLError struct {
	Title string
}

func (e *ArtworkURLError) Error() string {
	return fmt.Sprintf("no artwork available for %q", e.Title)
}

// ArtworkFetchError reports a failed artwork download.
type ArtworkFetchError struct {
	URL string
	Err error
}

func (e *ArtworkFetchError) Error() string {
	return fmt.Sprintf("failed to fetch artwork from %s: %v", e.URL, e.Err)
}

func (e *ArtworkFetchError) Unwrap() error { return e.Err }

// CommitError reports a failed library commit. UploadedKeys lists blob objects
// already written when the failure occurred; the caller must release them.
type CommitError struct {
	UploadedKeys []string
	Err          error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("failed to commit batch to library: %v", e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
