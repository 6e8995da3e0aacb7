package ingest

// Status is the per-item pipeline state. Items move strictly forward:
// pending -> processing -> success|error. A whole-batch reprocess is the one
// path that re-enters processing, and only from error.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

// Terminal reports whether the status is a per-item end state.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}
