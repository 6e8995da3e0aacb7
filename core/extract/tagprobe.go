package extract

import (
	"io"
	"strings"

	"github.com/dhowden/tag"

	"TuneCrate/model"
)

// ProbeTags reads embedded metadata (ID3, MP4, FLAC comments) from an audio
// stream. It returns ok only when both title and artist are present, in which
// case the model call can be skipped for that file.
func ProbeTags(r io.ReadSeeker) (model.TrackGuess, bool) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return model.TrackGuess{}, false
	}

	guess := model.TrackGuess{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
	}
	return guess, guess.Complete()
}
