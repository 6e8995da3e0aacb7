package model

// CatalogMatch is the validated shape of a single catalog provider result.
type CatalogMatch struct {
	TrackName      string `json:"trackName"`
	ArtistName     string `json:"artistName"`
	CollectionName string `json:"collectionName"`
	ArtworkURL     string `json:"artworkUrl100"`
}

// TrackGuess is a title/artist pair produced by the text extractor or by an
// embedded-tag probe. Both fields must be non-empty to be usable.
type TrackGuess struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Complete reports whether the guess carries both required fields.
func (g TrackGuess) Complete() bool {
	return g.Title != "" && g.Artist != ""
}

// ArtworkBlob is a downloaded cover image.
type ArtworkBlob struct {
	Data        []byte
	ContentType string
}
