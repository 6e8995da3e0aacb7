package artwork

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"TuneCrate/model"
)

// HiResURL upgrades a thumbnail artwork URL to its 600x600 variant. Catalog
// results carry 100x100 thumbnails; the CDN serves larger renditions under
// the same path with the resolution token swapped.
func HiResURL(artworkURL string) string {
	return strings.Replace(artworkURL, "100x100", "600x600", 1)
}

// Fetcher downloads cover art binaries. No retry and no cache; every item
// fetches independently even when several share an album.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates an artwork fetcher.
func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Fetch downloads the image at the given URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*model.ArtworkBlob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("artwork: failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("artwork: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("artwork: CDN returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("artwork: failed to read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &model.ArtworkBlob{Data: data, ContentType: contentType}, nil
}
