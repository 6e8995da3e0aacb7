package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"TuneCrate/model"
)

// ErrNoResults is returned when the provider finds no match for a query.
var ErrNoResults = errors.New("catalog: no results")

// Client queries the catalog provider (an iTunes-style search API).
type Client struct {
	baseURL    string
	limit      int
	httpClient *http.Client
}

// NewClient creates a catalog client against the given search endpoint.
func NewClient(baseURL string, limit int) *Client {
	if limit <= 0 {
		limit = 1
	}
	return &Client{
		baseURL: baseURL,
		limit:   limit,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetTimeout adjusts the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// searchResponse is the provider's wire shape.
type searchResponse struct {
	ResultCount int                  `json:"resultCount"`
	Results     []model.CatalogMatch `json:"results"`
}

// Search returns the best match for a free-text term. Tie-break policy is
// always the first (highest-ranked) result; there is no secondary scoring.
func (c *Client) Search(ctx context.Context, term string) (*model.CatalogMatch, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("term", term)
	q.Set("media", "music")
	q.Set("entity", "song")
	q.Set("limit", fmt.Sprintf("%d", c.limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: provider returned status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("catalog: failed to decode response: %w", err)
	}

	if result.ResultCount == 0 || len(result.Results) == 0 {
		return nil, ErrNoResults
	}

	match := result.Results[0]
	return &match, nil
}
