package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"TuneCrate/logger"
	"TuneCrate/model"
)

// ExtractorConfig contains configuration for the filename extractor.
type ExtractorConfig struct {
	APIBaseURL  string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Extractor asks a hosted language model to turn a raw filename into a
// structured title/artist guess.
type Extractor struct {
	config     *ExtractorConfig
	httpClient *http.Client
}

// System prompt for the filename extractor.
const extractorSystemPrompt = `You extract song metadata from audio filenames.
Given a filename, respond with a JSON object containing exactly two fields:
"title" (the song title) and "artist" (the performing artist).
Strip file extensions, track numbers, bitrate markers and bracketed noise.
If the filename carries no artist, make your best guess from the title.
Respond with the JSON object only, no prose.`

// NewExtractor creates a new filename extractor.
func NewExtractor(config *ExtractorConfig) *Extractor {
	return &Extractor{
		config: config,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// trackGuessSchema is the provider-side output constraint. The schema does not
// guarantee well-formed text, so the response is validated again after parse.
func trackGuessSchema() *model.ResponseFormat {
	return &model.ResponseFormat{
		Type: "json_schema",
		JSONSchema: &model.JSONSchemaFormat{
			Name:   "track_guess",
			Strict: true,
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title":  map[string]interface{}{"type": "string"},
					"artist": map[string]interface{}{"type": "string"},
				},
				"required":             []string{"title", "artist"},
				"additionalProperties": false,
			},
		},
	}
}

// Extract returns a validated title/artist guess for the given filename.
func (e *Extractor) Extract(ctx context.Context, filename string) (model.TrackGuess, error) {
	reqBody := model.OpenAIChatRequest{
		Model: e.config.Model,
		Messages: []model.OpenAIChatMessage{
			{Role: "system", Content: extractorSystemPrompt},
			{Role: "user", Content: filename},
		},
		MaxTokens:      e.config.MaxTokens,
		Temperature:    e.config.Temperature,
		ResponseFormat: trackGuessSchema(),
		Stream:         false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return model.TrackGuess{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.config.APIBaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return model.TrackGuess{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return model.TrackGuess{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.TrackGuess{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp model.OpenAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return model.TrackGuess{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return model.TrackGuess{}, fmt.Errorf("no response choices returned")
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)

	var guess model.TrackGuess
	if err := json.Unmarshal([]byte(content), &guess); err != nil {
		logger.Warn("Extractor returned malformed JSON",
			logger.String("filename", filename),
			logger.String("content", content))
		return model.TrackGuess{}, fmt.Errorf("malformed extraction output: %w", err)
	}

	guess.Title = strings.TrimSpace(guess.Title)
	guess.Artist = strings.TrimSpace(guess.Artist)
	if !guess.Complete() {
		return model.TrackGuess{}, fmt.Errorf("extraction missing title or artist for %q", filename)
	}

	return guess, nil
}
