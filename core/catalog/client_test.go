package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchReturnsFirstResult(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"term":   q.Get("term"),
			"media":  q.Get("media"),
			"entity": q.Get("entity"),
			"limit":  q.Get("limit"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"resultCount": 2,
			"results": [
				{"trackName": "Yesterday", "artistName": "The Beatles", "collectionName": "Help!", "artworkUrl100": "http://x/100x100bb.jpg"},
				{"trackName": "Yesterday (Live)", "artistName": "The Beatles", "collectionName": "Anthology 2", "artworkUrl100": "http://y/100x100bb.jpg"}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2)
	match, err := client.Search(context.Background(), "The Beatles Yesterday")

	require.NoError(t, err)
	assert.Equal(t, "Yesterday", match.TrackName)
	assert.Equal(t, "The Beatles", match.ArtistName)
	assert.Equal(t, "Help!", match.CollectionName)
	assert.Equal(t, "http://x/100x100bb.jpg", match.ArtworkURL)

	assert.Equal(t, "The Beatles Yesterday", gotQuery["term"])
	assert.Equal(t, "music", gotQuery["media"])
	assert.Equal(t, "song", gotQuery["entity"])
	assert.Equal(t, "2", gotQuery["limit"])
}

func TestSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resultCount": 0, "results": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 1)
	_, err := client.Search(context.Background(), "definitely not a song")

	assert.ErrorIs(t, err, ErrNoResults)
}

func TestSearchNon2xxIsHardFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 1)
	_, err := client.Search(context.Background(), "anything")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResults)
	assert.Contains(t, err.Error(), "503")
}

func TestSearchMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 1)
	_, err := client.Search(context.Background(), "anything")

	assert.Error(t, err)
}
