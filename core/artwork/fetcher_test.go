package artwork

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHiResURL(t *testing.T) {
	assert.Equal(t,
		"http://x/600x600bb.jpg",
		HiResURL("http://x/100x100bb.jpg"))

	// Only the first occurrence is swapped.
	assert.Equal(t,
		"http://x/600x600/100x100bb.jpg",
		HiResURL("http://x/100x100/100x100bb.jpg"))

	// URLs without the token pass through unchanged.
	assert.Equal(t,
		"http://x/cover.jpg",
		HiResURL("http://x/cover.jpg"))
}

func TestFetchReturnsBlob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	blob, err := NewFetcher().Fetch(context.Background(), srv.URL+"/600x600bb.jpg")

	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), blob.Data)
	assert.Equal(t, "image/jpeg", blob.ContentType)
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	blob, err := NewFetcher().Fetch(context.Background(), srv.URL+"/missing.jpg")

	require.Error(t, err)
	assert.Nil(t, blob)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchInfersContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil // Suppress
		w.Write([]byte("\xff\xd8\xff\xe0body"))
	}))
	defer srv.Close()

	blob, err := NewFetcher().Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.NotEmpty(t, blob.ContentType)
}
