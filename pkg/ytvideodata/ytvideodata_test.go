package ytvideodata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const videoId = "dQw4w9WgXcQ"

func TestGetFromOEmbed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "https://www.youtube.com/watch?v="+videoId, r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Song","author_name":"Artist","thumbnail_url":"thumb"}`))
	}))
	defer srv.Close()

	c := New(&Config{OEmbedURL: srv.URL})
	data, err := c.Get(context.Background(), videoId)
	require.NoError(t, err)
	assert.Equal(t, &VideoData{Title: "Song", AuthorName: "Artist", ThumbnailUrl: "thumb"}, data)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetFallsBackToPage(t *testing.T) {
	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer oembed.Close()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, videoId, r.URL.Query().Get("v"))
		w.Write([]byte(`<html><head><title>Private Song - YouTube</title></head>
<body><span itemprop="author"><link itemprop="name" content="Artist"></span></body></html>`))
	}))
	defer page.Close()

	c := New(&Config{OEmbedURL: oembed.URL, WatchURL: page.URL})
	data, err := c.Get(context.Background(), videoId)
	require.NoError(t, err)
	assert.Equal(t, "Private Song", data.Title)
	assert.Equal(t, "Artist", data.AuthorName)
	assert.Equal(t, "https://i.ytimg.com/vi/"+videoId+"/hqdefault.jpg", data.ThumbnailUrl)
}

func TestGetNotFound(t *testing.T) {
	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer oembed.Close()

	c := New(&Config{OEmbedURL: oembed.URL})
	_, err := c.Get(context.Background(), videoId)
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestGetInvalidId(t *testing.T) {
	c := New(nil)
	_, err := c.Get(context.Background(), "short")
	assert.ErrorIs(t, err, ErrInvalidVideoId)
}
