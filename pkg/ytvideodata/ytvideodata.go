package ytvideodata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	ErrVideoNotFound      = errors.New("video not found")
	ErrVideoNotEmbeddable = errors.New("video is not embeddable")
	ErrInvalidVideoId     = errors.New("invalid video id")
)

var videoIdRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

type VideoData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

type Config struct {
	OEmbedURL  string
	WatchURL   string
	HTTPClient *http.Client
}

type Client struct {
	oembedURL string
	watchURL  string
	hc        *http.Client
	group     singleflight.Group
}

func New(cfg *Config) *Client {
	c := &Client{
		oembedURL: "https://www.youtube.com/oembed",
		watchURL:  "https://www.youtube.com/watch",
		hc:        &http.Client{Timeout: 10 * time.Second},
	}
	if cfg == nil {
		return c
	}
	if cfg.OEmbedURL != "" {
		c.oembedURL = cfg.OEmbedURL
	}
	if cfg.WatchURL != "" {
		c.watchURL = cfg.WatchURL
	}
	if cfg.HTTPClient != nil {
		c.hc = cfg.HTTPClient
	}

	return c
}

// Get returns metadata for videoId. Concurrent lookups of the same id share one request.
func (c *Client) Get(ctx context.Context, videoId string) (*VideoData, error) {
	if !videoIdRe.MatchString(videoId) {
		return nil, ErrInvalidVideoId
	}

	v, err, _ := c.group.Do(videoId, func() (any, error) {
		videoData, err := c.getWithEmbed(ctx, videoId)
		if err == nil {
			return videoData, nil
		}
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = c.getFromPage(ctx, videoId)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}

		return videoData, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*VideoData), nil
}
