package twitter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "tweetvault/pkg/errors"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/retry"
)

const maxMediaSize = 512 << 20

// MediaClient downloads media bytes from the Twitter CDN. The CDN is not
// authenticated, so it uses a plain HTTP client.
type MediaClient struct {
	httpClient *http.Client
	retry      retry.Config
	logger     logger.Logger
}

// NewMediaClient creates a media fetcher with the given per-request timeout
func NewMediaClient(timeout time.Duration, retryCfg retry.Config, log logger.Logger) *MediaClient {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "media")
	retryCfg.Logger = log

	return &MediaClient{
		httpClient: &http.Client{Timeout: timeout},
		retry:      retryCfg,
		logger:     log,
	}
}

// Fetch downloads url and returns its body and content type
func (c *MediaClient) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	type result struct {
		body        []byte
		contentType string
	}

	res, err := retry.DoWithResult(ctx, c.retry, "media_fetch", func() (result, error) {
		body, contentType, err := c.fetchOnce(ctx, url)
		return result{body: body, contentType: contentType}, err
	})
	if err != nil {
		return nil, "", err
	}
	return res.body, res.contentType, nil
}

func (c *MediaClient) fetchOnce(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		return nil, "", errs.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errs.FromStatus(resp.StatusCode, fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, url))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize))
	if err != nil {
		return nil, "", errs.Network(err)
	}

	c.logger.DebugWithFields("Media fetched", map[string]interface{}{
		"url":      url,
		"bytes":    len(body),
		"duration": time.Since(start),
	})

	return body, resp.Header.Get("Content-Type"), nil
}
