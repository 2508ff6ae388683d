package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "tweetvault/pkg/errors"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/retry"
)

func testRetry() retry.Config {
	return retry.Config{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestMediaClientFetch(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	client := NewMediaClient(time.Second, testRetry(), logger.NewNopLogger())
	body, contentType, err := client.Fetch(context.Background(), server.URL+"/media/a.jpg")

	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), body)
	assert.Equal(t, "image/jpeg", contentType)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMediaClientNotFoundIsPermanent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewMediaClient(time.Second, testRetry(), logger.NewNopLogger())
	_, _, err := client.Fetch(context.Background(), server.URL+"/missing.png")

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeNotFound, apiErr.Type)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
