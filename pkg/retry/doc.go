// Package retry wraps cenkalti/backoff with the error classification used
// by the Twitter client and the media fetcher.
//
// Transient failures (network, 5xx, 429) are retried with exponential
// backoff up to MaxRetries. Auth, not-found and parsing errors, and context
// cancellation, stop immediately.
//
//	cfg := retry.DefaultConfig()
//	cfg.Logger = log
//	page, err := retry.DoWithResult(ctx, cfg, "user_tweets", func() (*twitter.TweetPage, error) {
//		return client.FetchTweets(ctx, req)
//	})
package retry
