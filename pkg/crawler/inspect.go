package crawler

import (
	"context"
	"errors"
	"fmt"

	"tweetvault/internal/downloader"
	"tweetvault/pkg/archive"
	"tweetvault/pkg/twitter"
)

// inspectTweet queues the media of post and the posts it embeds, and
// records its author. Recursion stops at maxInspectDepth.
func (e *Engine) inspectTweet(ctx context.Context, post *twitter.Tweet, depth int) error {
	if post == nil || depth >= maxInspectDepth {
		return nil
	}

	for _, m := range post.Media {
		if err := e.submit(ctx, mediaInstruction(m)); err != nil {
			return err
		}
	}

	if err := e.inspectTweet(ctx, post.QuotedStatus, depth+1); err != nil {
		return err
	}
	if err := e.inspectTweet(ctx, post.RetweetedStatus, depth+1); err != nil {
		return err
	}

	if e.opts.Crawl.TweetProfiles {
		return e.recordAuthor(ctx, post)
	}
	return nil
}

func mediaInstruction(m twitter.Media) downloader.Instruction {
	if m.IsVideo() {
		if v, ok := twitter.SelectVariant(m.Variants); ok {
			return downloader.Video{URL: v.URL, ContentType: v.ContentType}
		}
	}
	return downloader.Image{URL: m.URL}
}

func (e *Engine) recordAuthor(ctx context.Context, post *twitter.Tweet) error {
	id := post.AuthorID()
	if id == 0 || e.cache.HasProfile(id) {
		return nil
	}
	if post.User != nil && post.User.ScreenName != "" {
		return e.recordProfiles(ctx, []twitter.User{*post.User})
	}
	return e.lookupProfiles(ctx, []int64{id})
}

// recordProfiles stores users that are not yet cached and queues their
// profile media
func (e *Engine) recordProfiles(ctx context.Context, users []twitter.User) error {
	var added []twitter.User
	_ = e.cache.With(func(a *archive.Archive) error {
		for _, u := range users {
			if u.ID == 0 {
				continue
			}
			if _, ok := a.Profiles[u.ID]; ok {
				continue
			}
			a.Profiles[u.ID] = u
			added = append(added, u)
		}
		return nil
	})

	for i := range added {
		if err := e.inspectProfile(ctx, &added[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) inspectProfile(ctx context.Context, u *twitter.User) error {
	for _, url := range u.MediaURLs() {
		if err := e.submit(ctx, downloader.ProfileMedia{URL: url}); err != nil {
			return err
		}
	}
	return nil
}

// lookupProfiles fetches the uncached profiles among ids in batches
func (e *Engine) lookupProfiles(ctx context.Context, ids []int64) error {
	var missing []int64
	for _, id := range ids {
		if !e.cache.HasProfile(id) {
			missing = append(missing, id)
		}
	}

	for start := 0; start < len(missing); start += twitter.LookupBatchSize {
		end := start + twitter.LookupBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		result, err := call(ctx, e, "users_lookup", func() (*twitter.UserBatch, error) {
			return e.client.LookupUsers(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("lookup profiles: %w", err)
		}
		if err := e.recordProfiles(ctx, result.Users); err != nil {
			return err
		}
		if err := e.governor.Observe(ctx, result.RateLimit, "users_lookup"); err != nil {
			return err
		}
	}
	return nil
}

// submit hands ins to the media queue. Only cancellation is returned; a
// queue that has shut down is logged and the crawl goes on without media.
func (e *Engine) submit(ctx context.Context, ins downloader.Instruction) error {
	err := e.dispatcher.Submit(ctx, ins)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	e.logger.WithError(err).Debug("Media instruction dropped")
	return nil
}
