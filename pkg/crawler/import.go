package crawler

import (
	"context"
	"fmt"

	"tweetvault/pkg/archive"
	"tweetvault/pkg/twitter"
)

// Import merges posts from an account export into the own post list.
// Posts already archived are skipped and the list is re-sorted newest
// first. It returns the number of posts added.
func (e *Engine) Import(ctx context.Context, posts []twitter.Tweet) (int, error) {
	var known map[int64]bool
	e.cache.Read(func(a *archive.Archive) {
		known = idSet(archive.PostIDs(a.Tweets))
	})

	var fresh []twitter.Tweet
	for i := range posts {
		post := posts[i]
		if post.ID == 0 || known[post.ID] {
			continue
		}
		known[post.ID] = true
		if err := e.inspectTweet(ctx, &post, 0); err != nil {
			return 0, err
		}
		fresh = append(fresh, post)
	}

	_ = e.cache.With(func(a *archive.Archive) error {
		a.Tweets = append(a.Tweets, fresh...)
		a.SortTweets()
		return nil
	})
	if err := e.save(); err != nil {
		return len(fresh), fmt.Errorf("save imported posts: %w", err)
	}

	e.logger.InfoWithFields("Import merged", map[string]interface{}{
		"read":  len(posts),
		"added": len(fresh),
	})
	return len(fresh), nil
}
