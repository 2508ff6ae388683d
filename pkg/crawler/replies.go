package crawler

import (
	"context"
	"errors"

	"tweetvault/pkg/archive"
	"tweetvault/pkg/twitter"
)

const defaultReplyPages = 5

// crawlReplies searches the replies to each own post in posts. A failed
// search is logged and skipped so the timeline keeps going.
func (e *Engine) crawlReplies(ctx context.Context, posts []twitter.Tweet) error {
	var (
		subject    int64
		screenName string
	)
	e.cache.Read(func(a *archive.Archive) {
		subject = a.ID()
		screenName = a.Profile.ScreenName
	})
	if screenName == "" {
		return nil
	}

	for i := range posts {
		if posts[i].AuthorID() != subject {
			continue
		}
		err := e.crawlRepliesTo(ctx, posts[i].ID, screenName)
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return err
		}
		e.logger.WithError(err).WithField("tweet_id", posts[i].ID).Warn("Reply search failed")
	}
	return nil
}

func (e *Engine) crawlRepliesTo(ctx context.Context, postID int64, screenName string) error {
	maxPages := e.opts.Crawl.ReplyPages
	if maxPages <= 0 {
		maxPages = defaultReplyPages
	}

	var known map[int64]bool
	e.cache.Read(func(a *archive.Archive) {
		known = idSet(archive.PostIDs(a.Responses[postID]))
	})

	var (
		replies  []twitter.Tweet
		position string
	)
	for pageNo := 0; pageNo < maxPages; pageNo++ {
		page, err := e.fetchTweets(ctx, twitter.PageRequest{
			Endpoint: twitter.EndpointSearch,
			Query:    "to:" + screenName,
			SinceID:  postID,
			Position: position,
			Count:    twitter.SearchPageSize,
		})
		if err != nil {
			return err
		}

		for i := range page.Tweets {
			reply := page.Tweets[i]
			if reply.ID == 0 || reply.InReplyToStatusID != postID || known[reply.ID] {
				continue
			}
			known[reply.ID] = true
			if err := e.inspectTweet(ctx, &reply, 0); err != nil {
				return err
			}
			replies = append(replies, reply)
		}

		if err := e.governor.Observe(ctx, page.RateLimit, string(twitter.EndpointSearch)); err != nil {
			return err
		}
		if page.Exhausted() {
			break
		}
		position = page.Next
	}

	if len(replies) == 0 {
		return nil
	}
	_ = e.cache.With(func(a *archive.Archive) error {
		a.Responses[postID] = append(a.Responses[postID], replies...)
		return nil
	})
	e.metrics.PageFetched("responses", len(replies))
	return nil
}
