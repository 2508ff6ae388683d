package crawler

import (
	"context"

	"tweetvault/pkg/archive"
	"tweetvault/pkg/twitter"
)

type timeline struct {
	phase      string
	endpoint   twitter.Endpoint
	collection archive.Collection
	count      int
	// afterPage runs on the new posts of each page before it is persisted
	afterPage func(ctx context.Context, posts []twitter.Tweet) error
}

func pageSize(endpoint twitter.Endpoint) int {
	switch endpoint {
	case twitter.EndpointBookmarks:
		return twitter.BookmarkPageSize
	case twitter.EndpointSearch:
		return twitter.SearchPageSize
	default:
		return twitter.TimelinePageSize
	}
}

func (e *Engine) timelinePhase(name string, endpoint twitter.Endpoint, c archive.Collection) func(context.Context) error {
	return func(ctx context.Context) error {
		return e.crawlTimeline(ctx, timeline{
			phase:      name,
			endpoint:   endpoint,
			collection: c,
			count:      pageSize(endpoint),
		})
	}
}

func (e *Engine) crawlTweets(ctx context.Context) error {
	t := timeline{
		phase:      PhaseTweets,
		endpoint:   twitter.EndpointUserTweets,
		collection: archive.CollectionTweets,
		count:      twitter.TimelinePageSize,
	}
	if e.opts.Crawl.TweetResponses && !e.opts.CustomSubject {
		t.afterPage = e.crawlReplies
	}
	return e.crawlTimeline(ctx, t)
}

// crawlTimeline pages through a time-ordered collection, newest first
func (e *Engine) crawlTimeline(ctx context.Context, t timeline) error {
	log := e.logger.WithField("phase", t.phase)
	key := string(t.endpoint)

	var (
		subject int64
		ids     []int64
	)
	e.cache.Read(func(a *archive.Archive) {
		subject = a.ID()
		ids = archive.PostIDs(*a.Posts(t.collection))
	})

	position, resumed := e.position(key)
	plan := e.planMerge(key, resumed, ids)
	known := idSet(ids)
	if resumed {
		log.WithField("position", position).Info("Resuming from saved position")
	}

	var durable bool
	for {
		page, err := e.fetchTweets(ctx, twitter.PageRequest{
			Endpoint: t.endpoint,
			UserID:   subject,
			Position: position,
			Count:    t.count,
		})
		if err != nil {
			return err
		}

		var fresh []twitter.Tweet
		stop := false
		for i := range page.Tweets {
			post := page.Tweets[i]
			if post.ID == 0 {
				log.Warn("Skipping post without id")
				continue
			}
			if known[post.ID] || (plan.boundary != 0 && post.ID == plan.boundary) {
				if plan.sync {
					stop = true
					break
				}
				continue
			}
			known[post.ID] = true

			if err := e.inspectTweet(ctx, &post, 0); err != nil {
				return err
			}
			fresh = append(fresh, post)
		}

		if t.afterPage != nil && len(fresh) > 0 {
			if err := t.afterPage(ctx, fresh); err != nil {
				return err
			}
		}

		_ = e.cache.With(func(a *archive.Archive) error {
			posts := a.Posts(t.collection)
			if plan.sync {
				*posts = archive.InsertAt(*posts, plan.offset, fresh)
				plan.offset += len(fresh)
			} else {
				*posts = append(*posts, fresh...)
			}
			return nil
		})
		e.metrics.PageFetched(t.phase, len(fresh))
		log.DebugWithFields("Page merged", map[string]interface{}{
			"fetched": len(page.Tweets),
			"new":     len(fresh),
		})

		done := stop || page.Exhausted()
		next := ""
		if !done {
			position = page.Next
			next = position
		}
		durable = e.commitPage(key, next)

		if err := e.governor.Observe(ctx, page.RateLimit, key); err != nil {
			return err
		}
		if done {
			break
		}
	}

	e.finishPhase(durable, key, plan.boundaryKey)
	return nil
}
