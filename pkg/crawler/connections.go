package crawler

import (
	"context"
	"fmt"
	"strconv"

	"tweetvault/pkg/archive"
	"tweetvault/pkg/twitter"
)

func (e *Engine) connectionsPhase(name string, endpoint twitter.Endpoint, followers bool) func(context.Context) error {
	return func(ctx context.Context) error {
		return e.crawlConnections(ctx, name, endpoint, followers)
	}
}

// crawlConnections cursor-chases the follower or follow ids of the account
func (e *Engine) crawlConnections(ctx context.Context, name string, endpoint twitter.Endpoint, followers bool) error {
	log := e.logger.WithField("phase", name)
	key := string(endpoint)

	var (
		subject int64
		ids     []int64
	)
	e.cache.Read(func(a *archive.Archive) {
		subject = a.ID()
		ids = append([]int64(nil), *a.IDs(followers)...)
	})

	_, resumed := e.position(key)
	cursor := e.cursorPosition(key)
	plan := e.planMerge(key, resumed, ids)
	known := idSet(ids)

	var durable bool
	for {
		page, err := call(ctx, e, key, func() (*twitter.IDPage, error) {
			return e.client.FetchIDs(ctx, twitter.CursorRequest{
				Endpoint: endpoint,
				UserID:   subject,
				Cursor:   cursor,
				Count:    twitter.IDPageSize,
			})
		})
		if err != nil {
			return fmt.Errorf("fetch %s: %w", endpoint, err)
		}

		var fresh []int64
		stop := false
		for _, id := range page.IDs {
			if id == 0 {
				continue
			}
			if known[id] {
				if plan.sync {
					stop = true
					break
				}
				continue
			}
			known[id] = true
			fresh = append(fresh, id)
		}

		_ = e.cache.With(func(a *archive.Archive) error {
			list := a.IDs(followers)
			if plan.sync {
				*list = archive.InsertAt(*list, plan.offset, fresh)
				plan.offset += len(fresh)
			} else {
				*list = append(*list, fresh...)
			}
			return nil
		})
		e.metrics.PageFetched(name, len(fresh))
		log.DebugWithFields("Page merged", map[string]interface{}{
			"fetched": len(page.IDs),
			"new":     len(fresh),
		})

		if e.opts.Crawl.TweetProfiles {
			if err := e.lookupProfiles(ctx, fresh); err != nil {
				return err
			}
		}

		done := stop || len(page.IDs) == 0 || page.NextCursor == twitter.EndCursor
		next := ""
		if !done {
			cursor = page.NextCursor
			next = strconv.FormatInt(cursor, 10)
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
