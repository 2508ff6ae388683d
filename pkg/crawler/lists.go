package crawler

import (
	"context"
	"fmt"
	"strconv"

	"tweetvault/pkg/archive"
	"tweetvault/pkg/twitter"
)

const listsKey = "lists"

func memberKey(listID int64) string {
	return "list-" + strconv.FormatInt(listID, 10)
}

// crawlLists fetches the owned lists, then the members of each
func (e *Engine) crawlLists(ctx context.Context) error {
	log := e.logger.WithField("phase", PhaseLists)
	subject := e.cache.ID()
	cursor := e.cursorPosition(listsKey)

	var durable bool
	for {
		page, err := call(ctx, e, listsKey, func() (*twitter.ListPage, error) {
			return e.client.FetchLists(ctx, twitter.CursorRequest{
				Endpoint: twitter.EndpointLists,
				UserID:   subject,
				Cursor:   cursor,
				Count:    twitter.ListPageSize,
			})
		})
		if err != nil {
			return fmt.Errorf("fetch lists: %w", err)
		}
		if err := e.governor.Observe(ctx, page.RateLimit, listsKey); err != nil {
			return err
		}

		for _, list := range page.Lists {
			if list.ID == 0 {
				log.Warn("Skipping list without id")
				continue
			}
			if err := e.crawlList(ctx, list); err != nil {
				return err
			}
		}

		done := len(page.Lists) == 0 || page.NextCursor == twitter.EndCursor
		next := ""
		if !done {
			cursor = page.NextCursor
			next = strconv.FormatInt(cursor, 10)
		}
		durable = e.commitPage(listsKey, next)
		if done {
			break
		}
	}

	e.finishPhase(durable, listsKey)
	return nil
}

// crawlList records list and fetches its members. In sync mode a list that
// is already archived and has no pending member position is left as is.
func (e *Engine) crawlList(ctx context.Context, list twitter.List) error {
	key := memberKey(list.ID)
	_, pending := e.position(key)

	var cached bool
	_ = e.cache.With(func(a *archive.Archive) error {
		idx := a.FindList(list.ID)
		cached = idx >= 0
		if cached && e.opts.Sync && !pending {
			return nil
		}
		if !cached {
			a.Lists = append(a.Lists, archive.List{Name: list.Name, List: list})
			return nil
		}
		a.Lists[idx].Name = list.Name
		a.Lists[idx].List = list
		if !pending {
			a.Lists[idx].Members = nil
		}
		return nil
	})
	if cached && e.opts.Sync && !pending {
		e.logger.WithField("list_id", list.ID).Debug("List already archived, skipping")
		return nil
	}

	return e.crawlMembers(ctx, list.ID)
}

func (e *Engine) crawlMembers(ctx context.Context, listID int64) error {
	key := memberKey(listID)
	cursor := e.cursorPosition(key)

	var members map[int64]bool
	e.cache.Read(func(a *archive.Archive) {
		if idx := a.FindList(listID); idx >= 0 {
			members = idSet(a.Lists[idx].Members)
		}
	})
	if members == nil {
		members = map[int64]bool{}
	}

	var durable bool
	for {
		page, err := call(ctx, e, string(twitter.EndpointMembers), func() (*twitter.UserPage, error) {
			return e.client.FetchListMembers(ctx, twitter.CursorRequest{
				Endpoint: twitter.EndpointMembers,
				ListID:   listID,
				Cursor:   cursor,
				Count:    twitter.MemberPageSize,
			})
		})
		if err != nil {
			return fmt.Errorf("fetch members of list %d: %w", listID, err)
		}

		var fresh []int64
		for _, u := range page.Users {
			if u.ID == 0 || members[u.ID] {
				continue
			}
			members[u.ID] = true
			fresh = append(fresh, u.ID)
		}

		_ = e.cache.With(func(a *archive.Archive) error {
			if idx := a.FindList(listID); idx >= 0 {
				a.Lists[idx].Members = append(a.Lists[idx].Members, fresh...)
			}
			return nil
		})
		if err := e.recordProfiles(ctx, page.Users); err != nil {
			return err
		}
		e.metrics.PageFetched(PhaseLists, len(fresh))

		done := len(page.Users) == 0 || page.NextCursor == twitter.EndCursor
		next := ""
		if !done {
			cursor = page.NextCursor
			next = strconv.FormatInt(cursor, 10)
		}
		durable = e.commitPage(key, next)

		if err := e.governor.Observe(ctx, page.RateLimit, string(twitter.EndpointMembers)); err != nil {
			return err
		}
		if done {
			break
		}
	}

	e.finishPhase(durable, key)
	return nil
}
