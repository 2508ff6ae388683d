// Package crawler walks the paged Twitter endpoints of one account and
// merges what it finds into the archive.
//
// An Engine runs the phases in a fixed order: tweets (with replies),
// mentions, followers, follows, lists, bookmarks and likes. Each phase pages
// through its endpoint newest first, persisting the archive document and
// then the resume position after every page, so an interrupted run picks up
// where it stopped.
//
// In sync mode a phase stops at the first item that is already archived and
// inserts the new items ahead of it. In full mode it runs to exhaustion and
// appends whatever is missing.
//
// Basic usage:
//
//	engine := crawler.New(crawler.Dependencies{
//	    Client:     api,
//	    Cache:      cache,
//	    Documents:  store,
//	    Positions:  positions,
//	    Governor:   governor,
//	    Dispatcher: dispatcher,
//	}, crawler.Options{Sync: true, Crawl: cfg.Crawl})
//
//	events := make(chan crawler.Event)
//	go func() {
//	    defer close(events)
//	    err = engine.Run(ctx, events)
//	}()
//	for ev := range events {
//	    ...
//	}
package crawler
