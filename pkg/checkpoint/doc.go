// Package checkpoint persists crawl resume positions.
//
// A position is an opaque string scoped by endpoint key ("user_tweets",
// "followers", "list-<id>", ...). A phase sets its position after every
// page and clears it on completion, so an interrupted run continues from
// the last page it finished:
//
//	store, err := checkpoint.Open(archiveDir, log)
//	if err != nil {
//	    return err
//	}
//	pos, ok := store.Position("followers")
//	...
//	_ = store.SetPosition("followers", next)
//	...
//	_ = store.ClearPosition("followers")
//
// The whole map is rewritten to paging_positions.json on every change
// through a temporary file and rename. Write failures are logged and the
// in-memory map keeps advancing; only a later restart loses the position.
package checkpoint
