// Package ratelimit keeps tweetvault inside the Twitter API's call budgets.
//
// Every API response carries a Snapshot read from the x-rate-limit-limit,
// x-rate-limit-remaining and x-rate-limit-reset headers. After each page a
// crawler hands that snapshot to Governor.Observe. When the budget is down
// to its last call the governor suspends the calling phase until the window
// resets plus a safety margin:
//
//	gov := ratelimit.NewGovernor(ratelimit.DefaultConfig(), log)
//	page, err := client.FetchTweets(ctx, req)
//	if err != nil {
//	    return err
//	}
//	if err := gov.Observe(ctx, page.RateLimit, "user_tweets"); err != nil {
//	    return err
//	}
//
// Media downloads are not budgeted by the API, so they are throttled with a
// plain token bucket from NewDownloadLimiter instead.
package ratelimit
