package twitter

import (
	"context"

	"tweetvault/pkg/ratelimit"
)

// Endpoint names a paged remote collection
type Endpoint string

const (
	EndpointUserTweets Endpoint = "user_tweets"
	EndpointMentions   Endpoint = "mentions"
	EndpointLikes      Endpoint = "likes"
	EndpointBookmarks  Endpoint = "bookmarks"
	EndpointSearch     Endpoint = "search"
	EndpointFollowers  Endpoint = "followers"
	EndpointFollows    Endpoint = "follows"
	EndpointLists      Endpoint = "lists"
	EndpointMembers    Endpoint = "list_members"
)

// Page sizes accepted by the API
const (
	TimelinePageSize = 200
	SearchPageSize   = 100
	BookmarkPageSize = 100
	IDPageSize       = 5000
	ListPageSize     = 500
	MemberPageSize   = 2000
	LookupBatchSize  = 100
)

// BeginCursor starts a cursor-chased collection; EndCursor terminates it
const (
	BeginCursor int64 = -1
	EndCursor   int64 = 0
)

// PageRequest asks for one page of a time-ordered endpoint. Position is
// opaque: a max_id for v1.1 timelines, a pagination token for bookmarks.
// An empty Position means the newest page.
type PageRequest struct {
	Endpoint Endpoint
	UserID   int64
	Position string
	Count    int
	Query    string
	SinceID  int64
}

// TweetPage is one page of posts. An empty Next means the collection is
// exhausted.
type TweetPage struct {
	Tweets []Tweet
	Next   string
	// Received counts the items the API returned, including the ones
	// dropped as malformed
	Received  int
	RateLimit ratelimit.Snapshot
}

// Exhausted reports whether no page follows this one. A page whose items
// were all dropped still continues when it names a next position.
func (p *TweetPage) Exhausted() bool {
	return p.Next == "" || (len(p.Tweets) == 0 && p.Received == 0)
}

// CursorRequest asks for one page of a cursor-chased endpoint
type CursorRequest struct {
	Endpoint Endpoint
	UserID   int64
	ListID   int64
	Cursor   int64
	Count    int
}

// IDPage is one page of follower or follow ids
type IDPage struct {
	IDs        []int64
	NextCursor int64
	RateLimit  ratelimit.Snapshot
}

// ListPage is one page of owned lists
type ListPage struct {
	Lists      []List
	NextCursor int64
	RateLimit  ratelimit.Snapshot
}

// UserPage is one page of list members
type UserPage struct {
	Users      []User
	NextCursor int64
	RateLimit  ratelimit.Snapshot
}

// UserBatch is the result of a profile lookup
type UserBatch struct {
	Users     []User
	RateLimit ratelimit.Snapshot
}

// Client is the paged endpoint client the crawler consumes. Every result
// carries the rate limit snapshot of the response that produced it.
type Client interface {
	FetchTweets(ctx context.Context, req PageRequest) (*TweetPage, error)
	FetchIDs(ctx context.Context, req CursorRequest) (*IDPage, error)
	FetchLists(ctx context.Context, req CursorRequest) (*ListPage, error)
	FetchListMembers(ctx context.Context, req CursorRequest) (*UserPage, error)
	LookupUsers(ctx context.Context, ids []int64) (*UserBatch, error)
	VerifyCredentials(ctx context.Context) (*User, error)
}
