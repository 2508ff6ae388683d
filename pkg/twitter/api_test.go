package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "tweetvault/pkg/errors"
	"tweetvault/pkg/logger"
)

// rewriteTransport sends every request to the test server regardless of host
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

func newTestAPI(t *testing.T, handler http.Handler) *API {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	target, err := url.Parse(server.URL)
	require.NoError(t, err)

	api := NewAPIWithHTTPClient(&http.Client{Transport: rewriteTransport{target: target}}, logger.NewNopLogger())
	api.v2BaseURL = server.URL + "/2/"
	return api
}

func setRateHeaders(w http.ResponseWriter, remaining int, reset int64) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("x-rate-limit-limit", "900")
	w.Header().Set("x-rate-limit-remaining", fmt.Sprint(remaining))
	w.Header().Set("x-rate-limit-reset", fmt.Sprint(reset))
}

const timelineJSON = `[
  {
    "id": 300,
    "full_text": "newest",
    "created_at": "Mon Jan 02 15:04:05 +0000 2023",
    "user": {"id": 1, "screen_name": "me", "profile_image_url_https": "https://pbs.example/a.jpg", "created_at": "Mon Jan 02 15:04:05 +0000 2012"},
    "extended_entities": {"media": [{
      "type": "video",
      "media_url_https": "https://pbs.example/thumb.jpg",
      "video_info": {"variants": [
        {"content_type": "video/mp4", "bitrate": 832000, "url": "https://video.example/832.mp4"},
        {"content_type": "application/x-mpegURL", "url": "https://video.example/pl.m3u8"}
      ]}
    }]}
  },
  {
    "id": 200,
    "full_text": "quote",
    "in_reply_to_status_id": 150,
    "quoted_status": {"id": 50, "full_text": "quoted", "user": {"id": 2, "screen_name": "other"}}
  }
]`

func TestFetchTweetsUserTimeline(t *testing.T) {
	var gotQuery url.Values
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1.1/statuses/user_timeline.json", r.URL.Path)
		gotQuery = r.URL.Query()
		setRateHeaders(w, 899, 1_700_000_000)
		fmt.Fprint(w, timelineJSON)
	}))

	page, err := api.FetchTweets(context.Background(), PageRequest{
		Endpoint: EndpointUserTweets,
		UserID:   1,
		Position: "1000",
	})
	require.NoError(t, err)

	assert.Equal(t, "1", gotQuery.Get("user_id"))
	assert.Equal(t, "1000", gotQuery.Get("max_id"))
	assert.Equal(t, "extended", gotQuery.Get("tweet_mode"))

	require.Len(t, page.Tweets, 2)
	assert.Equal(t, "199", page.Next)
	assert.Equal(t, 899, page.RateLimit.Remaining)
	assert.Equal(t, time.Unix(1_700_000_000, 0), page.RateLimit.Reset)

	first := page.Tweets[0]
	assert.Equal(t, int64(300), first.ID)
	assert.Equal(t, "newest", first.Text)
	assert.Equal(t, 2023, first.CreatedAt.Year())
	require.NotNil(t, first.User)
	assert.Equal(t, "https://pbs.example/a.jpg", first.User.ProfileImageURL)
	assert.Equal(t, 2012, first.User.CreatedAt.Year())
	require.Len(t, first.Media, 1)
	assert.True(t, first.Media[0].IsVideo())

	second := page.Tweets[1]
	assert.Equal(t, int64(150), second.InReplyToStatusID)
	require.NotNil(t, second.QuotedStatus)
	assert.Equal(t, int64(50), second.QuotedStatus.ID)
	assert.Equal(t, int64(2), second.QuotedStatus.AuthorID())
}

func TestFetchTweetsRateLimited(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRateHeaders(w, 0, 1_700_000_900)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"errors":[{"message":"Rate limit exceeded","code":88}]}`)
	}))

	_, err := api.FetchTweets(context.Background(), PageRequest{Endpoint: EndpointMentions})
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeRateLimit, apiErr.Type)
	assert.Equal(t, time.Unix(1_700_000_900, 0), apiErr.ResetAt)
}

func TestFetchTweetsInvalidPosition(t *testing.T) {
	api := newTestAPI(t, http.NotFoundHandler())

	_, err := api.FetchTweets(context.Background(), PageRequest{Endpoint: EndpointLikes, Position: "abc"})

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeParsing, apiErr.Type)
}

func TestFetchTweetsCanceled(t *testing.T) {
	api := newTestAPI(t, http.NotFoundHandler())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := api.FetchTweets(ctx, PageRequest{Endpoint: EndpointUserTweets})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchIDs(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1.1/followers/ids.json", r.URL.Path)
		assert.Equal(t, "-1", r.URL.Query().Get("cursor"))
		setRateHeaders(w, 14, 1_700_000_000)
		fmt.Fprint(w, `{"ids":[5,6,7],"next_cursor":0,"next_cursor_str":"0"}`)
	}))

	page, err := api.FetchIDs(context.Background(), CursorRequest{
		Endpoint: EndpointFollowers,
		UserID:   1,
		Cursor:   BeginCursor,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6, 7}, page.IDs)
	assert.Equal(t, EndCursor, page.NextCursor)
	assert.Equal(t, 14, page.RateLimit.Remaining)
}

func TestFetchListsAndMembers(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRateHeaders(w, 10, 1_700_000_000)
		switch r.URL.Path {
		case "/1.1/lists/ownerships.json":
			fmt.Fprint(w, `{"lists":[{"id":77,"name":"Friends","slug":"friends","member_count":2,"mode":"private","user":{"id":1}}],"next_cursor":0}`)
		case "/1.1/lists/members.json":
			assert.Equal(t, "77", r.URL.Query().Get("list_id"))
			fmt.Fprint(w, `{"users":[{"id":5,"screen_name":"five"},{"id":6,"screen_name":"six"}],"next_cursor":0}`)
		default:
			http.NotFound(w, r)
		}
	}))

	lists, err := api.FetchLists(context.Background(), CursorRequest{UserID: 1, Cursor: BeginCursor})
	require.NoError(t, err)
	require.Len(t, lists.Lists, 1)
	assert.Equal(t, List{ID: 77, Name: "Friends", Slug: "friends", MemberCount: 2, Mode: "private", OwnerID: 1}, lists.Lists[0])

	members, err := api.FetchListMembers(context.Background(), CursorRequest{ListID: 77, Cursor: BeginCursor})
	require.NoError(t, err)
	require.Len(t, members.Users, 2)
	assert.Equal(t, "six", members.Users[1].ScreenName)
}

func TestLookupUsersBatchLimit(t *testing.T) {
	api := newTestAPI(t, http.NotFoundHandler())

	ids := make([]int64, LookupBatchSize+1)
	_, err := api.LookupUsers(context.Background(), ids)
	assert.Error(t, err)
}

func TestVerifyCredentialsUnauthorized(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors":[{"message":"Could not authenticate you.","code":32}]}`)
	}))

	_, err := api.VerifyCredentials(context.Background())

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeAuth, apiErr.Type)
	assert.False(t, errs.IsRetryable(apiErr.Type))
}

const bookmarksJSON = `{
  "data": [
    {"id": "900", "text": "saved", "author_id": "2", "created_at": "2023-05-01T10:00:00.000Z",
     "attachments": {"media_keys": ["3_1"]},
     "referenced_tweets": [{"type": "quoted", "id": "800"}, {"type": "replied_to", "id": "700"}],
     "public_metrics": {"like_count": 4, "retweet_count": 1}},
    {"id": "not-a-number", "text": "broken"}
  ],
  "includes": {
    "users": [{"id": "2", "username": "writer", "profile_image_url": "https://pbs.example/w.jpg"}],
    "media": [{"media_key": "3_1", "type": "photo", "url": "https://pbs.example/p.jpg"}],
    "tweets": [{"id": "800", "text": "original", "author_id": "2"}]
  },
  "meta": {"result_count": 2, "next_token": "tok-2"}
}`

func TestFetchBookmarks(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/users/1/bookmarks", r.URL.Path)
		assert.Equal(t, "tok-1", r.URL.Query().Get("pagination_token"))
		assert.Equal(t, "100", r.URL.Query().Get("max_results"))
		setRateHeaders(w, 179, 1_700_000_000)
		fmt.Fprint(w, bookmarksJSON)
	}))

	page, err := api.FetchTweets(context.Background(), PageRequest{
		Endpoint: EndpointBookmarks,
		UserID:   1,
		Position: "tok-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "tok-2", page.Next)
	assert.Equal(t, 179, page.RateLimit.Remaining)
	require.Len(t, page.Tweets, 1)

	tw := page.Tweets[0]
	assert.Equal(t, int64(900), tw.ID)
	assert.Equal(t, int64(700), tw.InReplyToStatusID)
	assert.Equal(t, 4, tw.FavoriteCount)
	assert.Equal(t, "writer", tw.User.ScreenName)
	require.Len(t, tw.Media, 1)
	assert.Equal(t, "https://pbs.example/p.jpg", tw.Media[0].URL)
	require.NotNil(t, tw.QuotedStatus)
	assert.Equal(t, int64(800), tw.QuotedStatus.ID)
	assert.Equal(t, int64(2), tw.QuotedStatus.AuthorID())
}

func TestFetchBookmarksSkipsUndecodableItem(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRateHeaders(w, 179, 1_700_000_000)
		fmt.Fprint(w, `{
  "data": [
    {"id": "910", "text": "fine", "created_at": "2023-05-01T10:00:00.000Z"},
    {"id": "911", "text": "bad date", "created_at": "garbage"}
  ],
  "includes": {"users": [{"id": "5", "created_at": "also garbage"}]},
  "meta": {"result_count": 2, "next_token": "tok-3"}
}`)
	}))

	page, err := api.FetchTweets(context.Background(), PageRequest{Endpoint: EndpointBookmarks, UserID: 1})
	require.NoError(t, err)

	require.Len(t, page.Tweets, 1)
	assert.Equal(t, int64(910), page.Tweets[0].ID)
	assert.Equal(t, 2, page.Received)
	assert.Equal(t, "tok-3", page.Next)
	assert.False(t, page.Exhausted())
}

func TestFetchBookmarksAllItemsDroppedKeepsPaging(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRateHeaders(w, 179, 1_700_000_000)
		fmt.Fprint(w, `{"data":[{"id":"x1"}],"meta":{"next_token":"tok-2"}}`)
	}))

	page, err := api.FetchTweets(context.Background(), PageRequest{Endpoint: EndpointBookmarks, UserID: 1})
	require.NoError(t, err)

	assert.Empty(t, page.Tweets)
	assert.Equal(t, "tok-2", page.Next)
	assert.False(t, page.Exhausted(), "a page of dropped items is not the end of the collection")
}

func TestFetchBookmarksEmptyPageIsExhausted(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRateHeaders(w, 179, 1_700_000_000)
		fmt.Fprint(w, `{"meta":{"result_count":0,"next_token":"tok-9"}}`)
	}))

	page, err := api.FetchTweets(context.Background(), PageRequest{Endpoint: EndpointBookmarks, UserID: 1})
	require.NoError(t, err)
	assert.True(t, page.Exhausted())
}

func TestFetchBookmarksServerError(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := api.FetchTweets(context.Background(), PageRequest{Endpoint: EndpointBookmarks, UserID: 1})

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeServerError, apiErr.Type)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Code)
}
