package twitter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gotwitter "github.com/dghubble/go-twitter/twitter"
	"github.com/dghubble/oauth1"
	errs "tweetvault/pkg/errors"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/ratelimit"
)

const defaultV2BaseURL = "https://api.twitter.com/2/"

// Credentials are the OAuth 1.0a application and user tokens
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// API implements Client on top of the v1.1 REST API. Bookmarks are only
// served by v2 and go through the same signed HTTP client.
type API struct {
	client     *gotwitter.Client
	httpClient *http.Client
	v2BaseURL  string
	logger     logger.Logger
}

// NewAPI creates a signed API client
func NewAPI(creds Credentials, timeout time.Duration, log logger.Logger) *API {
	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)

	httpClient := config.Client(oauth1.NoContext, token)
	httpClient.Timeout = timeout

	return NewAPIWithHTTPClient(httpClient, log)
}

// NewAPIWithHTTPClient wraps an already configured HTTP client
func NewAPIWithHTTPClient(httpClient *http.Client, log logger.Logger) *API {
	if log == nil {
		log = logger.GetLogger()
	}

	return &API{
		client:     gotwitter.NewClient(httpClient),
		httpClient: httpClient,
		v2BaseURL:  defaultV2BaseURL,
		logger:     log.WithField("component", "twitter"),
	}
}

// FetchTweets returns one page of a time-ordered endpoint
func (a *API) FetchTweets(ctx context.Context, req PageRequest) (*TweetPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Endpoint == EndpointBookmarks {
		return a.fetchBookmarks(ctx, req)
	}

	maxID, err := parsePosition(req.Position)
	if err != nil {
		return nil, err
	}
	count := req.Count
	if count <= 0 {
		count = TimelinePageSize
	}

	var (
		tweets []gotwitter.Tweet
		resp   *http.Response
	)
	start := time.Now()

	switch req.Endpoint {
	case EndpointUserTweets:
		tweets, resp, err = a.client.Timelines.UserTimeline(&gotwitter.UserTimelineParams{
			UserID:          req.UserID,
			Count:           count,
			MaxID:           maxID,
			SinceID:         req.SinceID,
			ExcludeReplies:  gotwitter.Bool(false),
			IncludeRetweets: gotwitter.Bool(true),
			TweetMode:       "extended",
		})
	case EndpointMentions:
		tweets, resp, err = a.client.Timelines.MentionTimeline(&gotwitter.MentionTimelineParams{
			Count:     count,
			MaxID:     maxID,
			SinceID:   req.SinceID,
			TweetMode: "extended",
		})
	case EndpointLikes:
		tweets, resp, err = a.client.Favorites.List(&gotwitter.FavoriteListParams{
			UserID:    req.UserID,
			Count:     count,
			MaxID:     maxID,
			SinceID:   req.SinceID,
			TweetMode: "extended",
		})
	case EndpointSearch:
		var search *gotwitter.Search
		search, resp, err = a.client.Search.Tweets(&gotwitter.SearchTweetParams{
			Query:      req.Query,
			Count:      count,
			MaxID:      maxID,
			SinceID:    req.SinceID,
			ResultType: "recent",
			TweetMode:  "extended",
		})
		if search != nil {
			tweets = search.Statuses
		}
	default:
		return nil, fmt.Errorf("unsupported tweet endpoint %q", req.Endpoint)
	}

	a.logCall(string(req.Endpoint), resp, start)
	if err != nil {
		return nil, classify(resp, err)
	}

	page := &TweetPage{Received: len(tweets), RateLimit: snapshot(resp)}
	for i := range tweets {
		page.Tweets = append(page.Tweets, convertTweet(&tweets[i]))
	}
	page.Next = nextMaxID(page.Tweets)
	return page, nil
}

// FetchIDs returns one page of follower or follow ids
func (a *API) FetchIDs(ctx context.Context, req CursorRequest) (*IDPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	count := req.Count
	if count <= 0 {
		count = IDPageSize
	}

	start := time.Now()
	var (
		ids  []int64
		next int64
		resp *http.Response
		err  error
	)

	switch req.Endpoint {
	case EndpointFollowers:
		var res *gotwitter.FollowerIDs
		res, resp, err = a.client.Followers.IDs(&gotwitter.FollowerIDParams{
			UserID: req.UserID,
			Cursor: req.Cursor,
			Count:  count,
		})
		if res != nil {
			ids, next = res.IDs, res.NextCursor
		}
	case EndpointFollows:
		var res *gotwitter.FriendIDs
		res, resp, err = a.client.Friends.IDs(&gotwitter.FriendIDParams{
			UserID: req.UserID,
			Cursor: req.Cursor,
			Count:  count,
		})
		if res != nil {
			ids, next = res.IDs, res.NextCursor
		}
	default:
		return nil, fmt.Errorf("unsupported id endpoint %q", req.Endpoint)
	}

	a.logCall(string(req.Endpoint), resp, start)
	if err != nil {
		return nil, classify(resp, err)
	}

	return &IDPage{IDs: ids, NextCursor: next, RateLimit: snapshot(resp)}, nil
}

// FetchLists returns one page of lists owned by req.UserID
func (a *API) FetchLists(ctx context.Context, req CursorRequest) (*ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	count := req.Count
	if count <= 0 {
		count = ListPageSize
	}

	start := time.Now()
	res, resp, err := a.client.Lists.Ownerships(&gotwitter.ListsOwnershipsParams{
		UserID: req.UserID,
		Cursor: req.Cursor,
		Count:  count,
	})
	a.logCall(string(EndpointLists), resp, start)
	if err != nil {
		return nil, classify(resp, err)
	}

	page := &ListPage{RateLimit: snapshot(resp)}
	if res != nil {
		page.NextCursor = res.NextCursor
		for i := range res.Lists {
			page.Lists = append(page.Lists, convertList(&res.Lists[i]))
		}
	}
	return page, nil
}

// FetchListMembers returns one page of members of req.ListID
func (a *API) FetchListMembers(ctx context.Context, req CursorRequest) (*UserPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	count := req.Count
	if count <= 0 {
		count = MemberPageSize
	}

	start := time.Now()
	res, resp, err := a.client.Lists.Members(&gotwitter.ListsMembersParams{
		ListID:     req.ListID,
		Cursor:     req.Cursor,
		Count:      count,
		SkipStatus: gotwitter.Bool(true),
	})
	a.logCall(string(EndpointMembers), resp, start)
	if err != nil {
		return nil, classify(resp, err)
	}

	page := &UserPage{RateLimit: snapshot(resp)}
	if res != nil {
		page.NextCursor = res.NextCursor
		for i := range res.Users {
			page.Users = append(page.Users, convertUser(&res.Users[i]))
		}
	}
	return page, nil
}

// LookupUsers fetches up to LookupBatchSize profiles by id
func (a *API) LookupUsers(ctx context.Context, ids []int64) (*UserBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ids) > LookupBatchSize {
		return nil, fmt.Errorf("lookup of %d users exceeds batch size %d", len(ids), LookupBatchSize)
	}

	start := time.Now()
	users, resp, err := a.client.Users.Lookup(&gotwitter.UserLookupParams{UserID: ids})
	a.logCall("users_lookup", resp, start)
	if err != nil {
		return nil, classify(resp, err)
	}

	batch := &UserBatch{RateLimit: snapshot(resp)}
	for i := range users {
		batch.Users = append(batch.Users, convertUser(&users[i]))
	}
	return batch, nil
}

// VerifyCredentials resolves the authenticated account
func (a *API) VerifyCredentials(ctx context.Context) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	user, resp, err := a.client.Accounts.VerifyCredentials(&gotwitter.AccountVerifyParams{
		SkipStatus: gotwitter.Bool(true),
	})
	a.logCall("verify_credentials", resp, start)
	if err != nil {
		return nil, classify(resp, err)
	}
	if user == nil {
		return nil, &errs.Error{Type: errs.ErrorTypeParsing, Message: "empty credentials response"}
	}

	u := convertUser(user)
	return &u, nil
}

func (a *API) logCall(endpoint string, resp *http.Response, start time.Time) {
	fields := map[string]interface{}{
		"endpoint": endpoint,
		"duration": time.Since(start),
	}
	if resp != nil {
		fields["status"] = resp.StatusCode
		if snap := snapshot(resp); snap.Known() {
			fields["remaining"] = snap.Remaining
			fields["limit"] = snap.Limit
		}
	}
	a.logger.DebugWithFields("API call completed", fields)
}

func parsePosition(position string) (int64, error) {
	if position == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(position, 10, 64)
	if err != nil {
		return 0, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("invalid timeline position %q", position),
		}
	}
	return id, nil
}

// nextMaxID returns the position of the page after tweets: one below the
// lowest id seen, or empty when the page was empty.
func nextMaxID(tweets []Tweet) string {
	var lowest int64
	for _, t := range tweets {
		if t.ID > 0 && (lowest == 0 || t.ID < lowest) {
			lowest = t.ID
		}
	}
	if lowest <= 1 {
		return ""
	}
	return strconv.FormatInt(lowest-1, 10)
}

func snapshot(resp *http.Response) ratelimit.Snapshot {
	if resp == nil {
		return ratelimit.Snapshot{}
	}
	return ratelimit.FromHeaders(resp.Header)
}

// classify turns a transport or API failure into a typed error
func classify(resp *http.Response, err error) error {
	if resp == nil {
		return errs.Network(err)
	}
	if resp.StatusCode < 300 {
		return &errs.Error{Type: errs.ErrorTypeParsing, Message: err.Error(), Code: resp.StatusCode}
	}

	apiErr := errs.FromStatus(resp.StatusCode, err.Error())
	if apiErr.Type == errs.ErrorTypeRateLimit {
		if reset, perr := strconv.ParseInt(resp.Header.Get("x-rate-limit-reset"), 10, 64); perr == nil {
			apiErr.ResetAt = time.Unix(reset, 0)
		}
	}
	return apiErr
}

func convertTweet(t *gotwitter.Tweet) Tweet {
	out := Tweet{
		ID:                t.ID,
		Text:              t.FullText,
		InReplyToStatusID: t.InReplyToStatusID,
		InReplyToUserID:   t.InReplyToUserID,
		FavoriteCount:     t.FavoriteCount,
		RetweetCount:      t.RetweetCount,
		Lang:              t.Lang,
	}
	if out.Text == "" {
		out.Text = t.Text
	}
	if created, err := t.CreatedAtTime(); err == nil {
		out.CreatedAt = created
	}
	if t.User != nil {
		u := convertUser(t.User)
		out.User = &u
	}
	if t.QuotedStatus != nil {
		q := convertTweet(t.QuotedStatus)
		out.QuotedStatus = &q
	}
	if t.RetweetedStatus != nil {
		r := convertTweet(t.RetweetedStatus)
		out.RetweetedStatus = &r
	}
	if t.ExtendedEntities != nil {
		for _, m := range t.ExtendedEntities.Media {
			out.Media = append(out.Media, convertMedia(m))
		}
	}
	return out
}

func convertMedia(m gotwitter.MediaEntity) Media {
	media := Media{Type: m.Type, URL: m.MediaURLHttps}
	for _, v := range m.VideoInfo.Variants {
		media.Variants = append(media.Variants, VideoVariant{
			ContentType: v.ContentType,
			Bitrate:     v.Bitrate,
			URL:         v.URL,
		})
	}
	return media
}

func convertUser(u *gotwitter.User) User {
	out := User{
		ID:                        u.ID,
		ScreenName:                u.ScreenName,
		Name:                      u.Name,
		Description:               u.Description,
		Location:                  u.Location,
		URL:                       u.URL,
		ProfileImageURL:           u.ProfileImageURLHttps,
		ProfileBannerURL:          u.ProfileBannerURL,
		ProfileBackgroundImageURL: u.ProfileBackgroundImageURLHttps,
		FollowersCount:            u.FollowersCount,
		FriendsCount:              u.FriendsCount,
		StatusesCount:             u.StatusesCount,
		FavouritesCount:           u.FavouritesCount,
		Verified:                  u.Verified,
		Protected:                 u.Protected,
	}
	if created, err := time.Parse(time.RubyDate, u.CreatedAt); err == nil {
		out.CreatedAt = created
	}
	return out
}

func convertList(l *gotwitter.List) List {
	out := List{
		ID:              l.ID,
		Name:            l.Name,
		Slug:            l.Slug,
		Description:     l.Description,
		MemberCount:     l.MemberCount,
		SubscriberCount: l.SubscriberCount,
		Mode:            l.Mode,
	}
	if l.User != nil {
		out.OwnerID = l.User.ID
	}
	return out
}

var _ Client = (*API)(nil)
