package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	errs "tweetvault/pkg/errors"
)

// v2 payload shapes for GET /2/users/:id/bookmarks

type v2Response struct {
	Data     []json.RawMessage `json:"data"`
	Includes v2Includes `json:"includes"`
	Meta     struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

// Items are kept raw and decoded one at a time so a single bad entry only
// loses itself
type v2Includes struct {
	Users  []json.RawMessage `json:"users"`
	Media  []json.RawMessage `json:"media"`
	Tweets []json.RawMessage `json:"tweets"`
}

type v2Tweet struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
	AuthorID        string    `json:"author_id"`
	InReplyToUserID string    `json:"in_reply_to_user_id"`
	Lang            string    `json:"lang"`
	PublicMetrics   struct {
		RetweetCount int `json:"retweet_count"`
		LikeCount    int `json:"like_count"`
	} `json:"public_metrics"`
	Attachments struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
	ReferencedTweets []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"referenced_tweets"`
}

type v2User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	URL             string    `json:"url"`
	ProfileImageURL string    `json:"profile_image_url"`
	Verified        bool      `json:"verified"`
	Protected       bool      `json:"protected"`
	CreatedAt       time.Time `json:"created_at"`
	PublicMetrics   struct {
		FollowersCount int `json:"followers_count"`
		FollowingCount int `json:"following_count"`
		TweetCount     int `json:"tweet_count"`
	} `json:"public_metrics"`
}

type v2Media struct {
	MediaKey        string `json:"media_key"`
	Type            string `json:"type"`
	URL             string `json:"url"`
	PreviewImageURL string `json:"preview_image_url"`
	Variants        []struct {
		BitRate     int    `json:"bit_rate"`
		ContentType string `json:"content_type"`
		URL         string `json:"url"`
	} `json:"variants"`
}

func (a *API) fetchBookmarks(ctx context.Context, req PageRequest) (*TweetPage, error) {
	count := req.Count
	if count <= 0 || count > BookmarkPageSize {
		count = BookmarkPageSize
	}

	query := url.Values{}
	query.Set("max_results", strconv.Itoa(count))
	query.Set("expansions", "author_id,attachments.media_keys,referenced_tweets.id,referenced_tweets.id.author_id")
	query.Set("tweet.fields", "created_at,author_id,in_reply_to_user_id,lang,public_metrics,attachments,referenced_tweets")
	query.Set("user.fields", "created_at,description,location,url,profile_image_url,protected,verified,public_metrics")
	query.Set("media.fields", "type,url,preview_image_url,variants")
	if req.Position != "" {
		query.Set("pagination_token", req.Position)
	}

	endpoint := fmt.Sprintf("%susers/%d/bookmarks?%s", a.v2BaseURL, req.UserID, query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create bookmarks request: %w", err)
	}

	start := time.Now()
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.Network(err)
	}
	defer resp.Body.Close()
	a.logCall(string(EndpointBookmarks), resp, start)

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, classify(resp, fmt.Errorf("bookmarks request failed: %s", string(body)))
	}

	var payload v2Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to decode bookmarks: %v", err),
			Code:    resp.StatusCode,
		}
	}

	page := &TweetPage{
		Next:      payload.Meta.NextToken,
		Received:  len(payload.Data),
		RateLimit: snapshot(resp),
	}
	conv := newV2Converter(payload.Includes)
	for i, raw := range payload.Data {
		var t v2Tweet
		if err := json.Unmarshal(raw, &t); err != nil {
			a.logger.WarnWithFields("Skipping malformed bookmark", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		tweet, ok := conv.tweet(t, 0)
		if !ok {
			a.logger.WarnWithFields("Skipping malformed bookmark", map[string]interface{}{"id": t.ID})
			continue
		}
		page.Tweets = append(page.Tweets, tweet)
	}
	if len(payload.Data) == 0 {
		page.Next = ""
	}
	return page, nil
}

type v2Converter struct {
	users  map[string]v2User
	media  map[string]v2Media
	tweets map[string]v2Tweet
}

func newV2Converter(inc v2Includes) *v2Converter {
	c := &v2Converter{
		users:  make(map[string]v2User, len(inc.Users)),
		media:  make(map[string]v2Media, len(inc.Media)),
		tweets: make(map[string]v2Tweet, len(inc.Tweets)),
	}
	for _, raw := range inc.Users {
		var u v2User
		if json.Unmarshal(raw, &u) == nil {
			c.users[u.ID] = u
		}
	}
	for _, raw := range inc.Media {
		var m v2Media
		if json.Unmarshal(raw, &m) == nil {
			c.media[m.MediaKey] = m
		}
	}
	for _, raw := range inc.Tweets {
		var t v2Tweet
		if json.Unmarshal(raw, &t) == nil {
			c.tweets[t.ID] = t
		}
	}
	return c
}

// tweet converts t and its referenced posts. Referenced posts are resolved
// from the includes one level deep, which is all the API expands.
func (c *v2Converter) tweet(t v2Tweet, depth int) (Tweet, bool) {
	id, err := strconv.ParseInt(t.ID, 10, 64)
	if err != nil || id == 0 {
		return Tweet{}, false
	}

	out := Tweet{
		ID:            id,
		Text:          t.Text,
		CreatedAt:     t.CreatedAt,
		Lang:          t.Lang,
		FavoriteCount: t.PublicMetrics.LikeCount,
		RetweetCount:  t.PublicMetrics.RetweetCount,
	}
	out.InReplyToUserID, _ = strconv.ParseInt(t.InReplyToUserID, 10, 64)

	if u, ok := c.users[t.AuthorID]; ok {
		user := convertV2User(u)
		out.User = &user
	}

	for _, key := range t.Attachments.MediaKeys {
		m, ok := c.media[key]
		if !ok {
			continue
		}
		media := Media{Type: m.Type, URL: m.URL}
		if media.URL == "" {
			media.URL = m.PreviewImageURL
		}
		for _, v := range m.Variants {
			media.Variants = append(media.Variants, VideoVariant{
				ContentType: v.ContentType,
				Bitrate:     v.BitRate,
				URL:         v.URL,
			})
		}
		out.Media = append(out.Media, media)
	}

	for _, ref := range t.ReferencedTweets {
		switch ref.Type {
		case "replied_to":
			out.InReplyToStatusID, _ = strconv.ParseInt(ref.ID, 10, 64)
		case "quoted", "retweeted":
			if depth > 0 {
				continue
			}
			inner, ok := c.tweets[ref.ID]
			if !ok {
				continue
			}
			converted, ok := c.tweet(inner, depth+1)
			if !ok {
				continue
			}
			if ref.Type == "quoted" {
				out.QuotedStatus = &converted
			} else {
				out.RetweetedStatus = &converted
			}
		}
	}

	return out, true
}

func convertV2User(u v2User) User {
	id, _ := strconv.ParseInt(u.ID, 10, 64)
	return User{
		ID:              id,
		ScreenName:      u.Username,
		Name:            u.Name,
		Description:     u.Description,
		Location:        u.Location,
		URL:             u.URL,
		ProfileImageURL: u.ProfileImageURL,
		FollowersCount:  u.PublicMetrics.FollowersCount,
		FriendsCount:    u.PublicMetrics.FollowingCount,
		StatusesCount:   u.PublicMetrics.TweetCount,
		Verified:        u.Verified,
		Protected:       u.Protected,
		CreatedAt:       u.CreatedAt,
	}
}
