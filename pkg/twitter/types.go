package twitter

import (
	"strings"
	"time"
)

// Tweet is an archived post. Quoted and retweeted posts are embedded as
// returned by the API.
type Tweet struct {
	ID                int64     `json:"id"`
	Text              string    `json:"text"`
	CreatedAt         time.Time `json:"created_at"`
	User              *User     `json:"user,omitempty"`
	InReplyToStatusID int64     `json:"in_reply_to_status_id,omitempty"`
	InReplyToUserID   int64     `json:"in_reply_to_user_id,omitempty"`
	QuotedStatus      *Tweet    `json:"quoted_status,omitempty"`
	RetweetedStatus   *Tweet    `json:"retweeted_status,omitempty"`
	Media             []Media   `json:"media,omitempty"`
	FavoriteCount     int       `json:"favorite_count"`
	RetweetCount      int       `json:"retweet_count"`
	Lang              string    `json:"lang,omitempty"`
}

// AuthorID returns the id of the embedded author, or 0
func (t *Tweet) AuthorID() int64 {
	if t.User == nil {
		return 0
	}
	return t.User.ID
}

// Media kinds
const (
	MediaPhoto       = "photo"
	MediaVideo       = "video"
	MediaAnimatedGIF = "animated_gif"
)

const contentTypeMP4 = "video/mp4"

// Media is a photo, video or GIF attached to a post
type Media struct {
	Type     string         `json:"type"`
	URL      string         `json:"url"`
	Variants []VideoVariant `json:"variants,omitempty"`
}

// IsVideo reports whether the media carries encoded variants
func (m Media) IsVideo() bool {
	return len(m.Variants) > 0
}

// VideoVariant is one encoding of a video
type VideoVariant struct {
	ContentType string `json:"content_type"`
	Bitrate     int    `json:"bitrate"`
	URL         string `json:"url"`
}

// SelectVariant returns the MP4 variant with the highest bitrate. When no
// MP4 exists the first variant is returned. ok is false for an empty slice.
func SelectVariant(variants []VideoVariant) (VideoVariant, bool) {
	if len(variants) == 0 {
		return VideoVariant{}, false
	}

	best := -1
	for i, v := range variants {
		if !isMP4(v.ContentType) {
			continue
		}
		if best < 0 || v.Bitrate > variants[best].Bitrate {
			best = i
		}
	}
	if best < 0 {
		return variants[0], true
	}
	return variants[best], true
}

func isMP4(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(ct), contentTypeMP4)
}

// User is an archived profile
type User struct {
	ID                        int64     `json:"id"`
	ScreenName                string    `json:"screen_name"`
	Name                      string    `json:"name"`
	Description               string    `json:"description,omitempty"`
	Location                  string    `json:"location,omitempty"`
	URL                       string    `json:"url,omitempty"`
	ProfileImageURL           string    `json:"profile_image_url,omitempty"`
	ProfileBannerURL          string    `json:"profile_banner_url,omitempty"`
	ProfileBackgroundImageURL string    `json:"profile_background_image_url,omitempty"`
	FollowersCount            int       `json:"followers_count"`
	FriendsCount              int       `json:"friends_count"`
	StatusesCount             int       `json:"statuses_count"`
	FavouritesCount           int       `json:"favourites_count"`
	Verified                  bool      `json:"verified"`
	Protected                 bool      `json:"protected"`
	CreatedAt                 time.Time `json:"created_at"`
}

// MediaURLs returns the avatar, banner and background URLs that are set
func (u *User) MediaURLs() []string {
	var urls []string
	for _, url := range []string{u.ProfileImageURL, u.ProfileBannerURL, u.ProfileBackgroundImageURL} {
		if url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}

// List is the remote metadata of a Twitter list
type List struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Description     string `json:"description,omitempty"`
	MemberCount     int    `json:"member_count"`
	SubscriberCount int    `json:"subscriber_count"`
	Mode            string `json:"mode"`
	OwnerID         int64  `json:"owner_id"`
}
