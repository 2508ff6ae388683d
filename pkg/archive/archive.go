package archive

import (
	"sort"

	"tweetvault/pkg/twitter"
)

// Archive is everything archived for one account
type Archive struct {
	Profile   twitter.User              `json:"profile"`
	Tweets    []twitter.Tweet           `json:"tweets"`
	Mentions  []twitter.Tweet           `json:"mentions"`
	Responses map[int64][]twitter.Tweet `json:"responses"`
	Profiles  map[int64]twitter.User    `json:"profiles"`
	Followers []int64                   `json:"followers"`
	Follows   []int64                   `json:"follows"`
	Bookmarks []twitter.Tweet           `json:"bookmarks"`
	Likes     []twitter.Tweet           `json:"likes"`
	Lists     []List                    `json:"lists"`
	Media     map[string]string         `json:"media"`
}

// List is an owned list with its member ids
type List struct {
	Name    string       `json:"name"`
	List    twitter.List `json:"list"`
	Members []int64      `json:"members"`
}

// New creates an empty archive for profile
func New(profile twitter.User) *Archive {
	a := &Archive{Profile: profile}
	a.ensureMaps()
	return a
}

func (a *Archive) ensureMaps() {
	if a.Responses == nil {
		a.Responses = make(map[int64][]twitter.Tweet)
	}
	if a.Profiles == nil {
		a.Profiles = make(map[int64]twitter.User)
	}
	if a.Media == nil {
		a.Media = make(map[string]string)
	}
}

// ID returns the archived account id
func (a *Archive) ID() int64 {
	return a.Profile.ID
}

// Collection names a time-ordered post list of the archive
type Collection string

const (
	CollectionTweets    Collection = "tweets"
	CollectionMentions  Collection = "mentions"
	CollectionBookmarks Collection = "bookmarks"
	CollectionLikes     Collection = "likes"
)

// Posts returns a pointer to the slice backing c, or nil for an unknown
// collection
func (a *Archive) Posts(c Collection) *[]twitter.Tweet {
	switch c {
	case CollectionTweets:
		return &a.Tweets
	case CollectionMentions:
		return &a.Mentions
	case CollectionBookmarks:
		return &a.Bookmarks
	case CollectionLikes:
		return &a.Likes
	default:
		return nil
	}
}

// IDs returns a pointer to the followers or follows slice
func (a *Archive) IDs(followers bool) *[]int64 {
	if followers {
		return &a.Followers
	}
	return &a.Follows
}

// FindList returns the index of the list with id, or -1
func (a *Archive) FindList(id int64) int {
	for i := range a.Lists {
		if a.Lists[i].List.ID == id {
			return i
		}
	}
	return -1
}

// SortTweets orders the own post list newest first
func (a *Archive) SortTweets() {
	sort.SliceStable(a.Tweets, func(i, j int) bool {
		return a.Tweets[i].ID > a.Tweets[j].ID
	})
}

// IndexOf returns the position of id in posts, or -1
func IndexOf(posts []twitter.Tweet, id int64) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return -1
}

// InsertAt inserts items into s at offset, clamping offset to the slice
// bounds
func InsertAt[T any](s []T, offset int, items []T) []T {
	if len(items) == 0 {
		return s
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(s) {
		offset = len(s)
	}

	out := make([]T, 0, len(s)+len(items))
	out = append(out, s[:offset]...)
	out = append(out, items...)
	out = append(out, s[offset:]...)
	return out
}

// PostIDs returns the ids of posts in order
func PostIDs(posts []twitter.Tweet) []int64 {
	out := make([]int64, len(posts))
	for i := range posts {
		out[i] = posts[i].ID
	}
	return out
}

// Stats are per-collection counts
type Stats struct {
	Tweets    int
	Mentions  int
	Responses int
	Profiles  int
	Followers int
	Follows   int
	Lists     int
	Members   int
	Bookmarks int
	Likes     int
	Media     int
}

// Stats counts every collection
func (a *Archive) Stats() Stats {
	s := Stats{
		Tweets:    len(a.Tweets),
		Mentions:  len(a.Mentions),
		Profiles:  len(a.Profiles),
		Followers: len(a.Followers),
		Follows:   len(a.Follows),
		Lists:     len(a.Lists),
		Bookmarks: len(a.Bookmarks),
		Likes:     len(a.Likes),
		Media:     len(a.Media),
	}
	for _, replies := range a.Responses {
		s.Responses += len(replies)
	}
	for _, l := range a.Lists {
		s.Members += len(l.Members)
	}
	return s
}
