package archive

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/twitter"
)

func tweets(ids ...int64) []twitter.Tweet {
	out := make([]twitter.Tweet, len(ids))
	for i, id := range ids {
		out[i] = twitter.Tweet{ID: id}
	}
	return out
}

func ids(posts []twitter.Tweet) []int64 {
	out := make([]int64, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestInsertAt(t *testing.T) {
	tests := []struct {
		name     string
		posts    []twitter.Tweet
		offset   int
		items    []twitter.Tweet
		expected []int64
	}{
		{"prepend", tweets(10, 9), 0, tweets(12, 11), []int64{12, 11, 10, 9}},
		{"middle", tweets(12, 10, 9), 1, tweets(11), []int64{12, 11, 10, 9}},
		{"append past end", tweets(3), 5, tweets(2, 1), []int64{3, 2, 1}},
		{"negative offset", tweets(3), -1, tweets(4), []int64{4, 3}},
		{"nothing to insert", tweets(3), 0, nil, []int64{3}},
		{"empty collection", nil, 0, tweets(1), []int64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(InsertAt(tt.posts, tt.offset, tt.items)))
		})
	}
}

func TestPostsAndIndex(t *testing.T) {
	a := New(twitter.User{ID: 1})
	*a.Posts(CollectionLikes) = tweets(5, 4)

	assert.Equal(t, []int64{5, 4}, ids(a.Likes))
	assert.Equal(t, 1, IndexOf(a.Likes, 4))
	assert.Equal(t, -1, IndexOf(a.Likes, 99))
	assert.Nil(t, a.Posts(Collection("unknown")))

	*a.IDs(true) = []int64{1, 2}
	*a.IDs(false) = []int64{3}
	assert.Equal(t, []int64{1, 2}, a.Followers)
	assert.Equal(t, []int64{3}, a.Follows)
}

func TestSortTweetsAndStats(t *testing.T) {
	a := New(twitter.User{ID: 1})
	a.Tweets = tweets(2, 9, 5)
	a.SortTweets()
	assert.Equal(t, []int64{9, 5, 2}, ids(a.Tweets))

	a.Responses[9] = tweets(20, 21)
	a.Lists = []List{{Name: "a", List: twitter.List{ID: 7}, Members: []int64{1, 2, 3}}}
	a.Media["https://pbs/a.jpg"] = "media/a.jpg"

	s := a.Stats()
	assert.Equal(t, 3, s.Tweets)
	assert.Equal(t, 2, s.Responses)
	assert.Equal(t, 1, s.Lists)
	assert.Equal(t, 3, s.Members)
	assert.Equal(t, 1, s.Media)
	assert.Equal(t, 0, a.FindList(7))
	assert.Equal(t, -1, a.FindList(8))
}

func TestCacheScopedAccess(t *testing.T) {
	c := NewCache(&Archive{Profile: twitter.User{ID: 42}})
	assert.Equal(t, int64(42), c.ID())

	failure := errors.New("phase failed")
	err := c.With(func(a *Archive) error {
		a.Tweets = tweets(1)
		return failure
	})
	assert.ErrorIs(t, err, failure)

	// The lock must have been released on the error path.
	c.SetMedia("https://pbs/a.jpg", "media/a.jpg")
	c.SetMedia("https://pbs/a.jpg", "media/other.jpg")

	ref, ok := c.MediaRef("https://pbs/a.jpg")
	assert.True(t, ok)
	assert.Equal(t, "media/a.jpg", ref)

	c.Read(func(a *Archive) {
		assert.Len(t, a.Tweets, 1)
	})
}

func TestCacheSnapshotIsIndependent(t *testing.T) {
	c := NewCache(New(twitter.User{ID: 1}))
	require.NoError(t, c.With(func(a *Archive) error {
		a.Profiles[5] = twitter.User{ID: 5, ScreenName: "five"}
		a.Tweets = tweets(3)
		return nil
	}))

	snap, err := c.Snapshot()
	require.NoError(t, err)
	snap.Tweets[0].Text = "changed"

	c.Read(func(a *Archive) {
		assert.Empty(t, a.Tweets[0].Text)
	})
	assert.Equal(t, "five", snap.Profiles[5].ScreenName)
}

func TestCacheConcurrentMedia(t *testing.T) {
	c := NewCache(New(twitter.User{ID: 1}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.SetMedia("https://pbs/same.jpg", "media/same.jpg")
			c.HasProfile(int64(i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, c.Stats().Media)
}

func TestStoreSaveLoadFind(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, logger.NewNopLogger())
	require.NoError(t, err)

	_, err = store.Find()
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Load(42)
	assert.ErrorIs(t, err, ErrNotFound)

	doc := New(twitter.User{ID: 42, ScreenName: "archived"})
	doc.Tweets = []twitter.Tweet{{ID: 7, Text: "hello", CreatedAt: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)}}
	doc.Responses[7] = tweets(8)
	doc.Media["https://pbs/a.jpg"] = "media/a.jpg"
	require.NoError(t, store.Save(NewCache(doc)))

	_, err = os.Stat(store.Path(42) + ".tmp")
	assert.True(t, os.IsNotExist(err))

	// Unrelated json files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paging_positions.json"), []byte("{}"), 0644))

	id, err := store.Find()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	loaded, err := store.Load(42)
	require.NoError(t, err)
	assert.Equal(t, "archived", loaded.Profile.ScreenName)
	assert.Equal(t, "hello", loaded.Tweets[0].Text)
	assert.True(t, loaded.Tweets[0].CreatedAt.Equal(doc.Tweets[0].CreatedAt))
	assert.Equal(t, []int64{8}, ids(loaded.Responses[7]))
	assert.Equal(t, "media/a.jpg", loaded.Media["https://pbs/a.jpg"])
	assert.NotNil(t, loaded.Profiles)
}

func TestStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, logger.NewNopLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path(9), []byte("{"), 0644))
	_, err = store.Load(9)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
