package importer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tweetvault/pkg/logger"
)

const sampleExport = `window.YTD.tweets.part0 = [
  {
    "tweet" : {
      "id_str" : "1050118621198921728",
      "id" : "1050118621198921728",
      "full_text" : "To make room for more expression",
      "created_at" : "Wed Oct 10 20:19:24 +0000 2018",
      "favorite_count" : "12",
      "retweet_count" : "3",
      "lang" : "en",
      "in_reply_to_status_id_str" : "1050118621198921000",
      "extended_entities" : {
        "media" : [
          {
            "type" : "video",
            "media_url_https" : "https://pbs.example/thumb.jpg",
            "video_info" : {
              "variants" : [
                { "bitrate" : "832000", "content_type" : "video/mp4", "url" : "https://video.example/a.mp4" },
                { "content_type" : "application/x-mpegURL", "url" : "https://video.example/a.m3u8" }
              ]
            }
          }
        ]
      }
    }
  },
  {
    "tweet" : {
      "id_str" : "not-a-number",
      "full_text" : "broken"
    }
  },
  {
    "tweet" : {
      "id" : "42",
      "full_text" : "only the id field",
      "entities" : {
        "media" : [ { "type" : "photo", "media_url_https" : "https://pbs.example/p.jpg" } ]
      }
    }
  }
]`

func TestParse(t *testing.T) {
	log := logger.NewTestLogger()
	tweets, err := Parse([]byte(sampleExport), log)
	require.NoError(t, err)
	require.Len(t, tweets, 2)

	first := tweets[0]
	assert.Equal(t, int64(1050118621198921728), first.ID)
	assert.Equal(t, "To make room for more expression", first.Text)
	assert.Equal(t, time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC), first.CreatedAt.UTC())
	assert.Equal(t, 12, first.FavoriteCount)
	assert.Equal(t, 3, first.RetweetCount)
	assert.Equal(t, int64(1050118621198921000), first.InReplyToStatusID)
	require.Len(t, first.Media, 1)
	assert.True(t, first.Media[0].IsVideo())
	assert.Equal(t, 832000, first.Media[0].Variants[0].Bitrate)

	second := tweets[1]
	assert.Equal(t, int64(42), second.ID)
	require.Len(t, second.Media, 1)
	assert.Equal(t, "https://pbs.example/p.jpg", second.Media[0].URL)

	assert.Len(t, log.GetMessagesByLevel("WARN"), 1)
}

func TestParseRejectsMissingArray(t *testing.T) {
	_, err := Parse([]byte("window.YTD.tweets.part0 = {}"), logger.NewNopLogger())
	assert.Error(t, err)
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()

	_, err := Locate(dir)
	assert.ErrorIs(t, err, ErrNoTweetFile)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0755))
	path := filepath.Join(dir, "data", "tweet.js")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0644))

	found, err := Locate(dir)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	tweets, err := ParseFile(found, logger.NewNopLogger())
	require.NoError(t, err)
	assert.Len(t, tweets, 2)
}
