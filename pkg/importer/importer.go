package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"tweetvault/pkg/logger"
	"tweetvault/pkg/twitter"
)

// Candidate file names inside the export's data directory
var tweetFiles = []string{"tweets.js", "tweet.js"}

// ErrNoTweetFile is returned when an export has no tweet file
var ErrNoTweetFile = errors.New("no tweets.js or tweet.js in export data directory")

type container struct {
	Tweet exportTweet `json:"tweet"`
}

type exportTweet struct {
	IDStr             string          `json:"id_str"`
	ID                string          `json:"id"`
	FullText          string          `json:"full_text"`
	CreatedAt         string          `json:"created_at"`
	InReplyToStatusID string          `json:"in_reply_to_status_id_str"`
	InReplyToUserID   string          `json:"in_reply_to_user_id_str"`
	FavoriteCount     string          `json:"favorite_count"`
	RetweetCount      string          `json:"retweet_count"`
	Lang              string          `json:"lang"`
	Entities          *exportEntities `json:"entities"`
	ExtendedEntities  *exportEntities `json:"extended_entities"`
}

type exportEntities struct {
	Media []exportMedia `json:"media"`
}

type exportMedia struct {
	Type          string `json:"type"`
	MediaURLHTTPS string `json:"media_url_https"`
	MediaURL      string `json:"media_url"`
	VideoInfo     *struct {
		Variants []struct {
			Bitrate     string `json:"bitrate"`
			ContentType string `json:"content_type"`
			URL         string `json:"url"`
		} `json:"variants"`
	} `json:"video_info"`
}

// Locate returns the tweet file of the export rooted at dir
func Locate(dir string) (string, error) {
	for _, name := range tweetFiles {
		path := filepath.Join(dir, "data", name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNoTweetFile
}

// ParseFile reads the tweet file of an official account export. Entries
// that cannot be converted are logged and skipped.
func ParseFile(path string, log logger.Logger) ([]twitter.Tweet, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return Parse(data, log)
}

// Parse decodes the contents of a tweet file. The JavaScript assignment in
// front of the JSON array is skipped.
func Parse(data []byte, log logger.Logger) ([]twitter.Tweet, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	start := bytes.IndexByte(data, '[')
	if start < 0 {
		return nil, fmt.Errorf("export contains no tweet array")
	}

	var entries []container
	if err := json.Unmarshal(data[start:], &entries); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}

	tweets := make([]twitter.Tweet, 0, len(entries))
	for _, entry := range entries {
		tweet, err := convert(entry.Tweet)
		if err != nil {
			log.WithError(err).WithField("id", entry.Tweet.IDStr).Warn("Skipping export entry")
			continue
		}
		tweets = append(tweets, tweet)
	}

	log.InfoWithFields("Export parsed", map[string]interface{}{
		"entries": len(entries),
		"tweets":  len(tweets),
	})
	return tweets, nil
}

func convert(in exportTweet) (twitter.Tweet, error) {
	rawID := in.IDStr
	if rawID == "" {
		rawID = in.ID
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id == 0 {
		return twitter.Tweet{}, fmt.Errorf("invalid id %q", rawID)
	}

	out := twitter.Tweet{
		ID:                id,
		Text:              in.FullText,
		InReplyToStatusID: parseID(in.InReplyToStatusID),
		InReplyToUserID:   parseID(in.InReplyToUserID),
		FavoriteCount:     int(parseID(in.FavoriteCount)),
		RetweetCount:      int(parseID(in.RetweetCount)),
		Lang:              in.Lang,
	}
	if created, err := time.Parse(time.RubyDate, in.CreatedAt); err == nil {
		out.CreatedAt = created
	}

	entities := in.ExtendedEntities
	if entities == nil {
		entities = in.Entities
	}
	if entities != nil {
		for _, m := range entities.Media {
			out.Media = append(out.Media, convertMedia(m))
		}
	}
	return out, nil
}

func convertMedia(m exportMedia) twitter.Media {
	media := twitter.Media{Type: m.Type, URL: m.MediaURLHTTPS}
	if media.URL == "" {
		media.URL = m.MediaURL
	}
	if m.VideoInfo != nil {
		for _, v := range m.VideoInfo.Variants {
			media.Variants = append(media.Variants, twitter.VideoVariant{
				ContentType: v.ContentType,
				Bitrate:     int(parseID(v.Bitrate)),
				URL:         v.URL,
			})
		}
	}
	return media
}

func parseID(s string) int64 {
	if s == "" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
