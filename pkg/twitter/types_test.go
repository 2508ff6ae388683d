package twitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectVariant(t *testing.T) {
	tests := []struct {
		name     string
		variants []VideoVariant
		expected VideoVariant
		ok       bool
	}{
		{
			name: "highest bitrate mp4 wins over webm",
			variants: []VideoVariant{
				{ContentType: "video/mp4", Bitrate: 800_000, URL: "https://video/800.mp4"},
				{ContentType: "video/mp4", Bitrate: 1_200_000, URL: "https://video/1200.mp4"},
				{ContentType: "video/webm", Bitrate: 2_000_000, URL: "https://video/2000.webm"},
			},
			expected: VideoVariant{ContentType: "video/mp4", Bitrate: 1_200_000, URL: "https://video/1200.mp4"},
			ok:       true,
		},
		{
			name: "playlist ignored",
			variants: []VideoVariant{
				{ContentType: "application/x-mpegURL", URL: "https://video/pl.m3u8"},
				{ContentType: "video/mp4; codecs=avc1", Bitrate: 256_000, URL: "https://video/256.mp4"},
			},
			expected: VideoVariant{ContentType: "video/mp4; codecs=avc1", Bitrate: 256_000, URL: "https://video/256.mp4"},
			ok:       true,
		},
		{
			name: "no mp4 falls back to first",
			variants: []VideoVariant{
				{ContentType: "application/x-mpegURL", URL: "https://video/pl.m3u8"},
				{ContentType: "video/webm", Bitrate: 100, URL: "https://video/a.webm"},
			},
			expected: VideoVariant{ContentType: "application/x-mpegURL", URL: "https://video/pl.m3u8"},
			ok:       true,
		},
		{
			name: "empty",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectVariant(tt.variants)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUserMediaURLs(t *testing.T) {
	u := User{
		ProfileImageURL:  "https://pbs/avatar.jpg",
		ProfileBannerURL: "https://pbs/banner",
	}
	assert.Equal(t, []string{"https://pbs/avatar.jpg", "https://pbs/banner"}, u.MediaURLs())
	assert.Empty(t, (&User{}).MediaURLs())
}

func TestNextMaxID(t *testing.T) {
	assert.Equal(t, "", nextMaxID(nil))
	assert.Equal(t, "99", nextMaxID([]Tweet{{ID: 300}, {ID: 100}, {ID: 200}}))
	assert.Equal(t, "", nextMaxID([]Tweet{{ID: 0}}))
}

func TestTweetAuthorID(t *testing.T) {
	assert.Equal(t, int64(0), (&Tweet{}).AuthorID())
	assert.Equal(t, int64(7), (&Tweet{User: &User{ID: 7}}).AuthorID())
}
