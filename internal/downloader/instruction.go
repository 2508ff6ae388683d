package downloader

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"net/url"
	"path"
	"strings"
)

// Instruction is one unit of work for the Dispatcher. The set of variants
// is closed: Image, Video, ProfileMedia and Done.
type Instruction interface {
	instruction()
}

// Image is a still image attached to a post
type Image struct {
	URL string
}

// Video is the preferred encoding of a video or GIF
type Video struct {
	URL         string
	ContentType string
}

// ProfileMedia is an avatar, banner or background image
type ProfileMedia struct {
	URL string
}

// Done tells the workers that no more instructions will follow
type Done struct{}

func (Image) instruction()        {}
func (Video) instruction()        {}
func (ProfileMedia) instruction() {}
func (Done) instruction()         {}

// defaultExtension is used when neither content type nor URL give one
const defaultExtension = "png"

// target returns the source URL of an instruction and the stable artifact
// name it is stored under. ok is false for Done.
func target(ins Instruction) (source, name string, ok bool) {
	switch v := ins.(type) {
	case Image:
		return v.URL, ArtifactName(v.URL, extensionForURL(v.URL)), true
	case Video:
		ext := extensionForContentType(v.ContentType)
		if ext == "" {
			ext = extensionForURL(v.URL)
		}
		return v.URL, ArtifactName(v.URL, ext), true
	case ProfileMedia:
		return v.URL, ArtifactName(v.URL, extensionForURL(v.URL)), true
	default:
		return "", "", false
	}
}

// ArtifactName hashes rawURL so the same URL maps to the same file on
// every run
func ArtifactName(rawURL, ext string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:]) + "." + ext
}

func extensionForURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultExtension
	}
	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" || len(ext) > 5 {
		return defaultExtension
	}
	return strings.ToLower(ext)
}

var videoExtensions = map[string]string{
	"video/mp4":             "mp4",
	"video/webm":            "webm",
	"video/quicktime":       "mov",
	"application/x-mpegurl": "m3u8",
	"image/gif":             "gif",
}

func extensionForContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	mediaType = strings.ToLower(mediaType)
	if ext, ok := videoExtensions[mediaType]; ok {
		return ext
	}
	if _, sub, found := strings.Cut(mediaType, "/"); found && sub != "" && !strings.ContainsAny(sub, ".+-") {
		return sub
	}
	return ""
}
