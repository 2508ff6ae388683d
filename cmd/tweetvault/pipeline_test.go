package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"tweetvault/pkg/archive"
	"tweetvault/pkg/config"
	"tweetvault/pkg/crawler"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/twitter"
)

// mockTwitterServer serves the v1.1 endpoints one crawl touches and the
// media files its posts reference
type mockTwitterServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests map[string]int
}

func newMockTwitterServer(t *testing.T) *mockTwitterServer {
	t.Helper()

	m := &mockTwitterServer{requests: make(map[string]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("/1.1/statuses/user_timeline.json", m.handleTimeline)
	mux.HandleFunc("/1.1/followers/ids.json", m.handleIDs(11, 12, 13))
	mux.HandleFunc("/1.1/friends/ids.json", m.handleIDs(21))
	mux.HandleFunc("/media/", m.handleMedia)
	mux.HandleFunc("/", m.handleEmpty)

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockTwitterServer) count(path string) {
	m.mu.Lock()
	m.requests[path]++
	m.mu.Unlock()
}

func (m *mockTwitterServer) requestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[path]
}

func (m *mockTwitterServer) handleTimeline(w http.ResponseWriter, r *http.Request) {
	m.count(r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Query().Get("max_id") != "" {
		fmt.Fprint(w, "[]")
		return
	}
	fmt.Fprintf(w, `[
  {"id": 200, "full_text": "second", "created_at": "Tue Jan 03 10:00:00 +0000 2023",
   "user": {"id": 1, "screen_name": "me", "profile_image_url_https": "%[1]s/media/avatar.jpg"},
   "extended_entities": {"media": [{"type": "photo", "media_url_https": "%[1]s/media/photo.jpg"}]}},
  {"id": 100, "full_text": "first", "created_at": "Mon Jan 02 10:00:00 +0000 2023",
   "user": {"id": 1, "screen_name": "me", "profile_image_url_https": "%[1]s/media/avatar.jpg"}}
]`, m.server.URL)
}

func (m *mockTwitterServer) handleIDs(ids ...int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.count(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"ids": %s, "next_cursor": 0, "previous_cursor": 0}`, jsonIDs(ids))
	}
}

func (m *mockTwitterServer) handleMedia(w http.ResponseWriter, r *http.Request) {
	m.count(r.URL.Path)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write([]byte("jpeg:" + r.URL.Path))
}

// handleEmpty answers mentions, likes and profile lookups with nothing
func (m *mockTwitterServer) handleEmpty(w http.ResponseWriter, r *http.Request) {
	m.count(r.URL.Path)
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, "[]")
}

func jsonIDs(ids []int64) string {
	out := "["
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprint(id)
	}
	return out + "]"
}

// rewriteTransport sends API requests to the mock server
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Archive.Directory = t.TempDir()
	cfg.Crawl.Bookmarks = false
	cfg.Download.Workers = 2
	cfg.Download.Timeout = 5 * time.Second
	cfg.RateLimit.MaxRetries = 1
	cfg.RateLimit.RetryDelay = time.Millisecond
	return cfg
}

func TestPipelineCrawlsIntoArchiveDirectory(t *testing.T) {
	mock := newMockTwitterServer(t)
	target, err := url.Parse(mock.server.URL)
	if err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t)
	profile := twitter.User{ID: 1, ScreenName: "me"}
	ctx := context.Background()

	p, err := openPipeline(ctx, cfg, profile)
	if err != nil {
		t.Fatalf("openPipeline failed: %v", err)
	}

	log := logger.NewTestLogger()
	client := twitter.NewAPIWithHTTPClient(&http.Client{Transport: rewriteTransport{target: target}}, log)
	engine := crawler.New(crawler.Dependencies{
		Client:     client,
		Cache:      p.cache,
		Documents:  p.documents,
		Positions:  p.positions,
		Governor:   p.governor,
		Dispatcher: p.dispatcher,
		Metrics:    p.metrics,
		Logger:     log,
	}, crawler.Options{
		Crawl: cfg.Crawl,
		Retry: retryConfig(cfg, log),
	})

	if err := engine.Run(ctx, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	doc, err := p.documents.Load(profile.ID)
	if err != nil {
		t.Fatalf("Failed to load saved archive: %v", err)
	}
	if got := archive.PostIDs(doc.Tweets); len(got) != 2 || got[0] != 200 || got[1] != 100 {
		t.Errorf("Tweets = %v, want [200 100]", got)
	}
	if len(doc.Followers) != 3 || len(doc.Follows) != 1 {
		t.Errorf("Followers = %v, Follows = %v", doc.Followers, doc.Follows)
	}

	photo := mock.server.URL + "/media/photo.jpg"
	if _, ok := doc.Media[photo]; !ok {
		t.Errorf("Media map should hold %s, got %v", photo, doc.Media)
	}
	if n := mock.requestCount("/media/photo.jpg"); n != 1 {
		t.Errorf("Photo fetched %d times, want 1", n)
	}
	if n := mock.requestCount("/media/avatar.jpg"); n != 1 {
		t.Errorf("Avatar fetched %d times, want 1", n)
	}
	if n := mock.requestCount("/1.1/statuses/user_timeline.json"); n != 2 {
		t.Errorf("Timeline requested %d times, want 2", n)
	}

	if keys := p.positions.Keys(); len(keys) != 0 {
		t.Errorf("Finished run left positions behind: %v", keys)
	}
	if stats := p.dispatcher.Stats(); stats.Fetched != 2 || stats.Failed != 0 {
		t.Errorf("Dispatcher stats = %+v", stats)
	}
}

func TestOpenPipelineRejectsForeignArchive(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := openPipeline(ctx, cfg, twitter.User{ID: 1, ScreenName: "me"})
	if err != nil {
		t.Fatal(err)
	}
	if err := first.documents.Save(first.cache); err != nil {
		t.Fatal(err)
	}

	if _, err := openPipeline(ctx, cfg, twitter.User{ID: 2, ScreenName: "other"}); err == nil {
		t.Error("Expected an error for a directory holding another account")
	}

	again, err := openPipeline(ctx, cfg, twitter.User{ID: 1, ScreenName: "renamed"})
	if err != nil {
		t.Fatalf("Reopening the same account failed: %v", err)
	}
	if again.cache.ID() != 1 {
		t.Errorf("Cache id = %d", again.cache.ID())
	}
}

func TestResolveCredentialsPrefersConfiguration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Twitter.ConsumerKey = "ck"
	cfg.Twitter.ConsumerSecret = "cs"
	cfg.Twitter.AccessToken = "at"
	cfg.Twitter.AccessSecret = "as"

	account, err := resolveCredentials(cfg, "")
	if err != nil {
		t.Fatalf("resolveCredentials failed: %v", err)
	}
	if account != nil {
		t.Error("Configured credentials should not touch the credential store")
	}
}

func TestRetryConfigFromRateLimitSection(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimit.MaxRetries = 5
	cfg.RateLimit.RetryDelay = 3 * time.Second

	rc := retryConfig(cfg, logger.NewNopLogger())
	if rc.MaxRetries != 5 || rc.InitialInterval != 3*time.Second {
		t.Errorf("retry config = %+v", rc)
	}
	if rc.RetryIf == nil {
		t.Error("RetryIf should keep the default classification")
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":                 "",
		"short":            "***",
		"access_secret_42": "acce...t_42",
	}
	for in, want := range cases {
		if got := mask(in); got != want {
			t.Errorf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}
