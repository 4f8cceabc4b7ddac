package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypost/backend/internal/config"
	"github.com/dailypost/backend/internal/fetcher"
)

const page = `<html><head><title>Test Page</title><style>body{color:red}</style></head>
<body><nav>Home About</nav><h1>Hello</h1><p>Connection pools   bound
concurrency.</p><script>var x = 1;</script><footer>(c) 2026</footer></body></html>`

func newFetcher(robots bool) *fetcher.Fetcher {
	cfg := config.Default().Fetcher
	cfg.Timeout = 5 * time.Second
	cfg.EnableRobotsCheck = robots
	cfg.MinDelay = 0
	return fetcher.NewFetcher(cfg)
}

func TestFetcher_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DailyPost-Bot/1.0", r.UserAgent())
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer ts.Close()

	result, err := newFetcher(false).Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, ts.URL, result.URL)
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, "Test Page", result.Title)
	assert.Equal(t, "Hello Connection pools bound concurrency.", result.Text)
}

func TestFetcher_Fetch_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	result, err := newFetcher(false).Fetch(context.Background(), ts.URL)
	assert.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 404, result.StatusCode)
}

func TestFetcher_Robots(t *testing.T) {
	var robotsHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&robotsHits, 1)
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := newFetcher(true)

	_, err := f.Fetch(context.Background(), ts.URL+"/private/post")
	assert.ErrorIs(t, err, fetcher.ErrDisallowed)

	result, err := f.Fetch(context.Background(), ts.URL+"/public/post")
	require.NoError(t, err)
	assert.Equal(t, "Test Page", result.Title)

	// robots.txt is cached per host
	assert.Equal(t, int32(1), atomic.LoadInt32(&robotsHits))
}

func TestFetcher_RobotsMissingAllows(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", http.NotFound)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	_, err := newFetcher(true).Fetch(context.Background(), ts.URL+"/anything")
	assert.NoError(t, err)
}

func TestFetcher_FetchFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"a","title":"Old","date":"2026-01-01T00:00:00Z","content":"old body","novel":true},
			{"id":"b","title":"New","date":"2026-01-02T00:00:00Z","content":"new body","novel":true}]`))
	}))
	defer ts.Close()

	posts, err := newFetcher(false).FetchFeed(context.Background(), ts.URL+"/feed.json")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "New", posts.Latest().Title)
}

func TestFetcher_FetchFeed_BadJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not a feed</html>"))
	}))
	defer ts.Close()

	_, err := newFetcher(false).FetchFeed(context.Background(), ts.URL)
	assert.Error(t, err)
}

func TestFetcher_SpacesRequestsToOneHost(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(page))
	}))
	defer ts.Close()

	cfg := config.Default().Fetcher
	cfg.EnableRobotsCheck = false
	cfg.MinDelay = 150 * time.Millisecond
	f := fetcher.NewFetcher(cfg)

	start := time.Now()
	_, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetcher_ThrottleHonoursContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer ts.Close()

	cfg := config.Default().Fetcher
	cfg.EnableRobotsCheck = false
	cfg.MinDelay = time.Hour
	f := fetcher.NewFetcher(cfg)

	_, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, ts.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
