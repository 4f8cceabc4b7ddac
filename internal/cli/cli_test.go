package cli_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailypost/backend/internal/cli"
	"github.com/dailypost/backend/internal/feed"
	"github.com/dailypost/backend/internal/storage"
)

const poolsBody = `Opening a database connection costs a TCP handshake, TLS negotiation and
authentication. A pool amortizes that cost across requests, bounds concurrency
against the database and smooths latency spikes during traffic bursts.`

const sourdough = `# Sourdough starters for engineers

Wild yeast cultures reward patience: feed flour and water daily, watch the rise,
and discard half before each refresh. Hydration ratios change crumb texture.`

type env struct {
	dir        string
	configPath string
	feedPath   string
	atomPath   string
}

// newEnv writes a config file into a temp dir. llmURL may be empty.
func newEnv(t *testing.T, llmURL string) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		dir:        dir,
		configPath: filepath.Join(dir, "dailypost.yaml"),
		feedPath:   filepath.Join(dir, "feed.json"),
		atomPath:   filepath.Join(dir, "feed.xml"),
	}

	yaml := fmt.Sprintf(`log:
  level: error
feed:
  path: %s
  atom_path: %s
fetcher:
  enable_robots_check: false
llm:
  provider: ollama
  base_url: %q
`, e.feedPath, e.atomPath, llmURL)
	require.NoError(t, os.WriteFile(e.configPath, []byte(yaml), 0644))
	return e
}

func (e *env) seed(t *testing.T, titles ...string) {
	t.Helper()
	store, err := storage.NewFileStorage(e.feedPath)
	require.NoError(t, err)
	start := time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC)
	for i, title := range titles {
		p, err := feed.NewPost(title, poolsBody, start.Add(time.Duration(i)*24*time.Hour))
		require.NoError(t, err)
		require.NoError(t, store.Append(p))
	}
}

func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath, "--env-file", filepath.Join(e.dir, ".env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// fakeOllama answers every generate request with reply and counts calls
func fakeOllama(t *testing.T, reply string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"response": reply, "done": true})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestHistory_Empty(t *testing.T) {
	e := newEnv(t, "")

	out, err := e.run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No posts yet")
}

func TestHistory_NewestFirst(t *testing.T) {
	e := newEnv(t, "")
	e.seed(t, "First", "Second", "Third")

	out, err := e.run(t, "", "history")
	require.NoError(t, err)

	third := strings.Index(out, "Third")
	first := strings.Index(out, "First")
	require.NotEqual(t, -1, third)
	require.NotEqual(t, -1, first)
	assert.Less(t, third, first)
	assert.NotContains(t, out, "\x1b[", "colors must be off when not writing to a terminal")
}

func TestHistory_JSONLimit(t *testing.T) {
	e := newEnv(t, "")
	e.seed(t, "First", "Second")

	out, err := e.run(t, "", "history", "--json", "-n", "1")
	require.NoError(t, err)

	var posts []feed.Post
	require.NoError(t, json.Unmarshal([]byte(out), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Second", posts[0].Title)
}

func TestCheck_FileTooSimilar(t *testing.T) {
	e := newEnv(t, "")
	e.seed(t, "Pools")

	draft := filepath.Join(e.dir, "draft.md")
	require.NoError(t, os.WriteFile(draft, []byte("# Pools\n\n"+poolsBody), 0644))

	out, err := e.run(t, "", "check", draft)
	require.NoError(t, err)
	assert.Contains(t, out, "TOO SIMILAR")
	assert.Contains(t, out, "Hint: change structure and examples")

	_, err = e.run(t, "", "check", "--strict", draft)
	assert.ErrorIs(t, err, cli.ErrTooSimilar)
}

func TestCheck_StdinNovel(t *testing.T) {
	e := newEnv(t, "")
	e.seed(t, "Pools")

	out, err := e.run(t, sourdough, "check", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "NOVEL")
	assert.NotContains(t, out, "Hint:")
}

func TestCheck_MissingFile(t *testing.T) {
	e := newEnv(t, "")

	_, err := e.run(t, "", "check", filepath.Join(e.dir, "nope.md"))
	assert.Error(t, err)
}

func TestGenerate_Saves(t *testing.T) {
	llm, calls := fakeOllama(t, sourdough)
	e := newEnv(t, llm.URL)
	e.seed(t, "Pools")

	out, err := e.run(t, "", "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "Sourdough starters for engineers")
	assert.Contains(t, out, "accepted")
	assert.Contains(t, out, "Saved post")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	store, err := storage.NewFileStorage(e.feedPath)
	require.NoError(t, err)
	posts, err := store.Load()
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "Sourdough starters for engineers", posts.Latest().Title)

	atomXML, err := os.ReadFile(e.atomPath)
	require.NoError(t, err)
	assert.Contains(t, string(atomXML), "Sourdough starters for engineers")
}

func TestGenerate_DryRun(t *testing.T) {
	llm, _ := fakeOllama(t, sourdough)
	e := newEnv(t, llm.URL)

	out, err := e.run(t, "", "generate", "--dry-run", "--topic", "baking")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "Wild yeast cultures")

	store, err := storage.NewFileStorage(e.feedPath)
	require.NoError(t, err)
	posts, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestGenerate_ExhaustedStillPublishes(t *testing.T) {
	llm, calls := fakeOllama(t, "# Pools\n\n"+poolsBody)
	e := newEnv(t, llm.URL)
	e.seed(t, "Pools")

	out, err := e.run(t, "", "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "exhausted after 5 attempt(s)")
	assert.Equal(t, int32(5), atomic.LoadInt32(calls))

	store, err := storage.NewFileStorage(e.feedPath)
	require.NoError(t, err)
	posts, err := store.Load()
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.False(t, posts.Latest().Novel)
}

func TestAtom(t *testing.T) {
	e := newEnv(t, "")
	e.seed(t, "Pools")

	out, err := e.run(t, "", "atom")
	require.NoError(t, err)
	assert.Contains(t, out, e.atomPath)

	atomXML, err := os.ReadFile(e.atomPath)
	require.NoError(t, err)
	assert.Contains(t, string(atomXML), "Pools")
}

func TestInvalidConfig(t *testing.T) {
	e := newEnv(t, "")
	require.NoError(t, os.WriteFile(e.configPath, []byte("novelty:\n  cosine_threshold: 1.5\n"), 0644))

	_, err := e.run(t, "", "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cosine threshold")
}
