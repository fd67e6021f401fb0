package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docrestyle/internal/site"
)

type batchCollector struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *batchCollector) onBatch(_ context.Context, paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, paths)
}

func (c *batchCollector) seen() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]bool{}
	for _, b := range c.batches {
		for _, p := range b {
			out[p] = true
		}
	}
	return out
}

func startWatcher(t *testing.T, root string, opts site.Options) *batchCollector {
	t.Helper()
	verifyNoLeaks(t)
	c := &batchCollector{}
	w, err := NewSiteWatcher(root, 40*time.Millisecond, opts, c.onBatch)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}

func TestWatcherBatchesPageWrites(t *testing.T) {
	root := t.TempDir()
	c := startWatcher(t, root, site.DefaultOptions())

	a := filepath.Join(root, "a.html")
	b := filepath.Join(root, "b.htm")
	require.NoError(t, os.WriteFile(a, []byte("<p>a</p>"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("<p>b</p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "style.css"), []byte("p{}"), 0o644))

	require.Eventually(t, func() bool {
		seen := c.seen()
		return seen[a] && seen[b]
	}, 3*time.Second, 20*time.Millisecond)
	require.NotContains(t, c.seen(), filepath.Join(root, "style.css"))
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	c := startWatcher(t, root, site.DefaultOptions())

	dir := filepath.Join(root, "guide", "deep")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(page, []byte("<p>x</p>"), 0o644))

	require.Eventually(t, func() bool { return c.seen()[page] }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherSkipsExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "_static"), 0o755))
	opts := site.DefaultOptions()
	opts.Exclude = []string{"_static"}
	c := startWatcher(t, root, opts)

	require.NoError(t, os.WriteFile(filepath.Join(root, "_static", "x.html"), []byte("x"), 0o644))
	marker := filepath.Join(root, "index.html")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	require.Eventually(t, func() bool { return c.seen()[marker] }, 3*time.Second, 20*time.Millisecond)
	require.NotContains(t, c.seen(), filepath.Join(root, "_static", "x.html"))
}

func TestNewSiteWatcherRejectsZeroDebounce(t *testing.T) {
	_, err := NewSiteWatcher(t.TempDir(), 0, site.DefaultOptions(), func(context.Context, []string) {})
	require.Error(t, err)
}
