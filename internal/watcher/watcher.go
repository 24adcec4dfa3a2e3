// Package watcher polls indexed repositories for on-disk changes and triggers
// re-indexing. Polling keeps the dependency surface flat and behaves the same
// on every platform; the incremental indexer makes a spurious trigger cheap.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/graphlint/graphlint/internal/discover"
	"github.com/graphlint/graphlint/internal/store"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

type repoState struct {
	snapshot map[string]fileSnapshot
	interval time.Duration
	nextPoll time.Time
}

// IndexFunc is the callback signature for triggering a re-index.
type IndexFunc func(ctx context.Context, repoName, rootPath string) error

// Watcher polls indexed repositories for file changes and triggers re-indexing.
type Watcher struct {
	store   *store.Store
	indexFn IndexFunc
	repos   map[string]*repoState
	ctx     context.Context
}

// New creates a Watcher. indexFn is called when file changes are detected.
func New(s *store.Store, indexFn IndexFunc) *Watcher {
	return &Watcher{
		store:   s,
		indexFn: indexFn,
		repos:   make(map[string]*repoState),
	}
}

// Run blocks until ctx is cancelled. Ticks at baseInterval, polling each
// repository only when its adaptive interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	w.ctx = ctx
	ticker := time.NewTicker(baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollAll()
		}
	}
}

// pollAll lists all indexed repositories and polls each that is due.
func (w *Watcher) pollAll() {
	repos, err := w.store.ListRepositories()
	if err != nil {
		slog.Warn("watcher.list_repos", "err", err)
		return
	}

	now := time.Now()
	for _, repo := range repos {
		state, exists := w.repos[repo.Name]
		if !exists {
			state = &repoState{}
			w.repos[repo.Name] = state
		}

		if exists && now.Before(state.nextPoll) {
			continue // not due yet
		}

		w.pollRepo(repo, state)
	}
}

// pollRepo captures a snapshot of the file tree and compares with previous.
// First poll: captures baseline without triggering indexing.
// Subsequent polls: triggers indexFn if any file changed.
func (w *Watcher) pollRepo(repo *store.Repository, state *repoState) {
	if _, err := os.Stat(repo.RootPath); err != nil {
		slog.Warn("watcher.root_gone", "repo", repo.Name, "path", repo.RootPath)
		state.nextPoll = time.Now().Add(maxInterval)
		return
	}

	snap, err := captureSnapshot(repo.RootPath)
	if err != nil {
		slog.Warn("watcher.snapshot", "repo", repo.Name, "err", err)
		state.nextPoll = time.Now().Add(state.interval)
		return
	}

	interval := pollInterval(len(snap))

	if state.snapshot == nil {
		// First poll captures the baseline without an index trigger.
		slog.Debug("watcher.baseline", "repo", repo.Name, "files", len(snap))
		state.snapshot = snap
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	if snapshotsEqual(state.snapshot, snap) {
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	slog.Info("watcher.changed", "repo", repo.Name, "files", len(snap))
	if err := w.indexFn(w.ctx, repo.Name, repo.RootPath); err != nil {
		slog.Warn("watcher.index", "repo", repo.Name, "err", err)
		// Keep the old snapshot so the next cycle retries.
		state.nextPoll = time.Now().Add(interval)
		return
	}

	state.snapshot = snap
	state.interval = pollInterval(len(snap))
	state.nextPoll = time.Now().Add(state.interval)
}

// captureSnapshot walks the file tree using discover.Discover and captures
// mtime+size for each file.
func captureSnapshot(rootPath string) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(context.Background(), rootPath, nil)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			continue
		}
		snap[f.RelPath] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
		}
	}
	return snap, nil
}

// snapshotsEqual returns true if two snapshots have identical files with same mtime+size.
func snapshotsEqual(a, b map[string]fileSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for path, aSnap := range a {
		bSnap, ok := b[path]
		if !ok {
			return false
		}
		if !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			return false
		}
	}
	return true
}

// pollInterval computes the adaptive interval from file count.
// 1s base + 1s per 500 files, capped at 60s.
func pollInterval(fileCount int) time.Duration {
	ms := 1000 + (fileCount/500)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}
