// Package batch indexes many repositories concurrently under a bounded
// worker budget. One repository's failure never aborts the others; partial
// success is the expected steady state.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/graphlint/graphlint/internal/graph"
	"github.com/graphlint/graphlint/internal/store"
)

const (
	DefaultMaxConcurrency = 4
	DefaultMaxRetries     = 2

	retryBaseDelay = 500 * time.Millisecond
)

// Options bounds the batch run.
type Options struct {
	MaxConcurrency int
	MaxRetries     int
}

func (o *Options) effectiveConcurrency() int {
	if o == nil || o.MaxConcurrency <= 0 {
		return DefaultMaxConcurrency
	}
	return o.MaxConcurrency
}

func (o *Options) effectiveRetries() int {
	if o == nil || o.MaxRetries < 0 {
		return DefaultMaxRetries
	}
	return o.MaxRetries
}

// RepoResult is the outcome for one repository location.
type RepoResult struct {
	Location string
	Repo     string
	Result   *graph.IndexResult
	Attempts int
	Err      error
}

// BatchResult aggregates a whole run.
type BatchResult struct {
	Succeeded       int
	Failed          int
	Retried         int
	FailedLocations []string
	Results         []RepoResult
}

// IndexBatch indexes every location against one shared store. A repository
// that keeps failing after the retry budget is reported in FailedLocations
// for resubmission. Cancelling ctx stops scheduling and in-flight work.
func IndexBatch(ctx context.Context, s *store.Store, locations []string, opts *Options) *BatchResult {
	slog.Info("batch.start", "repos", len(locations), "concurrency", opts.effectiveConcurrency())

	results := make([]RepoResult, len(locations))
	var mu sync.Mutex

	g := &errgroup.Group{}
	g.SetLimit(opts.effectiveConcurrency())

	for i, loc := range locations {
		g.Go(func() error {
			r := indexOne(ctx, s, loc, opts.effectiveRetries())
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	batch := &BatchResult{Results: results}
	for _, r := range results {
		if r.Attempts > 1 {
			batch.Retried += r.Attempts - 1
		}
		if r.Err != nil {
			batch.Failed++
			batch.FailedLocations = append(batch.FailedLocations, r.Location)
		} else {
			batch.Succeeded++
		}
	}
	slog.Info("batch.done", "succeeded", batch.Succeeded, "failed", batch.Failed, "retried", batch.Retried)
	return batch
}

// indexOne runs one repository with bounded exponential backoff between
// attempts. Configuration problems (missing root) fail immediately.
func indexOne(ctx context.Context, s *store.Store, location string, maxRetries int) RepoResult {
	r := RepoResult{Location: location, Repo: graph.RepoNameFromPath(location)}

	if info, err := os.Stat(location); err != nil || !info.IsDir() {
		r.Attempts = 1
		r.Err = fmt.Errorf("repository root %s is not a readable directory", location)
		return r
	}

	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		r.Attempts = attempt
		if err := ctx.Err(); err != nil {
			r.Err = err
			return r
		}

		result, err := graph.New(s, location, nil).Index(ctx)
		if err == nil {
			r.Result = result
			r.Err = nil
			return r
		}
		r.Err = err
		slog.Warn("batch.repo.retry", "repo", r.Repo, "attempt", attempt, "err", err)

		if attempt <= maxRetries {
			select {
			case <-ctx.Done():
				r.Err = ctx.Err()
				return r
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}
	}
	return r
}
