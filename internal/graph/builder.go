// Package graph compiles a repository into the knowledge graph: a parallel
// parse stage feeding analyze, then a single transaction of batched store
// writes, a lazy inheritance pass, and a generation-based prune.
package graph

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/graphlint/graphlint/internal/analyze"
	"github.com/graphlint/graphlint/internal/config"
	"github.com/graphlint/graphlint/internal/discover"
	"github.com/graphlint/graphlint/internal/store"
)

// writeAttempts is how many times a failed store write pass is retried.
const writeAttempts = 3

// Builder indexes one repository into the graph store.
type Builder struct {
	Store    *store.Store
	RepoPath string
	RepoName string
	Config   *config.Config
}

// IndexResult reports the outcome of one index pass.
type IndexResult struct {
	Created int      // nodes created this pass
	Updated int      // nodes updated this pass
	Skipped int      // files skipped (unchanged or unparseable)
	Pruned  int      // stale nodes removed
	Errors  []string // per-file parse errors, "path: err"
}

// New creates a Builder for the repository at repoPath.
func New(s *store.Store, repoPath string, cfg *config.Config) *Builder {
	if cfg == nil {
		cfg = config.Load(repoPath)
	}
	return &Builder{
		Store:    s,
		RepoPath: repoPath,
		RepoName: RepoNameFromPath(repoPath),
		Config:   cfg,
	}
}

var repoNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// RepoNameFromPath derives the repository name from its directory basename.
// Dots and other separators are squashed so the name can prefix dotted
// qualified names unambiguously.
func RepoNameFromPath(repoPath string) string {
	base := filepath.Base(filepath.Clean(repoPath))
	name := repoNameSanitizer.ReplaceAllString(base, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "repo"
	}
	return name
}

// parseResult holds the output of a pure file parse (no DB access).
type parseResult struct {
	File         discover.FileInfo
	Hash         string
	Nodes        []*store.Node
	PendingEdges []pendingEdge
	Err          error
}

// pendingEdge is an edge expressed in qualified names, resolved to node IDs
// after the batch node upsert.
type pendingEdge struct {
	SourceQN   string
	TargetQN   string
	Type       string
	Properties map[string]any
}

// Index runs a full pass over the repository: discover, parse changed files
// in parallel, write the graph in one transaction, resolve inheritance, prune
// nodes untouched by this pass.
func (b *Builder) Index(ctx context.Context) (*IndexResult, error) {
	slog.Info("index.start", "repo", b.RepoName, "path", b.RepoPath)
	t := time.Now()

	files, err := discover.Discover(ctx, b.RepoPath, &discover.Options{
		IncludeGlobs: b.Config.Index.IncludeGlobs,
		ExcludeGlobs: b.Config.Index.ExcludeGlobs,
	})
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	slog.Info("index.discovered", "repo", b.RepoName, "files", len(files))

	changed, unchanged := b.classifyFiles(ctx, files)
	slog.Info("index.classify", "changed", len(changed), "unchanged", len(unchanged))

	result := &IndexResult{Skipped: len(unchanged)}

	// Fast path: nothing changed and nothing deleted → no writes at all.
	// Requires a prior pass (stored hashes exist) so that a first index of
	// an empty repository still registers the repository.
	if len(changed) == 0 {
		stored, hashErr := b.Store.GetFileHashes(b.RepoName)
		if hashErr == nil && len(stored) > 0 && len(stored) == len(files) {
			slog.Info("index.noop", "repo", b.RepoName)
			return result, nil
		}
	}

	// Stage 1: Parallel parse (CPU-bound, no DB, no shared state)
	results := make([]*parseResult, len(changed))
	numWorkers := b.Config.EffectiveWorkers()
	if numWorkers > len(changed) {
		numWorkers = len(changed)
	}
	if numWorkers > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(numWorkers)
		for i, f := range changed {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = parseFile(b.RepoName, f)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var allNodes []*store.Node
	var allPending []pendingEdge
	var errored []discover.FileInfo
	hashes := make(map[string]string, len(changed))
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Err != nil {
			slog.Warn("index.file.skip", "path", r.File.RelPath, "err", r.Err)
			result.Skipped++
			result.Errors = append(result.Errors, r.File.RelPath+": "+r.Err.Error())
			errored = append(errored, r.File)
			continue
		}
		hashes[r.File.RelPath] = r.Hash
		allNodes = append(allNodes, r.Nodes...)
		allPending = append(allPending, r.PendingEdges...)
	}

	// Files whose parse failed keep their previously indexed nodes, same as
	// unchanged files. Their hash is not rewritten, so the next pass retries
	// them.
	keep := make([]discover.FileInfo, 0, len(unchanged)+len(errored))
	keep = append(keep, unchanged...)
	keep = append(keep, errored...)

	// Stage 2: Single transaction of batched writes, retried on failure.
	var writeErr error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		writeErr = b.Store.WithTransaction(func(tx *store.Store) error {
			return b.writeGraph(tx, files, keep, allNodes, allPending, hashes, result)
		})
		if writeErr == nil {
			break
		}
		slog.Warn("index.write.retry", "repo", b.RepoName, "attempt", attempt, "err", writeErr)
		if attempt < writeAttempts {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
	}
	if writeErr != nil {
		return nil, fmt.Errorf("write graph: %w", writeErr)
	}

	slog.Info("index.done", "repo", b.RepoName,
		"created", result.Created, "updated", result.Updated,
		"skipped", result.Skipped, "pruned", result.Pruned,
		"elapsed", time.Since(t))
	return result, nil
}

// writeGraph performs all DB writes for one index pass inside a transaction.
// Counters on result are reset first so a retried attempt doesn't double-count.
func (b *Builder) writeGraph(
	tx *store.Store,
	files, keep []discover.FileInfo,
	nodes []*store.Node, pending []pendingEdge,
	hashes map[string]string, result *IndexResult,
) error {
	result.Created, result.Updated, result.Pruned = 0, 0, 0

	if err := tx.UpsertRepository(b.RepoName, b.RepoPath); err != nil {
		return fmt.Errorf("upsert repository: %w", err)
	}
	gen, err := tx.NextGeneration(b.RepoName)
	if err != nil {
		return err
	}

	// Created/updated split: check which QNs already exist before the upsert.
	qns := make([]string, 0, len(nodes))
	for _, n := range nodes {
		n.Generation = gen
		qns = append(qns, n.QualifiedName)
	}
	existing, err := tx.FindNodeIDsByQNs(b.RepoName, qns)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if _, ok := existing[n.QualifiedName]; ok {
			result.Updated++
		} else {
			result.Created++
		}
	}

	idMap, err := tx.UpsertNodeBatch(nodes)
	if err != nil {
		return err
	}

	// Unchanged and parse-errored files keep their nodes; move them to the
	// new generation so the prune below only removes nodes of deleted or
	// vanished declarations.
	for _, f := range keep {
		if err := tx.TouchNodesByFile(b.RepoName, f.RelPath, gen); err != nil {
			return err
		}
	}

	if err := b.insertPendingEdges(tx, idMap, pending); err != nil {
		return err
	}

	if err := b.passInherits(tx); err != nil {
		return err
	}

	pruned, err := tx.PruneStale(b.RepoName, gen)
	if err != nil {
		return err
	}
	result.Pruned = int(pruned)

	// Hashes: rewrite changed files, drop entries for deleted files.
	current := make(map[string]bool, len(files))
	for _, f := range files {
		current[f.RelPath] = true
	}
	stored, err := tx.GetFileHashes(b.RepoName)
	if err != nil {
		return err
	}
	for relPath := range stored {
		if !current[relPath] {
			if err := tx.DeleteFileHash(b.RepoName, relPath); err != nil {
				return err
			}
		}
	}
	for relPath, hash := range hashes {
		if err := tx.UpsertFileHash(b.RepoName, relPath, hash); err != nil {
			return err
		}
	}
	return nil
}

// insertPendingEdges resolves QN-keyed edges to node IDs and batch-inserts
// them. QNs not in the upsert's ID map (nodes of unchanged files, import
// targets) are resolved against the store in one lookup.
func (b *Builder) insertPendingEdges(tx *store.Store, idMap map[string]int64, pending []pendingEdge) error {
	var missing []string
	seen := make(map[string]bool)
	for _, pe := range pending {
		for _, qn := range []string{pe.SourceQN, pe.TargetQN} {
			if _, ok := idMap[qn]; !ok && !seen[qn] {
				seen[qn] = true
				missing = append(missing, qn)
			}
		}
	}
	if len(missing) > 0 {
		found, err := tx.FindNodeIDsByQNs(b.RepoName, missing)
		if err != nil {
			return err
		}
		for qn, id := range found {
			idMap[qn] = id
		}
	}

	edges := make([]*store.Edge, 0, len(pending))
	for _, pe := range pending {
		srcID, srcOK := idMap[pe.SourceQN]
		tgtID, tgtOK := idMap[pe.TargetQN]
		if srcOK && tgtOK {
			edges = append(edges, &store.Edge{
				Repo:       b.RepoName,
				SourceID:   srcID,
				TargetID:   tgtID,
				Type:       pe.Type,
				Properties: pe.Properties,
			})
		}
	}
	return tx.InsertEdgeBatch(edges)
}

// classifyFiles splits files into changed and unchanged using stored hashes.
// Returns all files as changed when incremental indexing is off or no hashes
// exist. File hashing is parallelized across the configured workers.
func (b *Builder) classifyFiles(ctx context.Context, files []discover.FileInfo) (changed, unchanged []discover.FileInfo) {
	if !b.Config.EffectiveIncremental() {
		return files, nil
	}
	stored, err := b.Store.GetFileHashes(b.RepoName)
	if err != nil || len(stored) == 0 {
		return files, nil
	}

	hashes := make([]string, len(files))
	numWorkers := b.Config.EffectiveWorkers()
	if numWorkers > len(files) {
		numWorkers = len(files)
	}
	if numWorkers > 0 {
		g := new(errgroup.Group)
		g.SetLimit(numWorkers)
		for i, f := range files {
			g.Go(func() error {
				hashes[i], _ = fileHash(f.Path)
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, f := range files {
		if ctx.Err() != nil {
			return files, nil
		}
		if hashes[i] != "" && stored[f.RelPath] == hashes[i] {
			unchanged = append(unchanged, f)
		} else {
			changed = append(changed, f)
		}
	}
	return changed, unchanged
}

// parseFile reads and analyzes one file, producing nodes and pending edges.
// Pure: no DB access, no shared state.
func parseFile(repo string, f discover.FileInfo) *parseResult {
	result := &parseResult{File: f}

	source, err := os.ReadFile(f.Path)
	if err != nil {
		result.Err = err
		return result
	}
	result.Hash = hashBytes(source)

	mod, err := analyze.File(f.RelPath, f.Language, source)
	if err != nil {
		result.Err = err
		return result
	}

	result.Nodes, result.PendingEdges = buildModuleGraph(repo, mod)
	return result
}

func fileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return hashBytes(data), nil
}

func hashBytes(data []byte) string {
	sum := xxh3.Hash128(data).Bytes()
	return hex.EncodeToString(sum[:])
}
