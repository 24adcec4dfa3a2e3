// Package discover walks a repository tree and returns the source files the
// indexer can parse, honoring built-in ignore directories, include/exclude
// globs, and a .graphlintignore file with gitignore syntax.
package discover

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/graphlint/graphlint/internal/lang"
)

// IgnoreFileName is the per-repository ignore file.
const IgnoreFileName = ".graphlintignore"

// IGNORE_PATTERNS are directory names to skip during discovery.
var IGNORE_PATTERNS = map[string]bool{
	".cache": true, ".eggs": true, ".env": true, ".git": true,
	".gradle": true, ".hg": true, ".idea": true, ".mypy_cache": true,
	".nox": true, ".npm": true, ".nyc_output": true, ".pnpm-store": true,
	".pytest_cache": true, ".ruff_cache": true, ".svn": true, ".tmp": true,
	".tox": true, ".venv": true, ".vs": true, ".vscode": true, ".yarn": true,
	"__pycache__": true, "bower_components": true, "build": true,
	"coverage": true, "dist": true, "env": true, "htmlcov": true,
	"node_modules": true, "obj": true, "out": true, "site-packages": true,
	"target": true, "tmp": true, "vendor": true, "venv": true,
}

// IGNORE_SUFFIXES are file suffixes to skip.
var IGNORE_SUFFIXES = map[string]bool{
	".tmp": true, "~": true, ".pyc": true, ".pyo": true,
	".o": true, ".a": true, ".so": true, ".dll": true, ".class": true,
	".min.js": true,
}

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to repo root, slash-separated
	Language lang.Language // detected language
}

// Options configures file discovery.
type Options struct {
	IgnoreFile   string   // explicit ignore file path; defaults to <repo>/.graphlintignore
	IncludeGlobs []string // when set, only matching rel paths are kept
	ExcludeGlobs []string // matching rel paths are dropped
}

// Discover walks a repository and returns all parseable source files.
func Discover(ctx context.Context, repoPath string, opts *Options) ([]FileInfo, error) {
	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}

	ignoreFile := opts.IgnoreFile
	if ignoreFile == "" {
		ignoreFile = filepath.Join(repoPath, IgnoreFileName)
	}
	matcher := loadIgnoreMatcher(ignoreFile, opts.ExcludeGlobs)

	var files []FileInfo

	err = filepath.Walk(repoPath, func(path string, info os.FileInfo, walkErr error) error {
		// Check context cancellation periodically during walk
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(repoPath, path)
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel == "." {
				return nil
			}
			if IGNORE_PATTERNS[info.Name()] {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		for suffix := range IGNORE_SUFFIXES {
			if strings.HasSuffix(path, suffix) {
				return nil
			}
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		if len(opts.IncludeGlobs) > 0 && !matchesAny(opts.IncludeGlobs, rel, info.Name()) {
			return nil
		}

		l, ok := lang.LanguageForExtension(filepath.Ext(path))
		if !ok {
			return nil
		}
		files = append(files, FileInfo{
			Path:     path,
			RelPath:  rel,
			Language: l,
		})
		return nil
	})

	return files, err
}

// loadIgnoreMatcher compiles the ignore file plus exclude globs into one
// gitignore-style matcher. Returns nil when there is nothing to match.
func loadIgnoreMatcher(ignoreFile string, excludeGlobs []string) *ignore.GitIgnore {
	var lines []string
	if f, err := os.Open(ignoreFile); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && !strings.HasPrefix(line, "#") {
				lines = append(lines, line)
			}
		}
		f.Close()
	}
	lines = append(lines, excludeGlobs...)
	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}

func matchesAny(globs []string, rel, name string) bool {
	for _, g := range globs {
		if matched, _ := filepath.Match(g, rel); matched {
			return true
		}
		if matched, _ := filepath.Match(g, name); matched {
			return true
		}
	}
	return false
}
