// Package selfupdate resolves a newer graphlint binary from GitHub
// releases: latest-release lookup, version comparison, checksum-verified
// download, and extraction of the binary from the release archive.
package selfupdate

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	releaseTimeout  = 15 * time.Second
	downloadTimeout = 5 * time.Minute
)

// Client resolves and downloads releases. Construct with NewClient; the
// fields exist so tests can point it at a local server.
type Client struct {
	// ReleaseURL is the latest-release API endpoint.
	ReleaseURL string
	// AllowedPrefixes restricts where assets may be downloaded from.
	AllowedPrefixes []string
	// BinaryPrefix names both the release assets and the binary inside
	// the archive.
	BinaryPrefix string

	httpClient *http.Client
}

// NewClient returns a client pointed at the graphlint release feed.
func NewClient() *Client {
	return &Client{
		ReleaseURL:      "https://api.github.com/repos/graphlint/graphlint/releases/latest",
		AllowedPrefixes: []string{"https://github.com/", "https://api.github.com/"},
		BinaryPrefix:    "graphlint",
		httpClient:      &http.Client{},
	}
}

// Release holds parsed GitHub release metadata.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset holds a single release artifact.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// FindAsset finds a release asset by name.
func (r *Release) FindAsset(name string) *Asset {
	for i := range r.Assets {
		if r.Assets[i].Name == name {
			return &r.Assets[i]
		}
	}
	return nil
}

// Update describes an available newer release for this platform.
type Update struct {
	Version string
	Asset   Asset

	release *Release
}

// Check fetches the latest release and compares it against currentVersion.
// Returns nil when already up to date. A "-dev" suffix on the current
// version is ignored for the comparison.
func (c *Client) Check(ctx context.Context, currentVersion string) (*Update, error) {
	release, err := c.fetchRelease(ctx)
	if err != nil {
		return nil, err
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	if latest == "" {
		return nil, fmt.Errorf("release has no version tag")
	}
	current := strings.TrimSuffix(currentVersion, "-dev")
	if CompareVersions(latest, current) <= 0 {
		return nil, nil
	}

	assetName := c.AssetName()
	asset := release.FindAsset(assetName)
	if asset == nil {
		return nil, fmt.Errorf("release v%s has no asset for %s/%s (%s)",
			latest, runtime.GOOS, runtime.GOARCH, assetName)
	}
	return &Update{Version: latest, Asset: *asset, release: release}, nil
}

// Download fetches the update's archive, verifies it against the release's
// checksums.txt when present, and returns the extracted binary image.
func (c *Client) Download(ctx context.Context, u *Update) ([]byte, error) {
	archive, err := c.fetchAll(ctx, u.Asset.BrowserDownloadURL, downloadTimeout, 1<<30)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u.Asset.Name, err)
	}

	if cs := u.release.FindAsset("checksums.txt"); cs != nil {
		raw, err := c.fetchAll(ctx, cs.BrowserDownloadURL, releaseTimeout, 1<<16)
		if err != nil {
			return nil, fmt.Errorf("download checksums: %w", err)
		}
		want, ok := parseChecksums(raw)[u.Asset.Name]
		if !ok {
			return nil, fmt.Errorf("checksums.txt has no entry for %s", u.Asset.Name)
		}
		sum := sha256.Sum256(archive)
		if got := hex.EncodeToString(sum[:]); got != want {
			return nil, fmt.Errorf("checksum mismatch for %s: want %s, got %s", u.Asset.Name, want, got)
		}
	}

	return extractBinary(archive, c.BinaryPrefix)
}

// AssetName returns the release asset name for the current platform.
func (c *Client) AssetName() string {
	ext := "tar.gz"
	if runtime.GOOS == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s-%s-%s.%s", c.BinaryPrefix, runtime.GOOS, runtime.GOARCH, ext)
}

func (c *Client) fetchRelease(ctx context.Context) (*Release, error) {
	ctx, cancel := context.WithTimeout(ctx, releaseTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.ReleaseURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpDo(req)
	if err != nil {
		return nil, fmt.Errorf("fetch release: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release api status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read release: %w", err)
	}
	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("parse release: %w", err)
	}
	return &release, nil
}

// fetchAll downloads a prefix-checked URL fully into memory.
func (c *Client) fetchAll(ctx context.Context, rawURL string, timeout time.Duration, limit int64) ([]byte, error) {
	allowed := false
	for _, prefix := range c.AllowedPrefixes {
		if strings.HasPrefix(rawURL, prefix) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("refusing to download from %s", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpDo(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status=%d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func (c *Client) httpDo(req *http.Request) (*http.Response, error) {
	if c.httpClient == nil {
		return http.DefaultClient.Do(req)
	}
	return c.httpClient.Do(req)
}

// parseChecksums reads "hash  filename" lines into a filename-keyed map.
func parseChecksums(data []byte) map[string]string {
	checksums := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) >= 2 {
			checksums[fields[1]] = fields[0]
		}
	}
	return checksums
}

// extractBinary pulls the first regular file matching the binary prefix out
// of a .tar.gz archive.
func extractBinary(archive []byte, prefix string) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tar: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg && strings.HasPrefix(filepath.Base(hdr.Name), prefix) {
			content, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("read archive entry: %w", err)
			}
			return content, nil
		}
	}
	return nil, fmt.Errorf("no %s binary in archive", prefix)
}

// CompareVersions compares two dotted version strings, ignoring a leading
// "v". Returns >0 if a > b, <0 if a < b, 0 if equal. A pre-release suffix
// ("-dev", "-rc1") sorts below the plain version with the same base.
func CompareVersions(a, b string) int {
	aBase, aPre := splitPre(strings.TrimPrefix(a, "v"))
	bBase, bPre := splitPre(strings.TrimPrefix(b, "v"))

	aParts := strings.Split(aBase, ".")
	bParts := strings.Split(bBase, ".")
	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		ai, _ := strconv.Atoi(aParts[i])
		bi, _ := strconv.Atoi(bParts[i])
		if ai != bi {
			return ai - bi
		}
	}
	if len(aParts) != len(bParts) {
		return len(aParts) - len(bParts)
	}

	switch {
	case aPre && !bPre:
		return -1
	case !aPre && bPre:
		return 1
	}
	return 0
}

func splitPre(v string) (string, bool) {
	base, _, found := strings.Cut(v, "-")
	return base, found
}
