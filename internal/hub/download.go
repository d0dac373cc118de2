package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/CreamyCappuccino/mlxlm/internal/models"
)

// downloadClient has no overall timeout; cancellation comes from the
// request context.
var downloadClient = &http.Client{}

// DownloadProgress is called as bytes arrive across all files of a snapshot.
type DownloadProgress func(file string, downloaded, total int64)

// SnapshotOptions configure a snapshot download.
type SnapshotOptions struct {
	// Concurrency bounds parallel file downloads. Defaults to 4.
	Concurrency int
	// Progress receives per-snapshot byte counts; may be nil.
	Progress DownloadProgress
}

// Snapshot downloads every file of a repository into the cache layout
// (<cacheRoot>/models--org--repo/snapshots/<revision>/) and returns the
// snapshot directory. Partially downloaded files are resumed with Range
// requests over .partial staging files, so an interrupted pull picks up
// where it left off.
func (c *Client) Snapshot(ctx context.Context, repoID, cacheRoot string, opts SnapshotOptions) (string, error) {
	info, err := c.Repo(ctx, repoID)
	if err != nil {
		return "", fmt.Errorf("fetch repo metadata: %w", err)
	}

	revision := info.SHA
	if revision == "" {
		revision = "main"
	}

	cacheKey := models.RepoIDToCacheKey(repoID)
	snapDir := filepath.Join(cacheRoot, cacheKey, "snapshots", revision)
	if err := os.MkdirAll(snapDir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	var total int64
	for _, f := range info.Siblings {
		total += f.ByteSize()
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var (
		mu         sync.Mutex
		downloaded int64
	)
	report := func(file string, n int64) {
		if opts.Progress == nil {
			return
		}
		mu.Lock()
		downloaded += n
		d := downloaded
		mu.Unlock()
		opts.Progress(file, d, total)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, f := range info.Siblings {
		f := f
		g.Go(func() error {
			url := fmt.Sprintf("%s/%s/resolve/%s/%s", c.baseURL, repoID, revision, f.Path)
			dest := filepath.Join(snapDir, filepath.FromSlash(f.Path))
			return c.downloadFile(gctx, url, dest, func(n int64) { report(f.Path, n) })
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	// Record the revision the way the cache layout expects, so other tools
	// scanning the cache can resolve "main".
	refsDir := filepath.Join(cacheRoot, cacheKey, "refs")
	if err := os.MkdirAll(refsDir, 0755); err == nil {
		os.WriteFile(filepath.Join(refsDir, "main"), []byte(revision), 0644)
	}

	return snapDir, nil
}

// downloadFile fetches one file with resume support. onBytes receives byte
// deltas as they are written.
func (c *Client) downloadFile(ctx context.Context, url, dest string, onBytes func(int64)) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	// Already complete from a previous run.
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	partial := dest + ".partial"
	var startByte int64
	if info, err := os.Stat(partial); err == nil {
		startByte = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if startByte > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", startByte))
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// Large files outlive the API client's timeout; rely on ctx instead.
	resp, err := downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Server ignored the Range header; start over.
		startByte = 0
	case http.StatusPartialContent:
	default:
		return fmt.Errorf("download %s failed with status %d", url, resp.StatusCode)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if startByte > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(partial, flags, 0644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	if startByte > 0 && onBytes != nil {
		onBytes(startByte)
	}

	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("write file: %w", writeErr)
			}
			if onBytes != nil {
				onBytes(int64(n))
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return fmt.Errorf("read body: %w", readErr)
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(partial, dest); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
