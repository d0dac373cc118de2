// Package hub is a thin client for the model hub REST API: search, repo
// metadata, and snapshot downloads into the shared cache layout.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

const defaultBaseURL = "https://huggingface.co"

// Client talks to the model hub REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewClient creates a Client for the public hub. A token is read from
// HF_TOKEN for gated repos.
func NewClient() *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		token:      os.Getenv("HF_TOKEN"),
	}
}

// NewClientWithBaseURL creates a Client against a custom endpoint (tests,
// mirrors).
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		token:      os.Getenv("HF_TOKEN"),
	}
}

// Model is a hub search result.
type Model struct {
	ID           string    `json:"id"`
	Downloads    int       `json:"downloads"`
	Likes        int       `json:"likes"`
	LastModified time.Time `json:"lastModified"`
	Tags         []string  `json:"tags"`
	Private      bool      `json:"private"`
	Gated        any       `json:"gated"` // bool or string ("auto", "manual")
}

// HasTag reports whether the model carries the given tag.
func (m *Model) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SearchFilters narrow a hub search.
type SearchFilters struct {
	Tags              []string // require all of these tags
	Sort              string   // downloads or updated
	Limit             int
	MinDownloads      int
	UpdatedWithinDays int
}

// Search queries the hub for models matching the query and filters.
func (c *Client) Search(ctx context.Context, query string, f SearchFilters) ([]Model, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("search", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("direction", "-1")
	switch f.Sort {
	case "", "downloads":
		params.Set("sort", "downloads")
	case "updated":
		params.Set("sort", "lastModified")
	default:
		params.Set("sort", f.Sort)
	}
	for _, tag := range f.Tags {
		params.Add("filter", tag)
	}

	var results []Model
	if err := c.getJSON(ctx, "/api/models?"+params.Encode(), &results); err != nil {
		return nil, err
	}

	filtered := results[:0]
	cutoff := time.Time{}
	if f.UpdatedWithinDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -f.UpdatedWithinDays)
	}
	for _, m := range results {
		if f.MinDownloads > 0 && m.Downloads < f.MinDownloads {
			continue
		}
		if !cutoff.IsZero() && m.LastModified.Before(cutoff) {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered, nil
}

// RepoFile is one file within a hub repository.
type RepoFile struct {
	Path string `json:"rfilename"`
	Size int64  `json:"size"`
	LFS  *struct {
		Size int64 `json:"size"`
	} `json:"lfs"`
}

// ByteSize returns the best-known size of the file.
func (f *RepoFile) ByteSize() int64 {
	if f.LFS != nil && f.LFS.Size > 0 {
		return f.LFS.Size
	}
	return f.Size
}

// RepoInfo is the metadata of a hub repository.
type RepoInfo struct {
	ID       string     `json:"id"`
	SHA      string     `json:"sha"`
	Siblings []RepoFile `json:"siblings"`
	Config   ModelCard  `json:"config"`
}

// ModelCard is the subset of repo-level config the CLI cares about.
type ModelCard struct {
	ModelType     string   `json:"model_type"`
	Architectures []string `json:"architectures"`
}

// Repo fetches metadata (revision, file list) for a repository.
func (c *Client) Repo(ctx context.Context, repoID string) (*RepoInfo, error) {
	var info RepoInfo
	if err := c.getJSON(ctx, "/api/models/"+repoID, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("hub returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode hub response: %w", err)
	}
	return nil
}
