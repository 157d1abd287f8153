package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"import-data/internal/config"
	"import-data/internal/importer"
)

const webBaseURL = "https://github.com"

// RateLimitError reports an exhausted GitHub API quota.
type RateLimitError struct {
	Reset time.Time // zero when GitHub did not say
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return "GitHub API rate limit exceeded"
	}
	return fmt.Sprintf("GitHub API rate limit exceeded; resets at %s", e.Reset.Format(time.RFC3339))
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL    string
	Status string // e.g. "404 Not Found"
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Client reads files and commits from a GitHub repository.
// The repository and ref can be changed once per run with Pin or
// LatestCommit; reads are safe for concurrent use.
type Client struct {
	http   *http.Client
	cfg    config.GitHubConfig
	logger importer.Logger

	mu   sync.RWMutex
	repo string
	ref  string
}

// NewClient creates a Client for the configured repository.
func NewClient(cfg config.GitHubConfig, logger importer.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: cfg.Timeout.Duration},
		cfg:    cfg,
		logger: logger,
		repo:   cfg.Repo,
		ref:    cfg.Ref,
	}
}

// Fetch performs a GET with the client's User-Agent and, when configured,
// bearer token. A 403 caused by an exhausted rate limit becomes a
// *RateLimitError; any other response, including other 403s, is returned
// to the caller, who must close its body.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, importer.E(importer.KindNetwork, "GET "+rawURL, err)
	}

	if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		resp.Body.Close()
		rl := &RateLimitError{}
		if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
			rl.Reset = time.Unix(reset, 0)
		}
		return nil, importer.E(importer.KindRateLimit, "GET "+rawURL, rl)
	}

	return resp, nil
}

// get fetches rawURL and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, importer.E(importer.KindHTTPStatus, "", &StatusError{URL: rawURL, Status: resp.Status, Code: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, importer.E(importer.KindNetwork, "reading "+rawURL, err)
	}
	return body, nil
}

// FetchJSON decodes the JSON body at rawURL into v.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return importer.E(importer.KindDecode, "decoding "+rawURL, err)
	}
	return nil
}

type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

// LatestCommit returns the head commit of the configured ref. A non-empty
// repo replaces the client's repository for every later call.
func (c *Client) LatestCommit(ctx context.Context, repo string) (importer.Commit, error) {
	c.mu.Lock()
	if repo != "" {
		c.repo = repo
	}
	target := c.repo
	ref := c.cfg.Ref
	c.mu.Unlock()

	rawURL := fmt.Sprintf("%s/repos/%s/commits/%s", strings.TrimRight(c.cfg.APIBaseURL, "/"), target, url.PathEscape(ref))

	var resp commitResponse
	if err := c.FetchJSON(ctx, rawURL, &resp); err != nil {
		return importer.Commit{}, fmt.Errorf("fetching latest commit of %s: %w", target, err)
	}
	if resp.SHA == "" {
		return importer.Commit{}, importer.E(importer.KindDecode, "fetching latest commit of "+target, fmt.Errorf("response has no sha"))
	}

	c.logger.Debug("latest commit", "repo", target, "sha", resp.SHA)
	return importer.Commit{SHA: resp.SHA, Date: resp.Commit.Committer.Date}, nil
}

// Pin sets the repository and ref used to resolve relative paths.
// An empty repo keeps the current one.
func (c *Client) Pin(repo, ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if repo != "" {
		c.repo = repo
	}
	if ref != "" {
		c.ref = ref
	}
}

// Repo returns the current "owner/name" repository.
func (c *Client) Repo() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.repo
}

// RepoURL returns the repository's web URL.
func (c *Client) RepoURL() string {
	return webBaseURL + "/" + c.Repo()
}

// rawURL resolves a repository-relative path against the pinned repo and ref.
func (c *Client) rawURL(path string) string {
	c.mu.RLock()
	repo, ref := c.repo, c.ref
	c.mu.RUnlock()

	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(c.cfg.RawBaseURL, "/"), repo, url.PathEscape(ref), strings.Join(segments, "/"))
}

// FetchRawContent returns the text of path at the pinned ref.
func (c *Client) FetchRawContent(ctx context.Context, path string) (string, error) {
	body, err := c.get(ctx, c.rawURL(path))
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", path, err)
	}
	return string(body), nil
}

// DownloadFile returns the bytes at pathOrURL. Absolute http(s) URLs are
// fetched as given; anything else is a path in the pinned repository.
func (c *Client) DownloadFile(ctx context.Context, pathOrURL string) ([]byte, error) {
	target := pathOrURL
	if !strings.HasPrefix(pathOrURL, "http://") && !strings.HasPrefix(pathOrURL, "https://") {
		target = c.rawURL(pathOrURL)
	}
	body, err := c.get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", pathOrURL, err)
	}
	return body, nil
}

var (
	_ importer.Source     = (*Client)(nil)
	_ importer.Downloader = (*Client)(nil)
)
