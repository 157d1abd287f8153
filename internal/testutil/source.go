package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"import-data/internal/importer"
)

// FakeSource is an in-memory upstream repository. It implements
// importer.Source and importer.Downloader. Safe for concurrent use.
type FakeSource struct {
	mu        sync.Mutex
	repo      string
	ref       string
	commit    importer.Commit
	files     map[string]string // path -> text
	downloads map[string][]byte // path or URL -> bytes
	failures  map[string]error  // path or URL -> error

	// Fetched records every FetchRawContent and DownloadFile argument in call order.
	Fetched []string
	// LatestCalls counts LatestCommit calls.
	LatestCalls int
}

// NewFakeSource creates a FakeSource for repo whose head is commit.
func NewFakeSource(repo string, commit importer.Commit) *FakeSource {
	return &FakeSource{
		repo:      repo,
		ref:       "main",
		commit:    commit,
		files:     make(map[string]string),
		downloads: make(map[string][]byte),
		failures:  make(map[string]error),
	}
}

// SetFile sets the raw text served for path.
func (s *FakeSource) SetFile(path, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = text
}

// SetDownload sets the bytes served for pathOrURL.
func (s *FakeSource) SetDownload(pathOrURL string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloads[pathOrURL] = data
}

// Fail makes every fetch of pathOrURL return err.
func (s *FakeSource) Fail(pathOrURL string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[pathOrURL] = err
}

// Ref returns the pinned ref.
func (s *FakeSource) Ref() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref
}

// FetchCount returns how many times pathOrURL was fetched.
func (s *FakeSource) FetchCount(pathOrURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.Fetched {
		if f == pathOrURL {
			n++
		}
	}
	return n
}

func (s *FakeSource) LatestCommit(ctx context.Context, repo string) (importer.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LatestCalls++
	if repo != "" {
		s.repo = repo
	}
	if err, ok := s.failures["commit"]; ok {
		return importer.Commit{}, err
	}
	return s.commit, nil
}

func (s *FakeSource) Pin(repo, ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if repo != "" {
		s.repo = repo
	}
	s.ref = ref
}

func (s *FakeSource) Repo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo
}

func (s *FakeSource) RepoURL() string {
	return "https://github.com/" + s.Repo()
}

func (s *FakeSource) FetchRawContent(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetched = append(s.Fetched, path)
	if err, ok := s.failures[path]; ok {
		return "", err
	}
	text, ok := s.files[path]
	if !ok {
		return "", importer.E(importer.KindHTTPStatus, "fetching "+path, fmt.Errorf("404 Not Found"))
	}
	return text, nil
}

func (s *FakeSource) DownloadFile(ctx context.Context, pathOrURL string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetched = append(s.Fetched, pathOrURL)
	if err, ok := s.failures[pathOrURL]; ok {
		return nil, err
	}
	data, ok := s.downloads[strings.TrimPrefix(pathOrURL, "/")]
	if !ok {
		data, ok = s.downloads[pathOrURL]
	}
	if !ok {
		return nil, importer.E(importer.KindHTTPStatus, "downloading "+pathOrURL, fmt.Errorf("404 Not Found"))
	}
	return data, nil
}

var (
	_ importer.Source     = (*FakeSource)(nil)
	_ importer.Downloader = (*FakeSource)(nil)
)
