package importer

import "context"

// Source provides access to the upstream data repository.
type Source interface {
	// LatestCommit resolves the head of the default branch. A non-empty repo
	// replaces the configured repository for all later calls.
	LatestCommit(ctx context.Context, repo string) (Commit, error)

	// Pin fixes the repository and ref used to resolve relative paths.
	// An empty repo keeps the current one.
	Pin(repo, ref string)

	// Repo returns the configured "owner/name" repository.
	Repo() string

	// RepoURL returns the browsable URL of the configured repository.
	RepoURL() string

	// FetchRawContent returns the text of a file at the pinned ref.
	FetchRawContent(ctx context.Context, path string) (string, error)
}

// Downloader fetches binary assets referenced by upstream records.
// Relative paths resolve against the pinned repository and ref.
type Downloader interface {
	DownloadFile(ctx context.Context, pathOrURL string) ([]byte, error)
}
