package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultRawBase is where raw GitHub file contents are served.
	DefaultRawBase = "https://raw.githubusercontent.com"

	// DefaultGitHubRate is the sustained request rate towards GitHub.
	DefaultGitHubRate = 1.2

	defaultGitHubTimeout = 30 * time.Second
)

// GitHubFetcher downloads notebooks linked from github.com.
// Without a token it reads the raw file host; with a token it uses the
// contents API, which also reaches private repositories.
type GitHubFetcher struct {
	httpClient *http.Client
	api        *gh.Client
	rawBase    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ Fetcher = (*GitHubFetcher)(nil)

// GitHubOption configures a GitHubFetcher.
type GitHubOption func(*GitHubFetcher) error

// WithGitHubToken authenticates API requests with a personal access token.
func WithGitHubToken(ctx context.Context, token string) GitHubOption {
	return func(f *GitHubFetcher) error {
		if token == "" {
			return nil
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc := oauth2.NewClient(ctx, ts)
		tc.Timeout = defaultGitHubTimeout
		f.api = gh.NewClient(tc)
		return nil
	}
}

// WithGitHubClient uses a preconfigured go-github client for API requests.
func WithGitHubClient(client *gh.Client) GitHubOption {
	return func(f *GitHubFetcher) error {
		f.api = client
		return nil
	}
}

// WithHTTPClient sets the client used for raw downloads.
func WithHTTPClient(client *http.Client) GitHubOption {
	return func(f *GitHubFetcher) error {
		if client == nil {
			return fmt.Errorf("http client is nil")
		}
		f.httpClient = client
		return nil
	}
}

// WithRawBase overrides the raw content host. Default is DefaultRawBase.
func WithRawBase(base string) GitHubOption {
	return func(f *GitHubFetcher) error {
		if _, err := url.Parse(base); err != nil {
			return fmt.Errorf("invalid raw base %q: %w", base, err)
		}
		f.rawBase = strings.TrimSuffix(base, "/")
		return nil
	}
}

// WithRateLimit sets the sustained request rate and burst. Zero rps disables limiting.
func WithRateLimit(rps float64, burst int) GitHubOption {
	return func(f *GitHubFetcher) error {
		if rps <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// NewGitHubFetcher creates a fetcher that reads raw files unless a token is configured.
func NewGitHubFetcher(opts ...GitHubOption) (*GitHubFetcher, error) {
	f := &GitHubFetcher{
		httpClient: &http.Client{Timeout: defaultGitHubTimeout},
		rawBase:    DefaultRawBase,
		limiter:    rate.NewLimiter(rate.Limit(DefaultGitHubRate), 1),
		logger:     slog.Default().With("component", "github-fetcher"),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Fetch downloads the notebook behind a github.com or raw.githubusercontent.com link.
func (f *GitHubFetcher) Fetch(ctx context.Context, link string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if f.api != nil {
		if file, err := ParseBlobURL(link); err == nil {
			return f.fetchContents(ctx, file)
		}
	}
	return f.fetchRaw(ctx, link)
}

func (f *GitHubFetcher) fetchRaw(ctx context.Context, link string) ([]byte, error) {
	path, err := rawPath(link)
	if err != nil {
		return nil, err
	}
	target := f.rawBase + path
	f.logger.Debug("downloading raw notebook", "url", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", target, resp.StatusCode)
	}
	return readLimited(resp.Body)
}

func (f *GitHubFetcher) fetchContents(ctx context.Context, file *BlobFile) ([]byte, error) {
	f.logger.Debug("downloading notebook via contents api",
		"owner", file.Owner, "repo", file.Repo, "ref", file.Ref, "path", file.Path)

	rc, _, err := f.api.Repositories.DownloadContents(ctx, file.Owner, file.Repo, file.Path,
		&gh.RepositoryContentGetOptions{Ref: file.Ref})
	if err != nil {
		return nil, fmt.Errorf("download contents: %w", err)
	}
	defer rc.Close()
	return readLimited(rc)
}

// BlobFile identifies one file in a GitHub repository.
type BlobFile struct {
	Owner string
	Repo  string
	Ref   string
	Path  string
}

// ParseBlobURL splits https://github.com/<owner>/<repo>/blob/<ref>/<path>.
// Refs containing slashes are not supported; the first segment is taken as the ref.
func ParseBlobURL(link string) (*BlobFile, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotBlobURL, err)
	}
	if !isGitHubHost(u.Host) {
		return nil, fmt.Errorf("%w: %s", ErrNotBlobURL, link)
	}
	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 5)
	if len(parts) < 5 || parts[2] != "blob" || parts[4] == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotBlobURL, link)
	}
	return &BlobFile{Owner: parts[0], Repo: parts[1], Ref: parts[3], Path: parts[4]}, nil
}

// RawURL rewrites a github.com file link to its raw.githubusercontent.com form
// by swapping the host and dropping the blob segment. Raw links are returned unchanged.
// Links on any other host are also returned unchanged, together with ErrUnsupportedURL.
func RawURL(link string) (string, error) {
	path, err := rawPath(link)
	if err != nil {
		return link, err
	}
	return DefaultRawBase + path, nil
}

func rawPath(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", link, err)
	}
	switch {
	case strings.EqualFold(u.Host, "raw.githubusercontent.com"):
		return u.EscapedPath(), nil
	case isGitHubHost(u.Host):
		segments := strings.Split(u.EscapedPath(), "/")
		// ["", owner, repo, "blob", ref, path...]
		if len(segments) > 3 && segments[3] == "blob" {
			segments = append(segments[:3], segments[4:]...)
		}
		return strings.Join(segments, "/"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, link)
	}
}

func isGitHubHost(host string) bool {
	host = strings.ToLower(host)
	return host == "github.com" || host == "www.github.com"
}
