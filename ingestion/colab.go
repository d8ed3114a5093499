package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DefaultDriveRate is the sustained request rate towards the Drive API.
const DefaultDriveRate = 8.0

// ColabFetcher downloads Colab notebooks through the Drive v3 API.
// A Colab link is a view of a Drive file; the file ID is taken from the link.
type ColabFetcher struct {
	service *drive.Service
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Fetcher = (*ColabFetcher)(nil)

// NewColabFetcher creates a fetcher using an authorized Drive token source.
func NewColabFetcher(ctx context.Context, ts oauth2.TokenSource) (*ColabFetcher, error) {
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewColabFetcherWithService(svc), nil
}

// NewColabFetcherWithService wraps an existing Drive service.
func NewColabFetcherWithService(svc *drive.Service) *ColabFetcher {
	return &ColabFetcher{
		service: svc,
		limiter: rate.NewLimiter(rate.Limit(DefaultDriveRate), 10),
		logger:  slog.Default().With("component", "colab-fetcher"),
	}
}

// Fetch downloads the Drive file behind a Colab link.
func (f *ColabFetcher) Fetch(ctx context.Context, link string) ([]byte, error) {
	fileID, err := ColabFileID(link)
	if err != nil {
		return nil, err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	f.logger.Debug("downloading colab notebook", "file_id", fileID)
	resp, err := f.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download drive file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	return readLimited(resp.Body)
}

// ColabFileID extracts the Drive file ID from a Colab link. The ?id= query
// parameter wins; otherwise the path segment following "drive" is used.
func ColabFileID(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoFileID, err)
	}
	if id := u.Query().Get("id"); id != "" {
		return id, nil
	}
	segments := strings.Split(u.Path, "/")
	for i, segment := range segments {
		if segment == "drive" && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoFileID, link)
}
