package auth

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// OAuthConfig returns the installed-app client configuration for read-only Drive access.
// The redirect URL is filled in by Authorize.
func OAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrClientRequired
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveReadonlyScope},
	}, nil
}

// TokenSource returns a token source backed by the token file at path.
// Refreshed tokens are written back to the same file.
// Returns ErrNoToken if no credential has been stored.
func TokenSource(ctx context.Context, cfg *oauth2.Config, path string) (oauth2.TokenSource, error) {
	tok, err := LoadToken(path)
	if err != nil {
		return nil, err
	}
	src := &persistingSource{
		base:   cfg.TokenSource(ctx, tok),
		path:   path,
		last:   tok.AccessToken,
		logger: slog.Default().With("component", "auth"),
	}
	return oauth2.ReuseTokenSource(tok, src), nil
}

type persistingSource struct {
	base   oauth2.TokenSource
	path   string
	mu     sync.Mutex
	last   string
	logger *slog.Logger
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken == s.last {
		return tok, nil
	}
	s.last = tok.AccessToken
	if err := SaveToken(s.path, tok); err != nil {
		// The refreshed token is still usable for this run.
		s.logger.Warn("failed to persist refreshed token", "path", s.path, "err", err)
	} else {
		s.logger.Debug("persisted refreshed token", "path", s.path, "expiry", tok.Expiry)
	}
	return tok, nil
}
