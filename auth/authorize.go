// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
)

// Authorize runs the consent flow and stores the resulting token at path.
// open is handed the consent URL; pass OpenBrowser to launch a browser, or a
// function that prints the URL for headless machines.
func Authorize(ctx context.Context, cfg *oauth2.Config, path string, open func(string) error) (*oauth2.Token, error) {
	logger := slog.Default().With("component", "auth")

	state, err := newState()
	if err != nil {
		return nil, err
	}

	server := NewCallbackServer(0, state)
	if err := server.Start(); err != nil {
		return nil, err
	}
	defer server.Stop()

	flow := *cfg
	flow.RedirectURL = server.RedirectURI()
	authURL := flow.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	logger.Info("waiting for authorization", "redirect", flow.RedirectURL)
	if err := open(authURL); err != nil {
		return nil, fmt.Errorf("open consent page: %w", err)
	}

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return nil, err
	}

	tok, err := flow.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := SaveToken(path, tok); err != nil {
		return nil, err
	}
	logger.Info("stored oauth token", "path", path)
	return tok, nil
}

func newState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
