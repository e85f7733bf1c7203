// Package auth owns OAuth token acquisition for the spreadsheet service.
//
// A Provider caches one access token in process memory for its own lifetime;
// nothing is written to durable storage here. Tokens are granted out of band
// by cmd/oauth-init and picked up from the configured token JSON or file.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// Indirection for tests.
var jsonUnmarshal = json.Unmarshal

// AuthenticationError means no token is obtainable, or the service rejected
// the request again after the one permitted refresh-and-retry. Callers
// surface it as "sign-in required" and do not retry further.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return "sign-in required: " + e.Err.Error()
	}
	return "sign-in required"
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// IsAuthenticationError reports whether err is (or wraps) an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// Provider obtains and caches an OAuth access token scoped to files this
// application created on the remote service (drive.file scope).
type Provider struct {
	cfg  *oauth2.Config
	load func() (*oauth2.Token, error)

	mu    sync.Mutex
	token *oauth2.Token
}

// NewProvider builds a Provider from an OAuth client config and a loader for
// the previously granted token.
func NewProvider(cfg *oauth2.Config, load func() (*oauth2.Token, error)) *Provider {
	return &Provider{cfg: cfg, load: load}
}

// NewProviderFromEnv reads the OAuth client from GOOGLE_OAUTH_CLIENT_JSON or
// GOOGLE_OAUTH_CLIENT_FILE and defers token loading to GOOGLE_OAUTH_TOKEN_JSON
// or GOOGLE_OAUTH_TOKEN_FILE.
func NewProviderFromEnv() (*Provider, error) {
	clientJSON := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	clientFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))

	var b []byte
	var err error
	switch {
	case clientJSON != "":
		b = []byte(clientJSON)
	case clientFile != "":
		b, err = os.ReadFile(clientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
	default:
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	return NewProvider(cfg, loadTokenFromEnv), nil
}

func loadTokenFromEnv() (*oauth2.Token, error) {
	tokenJSON := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_JSON"))
	tokenFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"))

	var b []byte
	var err error
	switch {
	case tokenJSON != "":
		b = []byte(tokenJSON)
	case tokenFile != "":
		b, err = os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth token file: %w", err)
		}
	default:
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE, or run oauth-init)")
	}

	var tok oauth2.Token
	if err := jsonUnmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return &tok, nil
}

// Token returns a valid access token: the cached one when still usable,
// otherwise the saved grant (refreshed through the token endpoint when
// expired). Failure to obtain any token is an AuthenticationError.
func (p *Provider) Token(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token.Valid() {
		return p.token, nil
	}

	tok := p.token
	if tok == nil {
		loaded, err := p.load()
		if err != nil {
			return nil, &AuthenticationError{Err: err}
		}
		tok = loaded
	}

	if !tok.Valid() {
		refreshed, err := p.cfg.TokenSource(ctx, tok).Token()
		if err != nil {
			return nil, &AuthenticationError{Err: fmt.Errorf("refresh token: %w", err)}
		}
		tok = refreshed
	}

	p.token = tok
	return tok, nil
}

// Invalidate drops the cached token so the next Token call re-acquires one.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.token = nil
	p.mu.Unlock()
}

// Client returns an HTTP client whose transport injects the bearer token and
// applies the retry-once rule on authorization failures. Every remote call of
// the sync engine funnels through this client.
func (p *Provider) Client() *http.Client {
	return &http.Client{
		Transport: &Transport{Provider: p},
		Timeout:   60 * time.Second,
	}
}
