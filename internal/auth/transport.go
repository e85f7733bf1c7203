package auth

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
)

// Transport is the single authenticated-request funnel. It sets the bearer
// token on each request; on a 401 it invalidates the cached token, re-acquires
// exactly once, and retries the same request once. A second 401 surfaces an
// AuthenticationError with no further attempts.
type Transport struct {
	Provider *Provider

	// Base is the underlying round tripper; http.DefaultTransport when nil.
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.Provider.Token(req.Context())
	if err != nil {
		return nil, err
	}

	resp, err := t.send(req, tok, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Requests with a non-replayable body cannot be retried; surface the 401.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	slog.WarnContext(req.Context(), "Authorization failed, refreshing token and retrying once",
		"method", req.Method, "url", req.URL.Path)

	drain(resp)
	t.Provider.Invalidate()

	tok, err = t.Provider.Token(req.Context())
	if err != nil {
		return nil, err
	}

	resp, err = t.send(req, tok, req.GetBody)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		return nil, &AuthenticationError{Err: fmt.Errorf("request unauthorized after token refresh: %s %s", req.Method, req.URL.Path)}
	}
	return resp, nil
}

func (t *Transport) send(req *http.Request, tok *oauth2.Token, getBody func() (io.ReadCloser, error)) (*http.Response, error) {
	r := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		r.Body = body
	}
	tok.SetAuthHeader(r)
	return t.base().RoundTrip(r)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
