package recordbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/recordbase/internal/logging"
)

const authAPI = "api/auth/v1"

// refreshMargin is the safety window before token expiry within which a
// dispatch triggers a pre-emptive refresh.
const refreshMargin = 60 * time.Second

// Options tune client construction. The zero value is usable.
type Options struct {
	// Tokens seeds the session, e.g. from a persisted previous run.
	Tokens *Tokens
	// HTTPClient overrides the underlying transport (timeouts, proxies,
	// test doubles). Defaults to a plain http.Client.
	HTTPClient *http.Client
	// Logger receives session lifecycle events. Defaults to a no-op.
	Logger logging.Logger
}

// Client is the single authority for "what does the server consider my
// current identity" and "is it time to renew". All higher-level operations
// route through its Do/Stream dispatch entry points, which transparently
// refresh near-expiry credentials before delegating to the transport.
//
// The session snapshot is replaced by atomic assignment under a mutex;
// concurrent dispatches may at worst perform a redundant refresh round-trip
// (the refresh exchange is idempotent on the server side), never observe a
// half-updated session.
type Client struct {
	site *url.URL
	thin *thinClient
	log  logging.Logger

	mu    sync.Mutex
	state *tokenState
}

// NewClient builds an anonymous client for the given site base URL.
func NewClient(site string) (*Client, error) {
	return NewClientWithOptions(site, Options{})
}

// NewClientWithOptions builds a client with explicit options.
func NewClientWithOptions(site string, opts Options) (*Client, error) {
	base, err := url.Parse(site)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	c := &Client{
		site: base,
		thin: newThinClient(base, opts.HTTPClient),
		log:  log,
	}
	c.replaceState(context.Background(), newTokenState(opts.Tokens))
	return c, nil
}

// Site returns the base URL the client talks to.
func (c *Client) Site() *url.URL {
	return c.site
}

// Tokens returns a copy of the current credential triple, or nil when
// anonymous.
func (c *Client) Tokens() *Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.creds == nil {
		return nil
	}
	tokens := c.state.creds.tokens
	return &tokens
}

// User returns the identity behind the current session, or nil when
// anonymous.
func (c *Client) User() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.creds == nil {
		return nil
	}
	user := c.state.creds.claims.User()
	return &user
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates against the site and unconditionally replaces the
// session with the returned token triple. A non-2xx reply surfaces as a
// *StatusError with the server's status and body.
func (c *Client) Login(ctx context.Context, email, password string) (*Tokens, error) {
	resp, err := c.Do(ctx, http.MethodPost, authAPI+"/login", loginRequest{
		Email:    email,
		Password: password,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	var tokens Tokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("login: decode response: %w", err)
	}

	c.replaceState(ctx, newTokenState(&tokens))
	c.log.Info(ctx, "logged in", "email", email)
	return &tokens, nil
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the session server-side on a best-effort basis and clears
// the local session unconditionally. Transport or status failures during
// the remote call are swallowed: local state clearing is guaranteed, remote
// revocation is not. Calling Logout on an anonymous client is a no-op
// beyond the bare logout call, and never fails.
func (c *Client) Logout(ctx context.Context) {
	var refresh *string
	c.mu.Lock()
	if c.state.creds != nil {
		refresh = c.state.creds.tokens.Refresh
	}
	c.mu.Unlock()

	var resp *http.Response
	var err error
	if refresh != nil {
		resp, err = c.Do(ctx, http.MethodPost, authAPI+"/logout", refreshTokenRequest{RefreshToken: *refresh}, nil)
	} else {
		resp, err = c.Do(ctx, http.MethodGet, authAPI+"/logout", nil, nil)
	}
	if err != nil {
		c.log.Warn(ctx, "remote logout failed", "error", err)
	} else {
		drain(resp)
	}

	c.replaceState(ctx, newTokenState(nil))
}

// Refresh forces a token renewal regardless of expiry. Returns
// ErrUnauthenticated when there is no refresh token to renew with. On
// failure the prior session is left untouched.
func (c *Client) Refresh(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if state.creds == nil || state.creds.tokens.Refresh == nil {
		return ErrUnauthenticated
	}

	fresh, err := c.refreshTokens(ctx, *state.creds.tokens.Refresh, state.headers)
	if err != nil {
		return err
	}
	c.replaceState(ctx, fresh)
	return nil
}

// Do is the canonical dispatch for single round-trips: it reads the current
// session, performs a pre-emptive refresh when credentials are inside the
// expiry margin, and delegates to the transport with the (possibly updated)
// headers. body is JSON-marshalled unless nil. Status codes are propagated
// verbatim; callers interpret them.
func (c *Client) Do(ctx context.Context, method, path string, body any, params []QueryParam) (*http.Response, error) {
	state, err := c.freshState(ctx)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	return c.thin.do(ctx, method, path, state.headers, payload, params)
}

// Stream is the dispatch counterpart for server-sent-event connections.
// The returned Stream must be closed by the consumer.
func (c *Client) Stream(ctx context.Context, method, path string, params []QueryParam) (*Stream, error) {
	state, err := c.freshState(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.thin.stream(ctx, method, path, state.headers, params)
	if err != nil {
		return nil, err
	}
	return newStream(resp), nil
}

// Transaction starts an empty batch of record operations to be submitted
// atomically via Send.
func (c *Client) Transaction() *TransactionBatch {
	return &TransactionBatch{client: c}
}

// freshState returns the current session snapshot, renewing it first when
// shouldRefresh says the credentials are about to expire. A concurrent
// dispatch that also decides to refresh performs a redundant round-trip;
// that is accepted, refresh is idempotent server-side.
func (c *Client) freshState(ctx context.Context) (*tokenState, error) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	refresh := shouldRefresh(state, time.Now())
	if refresh == nil {
		return state, nil
	}

	fresh, err := c.refreshTokens(ctx, *refresh, state.headers)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	c.replaceState(ctx, fresh)
	c.log.Debug(ctx, "session refreshed")
	return fresh, nil
}

// shouldRefresh returns the refresh token iff credentials are present and
// expire within refreshMargin of now. Pure predicate, no side effects.
func shouldRefresh(state *tokenState, now time.Time) *string {
	if state.creds == nil {
		return nil
	}
	if state.creds.claims.ExpiresAt-int64(refreshMargin.Seconds()) > now.Unix() {
		return nil
	}
	return state.creds.tokens.Refresh
}

// refreshTokens performs the refresh exchange and builds the replacement
// snapshot. The server echoes a new auth/csrf pair; the refresh token is
// NOT rotated by this flow and is carried over verbatim. Errors propagate
// unchanged; no retry here, the caller decides whether to re-login.
func (c *Client) refreshTokens(ctx context.Context, refreshToken string, headers map[string]string) (*tokenState, error) {
	payload, err := json.Marshal(refreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	resp, err := c.thin.do(ctx, http.MethodPost, authAPI+"/refresh", headers, payload, nil)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var refreshed struct {
		AuthToken string  `json:"auth_token"`
		CsrfToken *string `json:"csrf_token,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}

	return newTokenState(&Tokens{
		Auth:    refreshed.AuthToken,
		Refresh: &refreshToken,
		Csrf:    refreshed.CsrfToken,
	}), nil
}

func (c *Client) replaceState(ctx context.Context, state *tokenState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	if state.creds != nil && state.creds.claims.ExpiresAt < time.Now().Unix() {
		c.log.Warn(ctx, "session token already expired",
			"email", state.creds.claims.Email)
	}
}

// drain discards and closes a response body so the connection can be
// reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
