package magicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// tokenHeader is the header the backend uses to deliver and accept the
// session token.
const tokenHeader = "magic-token"

// loginPath is the fixed form-login endpoint.
const loginPath = "/login"

// userAgent identifies this client to the backend.
const userAgent = "magicapi-go/0.1"

// maxErrorBody caps how much of an error response body is kept for messages.
const maxErrorBody = 4 << 10

// SessionState describes where the session is in its authentication
// lifecycle. Transitions are serialized by the session mutex.
type SessionState int

// Session lifecycle states.
const (
	StateUnauthenticated SessionState = iota
	StateAuthenticated
	StateReauthenticating
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateReauthenticating:
		return "reauthenticating"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Credentials holds the backend login pair. A nil *Credentials on the
// session means auth is disabled and requests go out unauthenticated.
type Credentials struct {
	Username string
	Password string
}

// Request describes one backend call. Query, JSON, and Form are optional;
// JSON and Form are mutually exclusive (JSON wins if both are set).
// Bodies are values rather than readers so a replay after re-login can
// rebuild the request byte-for-byte.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	JSON    any
	Form    url.Values
	Headers http.Header // extra headers; an existing magic-token here is never overwritten
}

// Session owns the HTTP transport context for one backend: base URL,
// credentials, and the cached token. It guarantees at most one
// re-authentication in flight at a time; concurrent callers that trigger a
// login all share the single outcome.
type Session struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// mu guards creds, token, and state — the only mutable shared data.
	mu    sync.Mutex
	creds *Credentials
	token string
	state SessionState

	login singleflight.Group
}

// NewSession creates a session for the given backend. creds may be nil to
// disable authentication. httpClient should carry the request timeout;
// pass nil for http.DefaultClient.
func NewSession(baseURL string, creds *Credentials, httpClient *http.Client, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Session{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: httpClient,
		logger:     logger,
		state:      StateUnauthenticated,
	}
}

// BaseURL returns the backend base URL with any trailing slash removed.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Token returns the cached token, empty when unauthenticated.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

// credentials returns the current credential pair, nil when auth is disabled.
func (s *Session) credentials() *Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.creds
}

// ResetCredentials replaces the credentials and returns the session to the
// unauthenticated state, clearing any cached token. This is the only way
// out of the Failed state.
func (s *Session) ResetCredentials(creds *Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = creds
	s.token = ""
	s.state = StateUnauthenticated
}

// Response is the raw outcome of Send, for endpoints that do not use the
// standard envelope (user-defined routes).
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Call sends one authenticated request and returns the envelope data
// payload on success (envelope code 1).
//
// On the first call with credentials present and no cached token, a login
// exchange runs first. If the backend answers with an authorization
// failure (HTTP 401 or an unauthorized envelope code), exactly one
// re-login runs and the request is replayed exactly once; a second
// authorization failure surfaces ErrAuth and fails the session. Non-auth
// failures propagate immediately with no retry.
func (s *Session) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	return sendRecovering(ctx, s, req, func() (json.RawMessage, error) {
		return s.callOnce(ctx, req)
	})
}

// Send performs one authenticated request and returns the raw response.
// Same lazy-login and single auth-retry discipline as Call, but without
// envelope interpretation — user-defined endpoints return arbitrary bodies.
func (s *Session) Send(ctx context.Context, req Request) (*Response, error) {
	return sendRecovering(ctx, s, req, func() (*Response, error) {
		return s.sendOnce(ctx, req)
	})
}

// sendRecovering wraps one attempt with the session lifecycle: fail-fast
// when Failed, lazy first login, and exactly one re-login plus one replay
// on an authorization failure.
func sendRecovering[T any](ctx context.Context, s *Session, req Request, attempt func() (T, error)) (T, error) {
	var zero T

	if err := s.ensureUsable(); err != nil {
		return zero, err
	}

	if err := s.ensureToken(ctx); err != nil {
		return zero, err
	}

	result, err := attempt()
	if err == nil || !isUnauthorized(err) {
		return result, err
	}

	// Authorization failure: one single-flight re-login, one replay.
	s.logger.Warn("unauthorized response, re-authenticating",
		slog.String("method", req.Method),
		slog.String("path", req.Path),
	)

	if loginErr := s.authenticate(ctx, true); loginErr != nil {
		return zero, loginErr
	}

	result, err = attempt()
	if err != nil && isUnauthorized(err) {
		s.fail()

		return zero, fmt.Errorf("%w: request still unauthorized after re-login", ErrAuth)
	}

	return result, err
}

// sendOnce performs a single request cycle with no auth recovery and no
// envelope decoding. Only HTTP 401 is classified; everything else is the
// caller's to interpret.
func (s *Session) sendOnce(ctx context.Context, req Request) (*Response, error) {
	resp, err := s.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrNetwork, readErr)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &APIError{Status: resp.StatusCode, Message: excerpt(body), Err: ErrUnauthorized}
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// callOnce performs a single request/decode cycle with no auth recovery.
func (s *Session) callOnce(ctx context.Context, req Request) (json.RawMessage, error) {
	resp, err := s.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrNetwork, readErr)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &APIError{Status: resp.StatusCode, Message: excerpt(body), Err: ErrUnauthorized}
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &APIError{Status: resp.StatusCode, Message: excerpt(body), Err: ErrNotFound}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{Status: resp.StatusCode, Message: excerpt(body), Err: ErrNetwork}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding envelope: %v", ErrMalformedResponse, err)
	}

	if env.Code == http.StatusUnauthorized {
		// Some deployments report expiry as an API-level code with HTTP 200.
		return nil, &APIError{Code: env.Code, Message: env.Message, Err: ErrUnauthorized}
	}

	if env.Code != envelopeOK {
		return nil, &APIError{Code: env.Code, Status: resp.StatusCode, Message: env.Message}
	}

	return env.Data, nil
}

// do builds and sends one HTTP request, attaching the cached token unless
// the caller already set one.
func (s *Session) do(ctx context.Context, req Request) (*http.Response, error) {
	target := s.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)

	switch {
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("magicapi: marshaling request body: %w", err)
		}

		body = bytes.NewReader(b)
		contentType = "application/json"
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("magicapi: creating request: %w", err)
	}

	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	// Attach the cached token, but never clobber a token the caller set.
	if httpReq.Header.Get(tokenHeader) == "" {
		if tok := s.Token(); tok != "" {
			httpReq.Header.Set(tokenHeader, tok)
		}
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
		}

		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	return resp, nil
}

// ensureUsable fails fast when the session has already failed.
func (s *Session) ensureUsable() error {
	if s.State() == StateFailed {
		return ErrSessionFailed
	}

	return nil
}

// ensureToken performs the lazy first login when credentials are present
// and no token is cached yet.
func (s *Session) ensureToken(ctx context.Context) error {
	if s.credentials() == nil || s.Token() != "" {
		return nil
	}

	return s.authenticate(ctx, false)
}

// authenticate runs the login exchange, collapsed through a single-flight
// group so concurrent callers observe one login attempt and share its
// outcome. relogin marks the Reauthenticating transition.
func (s *Session) authenticate(ctx context.Context, relogin bool) error {
	if s.credentials() == nil {
		// Auth disabled: an unauthorized response cannot be recovered.
		return fmt.Errorf("%w: backend requires authentication but no credentials configured", ErrAuth)
	}

	if relogin {
		s.setState(StateReauthenticating)
	}

	_, err, shared := s.login.Do("login", func() (any, error) {
		return nil, s.doLogin(ctx)
	})

	if shared {
		s.logger.Debug("login shared with concurrent caller")
	}

	return err
}

// doLogin submits the credentials to the login endpoint and caches the
// token from the response header (or body field as fallback). Any failure
// moves the session to Failed.
func (s *Session) doLogin(ctx context.Context) error {
	creds := s.credentials()

	form := url.Values{}
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)

	resp, err := s.do(ctx, Request{Method: http.MethodPost, Path: loginPath, Form: form})
	if err != nil {
		s.fail()

		return fmt.Errorf("%w: login request: %v", ErrAuth, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		s.fail()

		return fmt.Errorf("%w: reading login response: %v", ErrAuth, readErr)
	}

	var env envelope
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &env) != nil || env.Code != envelopeOK {
		s.fail()
		s.logger.Error("login rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("message", env.Message),
		)

		return fmt.Errorf("%w: login rejected (HTTP %d): %s", ErrAuth, resp.StatusCode, env.Message)
	}

	token := resp.Header.Get(tokenHeader)
	if token == "" {
		token = tokenFromBody(env.Data)
	}

	if token == "" {
		s.fail()

		return fmt.Errorf("%w: login succeeded but no %s in response", ErrAuth, tokenHeader)
	}

	s.mu.Lock()
	s.token = token
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.logger.Info("login successful", slog.String("username", creds.Username))

	return nil
}

// tokenFromBody extracts a token field from the login data payload.
func tokenFromBody(data json.RawMessage) string {
	var payload struct {
		Token string `json:"token"`
	}

	if json.Unmarshal(data, &payload) == nil {
		return payload.Token
	}

	return ""
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) fail() {
	s.setState(StateFailed)
}

// isUnauthorized reports whether err is the recoverable authorization
// failure that warrants the single re-login.
func isUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// excerpt trims a response body for inclusion in error messages.
func excerpt(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	return strings.TrimSpace(string(body))
}
