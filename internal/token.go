package internal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"

	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

// SessionState is the token lifecycle state machine position.
type SessionState int

const (
	StateIdle SessionState = iota
	StateGranting
	StateReady
	StateRefreshing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGranting:
		return "granting"
	case StateReady:
		return "ready"
	case StateRefreshing:
		return "refreshing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Credentials is the credential set for a session. Exactly one of Code and
// RefreshToken is the active grant input at any moment; once the server
// issues a refresh token it permanently supersedes the one-time code.
type Credentials struct {
	ClientID     string
	ClientSecret string
	// Code is the one-time authorization code. Consumed by the first grant.
	Code string
	// RefreshToken, when set, overrides the code.
	RefreshToken string
}

const (
	grantPath  = "oauth/grant"
	revokePath = "oauth/revoke"

	// DefaultRenewalMargin is subtracted from the token expiry when
	// scheduling the next renewal, to avoid racing token expiry.
	DefaultRenewalMargin = 5 * time.Second
)

// TokenManagerConfig carries the tunables of the token lifecycle manager.
type TokenManagerConfig struct {
	// RenewalMargin defaults to DefaultRenewalMargin if zero.
	RenewalMargin time.Duration

	// MaxRefreshRetries caps the exponential backoff applied to transient
	// failures during a scheduled refresh. Defaults to 5 if zero.
	MaxRefreshRetries uint64

	Logger *slog.Logger
}

// TokenManager owns the credential state machine: it obtains the first grant,
// schedules its own renewals at expiry minus a safety margin, exposes the
// scope set, and gates the session's online status.
//
// An invalid code, refresh token or client id/secret is fatal: the manager
// surfaces a *CredentialError, halts the renewal schedule and never retries
// with the same input. Transient failures during a scheduled refresh are
// retried with capped exponential backoff before being treated as fatal.
type TokenManager struct {
	gateway *Gateway
	cfg     TokenManagerConfig

	mu          sync.Mutex
	state       SessionState
	creds       Credentials
	accessToken string
	expiresAt   time.Time
	scopes      types.ScopeSet
	scopesSet   bool
	online      bool
	cancelRenew context.CancelFunc

	// OnReady is invoked after every transition into Ready; first is true
	// only for the very first grant of the session.
	OnReady func(ctx context.Context, first bool)
	// OnRefreshToken is invoked whenever the server issues a new refresh
	// token, for persistence.
	OnRefreshToken func(token string)
	// OnFatal is invoked when a scheduled renewal fails fatally and the
	// schedule halts.
	OnFatal func(err error)
}

// NewTokenManager returns an idle manager. Call Start to perform the first
// grant.
func NewTokenManager(gateway *Gateway, creds Credentials, cfg TokenManagerConfig) *TokenManager {
	if cfg.RenewalMargin <= 0 {
		cfg.RenewalMargin = DefaultRenewalMargin
	}
	if cfg.MaxRefreshRetries == 0 {
		cfg.MaxRefreshRetries = 5
	}

	return &TokenManager{
		gateway: gateway,
		cfg:     cfg,
		state:   StateIdle,
		creds:   creds,
	}
}

// Token returns the current access token, or "" before the first grant. It is
// the live read reference handed to the gateway.
func (m *TokenManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// Scopes returns the scope set populated by the first grant.
func (m *TokenManager) Scopes() types.ScopeSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scopes
}

// Online reports whether the session has completed its first grant and has
// not been closed.
func (m *TokenManager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// State returns the current lifecycle state.
func (m *TokenManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RenewalDeadline returns the scheduled time of the next renewal.
func (m *TokenManager) RenewalDeadline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiresAt.Add(-m.cfg.RenewalMargin)
}

// RefreshToken returns the currently held refresh token, if any.
func (m *TokenManager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.RefreshToken
}

// Start performs the initial grant and, on success, launches the renewal
// schedule. The error from an invalid credential is a *CredentialError and is
// not retryable with the same input.
func (m *TokenManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateIdle {
		state := m.state
		m.mu.Unlock()
		return &pkgerrs.StateError{Operation: "login", Message: "session already " + state.String()}
	}
	m.state = StateGranting
	m.mu.Unlock()

	if err := m.grant(ctx); err != nil {
		m.mu.Lock()
		m.state = StateIdle
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.state = StateReady
	m.online = true
	m.mu.Unlock()

	renewCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	m.cancelRenew = cancel
	m.mu.Unlock()
	go m.renewLoop(renewCtx)

	if m.OnReady != nil {
		m.OnReady(ctx, true)
	}
	return nil
}

// grant performs one token exchange using the currently active grant input
// and stores the result. Called with the state already set to Granting or
// Refreshing.
func (m *TokenManager) grant(ctx context.Context) error {
	m.mu.Lock()
	form := url.Values{}
	form.Set("client_id", m.creds.ClientID)
	form.Set("client_secret", m.creds.ClientSecret)
	if m.creds.RefreshToken != "" {
		form.Set("grant_type", "refresh")
		form.Set("refresh_token", m.creds.RefreshToken)
	} else {
		form.Set("grant_type", "code")
		form.Set("code", m.creds.Code)
	}
	m.mu.Unlock()

	body, err := m.gateway.Do(ctx, http.MethodPost, grantPath, &RequestOptions{
		Form:      form,
		NoAuth:    true,
		Operation: "token grant",
	})

	// The grant endpoint reports credential rejections in the body, with
	// varying statuses. Decode it before trusting the transport error so a
	// fatal rejection is never misread as transient.
	var resp types.GrantResponse
	if len(body) > 0 {
		if jsonErr := json.Unmarshal(body, &resp); jsonErr != nil && err == nil {
			return &pkgerrs.ParseError{Operation: "token grant", Err: jsonErr}
		}
	}

	if resp.OAuthError != "" {
		return credentialError(resp.OAuthError)
	}
	if err != nil {
		return err
	}
	if resp.AccessToken == "" {
		return &pkgerrs.ParseError{Operation: "token grant", Message: "access token missing from grant response"}
	}

	m.mu.Lock()
	m.accessToken = resp.AccessToken
	m.expiresAt = time.Unix(resp.ExpiresAt, 0)
	if resp.RefreshToken != "" {
		m.creds.RefreshToken = resp.RefreshToken
		m.creds.Code = ""
	}
	if !m.scopesSet {
		// Scopes are fixed after the first grant for the session's
		// lifetime; the server does not renegotiate them on refresh.
		m.scopes = types.ParseScopeSet(resp.Scopes)
		m.scopesSet = true
	}
	newRefresh := resp.RefreshToken
	deadline := m.expiresAt.Add(-m.cfg.RenewalMargin)
	m.mu.Unlock()

	if m.cfg.Logger != nil {
		m.cfg.Logger.Debug("token acquired", "renew_at", deadline)
	}

	if newRefresh != "" && m.OnRefreshToken != nil {
		m.OnRefreshToken(newRefresh)
	}
	return nil
}

// renewLoop sleeps until each renewal deadline and refreshes the token. The
// loop exits when the context is cancelled or a renewal fails fatally.
func (m *TokenManager) renewLoop(ctx context.Context) {
	for {
		deadline := m.RenewalDeadline()

		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		m.mu.Lock()
		if m.state != StateReady {
			m.mu.Unlock()
			return
		}
		m.state = StateRefreshing
		m.mu.Unlock()

		if err := m.refreshWithBackoff(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.mu.Lock()
			m.state = StateClosed
			m.online = false
			m.mu.Unlock()
			if m.cfg.Logger != nil {
				m.cfg.Logger.Error("token renewal failed, halting schedule", "error", err)
			}
			if m.OnFatal != nil {
				m.OnFatal(err)
			}
			return
		}

		m.mu.Lock()
		m.state = StateReady
		m.mu.Unlock()

		if m.OnReady != nil {
			m.OnReady(ctx, false)
		}
	}
}

// refreshWithBackoff retries transient grant failures with capped exponential
// backoff. Credential errors are permanent and fail immediately.
func (m *TokenManager) refreshWithBackoff(ctx context.Context) error {
	op := func() error {
		err := m.grant(ctx)
		var credErr *pkgerrs.CredentialError
		if errors.As(err, &credErr) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), m.cfg.MaxRefreshRetries),
		ctx,
	)
	return backoff.Retry(op, policy)
}

// Close cancels the renewal schedule and discards the credential state. It is
// safe to call more than once.
func (m *TokenManager) Close() {
	m.mu.Lock()
	cancel := m.cancelRenew
	m.cancelRenew = nil
	m.state = StateClosed
	m.online = false
	m.accessToken = ""
	m.creds = Credentials{}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Revoke asks the server to invalidate the session's tokens, then closes the
// manager regardless of the outcome.
func (m *TokenManager) Revoke(ctx context.Context) error {
	m.mu.Lock()
	form := url.Values{}
	if m.accessToken != "" {
		form.Set("access_token", m.accessToken)
	}
	if m.creds.RefreshToken != "" {
		form.Set("refresh_token", m.creds.RefreshToken)
	}
	m.mu.Unlock()

	var err error
	if len(form) > 0 {
		_, err = m.gateway.Do(ctx, http.MethodPost, revokePath, &RequestOptions{
			Form:      form,
			Operation: "token revoke",
		})
	}

	m.Close()
	return err
}

// credentialError classifies an oauth_error string into the grant input the
// server rejected.
func credentialError(msg string) *pkgerrs.CredentialError {
	switch {
	case strings.HasPrefix(msg, "Invalid refresh_token"):
		return &pkgerrs.CredentialError{Grant: "refresh_token", Message: msg}
	case strings.HasPrefix(msg, "Invalid code"):
		return &pkgerrs.CredentialError{Grant: "code", Message: msg}
	case strings.HasPrefix(msg, "Invalid `client_id`"):
		return &pkgerrs.CredentialError{Grant: "client credentials", Message: msg}
	default:
		return &pkgerrs.CredentialError{Message: msg}
	}
}
