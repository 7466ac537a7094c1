package ruqqus

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ruqqus-community/go-ruqqus/internal"
	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

const (
	// DefaultSiteURL is the Ruqqus site root, used for permalinks and the
	// OAuth authorize endpoint.
	DefaultSiteURL = "https://ruqqus.com/"
	// DefaultAPIURL is the REST API root.
	DefaultAPIURL = "https://ruqqus.com/api/v1/"
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	libraryName = "go-ruqqus"
)

// Config holds the configuration for the Ruqqus client.
//
// Supply ClientID, ClientSecret and either a one-time authorization Code or a
// stored RefreshToken. A refresh token always overrides the code: codes are
// single-use and cannot be replayed.
type Config struct {
	// ClientID and ClientSecret identify the application.
	ClientID     string
	ClientSecret string

	// Code is the one-time authorization code from the redirect flow.
	Code string

	// RefreshToken, when set, supersedes Code.
	RefreshToken string

	// UserAgent identifies the application to Ruqqus.
	// Defaults to "go-ruqqus@<client id>".
	UserAgent string

	// SiteURL and APIURL default to the public Ruqqus endpoints. Usually
	// only changed for testing.
	SiteURL string
	APIURL  string

	// PollInterval is the fixed delay between poll ticks of the post and
	// comment feeds. Defaults to 10 seconds.
	PollInterval time.Duration

	// ConfigFile is an optional path to a persisted config file. Values
	// from the file fill in unset fields, and newly issued refresh tokens
	// are written back when the file enables autosave.
	ConfigFile string

	// RateLimit controls client-side request throttling.
	RateLimit *internal.RateLimitConfig

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	HTTPClient *http.Client

	// Logger for structured diagnostics.
	// Optional. If provided, debug information will be logged during API
	// calls and poll ticks.
	Logger *slog.Logger
}

// Client is the Ruqqus API client. Create one with NewClient, register any
// event handlers, then call Connect to log in and start the background
// renewal and polling loops.
type Client struct {
	config   *Config
	gateway  *internal.Gateway
	tokens   *internal.TokenManager
	resolver *internal.Resolver
	poller   *internal.PollEngine
	events   *eventBus

	fileConfig *FileConfig

	connectOnce sync.Once
	connectErr  error

	mu        sync.Mutex
	identity  *types.User
	startTime time.Time
	closed    bool
}

// NewClient creates a new Ruqqus client with the provided configuration. It
// validates the configuration, loads the persisted config file if one is
// named, and sets up the token manager and poll engine. No network calls are
// made until Connect.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, &pkgerrs.ConfigError{Message: "config cannot be nil"}
	}

	var fileConfig *FileConfig
	if config.ConfigFile != "" {
		fc, err := LoadFileConfig(config.ConfigFile)
		if err != nil {
			return nil, err
		}
		fileConfig = fc
		applyFileConfig(config, fc)
	}

	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, &pkgerrs.ConfigError{Message: "ClientID and ClientSecret are required"}
	}
	if config.Code == "" && config.RefreshToken == "" {
		return nil, &pkgerrs.ConfigError{Message: "either Code or RefreshToken is required"}
	}

	if config.UserAgent == "" {
		config.UserAgent = libraryName + "@" + config.ClientID
	}
	if config.SiteURL == "" {
		config.SiteURL = DefaultSiteURL
	}
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.PollInterval <= 0 {
		config.PollInterval = internal.DefaultPollInterval
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}

	c := &Client{
		config:     config,
		resolver:   internal.NewResolver(config.SiteURL),
		events:     newEventBus(),
		fileConfig: fileConfig,
	}

	gateway, err := internal.NewGateway(
		config.HTTPClient,
		config.APIURL,
		config.UserAgent,
		libraryName,
		func() string {
			if c.tokens == nil {
				return ""
			}
			return c.tokens.Token()
		},
		config.RateLimit,
		config.Logger,
	)
	if err != nil {
		return nil, err
	}
	c.gateway = gateway

	c.tokens = internal.NewTokenManager(gateway, internal.Credentials{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Code:         config.Code,
		RefreshToken: config.RefreshToken,
	}, internal.TokenManagerConfig{
		Logger: config.Logger,
	})
	c.tokens.OnReady = c.onSessionReady
	c.tokens.OnRefreshToken = c.onNewRefreshToken

	c.poller = internal.NewPollEngine(internal.PollEngineConfig{
		Gateway:          gateway,
		Resolver:         c.resolver,
		Interval:         config.PollInterval,
		Ready:            c.pollReady,
		PostListeners:    c.events.postListeners,
		CommentListeners: c.events.commentListeners,
		EmitPost:         c.events.emitPost,
		EmitComment:      c.events.emitComment,
		Logger:           config.Logger,
	})

	return c, nil
}

// Connect performs the initial OAuth grant and starts the token renewal and
// polling loops. It is safe to call Connect multiple times; the login happens
// only once.
//
// An invalid code, refresh token or client id/secret surfaces as a
// *errors.CredentialError and is not retryable with the same credentials.
func (c *Client) Connect(ctx context.Context) error {
	c.connectOnce.Do(func() {
		c.connectErr = c.tokens.Start(ctx)
		if c.connectErr == nil {
			c.poller.Start(ctx)
		}
	})

	return c.connectErr
}

// onSessionReady runs after every transition into Ready. On the first one it
// resolves the account identity, records the login time, and fires the login
// notification exactly once for the session.
func (c *Client) onSessionReady(ctx context.Context, first bool) {
	if !first {
		return
	}

	scopes := c.tokens.Scopes()
	if scopes.Identity {
		identity, err := c.fetchIdentity(ctx)
		if err != nil {
			c.logWarn("identity fetch failed", "error", err)
		} else {
			c.mu.Lock()
			c.identity = identity
			c.mu.Unlock()
		}
	} else {
		c.logWarn("missing \"identity\" scope, client identity will be unresolved")
	}

	if !scopes.Read {
		c.logWarn("missing \"read\" scope, post and comment events will not be emitted")
	}

	c.mu.Lock()
	c.startTime = time.Now()
	c.mu.Unlock()

	c.events.emitLogin()
}

// onNewRefreshToken persists newly issued refresh tokens when the config file
// enables autosave.
func (c *Client) onNewRefreshToken(token string) {
	if c.fileConfig == nil || !c.fileConfig.Autosave || c.config.ConfigFile == "" {
		return
	}

	c.fileConfig.RefreshToken = token
	if err := c.fileConfig.Save(c.config.ConfigFile); err != nil {
		c.logWarn("failed to save refresh token", "error", err)
	}
}

func (c *Client) fetchIdentity(ctx context.Context) (*types.User, error) {
	var payload types.UserPayload
	err := c.gateway.DoJSON(ctx, http.MethodGet, "identity", &internal.RequestOptions{
		Operation: "identity",
	}, &payload)
	if err != nil {
		return nil, err
	}
	return c.resolver.ResolveUser(&payload, types.VariantFull), nil
}

// pollReady gates the poll engine: ticks are no-ops until the session is
// online with the read scope.
func (c *Client) pollReady() bool {
	return c.tokens.Online() && c.tokens.Scopes().Read
}

// IsOnline reports whether the session has completed its first grant and has
// not been closed.
func (c *Client) IsOnline() bool {
	return c.tokens.Online()
}

// Scopes returns the capability set granted at login. It is fixed for the
// life of the session.
func (c *Client) Scopes() types.ScopeSet {
	return c.tokens.Scopes()
}

// Identity returns the account the session is logged in as, or nil when the
// identity scope was not granted.
func (c *Client) Identity() *types.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// Uptime returns the time elapsed since login, or zero before login.
func (c *Client) Uptime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}

// RefreshToken returns the currently held refresh token so callers can
// persist it for the next session.
func (c *Client) RefreshToken() string {
	return c.tokens.RefreshToken()
}

// PostCache exposes the post feed's de-duplication cache for inspection.
func (c *Client) PostCache() *internal.SubmissionCache {
	return c.poller.PostCache()
}

// CommentCache exposes the comment feed's de-duplication cache for inspection.
func (c *Client) CommentCache() *internal.SubmissionCache {
	return c.poller.CommentCache()
}

// OnLogin registers a handler for the login notification, which fires exactly
// once per session. The returned func cancels the registration.
func (c *Client) OnLogin(h func()) (cancel func()) {
	return c.events.onLogin(h)
}

// OnPost registers a handler for new-post notifications. The returned func
// cancels the registration; the post feed stops being polled once no
// registrations remain.
func (c *Client) OnPost(h func(*types.Post)) (cancel func()) {
	return c.events.onPost(h)
}

// OnComment registers a handler for new-comment notifications. The returned
// func cancels the registration; the comment feed stops being polled once no
// registrations remain.
func (c *Client) OnComment(h func(*types.Comment)) (cancel func()) {
	return c.events.onComment(h)
}

// Close terminates the session: it cancels the pending renewal and poll
// timers and discards the credential state. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.poller.Stop()
	c.tokens.Close()
}

// CloseAndRevoke closes the session destructively: it additionally asks the
// server to invalidate the session's tokens before discarding local state.
func (c *Client) CloseAndRevoke(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.poller.Stop()
	return c.tokens.Revoke(ctx)
}

// requireScope fails fast when the named capability was not granted or the
// session is not online. It runs before any network request is attempted.
func (c *Client) requireScope(scope, operation string) error {
	if !c.tokens.Online() {
		return &pkgerrs.StateError{Operation: operation, Message: "session is not online, call Connect() first"}
	}
	if !c.tokens.Scopes().Has(scope) {
		return &pkgerrs.ScopeError{Scope: scope, Operation: operation}
	}
	return nil
}

func (c *Client) logWarn(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Warn(msg, args...)
	}
}
