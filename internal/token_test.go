package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
)

// grantServer mocks the token exchange endpoint. Each call consumes the next
// queued response body.
func grantServer(t *testing.T, responses ...string) (*Gateway, *httptest.Server, *atomic.Int32, chan map[string]string) {
	t.Helper()

	var calls atomic.Int32
	forms := make(chan map[string]string, len(responses)+4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/oauth/grant" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		r.ParseForm()
		form := make(map[string]string)
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		forms <- form

		n := int(calls.Add(1)) - 1
		if n >= len(responses) {
			n = len(responses) - 1
		}
		w.Write([]byte(responses[n]))
	}))
	t.Cleanup(server.Close)

	gw, err := NewGateway(server.Client(), server.URL+"/api/v1/", "test-agent", "go-ruqqus", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	return gw, server, &calls, forms
}

func grantBody(accessToken, refreshToken string, expiresIn time.Duration, scopes string) string {
	return fmt.Sprintf(`{"access_token": %q, "refresh_token": %q, "expires_at": %d, "scopes": %q}`,
		accessToken, refreshToken, time.Now().Add(expiresIn).Unix(), scopes)
}

func TestTokenManager_LoginWithCode(t *testing.T) {
	gw, _, _, forms := grantServer(t, grantBody("tok1", "refresh1", time.Hour, "identity,read"))

	m := NewTokenManager(gw, Credentials{
		ClientID:     "cid",
		ClientSecret: "csecret",
		Code:         "onetime",
	}, TokenManagerConfig{})
	defer m.Close()

	firstReady := make(chan bool, 1)
	m.OnReady = func(ctx context.Context, first bool) { firstReady <- first }

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	form := <-forms
	if form["grant_type"] != "code" || form["code"] != "onetime" {
		t.Errorf("grant form = %v, want a code grant", form)
	}
	if form["client_id"] != "cid" || form["client_secret"] != "csecret" {
		t.Errorf("grant form missing client credentials: %v", form)
	}

	if !m.Online() {
		t.Error("Online() = false after a successful grant")
	}
	if m.State() != StateReady {
		t.Errorf("State() = %v, want ready", m.State())
	}
	if m.Token() != "tok1" {
		t.Errorf("Token() = %q, want tok1", m.Token())
	}
	if m.RefreshToken() != "refresh1" {
		t.Errorf("RefreshToken() = %q, want refresh1", m.RefreshToken())
	}

	scopes := m.Scopes()
	if !scopes.Identity || !scopes.Read {
		t.Errorf("Scopes() = %+v, want identity and read granted", scopes)
	}
	if scopes.Vote {
		t.Error("Scopes() granted vote without the server saying so")
	}

	// Renewal is scheduled at expiry minus the margin.
	wantDeadline := time.Now().Add(time.Hour - DefaultRenewalMargin)
	if d := m.RenewalDeadline(); d.Before(wantDeadline.Add(-5*time.Second)) || d.After(wantDeadline.Add(5*time.Second)) {
		t.Errorf("RenewalDeadline() = %v, want about %v", d, wantDeadline)
	}

	select {
	case first := <-firstReady:
		if !first {
			t.Error("OnReady first = false on the initial grant")
		}
	case <-time.After(time.Second):
		t.Fatal("OnReady was not invoked")
	}
}

func TestTokenManager_RefreshTokenSupersedesCode(t *testing.T) {
	gw, _, _, forms := grantServer(t, grantBody("tok1", "refresh1", time.Hour, "read"))

	m := NewTokenManager(gw, Credentials{
		ClientID:     "cid",
		ClientSecret: "csecret",
		Code:         "stale-code",
		RefreshToken: "refresh0",
	}, TokenManagerConfig{})
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	form := <-forms
	if form["grant_type"] != "refresh" || form["refresh_token"] != "refresh0" {
		t.Errorf("grant form = %v, want a refresh grant", form)
	}
	if _, ok := form["code"]; ok {
		t.Error("grant form should not carry the code when a refresh token is held")
	}
}

func TestTokenManager_InvalidCodeIsFatal(t *testing.T) {
	gw, _, calls, _ := grantServer(t, `{"oauth_error": "Invalid code"}`)

	m := NewTokenManager(gw, Credentials{
		ClientID:     "cid",
		ClientSecret: "csecret",
		Code:         "bad",
	}, TokenManagerConfig{})
	defer m.Close()

	err := m.Start(context.Background())

	var credErr *pkgerrs.CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("Start() error = %v, want *CredentialError", err)
	}
	if credErr.Grant != "code" {
		t.Errorf("Grant = %q, want code", credErr.Grant)
	}
	if m.Online() {
		t.Error("Online() = true after a rejected grant")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("grant endpoint called %d times, want exactly 1 (no retry on credential errors)", got)
	}
}

func TestTokenManager_CredentialErrorClassification(t *testing.T) {
	tests := []struct {
		msg       string
		wantGrant string
	}{
		{"Invalid refresh_token", "refresh_token"},
		{"Invalid refresh_token and something", "refresh_token"},
		{"Invalid code", "code"},
		{"Invalid `client_id` or `client_secret`", "client credentials"},
		{"some new rejection", ""},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := credentialError(tt.msg)
			if err.Grant != tt.wantGrant {
				t.Errorf("credentialError(%q).Grant = %q, want %q", tt.msg, err.Grant, tt.wantGrant)
			}
		})
	}
}

func TestTokenManager_MissingAccessTokenIsParseError(t *testing.T) {
	gw, _, _, _ := grantServer(t, `{}`)

	m := NewTokenManager(gw, Credentials{ClientID: "cid", ClientSecret: "cs", Code: "c"}, TokenManagerConfig{})
	defer m.Close()

	err := m.Start(context.Background())
	var parseErr *pkgerrs.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Start() error = %v, want *ParseError", err)
	}
}

func TestTokenManager_ScopesFixedAfterFirstGrant(t *testing.T) {
	gw, _, _, _ := grantServer(t,
		grantBody("tok1", "refresh1", -time.Second, "read"),
		grantBody("tok2", "refresh1", time.Hour, "read,vote"),
	)

	m := NewTokenManager(gw, Credentials{
		ClientID:     "cid",
		ClientSecret: "cs",
		RefreshToken: "refresh0",
	}, TokenManagerConfig{})
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The first token is already past its renewal deadline, so the loop
	// refreshes immediately.
	deadline := time.Now().Add(2 * time.Second)
	for m.Token() != "tok2" {
		if time.Now().After(deadline) {
			t.Fatal("renewal never happened")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if m.Scopes().Vote {
		t.Error("scope set changed after the first grant; it must stay fixed for the session")
	}
	if !m.Scopes().Read {
		t.Error("read scope lost across a refresh")
	}
}

func TestTokenManager_RenewalReportsNewRefreshToken(t *testing.T) {
	gw, _, _, _ := grantServer(t,
		grantBody("tok1", "refresh1", -time.Second, "read"),
		grantBody("tok2", "refresh2", time.Hour, "read"),
	)

	m := NewTokenManager(gw, Credentials{
		ClientID:     "cid",
		ClientSecret: "cs",
		RefreshToken: "refresh0",
	}, TokenManagerConfig{})
	defer m.Close()

	tokens := make(chan string, 4)
	m.OnRefreshToken = func(token string) { tokens <- token }

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	want := []string{"refresh1", "refresh2"}
	for _, w := range want {
		select {
		case got := <-tokens:
			if got != w {
				t.Errorf("OnRefreshToken got %q, want %q", got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("OnRefreshToken never reported %q", w)
		}
	}

	if m.RefreshToken() != "refresh2" {
		t.Errorf("RefreshToken() = %q, want the latest", m.RefreshToken())
	}
}

func TestTokenManager_FatalRenewalHaltsSchedule(t *testing.T) {
	gw, _, _, _ := grantServer(t,
		grantBody("tok1", "refresh1", -time.Second, "read"),
		`{"oauth_error": "Invalid refresh_token"}`,
	)

	m := NewTokenManager(gw, Credentials{
		ClientID:     "cid",
		ClientSecret: "cs",
		RefreshToken: "refresh0",
	}, TokenManagerConfig{})
	defer m.Close()

	fatal := make(chan error, 1)
	m.OnFatal = func(err error) { fatal <- err }

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case err := <-fatal:
		var credErr *pkgerrs.CredentialError
		if !errors.As(err, &credErr) {
			t.Errorf("OnFatal error = %v, want *CredentialError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnFatal was not invoked")
	}

	if m.Online() {
		t.Error("Online() = true after a fatal renewal")
	}
	if m.State() != StateClosed {
		t.Errorf("State() = %v, want closed", m.State())
	}
}

func TestTokenManager_TransientRenewalFailureRecovers(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.Write([]byte(grantBody("tok1", "refresh1", -time.Second, "read")))
		case 2:
			// One transient failure; the backoff must retry it.
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(grantBody("tok2", "refresh1", time.Hour, "read")))
		}
	}))
	defer server.Close()

	gw, err := NewGateway(server.Client(), server.URL+"/api/v1/", "test-agent", "go-ruqqus", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}

	m := NewTokenManager(gw, Credentials{
		ClientID:     "cid",
		ClientSecret: "cs",
		RefreshToken: "refresh0",
	}, TokenManagerConfig{})
	defer m.Close()

	fatal := make(chan error, 1)
	m.OnFatal = func(err error) { fatal <- err }

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for m.Token() != "tok2" || m.State() != StateReady {
		if time.Now().After(deadline) {
			t.Fatalf("renewal never recovered; %d grant calls, state %v", calls.Load(), m.State())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !m.Online() {
		t.Error("Online() = false after a recovered renewal")
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("grant endpoint called %d times, want 3 (grant, failed refresh, retry)", n)
	}
	select {
	case err := <-fatal:
		t.Errorf("OnFatal invoked with %v for a transient failure", err)
	default:
	}
}

func TestTokenManager_CloseWipesCredentials(t *testing.T) {
	gw, _, _, _ := grantServer(t, grantBody("tok1", "refresh1", time.Hour, "read"))

	m := NewTokenManager(gw, Credentials{ClientID: "cid", ClientSecret: "cs", Code: "c"}, TokenManagerConfig{})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	m.Close()
	m.Close() // safe to repeat

	if m.Online() {
		t.Error("Online() = true after Close")
	}
	if m.Token() != "" {
		t.Error("Token() should be wiped by Close")
	}
	if m.RefreshToken() != "" {
		t.Error("RefreshToken() should be wiped by Close")
	}
	if m.State() != StateClosed {
		t.Errorf("State() = %v, want closed", m.State())
	}
}

func TestTokenManager_StartTwiceFails(t *testing.T) {
	gw, _, _, _ := grantServer(t, grantBody("tok1", "refresh1", time.Hour, "read"))

	m := NewTokenManager(gw, Credentials{ClientID: "cid", ClientSecret: "cs", Code: "c"}, TokenManagerConfig{})
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err := m.Start(context.Background())
	var stateErr *pkgerrs.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("second Start() error = %v, want *StateError", err)
	}
}

func TestTokenManager_Revoke(t *testing.T) {
	var revoked atomic.Bool
	var revokeForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/oauth/grant":
			w.Write([]byte(grantBody("tok1", "refresh1", time.Hour, "read")))
		case "/api/v1/oauth/revoke":
			r.ParseForm()
			revokeForm = map[string]string{
				"access_token":  r.PostForm.Get("access_token"),
				"refresh_token": r.PostForm.Get("refresh_token"),
			}
			revoked.Store(true)
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	gw, err := NewGateway(server.Client(), server.URL+"/api/v1/", "test-agent", "go-ruqqus", nil, nil, nil)
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}

	m := NewTokenManager(gw, Credentials{ClientID: "cid", ClientSecret: "cs", Code: "c"}, TokenManagerConfig{})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := m.Revoke(context.Background()); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if !revoked.Load() {
		t.Fatal("revoke endpoint was never called")
	}
	if revokeForm["access_token"] != "tok1" || revokeForm["refresh_token"] != "refresh1" {
		t.Errorf("revoke form = %v, want both tokens", revokeForm)
	}
	if m.Online() {
		t.Error("Online() = true after Revoke")
	}
}

func TestSessionState_String(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{StateIdle, "idle"},
		{StateGranting, "granting"},
		{StateReady, "ready"},
		{StateRefreshing, "refreshing"},
		{StateClosed, "closed"},
		{SessionState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
