package ruqqus

import (
	"net/url"
	"strings"

	"github.com/google/uuid"

	pkgerrs "github.com/ruqqus-community/go-ruqqus/pkg/errors"
	"github.com/ruqqus-community/go-ruqqus/pkg/types"
)

// AuthURLConfig describes an authorization URL to send a user to. The user
// approves the listed scopes there and is redirected back with the one-time
// code that Config.Code expects.
type AuthURLConfig struct {
	// ClientID of the registered application. Required.
	ClientID string

	// Redirect is the registered redirect URI. Defaults to
	// "http://localhost". A bare host is prefixed with "https://".
	Redirect string

	// State is an opaque value echoed back on redirect for CSRF
	// protection. Defaults to a random UUID.
	State string

	// Scopes to request. "all" expands to every scope. Required.
	Scopes []string

	// Permanent requests a refresh token alongside the access token, so
	// the session can outlive the first expiry.
	Permanent bool

	// SiteURL overrides the site the URL points at. Defaults to
	// DefaultSiteURL.
	SiteURL string
}

// BuildAuthURL assembles the authorization URL for the given config.
func BuildAuthURL(config *AuthURLConfig) (string, error) {
	if config == nil || config.ClientID == "" {
		return "", &pkgerrs.ConfigError{Field: "ClientID", Message: "client id is required"}
	}
	if len(config.Scopes) == 0 {
		return "", &pkgerrs.ConfigError{Field: "Scopes", Message: "at least one scope is required"}
	}

	scopes, err := expandScopes(config.Scopes)
	if err != nil {
		return "", err
	}

	redirect := config.Redirect
	if redirect == "" {
		redirect = "http://localhost"
	} else if !strings.HasPrefix(redirect, "http://") && !strings.HasPrefix(redirect, "https://") {
		redirect = "https://" + redirect
	}

	state := config.State
	if state == "" {
		state = uuid.NewString()
	}

	site := strings.TrimRight(config.SiteURL, "/")
	if site == "" {
		site = strings.TrimRight(DefaultSiteURL, "/")
	}

	q := url.Values{}
	q.Set("client_id", config.ClientID)
	q.Set("redirect_uri", redirect)
	q.Set("state", state)
	q.Set("scope", strings.Join(scopes, ","))
	if config.Permanent {
		q.Set("permanent", "true")
	}

	return site + "/oauth/authorize?" + q.Encode(), nil
}

// expandScopes validates scope names against the known set and expands the
// "all" shorthand. Order and duplicates of the input are preserved except
// for "all", which is replaced by the canonical list.
func expandScopes(scopes []string) ([]string, error) {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "all" {
			return append([]string(nil), types.AllScopes...), nil
		}
		known := false
		for _, name := range types.AllScopes {
			if s == name {
				known = true
				break
			}
		}
		if !known {
			return nil, &pkgerrs.ConfigError{Field: "Scopes", Message: "unknown scope: " + s}
		}
		out = append(out, s)
	}
	return out, nil
}
