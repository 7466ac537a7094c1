// Package errors defines the error types surfaced by the Ruqqus API wrapper.
package errors

import "fmt"

// ConfigError indicates a problem with the client configuration.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// CredentialError indicates the OAuth grant was rejected by the server.
// Credential errors are fatal for the session: the same authorization code,
// refresh token or client id/secret pair will never be accepted on retry, so
// the token renewal schedule halts and the caller must re-login with fresh
// credentials.
type CredentialError struct {
	// Grant is the grant input that was rejected ("code", "refresh_token"
	// or "client credentials").
	Grant string
	// Message is the oauth_error string returned by the server.
	Message string
}

func (e *CredentialError) Error() string {
	if e.Grant != "" {
		return fmt.Sprintf("credential error: invalid %s: %s", e.Grant, e.Message)
	}
	return fmt.Sprintf("credential error: %s", e.Message)
}

// ScopeError indicates a capability was invoked without the required granted
// scope. It is raised at the call site before any network request is made and
// is recoverable by re-authenticating with broader scopes.
type ScopeError struct {
	// Scope is the missing capability name, e.g. "read" or "vote".
	Scope string
	// Operation is the name of the operation that was attempted.
	Operation string
}

func (e *ScopeError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("scope error: %s requires the %q scope", e.Operation, e.Scope)
	}
	return fmt.Sprintf("scope error: missing %q scope", e.Scope)
}

// APIError represents a structured error response from the Ruqqus API for an
// otherwise well-formed request. It does not affect session state.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Message is the error message from the server.
	Message string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ruqqus API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ruqqus API error: %s", e.Message)
}

// RequestError indicates a transport-level failure while making an API request.
type RequestError struct {
	// Operation is the name of the API operation that failed
	Operation string
	// URL is the URL that was being accessed
	URL string
	// Err contains the underlying error
	Err error
}

func (e *RequestError) Error() string {
	if e.Operation != "" && e.URL != "" {
		return fmt.Sprintf("request error during %s to %s: %v", e.Operation, e.URL, e.Err)
	}
	if e.Operation != "" {
		return fmt.Sprintf("request error during %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("request error: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ParseError indicates a problem decoding an API response.
type ParseError struct {
	// Operation is the name of the API operation where parsing failed
	Operation string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Operation != "" {
		return fmt.Sprintf("parse error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("parse error: %s", msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StateError indicates an operation was attempted when the client is not ready.
type StateError struct {
	// Operation is the name of the operation that was attempted
	Operation string
	// Message contains the detailed error message
	Message string
}

func (e *StateError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("state error during %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("state error: %s", e.Message)
}
