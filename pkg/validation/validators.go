// Package validation provides format checks for Ruqqus identifiers. The
// client uses them to fail fast before any network request is attempted.
package validation

import (
	"regexp"
	"strings"
)

// Regular expressions for validating Ruqqus data formats
var (
	// base36Regex matches base36 encoded IDs (0-9, a-z)
	base36Regex = regexp.MustCompile(`^[0-9a-z]+$`)

	// guildRegex matches valid guild names (3-25 chars, alphanumeric + underscore)
	guildRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,25}$`)

	// usernameRegex matches valid Ruqqus usernames (1-25 chars, alphanumeric + underscore)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{1,25}$`)

	// fullnameRegex matches Ruqqus fullname IDs (type prefix + base36 ID)
	// Format: t[1-4]_[base36_id] (t1 user, t2 post, t3 comment, t4 guild)
	fullnameRegex = regexp.MustCompile(`^t[1-4]_[0-9a-z]+$`)
)

const maxUserAgentLength = 256

// IsValidBase36 checks if a string is a valid base36 encoded ID.
func IsValidBase36(s string) bool {
	return s != "" && base36Regex.MatchString(s)
}

// IsValidGuildName checks if a string is a valid guild name.
func IsValidGuildName(s string) bool {
	return guildRegex.MatchString(s)
}

// IsValidUsername checks if a string is a valid Ruqqus username.
func IsValidUsername(s string) bool {
	return usernameRegex.MatchString(s)
}

// IsValidFullname checks if a string is a valid Ruqqus fullname ID.
func IsValidFullname(s string) bool {
	return fullnameRegex.MatchString(s)
}

// IsValidUserAgent checks that a User-Agent value is non-empty, of reasonable
// length, and free of characters usable for header injection.
func IsValidUserAgent(ua string) bool {
	if ua == "" || len(ua) > maxUserAgentLength {
		return false
	}
	return !strings.ContainsAny(ua, "\r\n")
}

// HasContent reports whether a user-supplied text field contains anything
// beyond whitespace. The API treats a single space as empty.
func HasContent(s string) bool {
	return strings.TrimSpace(s) != ""
}
