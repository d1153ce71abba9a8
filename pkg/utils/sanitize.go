package utils

import (
	"regexp"
	"strings"
)

var (
	htmlTagPattern  = regexp.MustCompile(`<[^>]*>`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,30}$`)
)

// StripHTML removes all HTML tags from a string
func StripHTML(input string) string {
	return htmlTagPattern.ReplaceAllString(input, "")
}

// CleanText strips tags, trims whitespace and truncates to maxLen bytes.
func CleanText(input string, maxLen int) string {
	return TruncateString(strings.TrimSpace(StripHTML(input)), maxLen)
}

// ValidateUsername checks if username contains only allowed characters
func ValidateUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// UsernameFromEmail derives the default username from the local part of an email.
func UsernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TruncateString safely truncates a string to max length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
