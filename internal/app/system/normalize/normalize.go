// Package normalize provides canonical forms for user-entered fields.
//
// Emails are the join key between invites, embedded refs, and accounts, so
// every write boundary must pass them through Email before persisting or
// querying; the case-insensitive join then reduces to plain equality.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace but preserves case for display.
func Name(s string) string {
	return strings.TrimSpace(s)
}
