// Package htmlsanitize strips unsafe HTML from rich-text input before it is
// stored. Homework instructions are the only rich-text field in the system;
// they are sanitized once on the way in, never on the way out.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.UGCPolicy()

// Sanitize returns s with everything outside the user-generated-content
// allowlist removed: scripts, event handlers, iframes, forms, javascript:
// and data: URLs.
func Sanitize(s string) string {
	return policy.Sanitize(s)
}

// IsPlainText reports whether s carries no HTML markup at all.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}
