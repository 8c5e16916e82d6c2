package faults

import (
	"regexp"
	"strings"
)

// maxMessageLen bounds text surfaced to the user.
const maxMessageLen = 240

const redacted = "[redacted]"

var (
	reBearer = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`)
	reJWT    = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`)
	reSecret = regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token|password|authorization)\b\s*[:=]\s*\S+`)
	reCard   = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
	reEmail  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// Sanitize strips patterns resembling credentials, tokens, card numbers
// and email addresses, then truncates to a bounded length.
func Sanitize(message string) string {
	s := strings.TrimSpace(message)
	s = reBearer.ReplaceAllString(s, redacted)
	s = reJWT.ReplaceAllString(s, redacted)
	s = reSecret.ReplaceAllString(s, "$1="+redacted)
	s = reCard.ReplaceAllString(s, redacted)
	s = reEmail.ReplaceAllString(s, redacted)

	if len(s) > maxMessageLen {
		s = s[:maxMessageLen] + "..."
	}
	return s
}
