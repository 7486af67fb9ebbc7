package redcap

import "strings"

// MaskToken formats a token for display, keeping the last four characters.
// It is a pure formatting helper; nothing in the client stores or logs the
// masked form automatically.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
