package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizePolicy = bluemonday.StrictPolicy()

// Sanitize strips any markup from user-provided free text.
func Sanitize(s string) string {
	return strings.TrimSpace(sanitizePolicy.Sanitize(s))
}
