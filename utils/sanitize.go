package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// SanitizeTitle strips any markup from an admin submitted theme title. Titles
// end up both in the database and in image generation prompts.
func SanitizeTitle(input string) string {
	return strings.TrimSpace(sanitizer.Sanitize(input))
}
