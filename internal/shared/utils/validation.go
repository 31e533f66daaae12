package utils

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Request size limits (in bytes)
const (
	MaxJSONSize    = 64 * 1024
	MaxCommandSize = 512
)

// String length limits
const (
	MaxPlaceLength = 128
	MaxURLLength   = 2048
)

// placePattern accepts city names like "São Paulo", "St. John's" or "Paris,FR".
var placePattern = regexp.MustCompile(`^[\p{L}\p{M}0-9 .,'()-]+$`)

var strictPolicy = bluemonday.StrictPolicy()

// StripMarkup removes any HTML from s and collapses surrounding whitespace.
// Place names end up in upstream query strings and in the event stream.
func StripMarkup(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(strictPolicy.Sanitize(s))), " ")
}

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// NormalizePlace sanitizes a free-text place name and validates it
func NormalizePlace(place string) (string, error) {
	clean := StripMarkup(place)
	if err := ValidateString(clean, "location", 1, MaxPlaceLength, true); err != nil {
		return "", err
	}
	if !placePattern.MatchString(clean) {
		return "", fmt.Errorf("location contains invalid characters")
	}
	return clean, nil
}

// ValidateCommand validates free-text command input
func ValidateCommand(text string) error {
	if err := ValidateString(strings.TrimSpace(text), "command", 1, MaxCommandSize, true); err != nil {
		return err
	}
	return nil
}
