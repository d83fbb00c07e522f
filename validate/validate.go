// Package validate provides the shape checks applied to resolved values:
// API keys, organization IDs and request paths. Each validator extracts the
// matched substring from arbitrary text or fails with ErrNoMatch.
package validate

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrNoMatch is returned when the text does not contain the expected pattern.
var ErrNoMatch = errors.New("pattern not found")

var (
	keyPattern          = regexp.MustCompile(`sk-[[:alnum:]]{20}T3BlbkFJ[[:alnum:]]{20}`)
	organizationPattern = regexp.MustCompile(`org-[[:alnum:]]{24}`)
)

// Key returns the first OpenAI API key found in text.
func Key(text string) (string, error) {
	return find(keyPattern, "API key", text)
}

// Organization returns the first OpenAI organization ID found in text.
func Organization(text string) (string, error) {
	return find(organizationPattern, "organization ID", text)
}

func find(re *regexp.Regexp, what, text string) (string, error) {
	m := re.FindString(text)
	if m == "" {
		return "", fmt.Errorf("invalid format of OpenAI %s: %w", what, ErrNoMatch)
	}
	return m, nil
}
