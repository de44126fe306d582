package services

import (
	"fmt"
	"regexp"
)

// Placeholder pattern: @{key}
var placeholderPattern = regexp.MustCompile(`@\{([a-zA-Z0-9_]+)\}`)

// LookupFunc returns the string value for a placeholder key.
type LookupFunc func(key string) (string, error)

// Render replaces every @{key} placeholder in template with lookup(key).
// Substitution is a single left-to-right pass: substituted text is never
// re-scanned. Rendering stops at the first lookup error.
func Render(template string, lookup LookupFunc) (string, error) {
	var firstErr error

	result := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := placeholderPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			firstErr = fmt.Errorf("invalid placeholder: %s", match)
			return match
		}

		value, err := lookup(submatches[1])
		if err != nil {
			firstErr = err
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Header is prepended to every rendered document.
func Header(templateName string) string {
	return fmt.Sprintf("# Autogenerated from %s. Changes will be lost.\n\n", templateName)
}
