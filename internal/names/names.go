// Package names resolves human-readable display names for participants when
// several identity sources may disagree or hold placeholder values.
package names

import (
	"strings"
	"unicode"

	"farmhub/backend/internal/config"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IsPlaceholder reports whether name carries no real information.
func IsPlaceholder(name string) bool {
	n := strings.TrimSpace(name)
	if n == "" {
		return true
	}
	for _, p := range config.PlaceholderNames {
		if strings.EqualFold(n, p) {
			return true
		}
	}
	return false
}

// FromEmail derives a display name from the local part of an email address,
// e.g. "mary.ann_smith7@farm.example" becomes "Mary Ann Smith".
// It returns "" when nothing usable remains.
func FromEmail(email string) string {
	local, _, found := strings.Cut(strings.TrimSpace(email), "@")
	if !found || local == "" {
		return ""
	}

	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+' || unicode.IsSpace(r)
	})

	caser := cases.Title(language.Und)
	parts := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return -1
			}
			return r
		}, w)
		if w != "" {
			parts = append(parts, caser.String(w))
		}
	}

	name := strings.Join(parts, " ")
	if IsPlaceholder(name) {
		return ""
	}
	return name
}
