package services

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/anonto42/social-graph/backend/pkg/apperror"
	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// plainText strips markup and surrounding whitespace. Content is stored as
// plain text; clients escape on display.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

func checkLength(field, s string, min, max int) error {
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return apperror.Validation(field + " must not be empty")
	case n < min:
		return apperror.Validation(field + " is too short")
	case n > max:
		return apperror.Validation(field + " is too long")
	}
	return nil
}

// normalizeTags lowercases, trims and dedupes tag names, joining inner
// whitespace with '-'.
func normalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.Join(strings.Fields(strings.ToLower(plainText(t))), "-")
		if t == "" || utf8.RuneCountInString(t) > 100 {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
