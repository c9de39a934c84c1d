package entity

import (
	"strings"
	"unicode"

	"github.com/gertd/go-pluralize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	plural = pluralize.NewClient()
	lower  = cases.Lower(language.Und)
)

// Normalize turns a display name into a Hub collection name: snake_case,
// pluralized unless the entity type is a singleton ("Tax Code" becomes
// "tax_codes", singleton "Company" becomes "company").
func Normalize(name string, singleton bool) string {
	snake := parameterize(name)
	if snake == "" {
		return ""
	}
	if singleton {
		return plural.Singular(snake)
	}
	return plural.Plural(snake)
}

// Singularize returns the snake_case singular form of name.
func Singularize(name string) string {
	snake := parameterize(name)
	if snake == "" {
		return ""
	}
	return plural.Singular(snake)
}

// parameterize lowercases name and joins runs of other characters with a
// single underscore.
func parameterize(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range lower.String(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
