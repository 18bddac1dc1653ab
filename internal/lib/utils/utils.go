// Package utils contains small helper functions used across the project.
//
// These are usually generic helpers that don't belong to a specific domain.
package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CapitalizeFirstLetter upper-cases the first rune and leaves the rest
// untouched: "spain" -> "Spain", "united Kingdom" -> "United Kingdom".
func CapitalizeFirstLetter(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
