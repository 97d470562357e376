package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeText is used for purposes, descriptions and cancellation reasons.
func SanitizeText(input string) string {
	p := Pipeline{
		stripControl,
		TrimAndNormalize,
	}
	return p.Apply(input)
}

// SanitizeKeyword prepares a search keyword for case-insensitive matching.
func SanitizeKeyword(input string) string {
	p := Pipeline{
		stripControl,
		TrimAndNormalize,
		strings.ToLower,
	}
	return p.Apply(input)
}

// SanitizeID trims identifiers taken from paths, queries and tokens.
func SanitizeID(input string) string {
	return strings.TrimSpace(stripControl(input))
}
