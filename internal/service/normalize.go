package service

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// querySeparator splits on runs of ASCII or ideographic whitespace.
var querySeparator = regexp.MustCompile(`[\s　]+`)

// NormalizeForSearch folds text for matching: NFKC compatibility
// normalization (full-width to half-width, among others), katakana to
// hiragana, then lowercase. Both the haystack and the query go through
// the same fold, so "ラジオ", "ﾗｼﾞｵ" and "らじお" all meet in the middle.
func NormalizeForSearch(s string) string {
	folded := norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r >= 'ァ' && r <= 'ヶ' {
			r -= 0x60
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// SplitQuery normalizes a raw query and breaks it into tokens.
func SplitQuery(query string) []string {
	var tokens []string
	for _, token := range querySeparator.Split(NormalizeForSearch(query), -1) {
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// MatchesQuery reports whether every token occurs in the normalized
// haystack. An empty token list matches everything.
func MatchesQuery(haystack string, tokens []string) bool {
	folded := NormalizeForSearch(haystack)
	for _, token := range tokens {
		if !strings.Contains(folded, token) {
			return false
		}
	}
	return true
}
