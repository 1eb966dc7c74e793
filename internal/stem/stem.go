// Package stem implements a simplified Porter suffix-stripping stemmer:
// no ecosystem package in the dependency stack covers English
// stemming, so this is a small hand-rolled algorithm in the style of
// the rest of the indexing pipeline rather than a pulled-in library.
package stem

import "strings"

var step1Suffixes = []string{
	"ational", "tional", "enci", "anci", "izer", "abli", "alli", "entli",
	"eli", "ousli", "ization", "ation", "ator", "alism", "iveness",
	"fulness", "ousness", "aliti", "iviti", "biliti", "ing", "ed", "ies",
	"es", "s",
}

// isVowel reports whether r is a vowel, treating y as a vowel only
// when it is not the first letter of the word.
func isVowel(term string, i int) bool {
	switch term[i] {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	case 'y':
		return i > 0
	}
	return false
}

// measure counts VC repetitions in term, the Porter algorithm's "m":
// the number of vowel-to-consonant transitions, used to decide whether
// a candidate suffix strip would leave a word stem too short to trust.
func measure(term string) int {
	m := 0
	prevVowel := false
	seenConsonant := false
	for i := 0; i < len(term); i++ {
		v := isVowel(term, i)
		if !v && prevVowel && seenConsonant {
			m++
		}
		if !v {
			seenConsonant = true
		}
		prevVowel = v
	}
	return m
}

// Stem reduces term to an approximate root form: lowercases it and
// strips the longest matching suffix from step1Suffixes, provided the
// remaining stem has measure >= 1 and length >= 3 so short words
// ("as", "is") are left untouched. It reports ok=false when no suffix
// applies or term is already at or below the minimum stem length.
func Stem(term string) (string, bool) {
	lower := strings.ToLower(term)
	if len(lower) < 4 {
		return "", false
	}
	for _, suf := range step1Suffixes {
		if strings.HasSuffix(lower, suf) && len(lower) > len(suf) {
			stem := lower[:len(lower)-len(suf)]
			if len(stem) >= 3 && measure(stem) >= 1 {
				return stem, true
			}
		}
	}
	return "", false
}
