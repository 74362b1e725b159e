package consumable

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// commonUnits is the quantity-unit vocabulary stripped from item names,
// longest first so the regexp alternation prefers the full word
var commonUnits = []string{
	"kilograms", "kilogram", "grammes", "gramme", "litres", "kilos",
	"grams", "litre", "gram", "kilo",
	"kg", "gr", "mg", "ml", "cl", "oz", "lb", "g", "l",
}

// stopWords are dropped from item names before key construction: linguistic
// filler (French and English), common retail chains and freshness adjectives
var stopWords = map[string]struct{}{
	"de": {}, "du": {}, "des": {}, "le": {}, "la": {}, "les": {}, "un": {}, "une": {},
	"from": {}, "by": {}, "at": {}, "in": {}, "of": {}, "the": {}, "a": {}, "an": {},
	"delhaize": {}, "carrefour": {}, "colruyt": {}, "aldi": {}, "lidl": {},
	"bio": {}, "organic": {}, "fresh": {}, "frais": {}, "fraiche": {},
}

var (
	// A digit run immediately (optionally space-separated) followed by a unit word, e.g. "400gr", "2 kg"
	unitPattern = regexp.MustCompile(`(?i)\d+\s*(?:` + strings.Join(commonUnits, "|") + `)\b`)
	// Standalone digit runs
	numberPattern = regexp.MustCompile(`\b\d+\b`)
	// Anything that is not a letter, digit or whitespace
	symbolPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

// Normalize turns a raw item name into its canonical matching key: lowercase,
// quantity/unit and number tokens removed, punctuation collapsed, stop words
// and short tokens dropped, remaining tokens deduplicated and sorted. If every
// token is filtered out, the lowercased original name is the key, so non-empty
// input never maps to an empty key.
func Normalize(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}

	normalized := strings.ToLower(name)
	normalized = unitPattern.ReplaceAllString(normalized, "")
	normalized = numberPattern.ReplaceAllString(normalized, "")
	normalized = symbolPattern.ReplaceAllString(normalized, " ")

	seen := make(map[string]struct{})
	var tokens []string
	for _, word := range strings.Fields(normalized) {
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		tokens = append(tokens, word)
	}
	sort.Strings(tokens)

	key := strings.Join(tokens, " ")
	if key == "" {
		return strings.ToLower(name)
	}
	return key
}

// AreSimilar reports whether two raw names denote the same product: either
// their normalized keys are identical, or at least 75% of the smaller token
// set is shared with the larger one.
func AreSimilar(nameA, nameB string) bool {
	keyA := Normalize(nameA)
	keyB := Normalize(nameB)

	if keyA == keyB {
		return true
	}

	tokensA := strings.Fields(keyA)
	tokensB := strings.Fields(keyB)

	inA := make(map[string]struct{}, len(tokensA))
	for _, t := range tokensA {
		inA[t] = struct{}{}
	}
	common := 0
	for _, t := range tokensB {
		if _, ok := inA[t]; ok {
			common++
		}
	}

	minCount := len(tokensA)
	if len(tokensB) < minCount {
		minCount = len(tokensB)
	}

	return minCount > 0 && float64(common)/float64(minCount) >= 0.75
}
