// Package search serves the query path: gibberish filtering, the layered
// cache, vector retrieval with length-adaptive thresholds, result assembly
// and rerank-based relevance filtering.
package search

import (
	"math"
	"strings"
	"unicode"

	"github.com/fyrsmithlabs/catalogd/internal/config"
)

// symbolNoise is the punctuation set that, combined with length, marks a
// query as pasted garbage rather than typed intent.
const symbolNoise = "%$&*^~"

// Classifier rejects noisy or gibberish queries before any index access.
// It is a pure function of the query text and the configured thresholds.
type Classifier struct {
	cfg config.ClassifierConfig
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(cfg config.ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Accept reports whether the query is worth retrieving for. Checks run in a
// fixed order and any single rejection is terminal.
func (c *Classifier) Accept(query string) bool {
	words := strings.Fields(query)

	// Repeated words in a longer phrase.
	if len(words) > 3 {
		counts := make(map[string]int, len(words))
		for _, w := range words {
			counts[strings.ToLower(w)]++
			if counts[strings.ToLower(w)] > 2 {
				return false
			}
		}
	}

	// Long words with flat character distributions.
	lowEntropyLong := 0
	for _, w := range words {
		if len([]rune(w)) > c.cfg.LongWordLen && Entropy(w) < c.cfg.WordEntropyFloor {
			lowEntropyLong++
		}
	}
	if lowEntropyLong >= 2 {
		return false
	}

	// A long word with no vowels at all reads as keyboard mash, not a
	// product name, whatever its entropy.
	for _, w := range words {
		if len([]rune(w)) > c.cfg.LongWordLen && vowelCount(w) == 0 {
			return false
		}
	}

	// Mixed noise: keyboard-mash words in a longer phrase.
	if len(words) > 3 {
		suspicious := 0
		for _, w := range words {
			if len([]rune(w)) > c.cfg.SuspectWordLen && isSuspicious(w, c.cfg.WordEntropyFloor) {
				suspicious++
			}
		}
		if float64(suspicious)/float64(len(words)) >= c.cfg.SuspiciousFraction {
			return false
		}
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return false
	}

	// Degenerate repetition like "aaaa" or "abab".
	runes := []rune(trimmed)
	if len(runes) > 3 {
		distinct := make(map[rune]struct{}, len(runes))
		for _, r := range runes {
			distinct[r] = struct{}{}
		}
		if len(distinct) <= 2 {
			return false
		}
	}

	if strings.ContainsAny(query, symbolNoise) && len(runes) > c.cfg.SymbolNoiseLen {
		return false
	}

	// Flat distributions across a whole phrase.
	if len(words) >= 4 {
		var sum float64
		for _, w := range words {
			sum += Entropy(w)
		}
		if sum/float64(len(words)) < c.cfg.MeanEntropyFloor {
			return false
		}
	}

	return true
}

// isSuspicious flags a word whose character distribution is flat and whose
// vowel structure does not look like natural language.
func isSuspicious(word string, entropyFloor float64) bool {
	if Entropy(word) >= entropyFloor {
		return false
	}
	vowels, consonants := letterCounts(word)
	return vowels < 2 || (consonants > 6 && vowels == 0)
}

func vowelCount(word string) int {
	vowels, _ := letterCounts(word)
	return vowels
}

func letterCounts(word string) (vowels, consonants int) {
	for _, r := range strings.ToLower(word) {
		switch {
		case strings.ContainsRune("aeiou", r):
			vowels++
		case unicode.IsLetter(r):
			consonants++
		}
	}
	return vowels, consonants
}

// Entropy is the Shannon entropy of the text in bits, over observed
// character frequencies.
func Entropy(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	counts := make(map[rune]int, len(runes))
	for _, r := range runes {
		counts[r]++
	}
	n := float64(len(runes))
	var h float64
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}
