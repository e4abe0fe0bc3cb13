package search

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/catalogd/internal/config"
)

func testClassifier() *Classifier {
	return NewClassifier(config.Default().Search.Classifier)
}

func TestClassifierAccept(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"short product term", "fone", true},
		{"phrase", "fone de ouvido", true},
		{"brand and model", "smartphone samsung galaxy ultra", true},
		{"single char", "a", true},
		{"long vowel-free gibberish", "xk7qzw93mplt", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"degenerate repetition", "aaaaaa", false},
		{"two char alternation", "ababab", false},
		{"repeated word", "fone fone fone fone", false},
		{"symbol noise in long query", "fone de ouvido %%% bluetooth $$$ promo ^^^", false},
		{"symbol in short query ok", "50% off", true},
		{"low mean entropy phrase", "aa bb aa1 bb1", false},
	}

	c := testClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Accept(tt.query))
		})
	}
}

func TestClassifierDeterministic(t *testing.T) {
	c := testClassifier()
	for _, q := range []string{"fone", "xk7qzw93mplt", "aaaa", "fone de ouvido"} {
		first := c.Accept(q)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, c.Accept(q), q)
		}
	}
}

func TestEntropyPermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		runes := []rune("abcdefone123")
		rng.Shuffle(len(runes), func(a, b int) { runes[a], runes[b] = runes[b], runes[a] })
		assert.InDelta(t, Entropy("abcdefone123"), Entropy(string(runes)), 1e-9)
	}
}

func TestEntropyBounds(t *testing.T) {
	for _, text := range []string{"a", "ab", "fone", "xk7qzw93mplt", "aaaaaaa", "abcdefgh"} {
		h := Entropy(text)
		distinct := make(map[rune]struct{})
		for _, r := range text {
			distinct[r] = struct{}{}
		}
		assert.GreaterOrEqual(t, h, 0.0, text)
		assert.LessOrEqual(t, h, math.Log2(float64(len(distinct)))+1e-9, text)
	}
}

func TestEntropyEmpty(t *testing.T) {
	assert.Zero(t, Entropy(""))
}
