package encoder

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// Lexical derives a deterministic, offline vector from token hashes. It is a
// low-information representation: useful only against partitions built with
// the same method, or as the last resort of the cascade. Its vectors are raw
// token counts and deliberately not unit-length.
type Lexical struct {
	dims int
}

// NewLexical creates the fallback backend with the default dimensionality,
// used when the target partition declares none.
func NewLexical(dims int) *Lexical {
	return &Lexical{dims: dims}
}

// EncodeDim hashes each token into a bucket of a dims-wide vector. Identical
// text always yields identical vectors.
func (e *Lexical) EncodeDim(text string, dims int) []float32 {
	if dims <= 0 {
		dims = e.dims
	}
	vec := make([]float32, dims)
	for _, tok := range tokenizeWords(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[int(h.Sum32())%dims]++
	}
	return vec
}

// tokenizeWords lowercases and splits on non-alphanumeric runes.
func tokenizeWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
