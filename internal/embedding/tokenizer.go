package embedding

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const (
	clsToken    = 101
	sepToken    = 102
	vocabSize   = 30000
	firstWordID = 1000
)

// Encoding holds the three BERT input rows for one text. All rows have the same
// length, the model's token window.
type Encoding struct {
	IDs   []int64
	Mask  []int64
	Types []int64
}

// NewEncoding allocates zeroed rows for a window of n tokens.
func NewEncoding(n int) *Encoding {
	return &Encoding{IDs: make([]int64, n), Mask: make([]int64, n), Types: make([]int64, n)}
}

// SimpleTokenizer maps whitespace-separated words to hashed vocabulary ids. It is
// a stand-in for a real wordpiece vocabulary; only the window accounting matters
// to callers.
type SimpleTokenizer struct{}

// EncodeInto writes [CLS] words... [SEP] into enc, clearing whatever the rows held
// before. Words beyond the window are dropped. It returns the number of positions used.
func (SimpleTokenizer) EncodeInto(text string, enc *Encoding) int {
	n := len(enc.IDs)
	for i := 0; i < n; i++ {
		enc.IDs[i], enc.Mask[i], enc.Types[i] = 0, 0, 0
	}
	if n == 0 {
		return 0
	}
	put := func(pos int, id int64) {
		enc.IDs[pos] = id
		enc.Mask[pos] = 1
	}
	put(0, clsToken)
	pos := 1
	for _, w := range SplitWords(text) {
		if pos >= n-1 {
			break
		}
		put(pos, WordID(w))
		pos++
	}
	if pos < n {
		put(pos, sepToken)
		pos++
	}
	return pos
}

// TokenCount returns how many positions text needs, markers included, ignoring the window.
func (SimpleTokenizer) TokenCount(text string) int {
	return len(SplitWords(text)) + 2
}

// WordID returns the vocabulary id of a word. Ids below firstWordID are reserved
// for special tokens.
func WordID(word string) int64 {
	return firstWordID + int64(HashString(word)%(vocabSize-firstWordID))
}

// HashString is the 64-bit FNV-1a hash of s.
func HashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// SplitWords splits text on Unicode whitespace. Blank text yields nil.
func SplitWords(text string) []string {
	words := strings.FieldsFunc(text, unicode.IsSpace)
	if len(words) == 0 {
		return nil
	}
	return words
}

// FirstWords joins the first n words of text with single spaces.
func FirstWords(text string, n int) string {
	words := SplitWords(text)
	if n < len(words) {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// Shrink cuts text at a word boundary to floor(factor*words) words. The result always
// has strictly fewer words than text; ok is false when no non-empty shorter text exists.
func Shrink(text string, factor float64) (shorter string, ok bool) {
	words := SplitWords(text)
	keep := int(math.Floor(float64(len(words)) * factor))
	if keep > len(words)-1 {
		keep = len(words) - 1
	}
	if keep < 1 {
		return "", false
	}
	return strings.Join(words[:keep], " "), true
}
