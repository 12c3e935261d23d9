package embedding

import (
	"errors"
	"unicode/utf8"
)

// Special token IDs of the bert-base-uncased vocabulary, used by SimpleTokenizer.
const (
	padTokenID int64 = 0
	clsTokenID int64 = 101
	sepTokenID int64 = 102
)

var errInvalidUTF8 = errors.New("text is not valid UTF-8")

// Encoding is a padded model input for BERT-style encoders. All slices have
// the same length (maxTokens); Length counts the positions with attention 1.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
	Length        int
}

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (*Encoding, error)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs (for testing or fallback).
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (*Encoding, error) {
	if !utf8.ValidString(text) {
		return nil, &EncodingError{Err: errInvalidUTF8}
	}
	ids := make([]int64, 0, len(text)/4+2)
	for _, word := range SplitWords(text) {
		ids = append(ids, int64(HashString(word)%30000))
	}
	return packEncoding(ids, maxTokens, clsTokenID, sepTokenID, padTokenID), nil
}

// packEncoding wraps ids in [CLS] ... [SEP], truncating so the result fits in
// maxTokens, and pads the remainder.
func packEncoding(ids []int64, maxTokens int, cls, sep, pad int64) *Encoding {
	if maxTokens < 2 {
		maxTokens = 256
	}
	if len(ids) > maxTokens-2 {
		ids = ids[:maxTokens-2]
	}
	enc := &Encoding{
		InputIDs:      make([]int64, maxTokens),
		AttentionMask: make([]int64, maxTokens),
		TokenTypeIDs:  make([]int64, maxTokens),
	}
	enc.InputIDs[0] = cls
	copy(enc.InputIDs[1:], ids)
	enc.InputIDs[len(ids)+1] = sep
	enc.Length = len(ids) + 2
	for i := enc.Length; i < maxTokens; i++ {
		enc.InputIDs[i] = pad
	}
	for i := 0; i < enc.Length; i++ {
		enc.AttentionMask[i] = 1
	}
	return enc
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	var words []string
	start := -1
	for i, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			if start >= 0 {
				words = append(words, text[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}

// HashString returns a deterministic hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 {
		h = 0
	}
	return h
}
