package embedding

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	unkToken = "[UNK]"
	clsToken = "[CLS]"
	sepToken = "[SEP]"
	padToken = "[PAD]"

	maxCharsPerWord = 100
)

// Vocab maps WordPiece tokens to their IDs.
type Vocab map[string]int64

// LoadVocab reads a BERT vocab.txt file: one token per line, ID = line number.
func LoadVocab(path string) (Vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	return ReadVocab(f)
}

// ReadVocab parses a vocab.txt stream and checks that the special tokens exist.
func ReadVocab(r io.Reader) (Vocab, error) {
	vocab := make(Vocab)
	scanner := bufio.NewScanner(r)
	var id int64
	for scanner.Scan() {
		token := strings.TrimRight(scanner.Text(), "\r")
		if _, dup := vocab[token]; !dup {
			vocab[token] = id
		}
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	for _, special := range []string{unkToken, clsToken, sepToken, padToken} {
		if _, ok := vocab[special]; !ok {
			return nil, fmt.Errorf("vocab is missing %s", special)
		}
	}
	return vocab, nil
}

// WordPieceTokenizer implements BERT tokenization: text cleanup, optional
// lowercasing with accent stripping, punctuation splitting, then greedy
// longest-match-first subword lookup.
type WordPieceTokenizer struct {
	vocab     Vocab
	lowercase bool
	unk       int64
	cls       int64
	sep       int64
	pad       int64
}

// NewWordPieceTokenizer builds a tokenizer over vocab. vocab must contain the
// [UNK], [CLS], [SEP] and [PAD] tokens (ReadVocab checks this).
func NewWordPieceTokenizer(vocab Vocab, lowercase bool) *WordPieceTokenizer {
	return &WordPieceTokenizer{
		vocab:     vocab,
		lowercase: lowercase,
		unk:       vocab[unkToken],
		cls:       vocab[clsToken],
		sep:       vocab[sepToken],
		pad:       vocab[padToken],
	}
}

// Tokenize encodes text as [CLS] tokens... [SEP], truncated and padded to maxTokens.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (*Encoding, error) {
	if !utf8.ValidString(text) {
		return nil, &EncodingError{Err: errInvalidUTF8}
	}
	var ids []int64
	for _, word := range t.basicTokens(text) {
		ids = t.appendWordPieces(ids, word)
	}
	return packEncoding(ids, maxTokens, t.cls, t.sep, t.pad), nil
}

// Tokens returns the WordPiece tokens for text without special tokens or padding.
func (t *WordPieceTokenizer) Tokens(text string) []string {
	inverse := make(map[int64]string, len(t.vocab))
	for tok, id := range t.vocab {
		inverse[id] = tok
	}
	var ids []int64
	for _, word := range t.basicTokens(text) {
		ids = t.appendWordPieces(ids, word)
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = inverse[id]
	}
	return out
}

func (t *WordPieceTokenizer) basicTokens(text string) []string {
	text = cleanText(text)
	text = padCJK(text)
	var tokens []string
	for _, word := range strings.Fields(text) {
		if t.lowercase {
			word = stripAccents(strings.ToLower(word))
		}
		tokens = append(tokens, splitPunctuation(word)...)
	}
	return tokens
}

func (t *WordPieceTokenizer) appendWordPieces(ids []int64, word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxCharsPerWord {
		return append(ids, t.unk)
	}
	var pieces []int64
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		var id int64
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if v, ok := t.vocab[sub]; ok {
				id = v
				found = true
				break
			}
			end--
		}
		if !found {
			return append(ids, t.unk)
		}
		pieces = append(pieces, id)
		start = end
	}
	return append(ids, pieces...)
}

// cleanText drops NUL, replacement and control characters and maps all
// whitespace to a plain space.
func cleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == utf8.RuneError || isControl(r):
			continue
		case isWhitespace(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func padCJK(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isCJK(r) {
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func splitPunctuation(word string) []string {
	var out []string
	start := -1
	for i, r := range word {
		if isPunctuation(r) {
			if start >= 0 {
				out = append(out, word[start:i])
				start = -1
			}
			out = append(out, string(r))
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, word[start:])
	}
	return out
}

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.In(r, unicode.Cc, unicode.Cf)
}

// isPunctuation treats all non-alphanumeric ASCII as punctuation, like BERT.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
