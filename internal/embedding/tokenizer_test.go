package embedding

import (
	"errors"
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	enc, err := tok.Tokenize("hello world", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc.InputIDs) != 10 {
		t.Errorf("len(ids)=%d", len(enc.InputIDs))
	}
	if enc.InputIDs[0] != 101 {
		t.Errorf("expected CLS 101, got %d", enc.InputIDs[0])
	}
	if enc.InputIDs[3] != 102 {
		t.Errorf("expected SEP 102 after two words, got %d", enc.InputIDs[3])
	}
	if enc.Length != 4 {
		t.Errorf("Length=%d, want 4", enc.Length)
	}
	if enc.AttentionMask[3] != 1 || enc.AttentionMask[4] != 0 {
		t.Errorf("attention mask: %v", enc.AttentionMask)
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	enc, err := tok.Tokenize("a b c d e f g h", 5)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Length != 5 || enc.InputIDs[4] != 102 {
		t.Errorf("expected truncation with trailing SEP, got %v (len %d)", enc.InputIDs, enc.Length)
	}
}

func TestSimpleTokenizer_EmptyText(t *testing.T) {
	tok := &SimpleTokenizer{}
	enc, err := tok.Tokenize("", 8)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Length != 2 || enc.InputIDs[0] != 101 || enc.InputIDs[1] != 102 {
		t.Errorf("empty text should encode as CLS SEP, got %v", enc.InputIDs)
	}
}

func TestSimpleTokenizer_InvalidUTF8(t *testing.T) {
	tok := &SimpleTokenizer{}
	_, err := tok.Tokenize("bad \xff bytes", 8)
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a  b  c  ")
	if len(words) != 3 {
		t.Errorf("expected 3 words, got %v", words)
	}
	if SplitWords("") != nil {
		t.Error("empty string should return nil")
	}
}

func TestHashString(t *testing.T) {
	h := HashString("abc")
	if h == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}
