// Package questions loads the canonical reference question set.
package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ConfigurationError reports that the reference question source is missing or malformed.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("reference questions: %v", e.Err)
	}
	return fmt.Sprintf("reference questions %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Source provides the ordered reference question set.
type Source interface {
	Load(ctx context.Context) ([]string, error)
}

// FileSource reads a JSON document of the form {"questions": ["...", ...]}.
type FileSource struct {
	Path string
}

// NewFileSource returns a Source backed by the JSON file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

type document struct {
	Questions *[]string `json:"questions"`
}

// Load reads and validates the file. Order is preserved exactly as written.
func (s *FileSource) Load(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &ConfigurationError{Path: s.Path, Err: err}
	}
	qs, err := Parse(data)
	if err != nil {
		return nil, &ConfigurationError{Path: s.Path, Err: err}
	}
	return qs, nil
}

// Parse decodes a questions document. A missing "questions" key, a non-string
// entry or a blank entry is an error; an empty list is valid.
func Parse(data []byte) ([]string, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if doc.Questions == nil {
		return nil, errors.New(`missing "questions" list`)
	}
	qs := *doc.Questions
	for i, q := range qs {
		if strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("question %d is blank", i)
		}
	}
	return qs, nil
}

// StaticSource serves a fixed in-memory question list.
type StaticSource []string

// Load returns a copy of the list.
func (s StaticSource) Load(ctx context.Context) ([]string, error) {
	return append([]string{}, s...), nil
}
