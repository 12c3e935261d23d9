package embedding

import "fmt"

// ModelLoadError reports that the embedding model or tokenizer could not be
// fetched or initialized.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load embedding model %q: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// EncodingError reports that a piece of text could not be tokenized or encoded.
// It never affects the loaded model.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode text: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
