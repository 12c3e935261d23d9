// Package cli formats command output for navmatch.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/navmatch/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteMatch writes a match result and its candidates to w in the given format.
func WriteMatch(w io.Writer, response *models.MatchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	if response.Matched {
		fmt.Fprintf(w, "%s\n", response.Question)
		fmt.Fprintf(w, "score %.4f (threshold %.2f)\n", response.Score, response.Threshold)
	} else {
		fmt.Fprintf(w, "no match (best score %.4f, threshold %.2f)\n", response.Score, response.Threshold)
	}
	if len(response.Candidates) > 0 {
		fmt.Fprintln(w, "\n--- Candidates ---")
		for i, c := range response.Candidates {
			fmt.Fprintf(w, "%2d. %.4f  %s\n", i+1, c.Score, c.Question)
		}
	}
	return nil
}

// WriteQuestions writes the reference question set to w in the given format.
func WriteQuestions(w io.Writer, questions []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"questions": questions, "count": len(questions)})
	}
	for i, q := range questions {
		fmt.Fprintf(w, "%3d  %s\n", i, q)
	}
	fmt.Fprintf(w, "\n%d reference questions\n", len(questions))
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
