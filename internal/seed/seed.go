// Package seed holds the sample question set loaded by the seed command.
// Records are kept in the historical shapes found in production data.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed questions.json
var questionsJSON []byte

// Questions returns the sample records, one raw JSON object each.
func Questions() ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(questionsJSON, &records); err != nil {
		return nil, fmt.Errorf("decode sample questions: %w", err)
	}
	return records, nil
}
