// Package pretty renders raw JSON payloads for human inspection.
package pretty

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSON re-indents a raw JSON document. Invalid input is returned as an error
// rather than passed through, so callers never print half-formed payloads.
func JSON(raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("failed to format payload: %w", err)
	}
	return buf.String(), nil
}

// JSONValue marshals any value with indentation.
func JSONValue(v interface{}) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format value: %w", err)
	}
	return string(out), nil
}
