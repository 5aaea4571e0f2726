// Package jsonutil holds small helpers shared by the packages that write
// JSON files to disk.
package jsonutil

import (
	"encoding/json"
	"fmt"
)

// MarshalIndentWithNewline renders v as indented JSON terminated by a
// newline, so every file we write ends with a POSIX line ending.
func MarshalIndentWithNewline(v any, prefix, indent string) ([]byte, error) {
	data, err := json.MarshalIndent(v, prefix, indent)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return append(data, '\n'), nil
}
