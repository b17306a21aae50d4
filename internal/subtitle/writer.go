package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultWriter is the default subtitle file writer
type DefaultWriter struct{}

// NewWriter creates a new subtitle file writer
func NewWriter() Writer {
	return &DefaultWriter{}
}

// Write writes the rebuilt subtitle text to path, creating the directory if needed
func (w *DefaultWriter) Write(path string, text string) error {
	if path == "" {
		return fmt.Errorf("output path is empty")
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	return nil
}
