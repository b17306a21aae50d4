package subtitle

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
)

var (
	// SRT timing line, e.g. 00:02:16,612 --> 00:02:19,376
	timecodeRegex = regexp.MustCompile(`^[\d:,]+ --> [\d:,]+$`)
	integerRegex  = regexp.MustCompile(`^\d+$`)
)

// DefaultReader is the default subtitle file reader
type DefaultReader struct {
	path string
}

// NewReader creates a new subtitle file reader
func NewReader(
	path string,
) Reader {
	return &DefaultReader{
		path: path,
	}
}

// Read reads and parses the subtitle file
func (r *DefaultReader) Read() (*Document, error) {
	if !strings.HasSuffix(strings.ToLower(r.path), ".srt") {
		return nil, fmt.Errorf("only SRT format subtitle files are supported: %s", r.path)
	}

	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil, fmt.Errorf("open subtitle file %s: %w", r.path, os.ErrNotExist)
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}

	return Parse(string(data)), nil
}

// Parse splits text into lines and records which of them are caption text.
//
// Everything before the first timing line is skipped. After it, timing lines,
// blank lines and bare sequence numbers stay non-content; anything else is content.
func Parse(text string) *Document {
	raw := strings.Split(text, "\n")
	doc := &Document{
		Lines: make([]string, len(raw)),
		crlf:  make([]bool, len(raw)),
	}

	started := false
	for i, line := range raw {
		if strings.HasSuffix(line, "\r") {
			line = strings.TrimSuffix(line, "\r")
			doc.crlf[i] = true
		}
		doc.Lines[i] = line

		trimmed := strings.TrimSpace(line)
		if !started {
			if timecodeRegex.MatchString(trimmed) {
				started = true
			}
			continue
		}

		if timecodeRegex.MatchString(trimmed) {
			continue
		}
		if trimmed == "" || integerRegex.MatchString(trimmed) {
			continue
		}

		doc.ContentIndices = append(doc.ContentIndices, i)
	}

	return doc
}

// ContentLines returns the caption text lines in document order.
func (d *Document) ContentLines() []string {
	ret := make([]string, len(d.ContentIndices))
	for i, idx := range d.ContentIndices {
		ret[i] = d.Lines[idx]
	}
	return ret
}

// Rebuild substitutes translated text at the content positions and joins the
// lines back with their original terminators.
func (d *Document) Rebuild(translated []string) (string, error) {
	if len(translated) != len(d.ContentIndices) {
		return "", fmt.Errorf("translated line count mismatch: got %d, want %d", len(translated), len(d.ContentIndices))
	}

	out := make([]string, len(d.Lines))
	copy(out, d.Lines)
	for i, idx := range d.ContentIndices {
		out[idx] = translated[i]
	}

	var sb strings.Builder
	for i, line := range out {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
		if i < len(d.crlf) && d.crlf[i] {
			sb.WriteByte('\r')
		}
	}
	return sb.String(), nil
}

// DetectLanguage returns the dominant ISO 639-1 code of the content lines, or
// "" when nothing could be detected.
func (d *Document) DetectLanguage() string {
	if d.Empty() {
		return ""
	}

	langMap := make(map[string]int)
	for _, line := range d.ContentLines() {
		lang := whatlanggo.DetectLang(line).Iso6391()
		if lang == "" {
			continue
		}
		langMap[lang]++
	}

	// Get top language
	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}

	return topLang
}
