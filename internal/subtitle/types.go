package subtitle

// Reader is the interface for reading subtitle files
type Reader interface {
	Read() (*Document, error)
}

// Writer is the interface for writing translated subtitle files
type Writer interface {
	Write(path string, text string) error
}

// Document is a parsed subtitle file.
//
// Lines holds the raw lines split on "\n" with any trailing "\r" removed;
// ContentIndices points at the lines that carry caption text, in increasing order.
type Document struct {
	Lines          []string
	ContentIndices []int

	// crlf[i] records that Lines[i] was terminated by "\r\n"
	crlf []bool
}

// Len returns the number of content lines.
func (d *Document) Len() int {
	return len(d.ContentIndices)
}

// Empty reports a document with nothing to translate.
func (d *Document) Empty() bool {
	return d == nil || len(d.ContentIndices) == 0
}
