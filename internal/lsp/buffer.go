package lsp

// Buffer is the slice of editor state the client needs to synchronize a
// document with a language server. The editor's text storage implements
// it; the client never mutates a buffer.
type Buffer interface {
	// Path returns the buffer's absolute file path.
	Path() string

	// FullText returns the entire buffer contents.
	FullText() []byte

	// LineRange returns the lines in the inclusive range [first, last],
	// each with its line terminator except possibly the final line of
	// the buffer.
	LineRange(first, last int) ([][]byte, error)
}
