package csv

import (
	"bufio"
	"io"
	"strings"
)

// StripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func StripHeaderBOM(headers []string) []string {
	if len(headers) == 0 {
		return headers
	}
	if strings.HasPrefix(headers[0], utf8BOM) {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	return headers
}

// peekReader lets the delimiter sniffer look at the first line without
// consuming it.
type peekReader struct{ *bufio.Reader }

func newPeekReader(r io.Reader) peekReader {
	return peekReader{bufio.NewReaderSize(r, 64*1024)}
}

// peekLine returns up to the first newline of the buffered input.
func (p peekReader) peekLine() string {
	b, _ := p.Peek(64 * 1024)
	s := string(b)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
