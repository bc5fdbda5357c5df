// Package chunker splits a document into paragraphs so each can be
// translated on its own. The model output of one request is a single run of
// text, so line and paragraph breaks only survive if they never reach the
// model.
package chunker

import (
	"strings"
)

// Piece is a stretch of the input. Text pieces are translated; separator
// pieces are the whitespace between paragraphs and are copied to the output
// unchanged.
type Piece struct {
	Text      string
	Separator bool
}

// Split cuts text at blank lines (\n\n or \r\n\r\n, with any whitespace in
// between). Joining the pieces' Text gives back the input exactly. When
// perLine is set every line break is a boundary, not only blank lines.
func Split(text string, perLine bool) []Piece {
	if text == "" {
		return nil
	}

	var pieces []Piece
	lines := strings.SplitAfter(text, "\n")

	var para, sep strings.Builder
	flushPara := func() {
		if para.Len() == 0 {
			return
		}
		body := para.String()
		trimmed := strings.TrimRight(body, " \t\r\n")
		pieces = append(pieces, Piece{Text: trimmed})
		sep.WriteString(body[len(trimmed):])
		para.Reset()
	}
	flushSep := func() {
		if sep.Len() == 0 {
			return
		}
		pieces = append(pieces, Piece{Text: sep.String(), Separator: true})
		sep.Reset()
	}

	for _, line := range lines {
		blank := strings.TrimSpace(line) == ""
		switch {
		case blank:
			flushPara()
			sep.WriteString(line)
		case perLine:
			flushPara()
			flushSep()
			para.WriteString(line)
			flushPara()
		default:
			flushSep()
			para.WriteString(line)
		}
	}
	flushPara()
	flushSep()

	return pieces
}

// Join concatenates the pieces.
func Join(pieces []Piece) string {
	var sb strings.Builder
	for _, p := range pieces {
		sb.WriteString(p.Text)
	}
	return sb.String()
}
