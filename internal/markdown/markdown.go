// Package markdown reduces markdown input to the plain text that is fed to
// the tokenizer. Markup is dropped; paragraph and line structure is kept.
package markdown

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

func parse(md []byte) ast.Node {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	return markdown.Parse(md, p)
}

// ToPlainText returns the text content of md. Block elements are
// separated by a blank line, list items and line breaks by a newline.
// Fenced and indented code is kept verbatim.
func ToPlainText(md []byte) string {
	var sb strings.Builder

	ast.WalkFunc(parse(md), func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.Text:
			if entering {
				sb.Write(n.Literal)
			}
		case *ast.Code:
			if entering {
				sb.Write(n.Literal)
			}
		case *ast.CodeBlock:
			if entering {
				sb.Write(n.Literal)
				blockBreak(&sb)
			}
		case *ast.Softbreak, *ast.Hardbreak:
			if entering {
				sb.WriteByte('\n')
			}
		case *ast.HTMLSpan, *ast.HTMLBlock:
			return ast.SkipChildren
		case *ast.Paragraph:
			if entering {
				break
			}
			if _, inItem := n.GetParent().(*ast.ListItem); inItem {
				lineBreak(&sb)
			} else {
				blockBreak(&sb)
			}
		case *ast.Heading, *ast.BlockQuote:
			if !entering {
				blockBreak(&sb)
			}
		case *ast.ListItem:
			if !entering {
				lineBreak(&sb)
			}
		case *ast.List:
			if !entering {
				blockBreak(&sb)
			}
		}
		return ast.GoToNext
	})

	return strings.TrimSpace(sb.String())
}

func lineBreak(sb *strings.Builder) {
	if s := sb.String(); s != "" && !strings.HasSuffix(s, "\n") {
		sb.WriteByte('\n')
	}
}

func blockBreak(sb *strings.Builder) {
	s := sb.String()
	switch {
	case s == "", strings.HasSuffix(s, "\n\n"):
	case strings.HasSuffix(s, "\n"):
		sb.WriteByte('\n')
	default:
		sb.WriteString("\n\n")
	}
}
