package chunker_test

import (
	"strings"
	"testing"

	"github.com/valpere/metaltran/internal/chunker"
)

func texts(pieces []chunker.Piece, separators bool) []string {
	var out []string
	for _, p := range pieces {
		if p.Separator == separators {
			out = append(out, p.Text)
		}
	}
	return out
}

func TestSplit_Empty(t *testing.T) {
	if pieces := chunker.Split("", false); len(pieces) != 0 {
		t.Errorf("expected no pieces, got %v", pieces)
	}
}

func TestSplit_SingleParagraph(t *testing.T) {
	text := "Hello world.\nStill the same paragraph."
	pieces := chunker.Split(text, false)
	if len(pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d: %v", len(pieces), pieces)
	}
	if pieces[0].Separator || pieces[0].Text != text {
		t.Errorf("unexpected piece %+v", pieces[0])
	}
}

func TestSplit_Paragraphs(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph.\n \n\nThird.\n"
	pieces := chunker.Split(text, false)

	got := texts(pieces, false)
	want := []string{"First paragraph.", "Second paragraph.", "Third."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("paragraphs = %q, want %q", got, want)
	}

	seps := texts(pieces, true)
	wantSeps := []string{"\n\n", "\n \n\n", "\n"}
	if strings.Join(seps, "|") != strings.Join(wantSeps, "|") {
		t.Errorf("separators = %q, want %q", seps, wantSeps)
	}
}

func TestSplit_PerLine(t *testing.T) {
	text := "one\ntwo\n\nthree"
	got := texts(chunker.Split(text, true), false)
	want := []string{"one", "two", "three"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestSplit_LeadingBlankLines(t *testing.T) {
	pieces := chunker.Split("\n\nBody", false)
	if len(pieces) != 2 || !pieces[0].Separator || pieces[1].Text != "Body" {
		t.Errorf("unexpected pieces %+v", pieces)
	}
}

func TestSplit_CRLF(t *testing.T) {
	got := texts(chunker.Split("A.\r\n\r\nB.", false), false)
	if strings.Join(got, "|") != "A.|B." {
		t.Errorf("paragraphs = %q", got)
	}
}

func TestJoin_ReconstructsInput(t *testing.T) {
	inputs := []string{
		"plain",
		"a\n\nb",
		"\n\n  lead\n\ntrail  \n\n",
		"x\r\n\r\ny\r\n",
		"one\ntwo\n\n\nthree\n",
	}
	for _, in := range inputs {
		for _, perLine := range []bool{false, true} {
			if got := chunker.Join(chunker.Split(in, perLine)); got != in {
				t.Errorf("Join(Split(%q, %v)) = %q", in, perLine, got)
			}
		}
	}
}

func TestSplit_NoEmptyTextPieces(t *testing.T) {
	for _, p := range chunker.Split("a\n\n\n\nb\n\n", false) {
		if !p.Separator && strings.TrimSpace(p.Text) == "" {
			t.Errorf("blank text piece %q", p.Text)
		}
	}
}
