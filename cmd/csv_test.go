package cmd

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/valpere/metaltran/internal"
	"github.com/valpere/metaltran/internal/store"
)

func upper(_ context.Context, cell string) (string, error) {
	if cell == "boom" {
		return "", internal.ErrEngine
	}
	return strings.ToUpper(cell), nil
}

func TestTranslateCells(t *testing.T) {
	records := [][]string{
		{"name", "note"},
		{"a", "boom"},
		{"", "c"},
		{"d", "e"},
	}

	type saved struct{ row, col int }
	tests := []struct {
		name       string
		job        cellJob
		want       [][]string
		wantFailed int
		wantSaved  []saved
	}{
		{
			name:       "all columns with header",
			job:        cellJob{skipHeader: true},
			want:       [][]string{{"name", "note"}, {"A", "boom"}, {"", "C"}, {"D", "E"}},
			wantFailed: 1,
			wantSaved:  []saved{{1, 0}, {2, 1}, {3, 0}, {3, 1}},
		},
		{
			name:      "selected column",
			job:       cellJob{skipHeader: true, columns: map[int]bool{0: true}},
			want:      [][]string{{"name", "note"}, {"A", "boom"}, {"", "c"}, {"D", "e"}},
			wantSaved: []saved{{1, 0}, {3, 0}},
		},
		{
			name: "resumed cells are reused",
			job: cellJob{
				skipHeader: true,
				columns:    map[int]bool{0: true},
				done:       map[string]string{store.CellKey(1, 0): "done"},
			},
			want:      [][]string{{"name", "note"}, {"done", "boom"}, {"", "c"}, {"D", "e"}},
			wantSaved: []saved{{3, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []saved
			out, failed, err := translateCells(context.Background(), records, tt.job, upper, func(row, col int, _ string) {
				got = append(got, saved{row, col})
			})
			if err != nil {
				t.Fatalf("translateCells: %v", err)
			}
			if failed != tt.wantFailed {
				t.Errorf("failed = %d, want %d", failed, tt.wantFailed)
			}
			if !slices.EqualFunc(out, tt.want, slices.Equal[[]string]) {
				t.Errorf("out = %q, want %q", out, tt.want)
			}
			if !slices.Equal(got, tt.wantSaved) {
				t.Errorf("saved = %v, want %v", got, tt.wantSaved)
			}
		})
	}

	if records[1][0] != "a" {
		t.Error("input records were modified")
	}
}

func TestTranslateCells_EveryCellFails(t *testing.T) {
	records := [][]string{{"boom", "boom"}, {"boom"}}
	out, failed, err := translateCells(context.Background(), records, cellJob{}, upper, func(int, int, string) {
		t.Error("failed cell was saved")
	})
	if err != nil {
		t.Fatalf("translateCells: %v", err)
	}
	if failed != 3 {
		t.Errorf("failed = %d, want 3", failed)
	}
	if out[1][0] != "boom" {
		t.Errorf("failed cell not kept: %q", out[1][0])
	}
}

func TestTranslateCells_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	translate := func(ctx context.Context, cell string) (string, error) {
		cancel()
		return "", ctx.Err()
	}

	_, _, err := translateCells(ctx, [][]string{{"x", "y"}}, cellJob{}, translate, func(int, int, string) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if !strings.Contains(err.Error(), "row 0 col 0") {
		t.Errorf("err = %v, want the interrupted cell", err)
	}
}

func TestResumeHint(t *testing.T) {
	if got := resumeHint(""); got != "" {
		t.Errorf("resumeHint(\"\") = %q", got)
	}
	if got := resumeHint("cp_1"); got != ", resume with --resume cp_1" {
		t.Errorf("resumeHint = %q", got)
	}
}
