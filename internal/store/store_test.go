package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/metaltran/internal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func key(text, src, tgt string) MemoryKey {
	return MemoryKey{SourceText: text, SourceLang: src, TargetLang: tgt, Family: "m2m", Model: "/models/m2m100_418M"}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_RequestLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	req := internal.TranslationRequest{
		ID:         "req-1",
		SourceText: "Hello world. Good day.",
		SourceLang: "en",
		TargetLang: "es",
		Family:     "m2m",
		ModelPath:  "/models/m2m100_418M",
		MaxTokens:  4,
		Timestamp:  time.Now(),
	}
	if err := s.SaveRequest(ctx, req); err != nil {
		t.Fatalf("SaveRequest failed: %v", err)
	}

	outputs := []string{"Hola mundo.", "Buenos días."}
	if err := s.SaveBatchOutputs(ctx, "req-1", outputs, []float64{-0.3}); err != nil {
		t.Fatalf("SaveBatchOutputs failed: %v", err)
	}
	if err := s.SaveResult(ctx, "req-1", "Hola mundo.Buenos días.", 2, 150*time.Millisecond, ""); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	got, err := s.GetBatchOutputs(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetBatchOutputs failed: %v", err)
	}
	if len(got) != 2 || got[0] != outputs[0] || got[1] != outputs[1] {
		t.Errorf("batch outputs = %q, want %q", got, outputs)
	}

	if err := s.SaveRequest(ctx, req); err == nil {
		t.Error("expected error for duplicate request ID")
	}
}

func TestStore_GetCachedTranslation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.GetCachedTranslation(ctx, key("Hello", "en", "uk"))
	if err != nil {
		t.Fatalf("GetCachedTranslation failed: %v", err)
	}
	if found {
		t.Fatal("expected miss on empty memory")
	}

	if err := s.SaveToMemory(ctx, key("  Hello  ", "en", "uk"), "Привіт"); err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}

	text, found, err := s.GetCachedTranslation(ctx, key("Hello", "en", "uk"))
	if err != nil {
		t.Fatalf("GetCachedTranslation failed: %v", err)
	}
	if !found || text != "Привіт" {
		t.Errorf("expected hit 'Привіт', got found=%v %q", found, text)
	}

	entries, err := s.ListMemory(ctx, MemoryFilter{})
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) != 1 || entries[0].UsageCount != 2 {
		t.Errorf("expected one entry used twice, got %+v", entries)
	}
}

func TestStore_MemoryKeyedByModel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m2m := key("Hello", "en", "es")
	nllb := MemoryKey{SourceText: "Hello", SourceLang: "en", TargetLang: "es", Family: "nllb", Model: "/models/nllb-200"}

	if err := s.SaveToMemory(ctx, m2m, "Hola"); err != nil {
		t.Fatal(err)
	}

	if _, found, _ := s.GetCachedTranslation(ctx, nllb); found {
		t.Error("entry of another model must not match")
	}

	if err := s.SaveToMemory(ctx, nllb, "¡Hola!"); err != nil {
		t.Fatal(err)
	}
	text, found, _ := s.GetCachedTranslation(ctx, nllb)
	if !found || text != "¡Hola!" {
		t.Errorf("nllb: got found=%v %q", found, text)
	}
	text, found, _ = s.GetCachedTranslation(ctx, m2m)
	if !found || text != "Hola" {
		t.Errorf("m2m: got found=%v %q", found, text)
	}
}

func TestStore_MultipleLanguagePairs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pairs := map[string]string{"uk": "Привіт", "de": "Hallo", "fr": "Bonjour"}
	for tgt, text := range pairs {
		if err := s.SaveToMemory(ctx, key("Hello", "en", tgt), text); err != nil {
			t.Fatal(err)
		}
	}

	for tgt, want := range pairs {
		text, found, _ := s.GetCachedTranslation(ctx, key("Hello", "en", tgt))
		if !found || text != want {
			t.Errorf("en->%s: expected %q, got found=%v %q", tgt, want, found, text)
		}
	}

	if _, found, _ := s.GetCachedTranslation(ctx, key("Hello", "en", "es")); found {
		t.Error("en->es: expected not found")
	}
}

func TestStore_InvalidateAndRefresh(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	k := key("Hello", "en", "uk")

	if err := s.SaveToMemory(ctx, k, "Привіт"); err != nil {
		t.Fatal(err)
	}
	entries, _ := s.ListMemory(ctx, MemoryFilter{})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if err := s.InvalidateMemory(ctx, entries[0].ID); err != nil {
		t.Fatalf("InvalidateMemory failed: %v", err)
	}
	if _, found, _ := s.GetCachedTranslation(ctx, k); found {
		t.Error("invalidated entry should not be returned")
	}

	active, _ := s.ListMemory(ctx, MemoryFilter{})
	all, _ := s.ListMemory(ctx, MemoryFilter{IncludeInvalid: true})
	if len(active) != 0 || len(all) != 1 {
		t.Errorf("expected 0 active and 1 total, got %d and %d", len(active), len(all))
	}

	if err := s.SaveToMemory(ctx, k, "Вітаю"); err != nil {
		t.Fatal(err)
	}
	text, found, _ := s.GetCachedTranslation(ctx, k)
	if !found || text != "Вітаю" {
		t.Errorf("refreshed entry: got found=%v %q", found, text)
	}
}

func TestStore_ListMemory_Filter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, key("One", "en", "uk"), "Один")
	s.SaveToMemory(ctx, key("Two", "en", "uk"), "Два")
	s.SaveToMemory(ctx, key("One", "en", "de"), "Eins")
	s.SaveToMemory(ctx, MemoryKey{SourceText: "One", SourceLang: "en", TargetLang: "uk", Family: "nllb", Model: "/m"}, "Один")

	tests := []struct {
		name   string
		filter MemoryFilter
		want   int
	}{
		{"all", MemoryFilter{}, 4},
		{"target", MemoryFilter{TargetLang: "uk"}, 3},
		{"target and family", MemoryFilter{TargetLang: "uk", Family: "m2m"}, 2},
		{"source", MemoryFilter{SourceLang: "de"}, 0},
		{"limit", MemoryFilter{Limit: 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := s.ListMemory(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListMemory failed: %v", err)
			}
			if len(entries) != tt.want {
				t.Errorf("expected %d entries, got %d", tt.want, len(entries))
			}
		})
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, key("Hello", "en", "uk"), "Привіт")
	s.SaveToMemory(ctx, key("Bye", "en", "uk"), "Бувай")
	s.GetCachedTranslation(ctx, key("Hello", "en", "uk"))

	entries, _ := s.ListMemory(ctx, MemoryFilter{SourceLang: "en"})
	for _, e := range entries {
		if e.SourceText == "Bye" {
			s.InvalidateMemory(ctx, e.ID)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 2 || stats.ActiveEntries != 1 || stats.InvalidEntries != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.TotalUsage != 3 {
		t.Errorf("expected total usage 3, got %d", stats.TotalUsage)
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, key("A", "en", "uk"), "А")
	s.SaveToMemory(ctx, key("B", "en", "uk"), "Б")
	s.SaveToMemory(ctx, key("C", "en", "uk"), "В")

	entries, _ := s.ListMemory(ctx, MemoryFilter{})
	if err := s.DeleteMemory(ctx, entries[0].ID); err != nil {
		t.Fatalf("DeleteMemory failed: %v", err)
	}
	entries, _ = s.ListMemory(ctx, MemoryFilter{})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after delete, got %d", len(entries))
	}

	n, err := s.ClearMemory(ctx)
	if err != nil {
		t.Fatalf("ClearMemory failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows cleared, got %d", n)
	}
	entries, _ = s.ListMemory(ctx, MemoryFilter{IncludeInvalid: true})
	if len(entries) != 0 {
		t.Errorf("expected empty memory, got %d", len(entries))
	}
}

func TestStore_FuzzyGetCachedTranslation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, key("The weather is nice today.", "en", "uk"), "Сьогодні гарна погода.")
	s.SaveToMemory(ctx, key("Completely different sentence.", "en", "uk"), "Зовсім інше речення.")

	tests := []struct {
		name      string
		text      string
		threshold float64
		want      string
		wantFound bool
	}{
		{"disabled", "The weather is nice today.", 0, "", false},
		{"exact", "The weather is nice today.", 0.9, "Сьогодні гарна погода.", true},
		{"close", "The weather is nice today!", 0.9, "Сьогодні гарна погода.", true},
		{"too far", "The weather was bad yesterday.", 0.9, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, found, err := s.FuzzyGetCachedTranslation(ctx, key(tt.text, "en", "uk"), tt.threshold)
			if err != nil {
				t.Fatalf("FuzzyGetCachedTranslation failed: %v", err)
			}
			if found != tt.wantFound || text != tt.want {
				t.Errorf("got found=%v %q, want found=%v %q", found, text, tt.wantFound, tt.want)
			}
		})
	}
}

func TestStore_CSVCheckpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cpID, err := s.CreateCSVCheckpoint(ctx, CSVCheckpoint{
		InputFile:  "input.csv",
		OutputFile: "output.csv",
		SourceLang: "en",
		TargetLang: "uk",
		Family:     "m2m",
		Model:      "/models/m2m100_418M",
	})
	if err != nil {
		t.Fatalf("CreateCSVCheckpoint failed: %v", err)
	}

	cp, err := s.GetCSVCheckpoint(ctx, cpID)
	if err != nil {
		t.Fatalf("GetCSVCheckpoint failed: %v", err)
	}
	if cp.InputFile != "input.csv" || cp.Family != "m2m" {
		t.Errorf("unexpected checkpoint %+v", cp)
	}
	if cp.Status != CheckpointRunning {
		t.Errorf("expected running status, got %q", cp.Status)
	}

	if err := s.SaveCSVCell(ctx, cpID, 0, 1, "first"); err != nil {
		t.Fatalf("SaveCSVCell failed: %v", err)
	}
	if err := s.SaveCSVCell(ctx, cpID, 0, 1, "Translated cell"); err != nil {
		t.Fatalf("SaveCSVCell overwrite failed: %v", err)
	}

	cells, err := s.GetCSVCells(ctx, cpID)
	if err != nil {
		t.Fatalf("GetCSVCells failed: %v", err)
	}
	if len(cells) != 1 || cells[CellKey(0, 1)] != "Translated cell" {
		t.Errorf("unexpected cells %v", cells)
	}

	if err := s.CompleteCSVCheckpoint(ctx, cpID); err != nil {
		t.Errorf("CompleteCSVCheckpoint failed: %v", err)
	}
	cp, err = s.GetCSVCheckpoint(ctx, cpID)
	if err != nil {
		t.Fatalf("GetCSVCheckpoint failed: %v", err)
	}
	if cp.Status != CheckpointCompleted {
		t.Errorf("expected completed status, got %q", cp.Status)
	}

	if _, err := s.GetCSVCheckpoint(ctx, "cp_missing"); err == nil {
		t.Error("expected error for unknown checkpoint")
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Hello  ", "Hello"},
		{"été", "été"},
		{"\t\nHello\t\n", "Hello"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeText(tt.input); got != tt.expected {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestStringSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "abc", 1},
		{"abc", "abd", 2.0 / 3.0},
		{"abc", "", 0},
		{"кіт", "кит", 2.0 / 3.0},
	}

	for _, tt := range tests {
		got := stringSimilarity(tt.a, tt.b)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("stringSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
