package prefix

import (
	"errors"
	"testing"

	"github.com/valpere/metaltran/internal"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		family     Family
		source     string
		target     string
		wantSource string
		wantTarget string
	}{
		{"m2m", M2M, "en", "es", "__en__", "__es__"},
		{"bart", BART, "en", "fr", "[en]", "[fr]"},
		{"nllb verbatim", NLLB, "eng_Latn", "ukr_Cyrl", "eng_Latn", "ukr_Cyrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, err := Resolve(tt.family, tt.source, tt.target)
			if err != nil {
				t.Fatalf("Resolve: unexpected error: %v", err)
			}
			if tags.Source != tt.wantSource {
				t.Errorf("source tag = %q, want %q", tags.Source, tt.wantSource)
			}
			if tags.Target != tt.wantTarget {
				t.Errorf("target tag = %q, want %q", tags.Target, tt.wantTarget)
			}
		})
	}
}

func TestResolve_UnknownFamily(t *testing.T) {
	_, err := Resolve(Family(42), "en", "es")
	if !errors.Is(err, internal.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestParseFamily(t *testing.T) {
	tests := []struct {
		input   string
		want    Family
		wantErr bool
	}{
		{"m2m", M2M, false},
		{"M2M100", M2M, false},
		{" bart ", BART, false},
		{"mBART", BART, false},
		{"NLLB", NLLB, false},
		{"", 0, true},
		{"marian", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFamily(tt.input)
			if tt.wantErr {
				if !errors.Is(err, internal.ErrInvalidConfig) {
					t.Errorf("ParseFamily(%q) error = %v, want ErrInvalidConfig", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFamily(%q): unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseFamily(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFamily_String(t *testing.T) {
	for _, f := range []Family{M2M, BART, NLLB} {
		parsed, err := ParseFamily(f.String())
		if err != nil || parsed != f {
			t.Errorf("ParseFamily(%q) = %v, %v; want %v", f.String(), parsed, err, f)
		}
	}
	if Family(7).Valid() {
		t.Error("Family(7) should not be valid")
	}
}
