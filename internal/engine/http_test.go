package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOptionsFor(t *testing.T) {
	opts := OptionsFor(100)

	if opts.BeamSize != 5 {
		t.Errorf("BeamSize = %d, want 5", opts.BeamSize)
	}
	if opts.MaxInputLength != 101 {
		t.Errorf("MaxInputLength = %d, want 101", opts.MaxInputLength)
	}
	if opts.MaxDecodingLength != 200 {
		t.Errorf("MaxDecodingLength = %d, want 200", opts.MaxDecodingLength)
	}
	if opts.NumHypotheses != 1 {
		t.Errorf("NumHypotheses = %d, want 1", opts.NumHypotheses)
	}
}

func TestHTTPEngine_Name(t *testing.T) {
	e := NewHTTPEngine(ServiceConfig{})
	if e.Name() != "http" {
		t.Errorf("expected 'http', got %q", e.Name())
	}
	if e.baseURL != DefaultHTTPURL {
		t.Errorf("expected default base URL, got %q", e.baseURL)
	}
}

func TestHTTPEngine_TranslateBatch(t *testing.T) {
	var got translateBatchRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/translate_batch" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"output": []string{"__es__", "▁Hola", "▁mundo", "."}, "score": -0.42},
			},
		})
	}))
	defer server.Close()

	e := NewHTTPEngine(ServiceConfig{BaseURL: server.URL + "/", Timeout: 5 * time.Second})

	results, err := e.TranslateBatch(context.Background(),
		[][]string{{"__en__", "▁Hello", "▁world", "."}},
		[][]string{{"__es__"}},
		OptionsFor(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if strings.Join(results[0].Output, " ") != "__es__ ▁Hola ▁mundo ." {
		t.Errorf("unexpected output %v", results[0].Output)
	}
	if results[0].Score != -0.42 {
		t.Errorf("unexpected score %v", results[0].Score)
	}

	if len(got.Source) != 1 || got.Source[0][0] != "__en__" {
		t.Errorf("source not sent correctly: %v", got.Source)
	}
	if len(got.TargetPrefix) != 1 || got.TargetPrefix[0][0] != "__es__" {
		t.Errorf("target prefix not sent correctly: %v", got.TargetPrefix)
	}
	if got.BeamSize != 5 || got.MaxInputLength != 11 || got.MaxDecodingLength != 20 {
		t.Errorf("options not sent correctly: %+v", got.Options)
	}
}

func TestHTTPEngine_TranslateBatch_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer server.Close()

	e := NewHTTPEngine(ServiceConfig{BaseURL: server.URL})

	_, err := e.TranslateBatch(context.Background(), [][]string{{"__en__", "a"}}, [][]string{{"__es__"}}, OptionsFor(4))
	if err == nil {
		t.Fatal("expected error for non-OK status")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("error should carry status and message, got %v", err)
	}
}

func TestHTTPEngine_TranslateBatch_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	e := NewHTTPEngine(ServiceConfig{BaseURL: server.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.TranslateBatch(ctx, [][]string{{"__en__", "a"}}, [][]string{{"__es__"}}, OptionsFor(4))
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestHTTPEngine_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := NewHTTPEngine(ServiceConfig{BaseURL: server.URL}).IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHTTPEngine_IsAvailable_Down(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if err := NewHTTPEngine(ServiceConfig{BaseURL: server.URL}).IsAvailable(context.Background()); err == nil {
		t.Error("expected error for unavailable engine")
	}
}
