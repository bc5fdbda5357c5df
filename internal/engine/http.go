package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultHTTPURL     = "http://localhost:8089"
	DefaultHTTPTimeout = 120 * time.Second
)

// HTTPEngine talks to a CTranslate2 sidecar process over JSON.
//
//	POST {base}/v1/translate_batch  {source, target_prefix, beam_size, ...}
//	GET  {base}/v1/health
type HTTPEngine struct {
	baseURL string
	client  *resty.Client
}

type translateBatchRequest struct {
	Source       [][]string `json:"source"`
	TargetPrefix [][]string `json:"target_prefix"`
	Options
}

type translateBatchResponse struct {
	Results []Result `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPEngine(cfg ServiceConfig) *HTTPEngine {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultHTTPURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &HTTPEngine{
		baseURL: baseURL,
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

func (e *HTTPEngine) Name() string {
	return "http"
}

func (e *HTTPEngine) TranslateBatch(ctx context.Context, source [][]string, targetPrefix [][]string, opts Options) ([]Result, error) {
	var (
		out     translateBatchResponse
		errResp errorResponse
	)

	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(translateBatchRequest{Source: source, TargetPrefix: targetPrefix, Options: opts}).
		SetResult(&out).
		SetError(&errResp).
		Post("/v1/translate_batch")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.IsError() {
		if errResp.Error != "" {
			return nil, fmt.Errorf("engine returned status %d: %s", resp.StatusCode(), errResp.Error)
		}
		return nil, fmt.Errorf("engine returned status %d", resp.StatusCode())
	}

	return out.Results, nil
}

// IsAvailable checks the sidecar health endpoint.
func (e *HTTPEngine) IsAvailable(ctx context.Context) error {
	resp, err := e.client.R().SetContext(ctx).Get("/v1/health")
	if err != nil {
		return fmt.Errorf("engine at %s not available: %w", e.baseURL, err)
	}
	if resp.IsError() {
		return fmt.Errorf("engine at %s returned status %d", e.baseURL, resp.StatusCode())
	}
	return nil
}

func (e *HTTPEngine) Close() error {
	return nil
}
