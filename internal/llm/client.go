/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - LLM Client
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package llm talks to the model service. Every provider exposes the same
// single-shot Generate call; output is returned as free text.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pgedge-nl2sql/internal/logging"
)

// Provider names
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default endpoints and models per provider
const (
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultOpenAIURL      = "https://api.openai.com/v1"
	DefaultAnthropicURL   = "https://api.anthropic.com/v1"
	DefaultOllamaModel    = "gemma3:12b"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultMaxTokens      = 1024
)

// Generator sends one prompt to the model and returns its raw text reply
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a provider
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature float64

	// HTTPClient overrides the default client, mainly for tests
	HTTPClient *http.Client
}

// ServiceError reports a failed model call: transport failure, non-2xx
// status, or an unusable response body.
type ServiceError struct {
	Provider   string
	StatusCode int
	Msg        string
	Err        error
}

func (e *ServiceError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Provider)
	sb.WriteString(" request failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsServiceError reports whether err is, or wraps, a *ServiceError
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// NewGenerator builds the Generator for cfg.Provider, filling defaults for
// any unset base URL, model, or token limit.
func NewGenerator(cfg Config) (Generator, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOllama:
		return newOllamaClient(cfg), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// postJSON sends body as JSON to url and decodes a 2xx JSON reply into out
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	reqData, err := json.Marshal(body)
	if err != nil {
		return &ServiceError{Provider: provider, Msg: "failed to marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqData))
	if err != nil {
		return &ServiceError{Provider: provider, Msg: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	logging.Debug("llm_request", "provider", provider, "url", url, "bytes", len(reqData))

	resp, err := client.Do(httpReq)
	if err != nil {
		return &ServiceError{Provider: provider, Msg: "failed to send request", Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("llm_response_close_failed", "provider", provider, "error", err)
		}
	}()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ServiceError{Provider: provider, StatusCode: resp.StatusCode, Msg: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServiceError{Provider: provider, StatusCode: resp.StatusCode, Msg: strings.TrimSpace(string(respData))}
	}

	if err := json.Unmarshal(respData, out); err != nil {
		return &ServiceError{Provider: provider, StatusCode: resp.StatusCode, Msg: "failed to decode response", Err: err}
	}
	return nil
}
