/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Ollama Client
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package llm

import (
	"context"
	"net/http"
	"strings"
)

type ollamaClient struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

func newOllamaClient(cfg Config) *ollamaClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOllamaModel
	}
	return &ollamaClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       model,
		temperature: cfg.Temperature,
		client:      cfg.HTTPClient,
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate calls /api/generate without streaming and returns the response
// field.
func (c *ollamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	}
	if c.temperature > 0 {
		req.Options = map[string]any{"temperature": c.temperature}
	}

	var resp ollamaGenerateResponse
	if err := postJSON(ctx, c.client, ProviderOllama, c.baseURL+"/api/generate", nil, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", &ServiceError{Provider: ProviderOllama, Msg: resp.Error}
	}
	return resp.Response, nil
}
