package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spigell/smartintern/internal/errs"
)

const provider = "openai"

// NewClient builds an OpenAI-compatible API client. An empty baseURL keeps the public endpoint.
func NewClient(apiKey, baseURL string) (*openai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return openai.NewClientWithConfig(cfg), nil
}

// parseAPIError extracts a readable message from the API failure and tags it as a transport error.
func parseAPIError(op string, err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("%w: %s: api error %d: %s", errs.ErrTransport, op, reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("%w: %s: api error %d", errs.ErrTransport, op, reqErr.HTTPStatusCode)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: api error %d: %s", errs.ErrTransport, op, apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("%w: %s: %w", errs.ErrTransport, op, err)
}

// extractDetail reads the "detail" field some OpenAI-compatible providers return.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
