package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/billybjork/pixel-toaster/internal/config"
	"github.com/billybjork/pixel-toaster/internal/prompt"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/chat/completions"

type OpenAIAdapter struct {
	name string
	cfg  config.ProviderConfig
	http *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewOpenAIAdapter(name string, cfg config.ProviderConfig) (Adapter, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIAdapter{
		name: name,
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}, nil
}

func (a *OpenAIAdapter) Name() string { return a.name }

func (a *OpenAIAdapter) Type() string { return "openai" }

func (a *OpenAIAdapter) HealthCheck() error {
	if a.cfg.ResolveAPIKey() == "" {
		return fmt.Errorf("no API key configured (set providers.%s.api_key or %s)", a.name, a.cfg.APIKeyEnv)
	}
	return nil
}

func (a *OpenAIAdapter) Generate(ctx context.Context, payload prompt.Payload) (string, error) {
	apiKey := a.cfg.ResolveAPIKey()
	if apiKey == "" {
		return "", errors.New("openai api key is required")
	}

	body := chatRequest{
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: payload.System},
			{Role: "user", Content: payload.User},
		},
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	request.Header.Set("Authorization", "Bearer "+apiKey)
	request.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(request)
	if err != nil {
		return "", fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("openai api rate limited: %s", errorDetail(raw))
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai api error: status %d: %s", resp.StatusCode, errorDetail(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("malformed api response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("api response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func errorDetail(raw []byte) string {
	var envelope chatResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	detail := strings.TrimSpace(string(raw))
	if len(detail) > 300 {
		detail = detail[:300] + "..."
	}
	return detail
}
