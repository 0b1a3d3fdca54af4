package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/billybjork/pixel-toaster/internal/config"
	"github.com/billybjork/pixel-toaster/internal/prompt"
)

func boolPtr(v bool) *bool { return &v }

func TestRegistryBuildsKnownTypes(t *testing.T) {
	registry := NewRegistry()

	openai, err := registry.Build("openai", config.ProviderConfig{Type: "openai", APIKey: "k"})
	if err != nil {
		t.Fatalf("Build(openai) returned error: %v", err)
	}
	if openai.Type() != "openai" {
		t.Fatalf("unexpected adapter type: %s", openai.Type())
	}

	command, err := registry.Build("claude", config.ProviderConfig{Type: "command", Command: "claude"})
	if err != nil {
		t.Fatalf("Build(command) returned error: %v", err)
	}
	if command.Type() != "command" {
		t.Fatalf("unexpected adapter type: %s", command.Type())
	}

	if _, err := registry.Build("x", config.ProviderConfig{Type: "grpc"}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestForConfigSkipsDisabledAndUnhealthyProviders(t *testing.T) {
	registry := NewRegistry()
	cfg := config.Default()
	cfg.Provider = "openai"

	// openai has no key, claude's binary does not exist: both unhealthy.
	openai := cfg.Providers["openai"]
	openai.APIKey = ""
	openai.APIKeyEnv = "TOAST_TEST_MISSING_KEY"
	cfg.Providers["openai"] = openai
	claude := cfg.Providers["claude"]
	claude.Command = "definitely-not-a-real-binary-toast"
	cfg.Providers["claude"] = claude

	if _, err := registry.ForConfig(cfg); err == nil {
		t.Fatalf("expected all providers to fail health checks")
	}

	openai.APIKey = "sk-test"
	cfg.Providers["openai"] = openai
	adapter, err := registry.ForConfig(cfg)
	if err != nil {
		t.Fatalf("ForConfig returned error: %v", err)
	}
	if adapter.Name() != "openai" {
		t.Fatalf("expected openai adapter, got %s", adapter.Name())
	}
}

func TestForConfigHonorsEnabledFlag(t *testing.T) {
	registry := NewRegistry()
	cfg := config.Default()
	cfg.Provider = "openai"
	openai := cfg.Providers["openai"]
	openai.APIKey = "sk-test"
	openai.Enabled = boolPtr(false)
	cfg.Providers["openai"] = openai
	claude := cfg.Providers["claude"]
	claude.Command = "definitely-not-a-real-binary-toast"
	cfg.Providers["claude"] = claude

	if _, err := registry.ForConfig(cfg); err == nil {
		t.Fatalf("expected failure when preferred provider is disabled and fallback is unhealthy")
	}
}

func TestOpenAIGenerateSendsPayloadAndParsesChoice(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("could not decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "ffmpeg -i input.jpg input_toasted.webp -y"}},
			},
		})
	}))
	defer server.Close()

	adapter, err := NewOpenAIAdapter("openai", config.ProviderConfig{
		Type:    "openai",
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenAIAdapter returned error: %v", err)
	}

	payload := prompt.Payload{System: "system text", User: "convert input.jpg to webp"}
	raw, err := adapter.Generate(context.Background(), payload)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if raw != "ffmpeg -i input.jpg input_toasted.webp -y" {
		t.Fatalf("unexpected raw response: %q", raw)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Fatalf("unexpected message roles: %+v", captured.Messages)
	}
	if captured.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %q", captured.Model)
	}
}

func TestOpenAIGenerateSurfacesAPIErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	adapter, _ := NewOpenAIAdapter("openai", config.ProviderConfig{APIKey: "bad", BaseURL: server.URL})
	_, err := adapter.Generate(context.Background(), prompt.Payload{System: "s", User: "u"})
	if err == nil || !strings.Contains(err.Error(), "Incorrect API key provided") {
		t.Fatalf("expected API error message, got %v", err)
	}
}

func TestOpenAIGenerateRejectsMissingKey(t *testing.T) {
	adapter, _ := NewOpenAIAdapter("openai", config.ProviderConfig{APIKeyEnv: "TOAST_TEST_MISSING_KEY"})
	if _, err := adapter.Generate(context.Background(), prompt.Payload{User: "u"}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestCommandAdapterBuildInvocationTemplates(t *testing.T) {
	adapter, err := NewCommandAdapter("claude", config.ProviderConfig{
		Type:    "command",
		Command: "claude",
		Model:   "sonnet",
		Args:    []string{"-p", "--model", "{model}", "{prompt}"},
	})
	if err != nil {
		t.Fatalf("NewCommandAdapter returned error: %v", err)
	}
	command := adapter.(*CommandAdapter)
	invocation := command.buildInvocation("do the thing")

	want := []string{"claude", "-p", "--model", "sonnet", "do the thing"}
	if len(invocation) != len(want) {
		t.Fatalf("invocation %v, want %v", invocation, want)
	}
	for i := range want {
		if invocation[i] != want[i] {
			t.Fatalf("invocation %v, want %v", invocation, want)
		}
	}
}

func TestCommandAdapterAppendsPromptWithoutPlaceholder(t *testing.T) {
	adapter, _ := NewCommandAdapter("codex", config.ProviderConfig{
		Type:    "command",
		Command: "codex",
		Model:   "gpt-5-codex",
	})
	command := adapter.(*CommandAdapter)
	invocation := command.buildInvocation("prompt text")
	if invocation[len(invocation)-1] != "prompt text" {
		t.Fatalf("expected prompt appended last, got %v", invocation)
	}
}

func TestCommandAdapterHealthCheck(t *testing.T) {
	adapter, _ := NewCommandAdapter("ghost", config.ProviderConfig{
		Type:    "command",
		Command: "definitely-not-a-real-binary-toast",
	})
	checker := adapter.(HealthChecker)
	if err := checker.HealthCheck(); err == nil {
		t.Fatalf("expected health check failure for missing binary")
	}
}
