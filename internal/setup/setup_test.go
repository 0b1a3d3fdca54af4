package setup

import (
	"testing"

	"github.com/billybjork/pixel-toaster/internal/config"
)

func TestNeededWithoutKey(t *testing.T) {
	cfg := config.Default()
	t.Setenv("OPENAI_API_KEY", "")
	if !Needed(cfg) {
		t.Fatal("expected setup to be needed without any credential")
	}
}

func TestNotNeededWithInlineKey(t *testing.T) {
	cfg := config.Default()
	pc := cfg.Providers["openai"]
	pc.APIKey = "sk-test"
	cfg.Providers["openai"] = pc
	if Needed(cfg) {
		t.Fatal("expected setup to be skipped with an inline key")
	}
}

func TestNotNeededWithEnvKey(t *testing.T) {
	cfg := config.Default()
	t.Setenv("OPENAI_API_KEY", "sk-env")
	if Needed(cfg) {
		t.Fatal("expected setup to be skipped with an environment key")
	}
}

func TestNotNeededForCommandProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "claude"
	if Needed(cfg) {
		t.Fatal("command providers carry their own credentials")
	}
}

func TestApplySetsProviderKeyAndModel(t *testing.T) {
	cfg := config.Default()
	err := Apply(&cfg, Answers{Provider: "openai", APIKey: "sk-new", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if cfg.Provider != "openai" {
		t.Fatalf("provider = %q", cfg.Provider)
	}
	pc := cfg.Providers["openai"]
	if pc.APIKey != "sk-new" || pc.Model != "gpt-4o" {
		t.Fatalf("provider config = %+v", pc)
	}
}

func TestApplyEmptyAnswersKeepExisting(t *testing.T) {
	cfg := config.Default()
	pc := cfg.Providers["openai"]
	pc.APIKey = "sk-old"
	cfg.Providers["openai"] = pc

	if err := Apply(&cfg, Answers{}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if cfg.Providers["openai"].APIKey != "sk-old" {
		t.Fatal("empty answers must not clear the stored key")
	}
	if cfg.Providers["openai"].Model != "gpt-4o-mini" {
		t.Fatalf("model changed: %q", cfg.Providers["openai"].Model)
	}
}

func TestApplyRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	if err := Apply(&cfg, Answers{Provider: "nope"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
