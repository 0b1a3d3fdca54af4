package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/billybjork/pixel-toaster/internal/config"
	"github.com/billybjork/pixel-toaster/internal/prompt"
)

// Adapter is the reasoning-service capability: given a structured
// payload, return a raw command candidate. Everything else about the
// service is opaque to the core.
type Adapter interface {
	Name() string
	Type() string
	Generate(ctx context.Context, payload prompt.Payload) (string, error)
}

// HealthChecker lets an adapter refuse work before a session starts,
// e.g. a command adapter whose binary is missing from PATH.
type HealthChecker interface {
	HealthCheck() error
}

type Factory func(name string, cfg config.ProviderConfig) (Adapter, error)

type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register("openai", NewOpenAIAdapter)
	r.Register("command", NewCommandAdapter)
	return r
}

func (r *Registry) Register(providerType string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[providerType] = factory
}

func (r *Registry) Build(name string, cfg config.ProviderConfig) (Adapter, error) {
	providerType := cfg.Type
	if providerType == "" {
		providerType = "command"
	}
	factory, ok := r.factories[providerType]
	if !ok {
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
	return factory(name, cfg)
}

// ForConfig builds the configured provider, falling back through the
// remaining enabled providers when the preferred one fails its health
// check.
func (r *Registry) ForConfig(cfg config.Config) (Adapter, error) {
	order := providerOrder(cfg)
	if len(order) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	issues := make([]string, 0, len(order))
	for _, name := range order {
		providerCfg, ok := cfg.Providers[name]
		if !ok {
			continue
		}
		if providerCfg.Enabled != nil && !*providerCfg.Enabled {
			continue
		}
		adapter, err := r.Build(name, providerCfg)
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if checker, ok := adapter.(HealthChecker); ok {
			if err := checker.HealthCheck(); err != nil {
				issues = append(issues, fmt.Sprintf("%s: %v", name, err))
				continue
			}
		}
		return adapter, nil
	}

	if len(issues) == 0 {
		return nil, fmt.Errorf("no enabled provider was available")
	}
	return nil, fmt.Errorf("all providers failed: %s", strings.Join(issues, " | "))
}

func providerOrder(cfg config.Config) []string {
	seen := map[string]struct{}{}
	order := make([]string, 0, len(cfg.Providers))

	add := func(name string) {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			return
		}
		if _, ok := cfg.Providers[name]; !ok {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}

	add(cfg.Provider)
	add("openai")
	add("claude")
	for _, name := range cfg.ProviderNames() {
		add(name)
	}
	return order
}
