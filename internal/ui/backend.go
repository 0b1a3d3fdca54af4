package ui

import "strings"

// Backend names accepted by the config file and the --ui flag. Auto
// tries the interactive backends in preference order; plain skips them
// all and leaves the caller on line-oriented stdin prompts.
const (
	BackendAuto      = "auto"
	BackendBubbleTea = "bubbletea"
	BackendHuh       = "huh"
	BackendTView     = "tview"
	BackendPlain     = "plain"
)

// NormalizeBackend maps arbitrary user input to a known backend name.
// Unknown values degrade to auto rather than erroring, so a typo in the
// config never blocks a run.
func NormalizeBackend(backend string) string {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendBubbleTea:
		return BackendBubbleTea
	case BackendHuh:
		return BackendHuh
	case BackendTView:
		return BackendTView
	case BackendPlain:
		return BackendPlain
	default:
		return BackendAuto
	}
}

func IsInteractiveBackend(backend string) bool {
	return NormalizeBackend(backend) != BackendPlain
}

// backendCandidates orders the backends to try: the requested one
// first, then the rest as fallbacks. Auto leads with huh, the default
// in a fresh config.
func backendCandidates(backend string) []string {
	switch NormalizeBackend(backend) {
	case BackendBubbleTea:
		return []string{BackendBubbleTea, BackendHuh, BackendTView}
	case BackendHuh:
		return []string{BackendHuh, BackendBubbleTea, BackendTView}
	case BackendTView:
		return []string{BackendTView, BackendHuh, BackendBubbleTea}
	case BackendPlain:
		return []string{BackendPlain}
	default:
		return []string{BackendHuh, BackendBubbleTea, BackendTView}
	}
}
