// Package safety scrubs credentials from text that leaves the process:
// log lines, attempt history shown on screen, and failure context fed
// back to the reasoning service.
package safety

import "regexp"

type scrubRule struct {
	pattern     *regexp.Regexp
	replacement string
}

var scrubRules = []scrubRule{
	{
		pattern:     regexp.MustCompile(`(?i)\b([a-z0-9_]*(?:key|token|secret|password)[a-z0-9_]*)\s*=\s*([^\s"']+|"[^"]*"|'[^']*')`),
		replacement: `$1=<redacted>`,
	},
	{
		pattern:     regexp.MustCompile(`(?i)\b(authorization\s*:\s*bearer)\s+([^\s"']+)`),
		replacement: `$1 <redacted>`,
	},
	{
		pattern:     regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{8,}`),
		replacement: `<redacted>`,
	},
	{
		pattern:     regexp.MustCompile(`(?i)(--(?:api-?key|token|password)[a-z0-9_-]*)(=|\s+)([^\s"']+|"[^"]*"|'[^']*')`),
		replacement: `$1$2<redacted>`,
	},
}

// Scrub replaces anything that looks like a credential with a redaction
// marker. Applied before stderr or command text is logged, rendered, or
// sent to a provider.
func Scrub(input string) string {
	scrubbed := input
	for _, rule := range scrubRules {
		scrubbed = rule.pattern.ReplaceAllString(scrubbed, rule.replacement)
	}
	return scrubbed
}
