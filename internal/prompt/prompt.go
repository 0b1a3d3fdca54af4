package prompt

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/billybjork/pixel-toaster/internal/config"
	"github.com/billybjork/pixel-toaster/internal/probe"
)

// AttemptSummary is the failure context carried into a retry payload.
type AttemptSummary struct {
	Command string
	Stderr  string
}

// Payload is the structured instruction handed to the reasoning service.
type Payload struct {
	System string
	User   string
	Batch  bool
	Retry  bool
}

type Composer struct {
	maxFiles        int
	maxErrorContext int
	hint            string
}

func NewComposer(cfg config.SessionConfig) Composer {
	maxFiles := cfg.MaxPromptFiles
	if maxFiles <= 0 {
		maxFiles = 15
	}
	maxErr := cfg.MaxErrorContext
	if maxErr <= 0 {
		maxErr = 2000
	}
	return Composer{maxFiles: maxFiles, maxErrorContext: maxErr}
}

// WithHint returns a composer that also offers a previously successful
// command as a starting point.
func (c Composer) WithHint(command string) Composer {
	c.hint = strings.TrimSpace(command)
	return c
}

// Compose builds the first-attempt payload, or a retry payload when a
// prior failed attempt is supplied. The retry payload instructs the
// service to correct the previous command rather than start over.
func (c Composer) Compose(env probe.Context, batch bool, prior *AttemptSummary) Payload {
	payload := Payload{
		System: c.systemText(env, batch),
		Batch:  batch,
	}

	var user strings.Builder
	user.WriteString(env.Prompt)

	if size, ok := TargetSizeBytes(env.Prompt); ok {
		fmt.Fprintf(&user, "\nEnsure the output file is no larger than %d bytes.", size)
	} else if NeedsCompression(env.Prompt) {
		user.WriteString("\nEnsure the output file is compressed, i.e. smaller than the input.")
	}

	if prior != nil {
		payload.Retry = true
		stderr := truncate(prior.Stderr, c.maxErrorContext)
		fmt.Fprintf(&user,
			"\n\nThe previous command failed.\nCommand: %s\nError output:\n%s\nProduce a corrected command for the same request. Fix the specific failure instead of starting over conceptually.",
			prior.Command, stderr)
	}

	payload.User = user.String()
	return payload
}

func (c Composer) systemText(env probe.Context, batch bool) string {
	var b strings.Builder
	b.WriteString("You translate natural-language media-editing requests into shell commands that invoke ffmpeg.\n\n")
	b.WriteString("OUTPUT CONTRACT:\n")
	b.WriteString("- Reply with exactly one executable command line, or one shell loop construct. Nothing else.\n")
	b.WriteString("- No prose, no explanations, no markdown fences, no leading shell prompt markers.\n")
	b.WriteString("- Always include the -y flag so ffmpeg overwrites outputs without prompting.\n")
	b.WriteString("- Name output files by appending _toasted before the extension, e.g. clip.mp4 -> clip_toasted.mp4.\n")
	b.WriteString("- For trimming by duration, prefer -ss/-t input-output options over -vf trim filters.\n")
	b.WriteString("- Quote every file path.\n")

	if batch {
		b.WriteString("\nBATCH REQUEST: this request targets multiple files. Emit one shell loop over the matching files for the shell named below. Guard against empty glob matches (e.g. shopt -s nullglob for bash). Do not emit a command for only the first file.\n")
	} else {
		b.WriteString("\nThis request targets a single input file. Emit a single ffmpeg invocation, not a loop.\n")
	}

	b.WriteString("\nENVIRONMENT:\n")
	fmt.Fprintf(&b, "- OS: %s/%s\n", env.OS, env.Arch)
	fmt.Fprintf(&b, "- Shell: %s\n", env.Shell)
	fmt.Fprintf(&b, "- ffmpeg: %s (at %s)\n", env.ToolVersion, env.ToolPath)
	fmt.Fprintf(&b, "- Working directory: %s\n", env.WorkDir)

	b.WriteString(c.fileContext(env))

	if c.hint != "" {
		fmt.Fprintf(&b, "\nA similar request previously succeeded with:\n%s\nPrefer this shape if it still fits the request and the files above.\n", c.hint)
	}
	return b.String()
}

func (c Composer) fileContext(env probe.Context) string {
	if env.ExplicitOverride() {
		return fmt.Sprintf("\nINPUT FILE:\n- The user specified %q. Use this exact path as the input.\n", env.ExplicitFile)
	}
	if len(env.Files) == 0 {
		return "\nINPUT FILE:\n- No media files were detected in the working directory. If the request names a file, use that name as given.\n"
	}

	var b strings.Builder
	b.WriteString("\nDETECTED FILES:\n")
	shown := env.Files
	if len(shown) > c.maxFiles {
		shown = shown[:c.maxFiles]
	}
	for _, file := range shown {
		fmt.Fprintf(&b, "- %s (%s)\n", relativeTo(env.WorkDir, file.Path), file.Kind)
	}
	if extra := len(env.Files) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "- (and %d more)\n", extra)
	}
	return b.String()
}

var targetSizePattern = regexp.MustCompile(`(?i)max(?:imum)? file size(?: of)?\s*(\d+(?:\.\d+)?)\s*(kb|mb|gb)`)

// TargetSizeBytes extracts an explicit output size budget from the
// prompt, e.g. "max file size of 5mb" -> 5242880.
func TargetSizeBytes(prompt string) (int64, bool) {
	match := targetSizePattern.FindStringSubmatch(prompt)
	if match == nil {
		return 0, false
	}
	var size float64
	if _, err := fmt.Sscanf(match[1], "%f", &size); err != nil {
		return 0, false
	}
	switch strings.ToLower(match[2]) {
	case "kb":
		return int64(size * 1024), true
	case "mb":
		return int64(size * 1024 * 1024), true
	case "gb":
		return int64(size * 1024 * 1024 * 1024), true
	}
	return 0, false
}

// NeedsCompression reports whether the prompt asks for size reduction
// without naming an explicit budget.
func NeedsCompression(prompt string) bool {
	low := strings.ToLower(prompt)
	for _, trigger := range []string{"compress", "smaller", "reduce", "minimize", "shrink"} {
		if strings.Contains(low, trigger) {
			return true
		}
	}
	return false
}

func truncate(text string, max int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= max {
		return trimmed
	}
	return trimmed[:max] + "\n[truncated]"
}

func relativeTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
