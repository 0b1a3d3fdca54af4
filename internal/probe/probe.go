package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Kind classifies a media file by its extension.
type Kind string

const (
	KindVideo   Kind = "video"
	KindImage   Kind = "image"
	KindAudio   Kind = "audio"
	KindUnknown Kind = "unknown"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".mkv": {}, ".avi": {}, ".webm": {},
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".bmp": {}, ".tiff": {}, ".heic": {}, ".gif": {}, ".webp": {},
}

var audioExtensions = map[string]struct{}{
	".mp3": {}, ".wav": {}, ".aac": {}, ".flac": {}, ".ogg": {}, ".m4a": {},
}

// FileDescriptor is one detected media file.
type FileDescriptor struct {
	Path string
	Kind Kind
}

// Context is the immutable environment snapshot taken once per session.
type Context struct {
	OS           string
	Arch         string
	Shell        string
	ToolPath     string
	ToolVersion  string
	WorkDir      string
	Files        []FileDescriptor
	Prompt       string
	ExplicitFile string
}

// ExplicitOverride reports whether the detected-file set was pinned to a
// single user-specified file instead of a directory scan.
func (c Context) ExplicitOverride() bool {
	return strings.TrimSpace(c.ExplicitFile) != ""
}

// FilesOfKind returns the detected files matching kind, preserving scan order.
func (c Context) FilesOfKind(kind Kind) []FileDescriptor {
	out := make([]FileDescriptor, 0, len(c.Files))
	for _, file := range c.Files {
		if file.Kind == kind {
			out = append(out, file)
		}
	}
	return out
}

type Options struct {
	Dir          string
	Prompt       string
	ExplicitFile string
}

// ToolNotFoundError is the fatal precondition failure: without ffmpeg
// there is nothing to generate commands for, so it is surfaced before
// any provider round trip is spent.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s executable not found in PATH", e.Tool)
}

// Test seams.
var (
	lookPath        = exec.LookPath
	runVersionProbe = toolVersionOutput
)

const toolName = "ffmpeg"

// Probe gathers the execution context. An explicit file fully shadows
// the directory scan so the batch heuristic never sees ambient files.
func Probe(ctx context.Context, opts Options) (Context, error) {
	dir := opts.Dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Context{}, fmt.Errorf("could not determine working directory: %w", err)
		}
		dir = cwd
	}

	toolPath, err := lookPath(toolName)
	if err != nil {
		return Context{}, &ToolNotFoundError{Tool: toolName}
	}

	snapshot := Context{
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		Shell:       detectShell(),
		ToolPath:    toolPath,
		ToolVersion: runVersionProbe(ctx, toolPath),
		WorkDir:     dir,
		Prompt:      strings.TrimSpace(opts.Prompt),
	}

	// A file named via the flag must exist; a filename pulled out of the
	// prompt may be the desired output ("create output.gif from the
	// video"), so a missing one falls back to the directory scan.
	if flagged := strings.TrimSpace(opts.ExplicitFile); flagged != "" {
		resolved := resolveIn(dir, flagged)
		if _, statErr := os.Stat(resolved); statErr != nil {
			return Context{}, fmt.Errorf("input file not found: %s", resolved)
		}
		return pinned(snapshot, resolved), nil
	}

	if mentioned := ExtractExplicitFilename(snapshot.Prompt, dir); mentioned != "" {
		resolved := resolveIn(dir, mentioned)
		if _, statErr := os.Stat(resolved); statErr == nil {
			return pinned(snapshot, resolved), nil
		}
	}

	snapshot.Files = scanDir(dir)
	return snapshot, nil
}

func resolveIn(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// pinned shadows the directory scan with the single named file.
func pinned(snapshot Context, path string) Context {
	snapshot.ExplicitFile = path
	snapshot.Files = []FileDescriptor{{Path: path, Kind: KindForPath(path)}}
	return snapshot
}

// KindForPath infers the media kind from the extension, case-insensitively.
func KindForPath(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo
	}
	if _, ok := imageExtensions[ext]; ok {
		return KindImage
	}
	if _, ok := audioExtensions[ext]; ok {
		return KindAudio
	}
	return KindUnknown
}

// KindHint maps prompt wording to the media kind the user most likely
// means. Video keywords win over image keywords because "make a gif
// from the video" style prompts mention both.
func KindHint(prompt string) Kind {
	low := strings.ToLower(prompt)
	if containsWord(low, "video", "videos", "mp4", "mp4s", "mov", "mkv", "avi", "webm", "clip", "clips") {
		return KindVideo
	}
	if containsWord(low, "audio", "mp3", "mp3s", "wav", "aac", "flac", "song", "songs", "track", "tracks") {
		return KindAudio
	}
	if containsWord(low, "image", "images", "photo", "photos", "picture", "pictures", "png", "pngs", "jpg", "jpgs", "jpeg", "jpegs", "heic") {
		return KindImage
	}
	return KindUnknown
}

// ExtractExplicitFilename finds a filename mentioned in the prompt.
// A token with a known media extension wins; otherwise prompt tokens
// are matched against basenames of files in dir, ignoring case and
// spacing, so "toast escape v2" finds "ESCAPE V2.mp4".
func ExtractExplicitFilename(prompt, dir string) string {
	for _, token := range strings.Fields(prompt) {
		cleaned := strings.Trim(token, `"'.,;:!?()[]{}`)
		if cleaned == "" {
			continue
		}
		if KindForPath(cleaned) != KindUnknown {
			return cleaned
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	normalizedPrompt := normalizeToken(prompt)
	if normalizedPrompt == "" {
		return ""
	}
	candidates := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if KindForPath(name) == KindUnknown {
			continue
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		normalizedBase := normalizeToken(base)
		if normalizedBase == "" || len(normalizedBase) < 5 {
			continue
		}
		if strings.Contains(normalizedPrompt, normalizedBase) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	return candidates[0]
}

func scanDir(dir string) []FileDescriptor {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	files := make([]FileDescriptor, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind := KindForPath(entry.Name())
		if kind == KindUnknown {
			continue
		}
		files = append(files, FileDescriptor{
			Path: filepath.Join(dir, entry.Name()),
			Kind: kind,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

func detectShell() string {
	shell := strings.TrimSpace(os.Getenv("SHELL"))
	if shell != "" {
		return filepath.Base(shell)
	}
	if runtime.GOOS == "windows" {
		comspec := strings.TrimSpace(os.Getenv("COMSPEC"))
		if comspec != "" {
			return filepath.Base(comspec)
		}
		return "cmd.exe"
	}
	for _, candidate := range []string{"bash", "zsh", "sh"} {
		if _, err := lookPath(candidate); err == nil {
			return candidate
		}
	}
	return "sh"
}

// toolVersionOutput captures the first line of `ffmpeg -version`.
// ffmpeg sometimes writes the banner to stderr, so both streams are
// consulted. Failure degrades to "unknown" rather than aborting: the
// version string is prompt context, not a precondition.
func toolVersionOutput(ctx context.Context, toolPath string) string {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, toolPath, "-version")
	out, err := cmd.CombinedOutput()
	if err != nil && len(out) == 0 {
		return "unknown"
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return "unknown"
	}
	return strings.TrimSpace(lines[0])
}

func normalizeToken(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func containsWord(haystack string, words ...string) bool {
	tokens := map[string]struct{}{}
	for _, field := range strings.Fields(haystack) {
		tokens[strings.Trim(field, `"'.,;:!?()[]{}`)] = struct{}{}
	}
	for _, word := range words {
		if _, ok := tokens[word]; ok {
			return true
		}
	}
	return false
}
