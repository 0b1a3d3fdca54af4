package batch

import (
	"regexp"
	"strings"

	"github.com/billybjork/pixel-toaster/internal/config"
	"github.com/billybjork/pixel-toaster/internal/probe"
)

// Classifier decides whether a request targets multiple files. The cue
// list and file threshold come from configuration; trigger phrases are
// a tunable heuristic, not a contract.
type Classifier struct {
	cues     []string
	minFiles int
}

func NewClassifier(cfg config.BatchConfig) Classifier {
	cues := cfg.Cues
	if len(cues) == 0 {
		cues = []string{"all", "every", "each", "batch"}
	}
	minFiles := cfg.MinFiles
	if minFiles < 2 {
		minFiles = 2
	}
	return Classifier{cues: cues, minFiles: minFiles}
}

// Match signals batch mode when the prompt carries batch language, the
// detected set holds enough files of the relevant kind, and no explicit
// single-file override pins the input.
func (c Classifier) Match(env probe.Context) bool {
	if env.ExplicitOverride() {
		return false
	}
	if !c.hasBatchLanguage(env.Prompt) {
		return false
	}
	return c.countRelevant(env) >= c.minFiles
}

func (c Classifier) hasBatchLanguage(promptText string) bool {
	low := strings.ToLower(promptText)
	tokens := tokenize(low)
	for _, cue := range c.cues {
		if _, ok := tokens[cue]; ok {
			return true
		}
	}
	return hasPluralKindMention(tokens)
}

// countRelevant counts files of the kind the prompt names; when the
// prompt gives no kind hint, any media file counts.
func (c Classifier) countRelevant(env probe.Context) int {
	hint := probe.KindHint(env.Prompt)
	if hint == probe.KindUnknown {
		return len(env.Files)
	}
	return len(env.FilesOfKind(hint))
}

// Plural mentions of a media kind or extension ("videos", "jpgs",
// "these photos") are batch cues even without "all"/"every".
var pluralKindMentions = map[string]struct{}{
	"videos": {}, "clips": {}, "movies": {},
	"images": {}, "photos": {}, "pictures": {},
	"songs": {}, "tracks": {}, "recordings": {},
	"files": {},
	"mp4s":  {}, "movs": {}, "mkvs": {}, "webms": {},
	"pngs": {}, "jpgs": {}, "jpegs": {}, "gifs": {}, "heics": {},
	"mp3s": {}, "wavs": {}, "flacs": {},
}

func hasPluralKindMention(tokens map[string]struct{}) bool {
	for token := range tokens {
		if _, ok := pluralKindMentions[token]; ok {
			return true
		}
	}
	return false
}

var iterationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bfor\s+\S+\s+in\b`),
	regexp.MustCompile(`\bwhile\s+.*;\s*do\b`),
	regexp.MustCompile(`\bfind\b.*\s-exec\b`),
	regexp.MustCompile(`\bxargs\b`),
	regexp.MustCompile(`\bparallel\b`),
}

// HasIteration reports whether the command already contains a
// recognizable iteration construct. A miss when batch mode was
// signaled is a quality concern for logging, not a rejection: there is
// no reliable structural rewrite to apply.
func HasIteration(command string) bool {
	for _, pattern := range iterationPatterns {
		if pattern.MatchString(command) {
			return true
		}
	}
	return false
}

func tokenize(text string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, field := range strings.Fields(text) {
		cleaned := strings.Trim(field, `"'.,;:!?()[]{}`)
		if cleaned != "" {
			tokens[cleaned] = struct{}{}
		}
	}
	return tokens
}
