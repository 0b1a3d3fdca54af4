package prompt

import (
	"strings"
	"testing"

	"github.com/billybjork/pixel-toaster/internal/config"
	"github.com/billybjork/pixel-toaster/internal/probe"
)

func testContext() probe.Context {
	return probe.Context{
		OS:          "linux",
		Arch:        "amd64",
		Shell:       "bash",
		ToolPath:    "/usr/bin/ffmpeg",
		ToolVersion: "ffmpeg version 6.1.1",
		WorkDir:     "/work",
		Prompt:      "convert input.jpg to webp",
		Files: []probe.FileDescriptor{
			{Path: "/work/input.jpg", Kind: probe.KindImage},
		},
	}
}

func newTestComposer() Composer {
	return NewComposer(config.SessionConfig{MaxPromptFiles: 15, MaxErrorContext: 100})
}

func TestComposeFirstAttemptCarriesEnvironmentAndContract(t *testing.T) {
	payload := newTestComposer().Compose(testContext(), false, nil)

	if payload.Retry {
		t.Fatalf("first attempt should not be marked as retry")
	}
	for _, want := range []string{"linux/amd64", "bash", "ffmpeg version 6.1.1", "/work", "input.jpg"} {
		if !strings.Contains(payload.System, want) {
			t.Fatalf("system text missing %q:\n%s", want, payload.System)
		}
	}
	if !strings.Contains(payload.System, "exactly one executable command") {
		t.Fatalf("system text missing single-command contract")
	}
	if payload.User != "convert input.jpg to webp" {
		t.Fatalf("unexpected user text: %q", payload.User)
	}
}

func TestComposeRetryIncludesPriorCommandAndStderr(t *testing.T) {
	prior := &AttemptSummary{
		Command: "ffmpeg -i input.jpg -vf badfilter out_toasted.webp -y",
		Stderr:  "No such filter: 'badfilter'",
	}
	payload := newTestComposer().Compose(testContext(), false, prior)

	if !payload.Retry {
		t.Fatalf("expected retry payload")
	}
	if !strings.Contains(payload.User, prior.Command) {
		t.Fatalf("retry payload missing prior command: %s", payload.User)
	}
	if !strings.Contains(payload.User, "No such filter: 'badfilter'") {
		t.Fatalf("retry payload missing exact stderr: %s", payload.User)
	}
	if !strings.Contains(payload.User, "corrected command") {
		t.Fatalf("retry payload missing correction instruction")
	}
}

func TestComposeRetryTruncatesLongStderr(t *testing.T) {
	prior := &AttemptSummary{
		Command: "ffmpeg -i a.mp4 out.mp4 -y",
		Stderr:  strings.Repeat("x", 5000),
	}
	payload := newTestComposer().Compose(testContext(), false, prior)

	if !strings.Contains(payload.User, "[truncated]") {
		t.Fatalf("expected truncation marker in retry payload")
	}
	if len(payload.User) > 1000 {
		t.Fatalf("retry payload grew unbounded: %d bytes", len(payload.User))
	}
}

func TestComposeBatchSignalChangesInstructions(t *testing.T) {
	payload := newTestComposer().Compose(testContext(), true, nil)
	if !payload.Batch {
		t.Fatalf("expected batch flag on payload")
	}
	if !strings.Contains(payload.System, "shell loop") {
		t.Fatalf("batch system text missing loop instruction")
	}

	single := newTestComposer().Compose(testContext(), false, nil)
	if strings.Contains(single.System, "BATCH REQUEST") {
		t.Fatalf("non-batch payload should not carry the batch instruction")
	}
}

func TestComposeCapsFileList(t *testing.T) {
	env := testContext()
	env.Files = nil
	for i := 0; i < 40; i++ {
		env.Files = append(env.Files, probe.FileDescriptor{
			Path: "/work/clip" + string(rune('a'+i%26)) + ".mp4",
			Kind: probe.KindVideo,
		})
	}
	composer := NewComposer(config.SessionConfig{MaxPromptFiles: 10, MaxErrorContext: 100})
	payload := composer.Compose(env, true, nil)

	if !strings.Contains(payload.System, "(and 30 more)") {
		t.Fatalf("expected overflow marker for capped file list:\n%s", payload.System)
	}
}

func TestComposeExplicitFileReplacesFileList(t *testing.T) {
	env := testContext()
	env.ExplicitFile = "/work/input.jpg"
	payload := newTestComposer().Compose(env, false, nil)
	if !strings.Contains(payload.System, "Use this exact path") {
		t.Fatalf("expected explicit-file instruction:\n%s", payload.System)
	}
}

func TestTargetSizeBytes(t *testing.T) {
	cases := []struct {
		prompt string
		want   int64
		ok     bool
	}{
		{"compress with max file size of 5mb", 5 * 1024 * 1024, true},
		{"max file size 500kb please", 500 * 1024, true},
		{"maximum file size of 1.5gb", int64(1.5 * 1024 * 1024 * 1024), true},
		{"just compress it", 0, false},
	}
	for _, tc := range cases {
		got, ok := TargetSizeBytes(tc.prompt)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("TargetSizeBytes(%q) = (%d, %v), want (%d, %v)", tc.prompt, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNeedsCompression(t *testing.T) {
	if !NeedsCompression("make this video smaller") {
		t.Fatalf("expected compression cue to match")
	}
	if NeedsCompression("convert to webm") {
		t.Fatalf("unexpected compression cue match")
	}
}

func TestCompressionCueAppendsInstruction(t *testing.T) {
	env := testContext()
	env.Prompt = "compress the video"
	payload := newTestComposer().Compose(env, false, nil)
	if !strings.Contains(payload.User, "compressed") {
		t.Fatalf("expected compression instruction in user text: %s", payload.User)
	}
}

func TestComposeWithHintIncludesPastCommand(t *testing.T) {
	hint := `ffmpeg -y -i input.jpg input_toasted.webp`
	payload := newTestComposer().WithHint(hint).Compose(testContext(), false, nil)
	if !strings.Contains(payload.System, hint) {
		t.Fatalf("system text missing hint:\n%s", payload.System)
	}

	bare := newTestComposer().Compose(testContext(), false, nil)
	if strings.Contains(bare.System, "previously succeeded") {
		t.Fatalf("hint section present without a hint:\n%s", bare.System)
	}
}
