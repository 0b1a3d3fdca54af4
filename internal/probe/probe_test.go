package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func stubTool(t *testing.T) {
	t.Helper()
	previousLook := lookPath
	previousProbe := runVersionProbe
	lookPath = func(name string) (string, error) {
		return "/usr/bin/" + name, nil
	}
	runVersionProbe = func(_ context.Context, _ string) string {
		return "ffmpeg version 6.1.1"
	}
	t.Cleanup(func() {
		lookPath = previousLook
		runVersionProbe = previousProbe
	})
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("could not create %s: %v", name, err)
		}
	}
}

func TestKindForPathClassifiesCaseInsensitively(t *testing.T) {
	cases := []struct {
		path string
		want Kind
	}{
		{"clip.mp4", KindVideo},
		{"CLIP.MOV", KindVideo},
		{"photo.JPG", KindImage},
		{"scan.heic", KindImage},
		{"voice.flac", KindAudio},
		{"notes.txt", KindUnknown},
		{"archive.tar.gz", KindUnknown},
	}
	for _, tc := range cases {
		if got := KindForPath(tc.path); got != tc.want {
			t.Fatalf("KindForPath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestProbeFailsFastWhenToolMissing(t *testing.T) {
	previous := lookPath
	lookPath = func(string) (string, error) {
		return "", fmt.Errorf("not found")
	}
	t.Cleanup(func() { lookPath = previous })

	_, err := Probe(context.Background(), Options{Dir: t.TempDir()})
	var toolErr *ToolNotFoundError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolNotFoundError, got %v", err)
	}
}

func TestProbeScansDirectoryAndSkipsUnknownKinds(t *testing.T) {
	stubTool(t)
	dir := t.TempDir()
	writeFiles(t, dir, "a.mp4", "b.jpg", "c.txt", "d.flac")

	snapshot, err := Probe(context.Background(), Options{Dir: dir, Prompt: "compress things"})
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if len(snapshot.Files) != 3 {
		t.Fatalf("expected 3 media files, got %d (%v)", len(snapshot.Files), snapshot.Files)
	}
	for _, file := range snapshot.Files {
		if file.Kind == KindUnknown {
			t.Fatalf("unknown-kind file leaked into the detected set: %v", file)
		}
	}
	if snapshot.ToolVersion != "ffmpeg version 6.1.1" {
		t.Fatalf("unexpected tool version: %q", snapshot.ToolVersion)
	}
}

func TestProbeExplicitFileShadowsDirectoryScan(t *testing.T) {
	stubTool(t)
	dir := t.TempDir()
	writeFiles(t, dir, "one.mp4", "two.mp4", "three.mp4")

	snapshot, err := Probe(context.Background(), Options{
		Dir:          dir,
		Prompt:       "convert all videos",
		ExplicitFile: "two.mp4",
	})
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if !snapshot.ExplicitOverride() {
		t.Fatalf("expected explicit override to be set")
	}
	if len(snapshot.Files) != 1 {
		t.Fatalf("expected exactly one detected file, got %d", len(snapshot.Files))
	}
	if filepath.Base(snapshot.Files[0].Path) != "two.mp4" {
		t.Fatalf("expected two.mp4, got %s", snapshot.Files[0].Path)
	}
}

func TestProbeExplicitFileMustExist(t *testing.T) {
	stubTool(t)
	dir := t.TempDir()

	_, err := Probe(context.Background(), Options{Dir: dir, ExplicitFile: "ghost.mp4"})
	if err == nil {
		t.Fatalf("expected error for missing explicit file")
	}
}

func TestProbeFallsBackToScanForMissingPromptFilename(t *testing.T) {
	stubTool(t)
	dir := t.TempDir()
	writeFiles(t, dir, "clip.mp4")

	snapshot, err := Probe(context.Background(), Options{
		Dir:    dir,
		Prompt: "create output.gif from the video",
	})
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if snapshot.ExplicitOverride() {
		t.Fatalf("output filename must not pin the input: %q", snapshot.ExplicitFile)
	}
	if len(snapshot.Files) != 1 || filepath.Base(snapshot.Files[0].Path) != "clip.mp4" {
		t.Fatalf("expected the scan to find clip.mp4, got %+v", snapshot.Files)
	}
}

func TestProbePromptFilenamePinsWhenPresent(t *testing.T) {
	stubTool(t)
	dir := t.TempDir()
	writeFiles(t, dir, "clip.mp4", "other.mp4")

	snapshot, err := Probe(context.Background(), Options{
		Dir:    dir,
		Prompt: "make a gif out of clip.mp4",
	})
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if !snapshot.ExplicitOverride() {
		t.Fatalf("expected prompt-named existing file to pin the input")
	}
	if len(snapshot.Files) != 1 || filepath.Base(snapshot.Files[0].Path) != "clip.mp4" {
		t.Fatalf("expected clip.mp4 only, got %+v", snapshot.Files)
	}
}

func TestExtractExplicitFilenameFromPromptToken(t *testing.T) {
	got := ExtractExplicitFilename("convert input.jpg to webp", t.TempDir())
	if got != "input.jpg" {
		t.Fatalf("expected input.jpg, got %q", got)
	}
}

func TestExtractExplicitFilenameMatchesBasenameLoosely(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "ESCAPE V2.mp4", "other.mp4")

	got := ExtractExplicitFilename("trim escape v2 to ten seconds", dir)
	if got != "ESCAPE V2.mp4" {
		t.Fatalf("expected ESCAPE V2.mp4, got %q", got)
	}
}

func TestKindHint(t *testing.T) {
	cases := []struct {
		prompt string
		want   Kind
	}{
		{"convert all videos to webm", KindVideo},
		{"shrink these photos", KindImage},
		{"normalize the audio", KindAudio},
		{"make a gif from the video", KindVideo},
		{"do something", KindUnknown},
	}
	for _, tc := range cases {
		if got := KindHint(tc.prompt); got != tc.want {
			t.Fatalf("KindHint(%q) = %v, want %v", tc.prompt, got, tc.want)
		}
	}
}

func TestFilesOfKind(t *testing.T) {
	snapshot := Context{Files: []FileDescriptor{
		{Path: "a.mp4", Kind: KindVideo},
		{Path: "b.jpg", Kind: KindImage},
		{Path: "c.mp4", Kind: KindVideo},
	}}
	videos := snapshot.FilesOfKind(KindVideo)
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(videos))
	}
}
