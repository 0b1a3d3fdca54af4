package recipes

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestRecordDeduplicates(t *testing.T) {
	var store Store
	store.Record("convert clip.mp4 to gif", "ffmpeg -y -i clip.mp4 clip_toasted.gif", "/work")
	store.Record("convert clip.mp4 to gif", "ffmpeg -y -i clip.mp4 clip_toasted.gif", "/work")

	if len(store.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(store.Entries))
	}
	if store.Entries[0].Uses != 2 {
		t.Fatalf("uses = %d, want 2", store.Entries[0].Uses)
	}
}

func TestRecordIgnoresEmpty(t *testing.T) {
	var store Store
	store.Record("", "ffmpeg -i a b", "/work")
	store.Record("do something", "", "/work")
	if len(store.Entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(store.Entries))
	}
}

func TestBestExactMatch(t *testing.T) {
	var store Store
	store.Record("convert clip.mp4 to gif", "ffmpeg -y -i clip.mp4 clip_toasted.gif", "/work")

	entry, ok := store.Best("convert clip.mp4 to gif", "/work")
	if !ok {
		t.Fatal("expected a match")
	}
	if entry.Command != "ffmpeg -y -i clip.mp4 clip_toasted.gif" {
		t.Fatalf("command = %q", entry.Command)
	}
}

func TestBestSimilarPromptMatches(t *testing.T) {
	var store Store
	store.Record("compress all the videos in this folder", "for f in *.mp4; do ffmpeg -y -i \"$f\" -crf 28 \"${f%.*}_toasted.mp4\"; done", "/work")

	if _, ok := store.Best("compress all videos in this folder", "/work"); !ok {
		t.Fatal("expected similar prompt to match")
	}
}

func TestBestUnrelatedPromptMisses(t *testing.T) {
	var store Store
	store.Record("convert clip.mp4 to gif", "ffmpeg -y -i clip.mp4 clip_toasted.gif", "/work")

	if _, ok := store.Best("trim intro.mov by ten seconds", "/other"); ok {
		t.Fatal("unrelated prompt should not match")
	}
}

func TestNormalizeCapsAndSorts(t *testing.T) {
	var store Store
	for i := 0; i < maxEntries+20; i++ {
		store.Entries = append(store.Entries, Entry{
			Prompt:  "p" + string(rune('a'+i%26)) + "x" + string(rune('a'+i/26)),
			Command: "c",
			Uses:    i % 7,
		})
	}
	store.normalize()
	if len(store.Entries) != maxEntries {
		t.Fatalf("entries = %d, want %d", len(store.Entries), maxEntries)
	}
	for i := 1; i < len(store.Entries); i++ {
		if store.Entries[i].Uses > store.Entries[i-1].Uses {
			t.Fatal("entries not sorted by uses")
		}
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recipes.json")

	var store Store
	store.Record("convert clip.mp4 to gif", "ffmpeg -y -i clip.mp4 clip_toasted.gif", "/work")

	if err := Save(path, store); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("permissions = %o, want 600", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var loaded Store
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(loaded.Entries) != 1 || loaded.Entries[0].Prompt != "convert clip.mp4 to gif" {
		t.Fatalf("loaded = %+v", loaded)
	}
}
