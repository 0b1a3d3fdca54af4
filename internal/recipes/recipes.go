// Package recipes remembers which commands actually worked for which
// requests. A strong match is offered to the composer as a hint, so a
// repeat of last week's "make this smaller" lands on the same shape of
// command without burning retries.
package recipes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/billybjork/pixel-toaster/internal/appdirs"
)

const storeFileName = "recipes.json"

const maxEntries = 200

type Entry struct {
	Prompt     string `json:"prompt"`
	Command    string `json:"command"`
	Dir        string `json:"dir,omitempty"`
	Uses       int    `json:"uses"`
	LastUsedAt string `json:"last_used_at"`
}

type Store struct {
	Entries []Entry `json:"entries"`
}

// Load reads the store from the state dir. A missing file is an empty
// store, not an error.
func Load() (Store, string, error) {
	path, err := appdirs.StateFilePath(storeFileName)
	if err != nil {
		return Store{}, "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Store{}, path, nil
	}
	if err != nil {
		return Store{}, "", fmt.Errorf("could not read recipe store: %w", err)
	}
	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return Store{}, "", fmt.Errorf("could not parse recipe store: %w", err)
	}
	store.normalize()
	return store, path, nil
}

// Save writes atomically with owner-only permissions, same as the
// config file.
func Save(path string, store Store) error {
	store.normalize()
	payload, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode recipe store: %w", err)
	}
	if _, err := appdirs.EnsureStateDir(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tempFile, err := os.CreateTemp(dir, ".toast-recipes-*.json")
	if err != nil {
		return fmt.Errorf("could not create temp recipe file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := func() {
		_ = os.Remove(tempPath)
	}
	if _, err := tempFile.Write(payload); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not write temp recipe file: %w", err)
	}
	if err := tempFile.Chmod(0o600); err != nil {
		_ = tempFile.Close()
		cleanup()
		return fmt.Errorf("could not secure temp recipe file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return fmt.Errorf("could not close temp recipe file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		cleanup()
		return fmt.Errorf("could not replace recipe store: %w", err)
	}
	return nil
}

// Record notes a successful run. Repeats of the same prompt and command
// bump the use count instead of adding a duplicate.
func (s *Store) Record(promptText, command, dir string) {
	promptText = strings.TrimSpace(promptText)
	command = strings.TrimSpace(command)
	if promptText == "" || command == "" {
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if idx := s.entryIndex(promptText, command); idx >= 0 {
		s.Entries[idx].Uses++
		s.Entries[idx].LastUsedAt = now
		s.Entries[idx].Dir = dir
		s.normalize()
		return
	}

	s.Entries = append(s.Entries, Entry{
		Prompt:     promptText,
		Command:    command,
		Dir:        dir,
		Uses:       1,
		LastUsedAt: now,
	})
	s.normalize()
}

// Best returns the strongest past recipe for a prompt, if any scores
// above the match threshold.
func (s Store) Best(promptText, dir string) (Entry, bool) {
	qn := normalize(promptText)
	if qn == "" {
		return Entry{}, false
	}
	qTokens := splitTokens(qn)

	best := Entry{}
	bestScore := 0.0
	for _, entry := range s.Entries {
		en := normalize(entry.Prompt)
		if en == "" {
			continue
		}
		score := similarityScore(qn, qTokens, en)
		if score <= 0 {
			continue
		}
		if entry.Dir != "" && entry.Dir == dir {
			score += 4
		}
		score += float64(entry.Uses)
		if score > bestScore {
			best = entry
			bestScore = score
		}
	}

	const threshold = 10
	if bestScore < threshold {
		return Entry{}, false
	}
	return best, true
}

func (s *Store) entryIndex(promptText, command string) int {
	qn := normalize(promptText)
	cn := normalize(command)
	for idx, entry := range s.Entries {
		if normalize(entry.Prompt) == qn && normalize(entry.Command) == cn {
			return idx
		}
	}
	return -1
}

func (s *Store) normalize() {
	sort.SliceStable(s.Entries, func(i, j int) bool {
		if s.Entries[i].Uses == s.Entries[j].Uses {
			return s.Entries[i].LastUsedAt > s.Entries[j].LastUsedAt
		}
		return s.Entries[i].Uses > s.Entries[j].Uses
	})
	if len(s.Entries) > maxEntries {
		s.Entries = s.Entries[:maxEntries]
	}
}

func normalize(input string) string {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	for strings.Contains(trimmed, "  ") {
		trimmed = strings.ReplaceAll(trimmed, "  ", " ")
	}
	return trimmed
}

func splitTokens(input string) []string {
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '-' || r == '_' || r == ':' || r == '/'
	})
	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, part := range parts {
		token := strings.TrimSpace(part)
		if len(token) < 2 {
			continue
		}
		if _, exists := seen[token]; exists {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

func similarityScore(query string, qTokens []string, candidate string) float64 {
	if query == candidate {
		return 24
	}
	score := 0.0
	if strings.Contains(candidate, query) {
		score += 10
	}
	if strings.Contains(query, candidate) {
		score += 8
	}
	cTokens := splitTokens(candidate)
	if len(qTokens) > 0 && len(cTokens) > 0 {
		cSet := map[string]struct{}{}
		for _, token := range cTokens {
			cSet[token] = struct{}{}
		}
		shared := 0
		for _, token := range qTokens {
			if _, ok := cSet[token]; ok {
				shared++
			}
		}
		if shared > 0 {
			score += float64(shared) * 3.2
			coverage := float64(shared) / float64(len(qTokens))
			score += coverage * 5
		}
	}
	return score
}
