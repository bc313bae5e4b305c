package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads model prompts from user-editable files on disk,
// with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when
// first accessed, not in the constructor. This makes testing easier
// and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompt headers. The data
// section (numbered pairs or notes) is always appended by the gateway
// regardless of customisation.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptScorePairs: `You are rating how strongly pairs of personal knowledge notes relate to each other.
For each numbered pair below, rate the relevance from 0 (unrelated) to 10 (essentially about the same subject).
Judge by subject matter, not writing style. The cosine similarity is a hint, not the answer.
Respond with a JSON array only, one object per pair, in this exact shape:
[{"pair": 1, "score": 7, "reasoning": "one short sentence"}]`,

	driven.PromptSuggestTags: `You are suggesting topic tags for personal knowledge notes.
For each numbered note below, propose concise lowercase tags (single words or hyphenated phrases).
Prefer refining the note's existing tags over replacing them wholesale.
Respond with a JSON array only, one object per note, in this exact shape:
[{"note": 1, "tags": ["tag-one", "tag-two"]}]`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.relink/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".relink", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default
// files. Returns cached value if available, otherwise loads from file.
// Falls back to the embedded default if the file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Relink Prompts

This directory contains customisable prompts used when scoring note
pairs and suggesting tags.

## Files

- ` + "`score_pairs.txt`" + ` - Instruction header for pair relevance rating
- ` + "`suggest_tags.txt`" + ` - Instruction header for tag suggestions

## Customisation

Edit any file to customise model behaviour. Changes take effect on the
next run. Each prompt is an instruction header; the numbered note data
is appended automatically. Customised prompts must keep instructing
the model to answer with the same JSON shape as the default.
`
	return os.WriteFile(path, []byte(content), 0600)
}
