package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-site/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves the answer prompts from editable files in a directory.
// The directory and default files are written on the first Load, never by
// the constructor. Missing or broken files fall back to the built-in text.
type PromptStore struct {
	dir string

	setup    sync.Once
	setupErr error

	mu     sync.Mutex
	loaded map[string]string
}

//nolint:lll // prompt text is not wrapped
var defaultPrompts = map[string]string{
	driven.PromptAnswerSystem: `You answer questions about one website using only the numbered context passages you are given.

Rules:
1. Answer in the language of the question.
2. Use only facts stated in the context. If the context does not contain the answer, say so plainly.
3. Mention the page title when you rely on a passage, and include its URL.
4. Keep the answer short: a few sentences or a brief list.
5. Never invent dates, prices, names or links.`,

	driven.PromptAnswerUser: `Context:
%s

Question: %s

Answer:`,
}

// placeholders is how many %s verbs each prompt must keep.
var placeholders = map[string]int{
	driven.PromptAnswerSystem: 0,
	driven.PromptAnswerUser:   2,
}

const promptsReadme = "# Answer prompts\n\n" +
	"These files drive answer generation. Edit them to change tone, language\n" +
	"or citation style.\n\n" +
	"- `answer_system.txt`: system prompt for every answer\n" +
	"- `answer_user.txt`: frames the retrieved context and the question\n\n" +
	"`answer_user.txt` must keep exactly two `%s` placeholders: the context\n" +
	"first, then the question. A file that loses them is ignored and the\n" +
	"built-in prompt is used instead.\n\n" +
	"Changes apply to the next command, or after restarting `serve`.\n"

// NewPromptStore uses dir, or ~/.sercha-site/prompts when dir is empty.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		base, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("prompt directory: %w", err)
		}
		dir = filepath.Join(base, "prompts")
	}
	return &PromptStore{dir: dir, loaded: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the named prompt. Unknown names are an error.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := defaultPrompts[name]
	if !known {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	s.setup.Do(func() { s.setupErr = s.writeDefaults() })
	if s.setupErr != nil {
		return fallback, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prompt, ok := s.loaded[name]; ok {
		return prompt, nil
	}

	prompt, err := s.read(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Using built-in %s prompt: %v", name, err)
		}
		prompt = fallback
	}
	s.loaded[name] = prompt
	return prompt, nil
}

// Reload forgets loaded prompts so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = make(map[string]string)
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("file is empty")
	}
	if want := placeholders[name]; strings.Count(prompt, "%s") != want {
		return "", fmt.Errorf("want %d %%s placeholders", want)
	}
	return prompt, nil
}

// writeDefaults creates the directory and any missing prompt files.
// Existing files are never overwritten.
func (s *PromptStore) writeDefaults() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	files := map[string]string{"README.md": promptsReadme}
	for name, content := range defaultPrompts {
		files[name+".txt"] = content + "\n"
	}
	for file, content := range files {
		path := filepath.Join(s.dir, file)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", file, err)
		}
	}
	return nil
}
