// Package prompts loads the prompt templates for the three investigation
// stages.
//
// Templates live as plain text files in a prompts folder; when the folder
// or an individual file is absent, the embedded defaults are used instead.

package prompts

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

//go:embed defaults/*.txt
var defaultsFS embed.FS

// Logical prompt names.
const (
	BugSlayer         = "bug_slayer"
	AuditConsolidator = "audit_consolidator"
	FinalConsolidator = "final_consolidator"
)

// promptFiles maps logical names to their template filenames.
var promptFiles = map[string]string{
	BugSlayer:         "bug_slayer_prompt.txt",
	AuditConsolidator: "audit_consolidator_prompt.txt",
	FinalConsolidator: "final_consolidator_prompt.txt",
}

// Library holds the loaded prompt templates.
type Library struct {
	prompts map[string]string
}

// Load reads all templates from folder, falling back to the embedded
// default for any template the folder does not provide. An empty template
// file is an error.
func Load(folder string, logger *zap.Logger) (*Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	lib := &Library{prompts: make(map[string]string, len(promptFiles))}
	for name, filename := range promptFiles {
		path := filepath.Join(folder, filename)
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("loading prompt file %s: %w", path, err)
			}
			fallback, err := defaultsFS.ReadFile("defaults/" + filename)
			if err != nil {
				return nil, fmt.Errorf("no embedded default for prompt %q: %w", name, err)
			}
			logger.Info("using embedded default prompt", zap.String("prompt", name))
			lib.prompts[name] = strings.TrimSpace(string(fallback))
			continue
		}

		content := strings.TrimSpace(string(data))
		if content == "" {
			return nil, fmt.Errorf("prompt file is empty: %s", path)
		}
		logger.Info("loaded prompt", zap.String("prompt", name), zap.String("path", path))
		lib.prompts[name] = content
	}

	return lib, nil
}

// Get returns a template by logical name.
func (l *Library) Get(name string) (string, error) {
	prompt, ok := l.prompts[name]
	if !ok {
		return "", fmt.Errorf("prompt %q not found", name)
	}
	return prompt, nil
}
