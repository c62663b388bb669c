// Package codebase scans, reads, combines, and writes the source files
// under investigation.
//
// Information Hiding:
// - Directory walking and skip rules hidden
// - Lossy decoding fallback for non-UTF-8 files hidden
// - Section header wire format shared with the chunker via SectionHeader
//   and SectionHeaderRe

package codebase

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// SectionHeaderRe matches the header line Combine emits before each file.
// The chunker splits combined content on this exact pattern, so Combine and
// the chunker must always agree on it. Change one, change both.
var SectionHeaderRe = regexp.MustCompile(`\n# ===== .+ =====\n`)

// SectionHeader returns the header line for a file's relative path, in the
// exact format SectionHeaderRe matches.
func SectionHeader(relPath string) string {
	return fmt.Sprintf("\n# ===== %s =====\n", relPath)
}

// skipDirs are directory names excluded from scanning. Dot-prefixed
// directories are always skipped.
var skipDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"build":        true,
	"dist":         true,
	"target":       true,
	"bin":          true,
	"obj":          true,
}

// Manager handles file I/O for the investigation workflow.
type Manager struct {
	logger *zap.Logger
}

// NewManager creates a file manager. A nil logger disables logging.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{logger: logger}
}

// Scan walks folder recursively and returns the sorted paths of all files
// whose extension appears in extensions (case-insensitive, dot included).
// Build-artifact and dot-prefixed directories are skipped.
func (m *Manager) Scan(folder string, extensions []string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("codebase folder not found: %s", folder)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("codebase path is not a directory: %s", folder)
	}

	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted[strings.ToLower(ext)] = true
	}

	var found []string
	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != folder && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if wanted[strings.ToLower(filepath.Ext(path))] {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", folder, err)
	}

	sort.Strings(found)
	return found, nil
}

// Combine reads every path and concatenates the contents into one blob,
// each file preceded by its section header plus path and size lines. A file
// that cannot be read is recorded with an inline error marker; the combine
// never fails on a single unreadable file.
func (m *Manager) Combine(folder string, paths []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# CODEBASE ANALYSIS - %d files from %s\n", len(paths), folder)

	for _, path := range paths {
		relPath, err := filepath.Rel(folder, path)
		if err != nil {
			relPath = path
		}
		content, err := m.ReadFile(path)
		if err != nil {
			m.logger.Warn("could not read file, recording error marker",
				zap.String("path", path), zap.Error(err))
			b.WriteString(SectionHeader(relPath))
			fmt.Fprintf(&b, "# ERROR: Could not read file - %v\n\n", err)
			continue
		}
		b.WriteString(SectionHeader(relPath))
		fmt.Fprintf(&b, "# File: %s\n", path)
		fmt.Fprintf(&b, "# Size: %d characters\n\n", len(content))
		b.WriteString(content)
		b.WriteString("\n\n")
	}

	return b.String()
}

// ReadFile reads a file as UTF-8 text. Invalid byte sequences are dropped
// with a warning rather than failing the read.
func (m *Manager) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		m.logger.Warn("file contains non-UTF-8 characters, some may be lost",
			zap.String("path", path))
		return strings.ToValidUTF8(string(data), ""), nil
	}
	return string(data), nil
}

// WriteFile writes text to path, creating parent directories as needed.
func (m *Manager) WriteFile(path, content string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// FolderExists reports whether path exists and is a directory.
func FolderExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
