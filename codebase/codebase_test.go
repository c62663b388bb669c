package codebase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "zeta.go"), "package z")
	writeFile(t, filepath.Join(dir, "alpha.go"), "package a")
	writeFile(t, filepath.Join(dir, "sub", "beta.py"), "pass")
	writeFile(t, filepath.Join(dir, "notes.txt"), "skip me")
	writeFile(t, filepath.Join(dir, "node_modules", "dep.go"), "skip me")
	writeFile(t, filepath.Join(dir, ".git", "hook.go"), "skip me")
	writeFile(t, filepath.Join(dir, "build", "gen.go"), "skip me")

	m := NewManager(nil)
	paths, err := m.Scan(dir, []string{".go", ".py"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(paths) != 3 {
		t.Fatalf("expected 3 files, got %d: %v", len(paths), paths)
	}
	for i := 1; i < len(paths); i++ {
		if paths[i-1] >= paths[i] {
			t.Errorf("paths not sorted: %v", paths)
		}
	}
	for _, p := range paths {
		if strings.Contains(p, "node_modules") || strings.Contains(p, ".git") || strings.Contains(p, "build") {
			t.Errorf("excluded directory leaked into results: %s", p)
		}
	}
}

func TestScanExtensionCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Main.GO"), "package main")

	m := NewManager(nil)
	paths, err := m.Scan(dir, []string{".go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("expected uppercase extension to match, got %v", paths)
	}
}

func TestScanMissingFolder(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.Scan(filepath.Join(t.TempDir(), "nope"), []string{".go"}); err == nil {
		t.Error("expected error for missing folder")
	}
}

func TestCombineEmitsParseableHeaders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), "func main() {}")
	writeFile(t, filepath.Join(dir, "sub", "util.go"), "func helper() {}")

	m := NewManager(nil)
	paths, err := m.Scan(dir, []string{".go"})
	if err != nil {
		t.Fatal(err)
	}
	combined := m.Combine(dir, paths)

	headers := SectionHeaderRe.FindAllString(combined, -1)
	if len(headers) != 2 {
		t.Fatalf("expected 2 section headers, got %d", len(headers))
	}
	if !strings.Contains(combined, "func main() {}") || !strings.Contains(combined, "func helper() {}") {
		t.Error("file contents missing from combined output")
	}
	if !strings.Contains(combined, SectionHeader("main.go")) {
		t.Error("header must embed the file's relative path")
	}
}

func TestCombineRecordsUnreadableFileInline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok.go"), "package ok")
	missing := filepath.Join(dir, "gone.go")

	m := NewManager(nil)
	combined := m.Combine(dir, []string{filepath.Join(dir, "ok.go"), missing})

	if !strings.Contains(combined, "package ok") {
		t.Error("readable file content missing")
	}
	if !strings.Contains(combined, "# ERROR: Could not read file") {
		t.Error("unreadable file should be recorded with an inline error marker")
	}
	// The error marker still sits under its own section header.
	if got := len(SectionHeaderRe.FindAllString(combined, -1)); got != 2 {
		t.Errorf("expected 2 headers, got %d", got)
	}
}

func TestReadFileLossyOnInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binaryish.go")
	if err := os.WriteFile(path, []byte{'o', 'k', 0xff, 0xfe, '!'}, 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(nil)
	content, err := m.ReadFile(path)
	if err != nil {
		t.Fatalf("lossy read should not fail: %v", err)
	}
	if !strings.Contains(content, "ok") || !strings.Contains(content, "!") {
		t.Errorf("valid bytes lost: %q", content)
	}
}

func TestReadFileMissing(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.ReadFile(filepath.Join(t.TempDir(), "nope.go")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteFileCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deep", "nested", "out.md")

	m := NewManager(nil)
	if err := m.WriteFile(path, "report"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "report" {
		t.Errorf("round trip failed: %q", data)
	}
}
