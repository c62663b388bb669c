package tokens

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/richinex/tribunal/codebase"
)

const (
	testProvider = "openai"
	testModel    = "gpt-4o" // 100000 capacity, 75000 safe limit
)

// section builds a file section in the combined-content wire format.
func section(relPath, body string) string {
	return codebase.SectionHeader(relPath) + body
}

func TestChunkSingleChunkRoundTrip(t *testing.T) {
	chunker := NewChunker(nil)
	content := "# CODEBASE ANALYSIS - 2 files from codebase\n" +
		section("main.go", "func main() {}\n") +
		section("util.go", "func helper() {}\n")

	chunks, err := chunker.Chunk("NPE on null input", content, testProvider, testModel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != content {
		t.Error("single chunk must equal the original content exactly")
	}
}

func TestChunkBugDescriptionTooLarge(t *testing.T) {
	chunker := NewChunker(nil)
	hugeBug := strings.Repeat("x", 300000) // 75000 tokens, the whole safe limit

	_, err := chunker.Chunk(hugeBug, "package main\n", testProvider, testModel)
	if err == nil {
		t.Fatal("expected capacity error for oversized bug description")
	}
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected *CapacityError, got %T: %v", err, err)
	}
	if capErr.Provider != testProvider || capErr.Model != testModel {
		t.Errorf("capacity error should name provider/model, got %q %q", capErr.Provider, capErr.Model)
	}
}

func TestChunkSplitsOnFileBoundaries(t *testing.T) {
	chunker := NewChunker(nil)
	bug := "NPE on null input"
	// Two 200000-char sections (50000 tokens each); together they exceed
	// the ~74595 available tokens, so the second must start a new chunk.
	body := strings.Repeat("a", 200000)
	content := "# CODEBASE ANALYSIS - 2 files from codebase\n" +
		section("big_one.go", body) +
		section("big_two.go", body)

	chunks, err := chunker.Chunk(bug, content, testProvider, testModel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	available := SafeLimit(testProvider, testModel) - EstimateTokens(bug, testProvider) - promptOverheadTokens
	for i, chunk := range chunks {
		if got := EstimateTokens(chunk, testProvider); got > available {
			t.Errorf("chunk %d estimates %d tokens, above the %d available", i, got, available)
		}
	}

	// Nothing was truncated, so the chunks re-concatenate to the original.
	if strings.Join(chunks, "") != content {
		t.Error("chunks do not re-concatenate to the original content")
	}
	if !strings.Contains(chunks[0], "big_one.go") || !strings.Contains(chunks[1], "big_two.go") {
		t.Error("file sections ended up in the wrong chunks")
	}
}

func TestChunkTruncatesOversizedSection(t *testing.T) {
	chunker := NewChunker(nil)
	bug := "NPE on null input"
	// A single section far beyond the budget can only be truncated.
	lines := strings.Repeat(strings.Repeat("b", 99)+"\n", 4000) // 400000 chars
	content := section("massive.go", lines)

	chunks, err := chunker.Chunk(bug, content, testProvider, testModel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 truncated chunk, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], TruncationMarker) {
		t.Error("truncated chunk must end with the truncation marker")
	}
	if len(chunks[0]) >= len(content) {
		t.Error("truncated chunk should be shorter than the original section")
	}
	// With newlines every 100 chars, the cut lands on a line boundary.
	trimmed := strings.TrimSuffix(chunks[0], TruncationMarker)
	if !strings.HasSuffix(trimmed, strings.Repeat("b", 99)) {
		t.Error("truncation should trim back to the preceding line boundary")
	}
}

func TestChunkManySmallSectionsStayWithinBudget(t *testing.T) {
	chunker := NewChunker(nil)
	// 74400 tokens of bug leave exactly 200 tokens of budget per chunk.
	bug := strings.Repeat("x", 297600)

	// Thousands of tiny sections whose lengths are not multiples of four.
	// Summing per-section floored estimates drifts below the estimate of
	// their concatenation, so the packer must budget on the assembled
	// chunk, not the running sum.
	var b strings.Builder
	for i := 0; i < 2000; i++ {
		b.WriteString(section(fmt.Sprintf("f%04d.go", i), strings.Repeat("y", 3+i%5)))
	}
	content := b.String()

	chunks, err := chunker.Chunk(bug, content, testProvider, testModel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the content to split, got %d chunks", len(chunks))
	}

	available := SafeLimit(testProvider, testModel) - EstimateTokens(bug, testProvider) - promptOverheadTokens
	for i, chunk := range chunks {
		if got := EstimateTokens(chunk, testProvider); got > available {
			t.Errorf("chunk %d estimates %d tokens, above the %d available", i, got, available)
		}
	}

	// No section was truncated, so the chunks re-concatenate exactly.
	if strings.Join(chunks, "") != content {
		t.Error("chunks do not re-concatenate to the original content")
	}
}

func TestChunkTruncationKeepsRuneBoundary(t *testing.T) {
	chunker := NewChunker(nil)
	// 200 tokens of budget force truncation at 800 characters; three-byte
	// runes put that cut mid-rune, and with no newlines the line-boundary
	// trim never fires.
	bug := strings.Repeat("x", 297600)
	content := strings.Repeat("界", 400) // 1200 bytes

	chunks, err := chunker.Chunk(bug, content, testProvider, testModel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 truncated chunk, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], TruncationMarker) {
		t.Error("truncated chunk must end with the truncation marker")
	}
	if !utf8.ValidString(chunks[0]) {
		t.Error("truncation must not split a multi-byte rune")
	}
}

func TestChunkNoHeadersWholeContentIsOneSection(t *testing.T) {
	chunker := NewChunker(nil)
	content := strings.Repeat("c", 400000) // no header lines at all

	chunks, err := chunker.Chunk("bug", content, testProvider, testModel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], TruncationMarker) {
		t.Error("header-less oversized content degenerates to whole-content truncation")
	}
}

func TestChunkDeterministic(t *testing.T) {
	chunker := NewChunker(nil)
	bug := "NPE on null input"
	body := strings.Repeat("d", 150000)
	content := section("one.go", body) + section("two.go", body) + section("three.go", body)

	first, err := chunker.Chunk(bug, content, testProvider, testModel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := chunker.Chunk(bug, content, testProvider, testModel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("chunk count not deterministic: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between identical invocations", i)
		}
	}
}

func TestSplitSectionsKeepsLeadingPrefix(t *testing.T) {
	content := "prefix before any header\n" +
		section("a.go", "body a\n") +
		section("b.go", "body b\n")

	sections := splitSections(content)
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	if sections[0] != "prefix before any header\n" {
		t.Errorf("leading prefix not preserved: %q", sections[0])
	}
	if !strings.Contains(sections[1], "a.go") || !strings.Contains(sections[2], "b.go") {
		t.Error("headers not kept with their bodies")
	}
}
