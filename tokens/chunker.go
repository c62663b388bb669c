package tokens

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/richinex/tribunal/codebase"
)

// promptOverheadTokens is the fixed allowance for prompt scaffolding added
// on top of the bug description when computing the per-chunk budget.
const promptOverheadTokens = 400

// TruncationMarker is appended to a file section cut down to fit the budget.
const TruncationMarker = "\n\n[... TRUNCATED FOR API LIMITS ...]"

// CapacityError reports that the bug description alone exceeds a
// provider's safe budget. It is a configuration-level failure: retrying
// cannot help, only trimming the bug description can.
type CapacityError struct {
	Provider string
	Model    string
	Budget   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("bug description alone exceeds the %s %s token budget (%d tokens available)",
		e.Provider, e.Model, e.Budget)
}

// Chunker splits combined codebase content into chunks sized for a
// provider's context budget, keeping file sections intact wherever
// possible.
type Chunker struct {
	logger *zap.Logger
}

// NewChunker creates a chunker. A nil logger disables logging.
func NewChunker(logger *zap.Logger) *Chunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{logger: logger}
}

// Chunk returns ordered slices of codebaseContent that each fit the
// provider/model budget left after the bug description and prompt
// overhead. Content that fits is returned as a single chunk, verbatim.
// Oversized content is split along file section boundaries; only a single
// section too large for the budget on its own is ever truncated.
func (c *Chunker) Chunk(bugDescription, codebaseContent, provider, model string) ([]string, error) {
	baseTokens := EstimateTokens(bugDescription, provider) + promptOverheadTokens
	available := SafeLimit(provider, model) - baseTokens

	if available <= 0 {
		return nil, &CapacityError{Provider: provider, Model: model, Budget: available}
	}

	codebaseTokens := EstimateTokens(codebaseContent, provider)
	if codebaseTokens <= available {
		return []string{codebaseContent}, nil
	}

	c.logger.Warn("codebase too large for a single request, splitting into chunks",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int("codebase_tokens", codebaseTokens),
		zap.Int("available_tokens", available))

	sections := splitSections(codebaseContent)

	var chunks []string
	var current strings.Builder

	for _, section := range sections {
		if sectionTokens := EstimateTokens(section, provider); sectionTokens > available {
			c.logger.Warn("single file section exceeds token budget, truncating",
				zap.Int("section_tokens", sectionTokens),
				zap.Int("available_tokens", available))
			section = truncateSection(section, available, provider)
		}

		// The budget check must estimate the assembled chunk, not sum
		// per-section estimates: summing floors drifts below the estimate
		// of the concatenation and overfills the chunk.
		if estimateLen(current.Len()+len(section), provider) <= available {
			current.WriteString(section)
		} else {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
			}
			current.Reset()
			current.WriteString(section)
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	c.logger.Info("split codebase into chunks", zap.Int("chunks", len(chunks)))
	return chunks, nil
}

// splitSections splits combined content back into per-file sections on the
// header lines emitted by codebase.Combine, keeping each header attached
// to its body. A non-empty prefix before the first header becomes its own
// leading section. Content with no headers at all is one section.
func splitSections(content string) []string {
	headers := codebase.SectionHeaderRe.FindAllString(content, -1)
	bodies := codebase.SectionHeaderRe.Split(content, -1)

	var sections []string
	if strings.TrimSpace(bodies[0]) != "" {
		sections = append(sections, bodies[0])
	}
	for i, header := range headers {
		if i+1 < len(bodies) && strings.TrimSpace(bodies[i+1]) != "" {
			sections = append(sections, header+bodies[i+1])
		}
	}

	if len(sections) == 0 {
		return []string{content}
	}
	return sections
}

// truncateSection cuts a section down to maxTokens worth of characters,
// trimming back to the previous line boundary when one exists past 80% of
// the cut point, and appends the truncation marker. The cut never splits
// a multi-byte rune.
func truncateSection(section string, maxTokens int, provider string) string {
	targetChars := int(float64(maxTokens) / Ratio(provider))
	if len(section) <= targetChars {
		return section
	}
	for targetChars > 0 && !utf8.RuneStart(section[targetChars]) {
		targetChars--
	}

	truncated := section[:targetChars]
	if lastNewline := strings.LastIndexByte(truncated, '\n'); lastNewline > int(float64(targetChars)*0.8) {
		truncated = truncated[:lastNewline]
	}

	return truncated + TruncationMarker
}
