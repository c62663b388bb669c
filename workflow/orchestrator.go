// Package workflow drives the three-phase bug investigation protocol.
//
// Init -> Phase1 (independent investigation) -> Phase2 (cross-critique)
// -> Phase3 (final arbitration) -> Done. Phases run strictly
// sequentially, role A before role B, with no backward transitions; any
// unrecovered phase failure aborts the run.
//
// Information Hiding:
// - Prompt assembly for every stage
// - Per-role chunking and chunk-analysis consolidation
// - Artifact persistence into the versioned run directory

package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/tribunal/codebase"
	"github.com/richinex/tribunal/config"
	"github.com/richinex/tribunal/llm"
	"github.com/richinex/tribunal/prompts"
	"github.com/richinex/tribunal/storage"
	"github.com/richinex/tribunal/tokens"
)

// Phase1Results holds the two independent audit reports, keyed by role.
// Immutable once produced; passed by value into phase 2.
type Phase1Results struct {
	AuditReportA string
	AuditReportB string
}

// Phase2Results holds the two cross-critique consolidations.
type Phase2Results struct {
	ConsolidationA string
	ConsolidationB string
}

// Orchestrator runs the investigation protocol end to end.
type Orchestrator struct {
	cfg     *config.Config
	aiA     llm.Provider
	aiB     llm.Provider
	finalAI llm.Provider

	executor *llm.Executor
	chunker  *tokens.Chunker
	files    *codebase.Manager
	lib      *prompts.Library
	store    *storage.RunStore
	logger   *zap.Logger

	workDir string
	out     io.Writer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProviders overrides the role providers (used by tests and the
// connection checker). A nil entry leaves that role to be built from the
// configuration.
func WithProviders(aiA, aiB, finalAI llm.Provider) Option {
	return func(o *Orchestrator) {
		o.aiA, o.aiB, o.finalAI = aiA, aiB, finalAI
	}
}

// WithRunStore attaches a run-history store. Recording failures are
// logged, never fatal to the investigation.
func WithRunStore(store *storage.RunStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithWorkDir sets the directory run folders are allocated under
// (default ".").
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) { o.workDir = dir }
}

// WithProgress sets the writer for user-facing progress messages
// (default stdout).
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// WithExecutor overrides the retry executor.
func WithExecutor(executor *llm.Executor) Option {
	return func(o *Orchestrator) { o.executor = executor }
}

// New creates an orchestrator from the configuration, building the three
// role providers through the factory unless WithProviders overrides them.
func New(cfg *config.Config, lib *prompts.Library, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{
		cfg:      cfg,
		chunker:  tokens.NewChunker(logger),
		files:    codebase.NewManager(logger),
		lib:      lib,
		logger:   logger,
		workDir:  ".",
		out:      os.Stdout,
		executor: llm.NewExecutor(llm.RetryPolicy{MaxAttempts: cfg.Workflow.RetryAttempts, BaseDelay: time.Second}, logger),
	}
	for _, opt := range opts {
		opt(o)
	}

	var err error
	if o.aiA == nil {
		if o.aiA, err = buildProvider(cfg, cfg.Workflow.AIA); err != nil {
			return nil, fmt.Errorf("ai_a: %w", err)
		}
	}
	if o.aiB == nil {
		if o.aiB, err = buildProvider(cfg, cfg.Workflow.AIB); err != nil {
			return nil, fmt.Errorf("ai_b: %w", err)
		}
	}
	if o.finalAI == nil {
		if o.finalAI, err = buildProvider(cfg, cfg.Workflow.FinalArbitrator); err != nil {
			return nil, fmt.Errorf("final_arbitrator: %w", err)
		}
	}

	return o, nil
}

// buildProvider creates the client for a configured provider name.
func buildProvider(cfg *config.Config, providerName string) (llm.Provider, error) {
	api, err := cfg.API(providerName)
	if err != nil {
		return nil, err
	}
	return llm.NewProvider(providerName, llm.Config{
		APIKey:      api.APIKey,
		BaseURL:     api.BaseURL,
		Model:       api.Model,
		Temperature: api.Temperature,
		MaxTokens:   api.MaxTokens,
	})
}

// RunInvestigation executes the complete three-phase protocol and returns
// the final arbitration text. Empty bugFile or codebaseFolder fall back to
// the configured paths.
func (o *Orchestrator) RunInvestigation(ctx context.Context, bugFile, codebaseFolder string) (string, error) {
	if bugFile == "" {
		bugFile = o.cfg.Paths.BugFile
	}
	if codebaseFolder == "" {
		codebaseFolder = o.cfg.Paths.CodebaseFolder
	}

	bugDescription, err := o.files.ReadFile(bugFile)
	if err != nil {
		return "", err
	}

	paths, err := o.files.Scan(codebaseFolder, o.cfg.Paths.SupportedExtensions)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no supported code files found in %s", codebaseFolder)
	}
	fmt.Fprintf(o.out, "Using codebase folder: %s (%d files)\n", codebaseFolder, len(paths))
	codebaseContent := o.files.Combine(codebaseFolder, paths)

	run, err := AllocateRun(o.workDir, bugFile, o.cfg.Output, o.files)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(o.out, "Created results folder: %s\n", run.Dir)

	runID := o.recordStart(ctx, run, bugFile)

	o.showContentStats(bugDescription, codebaseContent)

	final, err := o.investigate(ctx, run, bugDescription, codebaseContent)
	if err != nil {
		o.recordFinish(ctx, runID, storage.StatusFailed, "")
		return "", err
	}

	o.recordFinish(ctx, runID, storage.StatusCompleted, run.Output.DefinitiveFixes)
	fmt.Fprintf(o.out, "\nInvestigation complete! Results saved to: %s\n", run.Dir)
	return final, nil
}

func (o *Orchestrator) investigate(ctx context.Context, run Run, bugDescription, codebaseContent string) (string, error) {
	phase1, err := o.phase1(ctx, run.Output, bugDescription, codebaseContent)
	if err != nil {
		return "", fmt.Errorf("phase 1: %w", err)
	}

	phase2, err := o.phase2(ctx, run.Output, bugDescription, codebaseContent, phase1)
	if err != nil {
		return "", fmt.Errorf("phase 2: %w", err)
	}

	final, err := o.phase3(ctx, run.Output, bugDescription, codebaseContent, phase1, phase2)
	if err != nil {
		return "", fmt.Errorf("phase 3: %w", err)
	}
	return final, nil
}

// phase1 has both roles analyze the bug independently, A before B for
// deterministic output ordering. There is no data dependency between the
// roles.
func (o *Orchestrator) phase1(ctx context.Context, out config.OutputConfig, bugDescription, codebaseContent string) (Phase1Results, error) {
	fmt.Fprintln(o.out, "\nPHASE 1: Initial Investigation")

	fmt.Fprintf(o.out, "  AI_A (%s) analyzing bug...\n", o.aiA.Name())
	reportA, err := o.analyzeWithChunks(ctx, o.aiA, bugDescription, codebaseContent)
	if err != nil {
		return Phase1Results{}, fmt.Errorf("ai_a: %w", err)
	}

	fmt.Fprintf(o.out, "  AI_B (%s) analyzing bug...\n", o.aiB.Name())
	reportB, err := o.analyzeWithChunks(ctx, o.aiB, bugDescription, codebaseContent)
	if err != nil {
		return Phase1Results{}, fmt.Errorf("ai_b: %w", err)
	}

	if err := o.files.WriteFile(out.AuditReportA, reportA); err != nil {
		return Phase1Results{}, err
	}
	if err := o.files.WriteFile(out.AuditReportB, reportB); err != nil {
		return Phase1Results{}, err
	}

	return Phase1Results{AuditReportA: reportA, AuditReportB: reportB}, nil
}

// analyzeWithChunks chunks the codebase for the provider's budget, runs
// the analysis prompt per chunk, and when more than one chunk was needed
// issues one extra consolidation call to fold the chunk analyses into a
// single report.
func (o *Orchestrator) analyzeWithChunks(ctx context.Context, provider llm.Provider, bugDescription, codebaseContent string) (string, error) {
	chunks, err := o.chunker.Chunk(bugDescription, codebaseContent, provider.Name(), provider.Model())
	if err != nil {
		return "", err
	}

	if len(chunks) == 1 {
		return o.send(ctx, provider, o.buildInitialPrompt(bugDescription, chunks[0]))
	}

	analyses := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		fmt.Fprintf(o.out, "    Analyzing chunk %d/%d...\n", i+1, len(chunks))
		analysis, err := o.send(ctx, provider, o.buildInitialPrompt(bugDescription, chunk))
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		analyses = append(analyses, fmt.Sprintf("## Analysis of Chunk %d\n%s", i+1, analysis))
	}

	fmt.Fprintf(o.out, "    Consolidating %d chunk analyses...\n", len(analyses))
	return o.send(ctx, provider, o.buildChunkConsolidationPrompt(bugDescription, analyses))
}

// phase2 has each role critique the other's phase-1 report and produce a
// consolidation. The full codebase content is sent inline without
// re-chunking; a prompt exceeding the role's safe limit is logged as a
// warning and sent anyway.
func (o *Orchestrator) phase2(ctx context.Context, out config.OutputConfig, bugDescription, codebaseContent string, phase1 Phase1Results) (Phase2Results, error) {
	fmt.Fprintln(o.out, "\nPHASE 2: Cross-Critique")

	fmt.Fprintf(o.out, "  AI_A (%s) reviewing AI_B's analysis...\n", o.aiA.Name())
	promptA := o.buildConsolidationPrompt(bugDescription, codebaseContent, phase1.AuditReportA, phase1.AuditReportB)
	o.warnIfOversized(promptA, o.aiA)
	consolidationA, err := o.send(ctx, o.aiA, promptA)
	if err != nil {
		return Phase2Results{}, fmt.Errorf("ai_a: %w", err)
	}

	fmt.Fprintf(o.out, "  AI_B (%s) reviewing AI_A's analysis...\n", o.aiB.Name())
	promptB := o.buildConsolidationPrompt(bugDescription, codebaseContent, phase1.AuditReportB, phase1.AuditReportA)
	o.warnIfOversized(promptB, o.aiB)
	consolidationB, err := o.send(ctx, o.aiB, promptB)
	if err != nil {
		return Phase2Results{}, fmt.Errorf("ai_b: %w", err)
	}

	if err := o.files.WriteFile(out.ConsolidationA, consolidationA); err != nil {
		return Phase2Results{}, err
	}
	if err := o.files.WriteFile(out.ConsolidationB, consolidationB); err != nil {
		return Phase2Results{}, err
	}

	return Phase2Results{ConsolidationA: consolidationA, ConsolidationB: consolidationB}, nil
}

// phase3 hands everything to the arbitrator and persists the definitive
// fixes. Its text is the run's return value.
func (o *Orchestrator) phase3(ctx context.Context, out config.OutputConfig, bugDescription, codebaseContent string, phase1 Phase1Results, phase2 Phase2Results) (string, error) {
	fmt.Fprintln(o.out, "\nPHASE 3: Final Arbitration")
	fmt.Fprintf(o.out, "  Final arbitrator (%s) creating definitive fixes...\n", o.finalAI.Name())

	prompt := o.buildFinalPrompt(bugDescription, codebaseContent, phase1, phase2)
	o.warnIfOversized(prompt, o.finalAI)

	definitiveFixes, err := o.send(ctx, o.finalAI, prompt)
	if err != nil {
		return "", fmt.Errorf("final_arbitrator: %w", err)
	}

	if err := o.files.WriteFile(out.DefinitiveFixes, definitiveFixes); err != nil {
		return "", err
	}
	return definitiveFixes, nil
}

// send runs one prompt through the retry executor against a provider.
func (o *Orchestrator) send(ctx context.Context, provider llm.Provider, prompt string) (string, error) {
	return o.executor.Execute(ctx, provider.Name(), func(ctx context.Context) (string, error) {
		return provider.Complete(ctx, prompt)
	})
}

// warnIfOversized logs when a prompt exceeds a provider's safe limit.
// Phases 2 and 3 send the full codebase inline without re-chunking, so an
// oversized prompt there can only be flagged, not split.
func (o *Orchestrator) warnIfOversized(prompt string, provider llm.Provider) {
	if ok, estimated, safeLimit := tokens.Fits(prompt, provider.Name(), provider.Model()); !ok {
		o.logger.Warn("prompt exceeds the provider safe limit and is sent unchunked",
			zap.String("provider", provider.Name()),
			zap.String("model", provider.Model()),
			zap.Int("estimated_tokens", estimated),
			zap.Int("safe_limit", safeLimit))
	}
}

func (o *Orchestrator) showContentStats(bugDescription, codebaseContent string) {
	fmt.Fprintln(o.out, "Content Statistics:")
	fmt.Fprintf(o.out, "   - Bug description: %d characters\n", len(bugDescription))
	fmt.Fprintf(o.out, "   - Codebase content: %d characters\n", len(codebaseContent))

	combined := bugDescription + codebaseContent
	for _, role := range []struct {
		label    string
		provider llm.Provider
	}{
		{"AI_A", o.aiA},
		{"AI_B", o.aiB},
		{"Final", o.finalAI},
	} {
		estimated := tokens.EstimateTokens(combined, role.provider.Name())
		fmt.Fprintf(o.out, "   - %s (%s): ~%d tokens\n", role.label, role.provider.Name(), estimated)
	}
}

// recordStart logs the run into the history store, when one is attached.
func (o *Orchestrator) recordStart(ctx context.Context, run Run, bugFile string) string {
	if o.store == nil {
		return ""
	}
	id, err := o.store.StartRun(ctx, run.Sequence, run.Dir, bugFile)
	if err != nil {
		o.logger.Warn("failed to record run start", zap.Error(err))
		return ""
	}
	return id
}

func (o *Orchestrator) recordFinish(ctx context.Context, runID, status, finalPath string) {
	if o.store == nil || runID == "" {
		return
	}
	if err := o.store.FinishRun(ctx, runID, status, finalPath); err != nil {
		o.logger.Warn("failed to record run finish", zap.Error(err))
	}
}

func (o *Orchestrator) buildInitialPrompt(bugDescription, codebaseContent string) string {
	base, _ := o.lib.Get(prompts.BugSlayer)
	return fmt.Sprintf(`%s

# BUG DESCRIPTION AND STACK TRACE:
%s

# CODEBASE FILES:
%s

Please analyze this bug thoroughly and provide your detailed analysis report.`,
		base, bugDescription, codebaseContent)
}

func (o *Orchestrator) buildChunkConsolidationPrompt(bugDescription string, chunkAnalyses []string) string {
	return fmt.Sprintf(`You have analyzed a bug across multiple code chunks. Now consolidate your findings into a single comprehensive analysis.

ORIGINAL BUG:
%s

YOUR CHUNK-BY-CHUNK ANALYSES:
%s

TASK: Create a single, consolidated bug analysis report that:
1. Combines insights from all chunks
2. Identifies the primary root cause
3. Provides definitive fix recommendations
4. Eliminates redundancy between chunk analyses

Use the same format as a standard bug analysis report.`,
		bugDescription, strings.Join(chunkAnalyses, "\n\n"))
}

func (o *Orchestrator) buildConsolidationPrompt(bugDescription, codebaseContent, ownReport, otherReport string) string {
	base, _ := o.lib.Get(prompts.AuditConsolidator)
	return fmt.Sprintf(`%s

# ORIGINAL BUG DESCRIPTION:
%s

# ORIGINAL CODEBASE:
%s

# YOUR PREVIOUS ANALYSIS:
%s

# OTHER AI'S ANALYSIS:
%s

Please provide your consolidated analysis after reviewing both reports.`,
		base, bugDescription, codebaseContent, ownReport, otherReport)
}

func (o *Orchestrator) buildFinalPrompt(bugDescription, codebaseContent string, phase1 Phase1Results, phase2 Phase2Results) string {
	base, _ := o.lib.Get(prompts.FinalConsolidator)
	return fmt.Sprintf(`%s

# ORIGINAL BUG DESCRIPTION:
%s

# ORIGINAL CODEBASE:
%s

# CONSOLIDATION FROM AI_A:
%s

# CONSOLIDATION FROM AI_B:
%s

# INITIAL AUDIT REPORT A:
%s

# INITIAL AUDIT REPORT B:
%s

Please create the final, definitive list of validated bug fixes.`,
		base, bugDescription, codebaseContent,
		phase2.ConsolidationA, phase2.ConsolidationB,
		phase1.AuditReportA, phase1.AuditReportB)
}
