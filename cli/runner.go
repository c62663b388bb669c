// Command execution for CLI commands.
//
// Information Hiding:
// - Input validation ahead of orchestration
// - Orchestrator and run-store setup
// - Output formatting

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/tribunal/codebase"
	"github.com/richinex/tribunal/config"
	"github.com/richinex/tribunal/llm"
	"github.com/richinex/tribunal/prompts"
	"github.com/richinex/tribunal/storage"
	"github.com/richinex/tribunal/tokens"
	"github.com/richinex/tribunal/workflow"
)

// Options holds CLI execution options.
type Options struct {
	ConfigPath     string
	BugFile        string
	CodebaseFolder string
	OutputOnly     bool
	HistoryDB      string
}

// DefaultHistoryDB is the run-history database path used when none is
// configured.
const DefaultHistoryDB = "tribunal_runs.db"

// Run executes the complete three-phase investigation.
func Run(ctx context.Context, opts Options, logger *zap.Logger) error {
	cfg, err := config.Load(opts.ConfigPath, logger)
	if err != nil {
		return err
	}

	bugFile, codebaseFolder, err := resolveInputs(cfg, opts, logger)
	if err != nil {
		return err
	}

	lib, err := prompts.Load(cfg.Paths.PromptsFolder, logger)
	if err != nil {
		return err
	}

	orchOpts := []workflow.Option{}
	store, err := storage.Open(historyDBPath(opts))
	if err != nil {
		logger.Warn("run history unavailable", zap.Error(err))
	} else {
		defer store.Close()
		orchOpts = append(orchOpts, workflow.WithRunStore(store))
	}

	orch, err := workflow.New(cfg, lib, logger, orchOpts...)
	if err != nil {
		return err
	}

	fmt.Println("Starting Multi-AI Bug Investigation...")
	result, err := orch.RunInvestigation(ctx, bugFile, codebaseFolder)
	if err != nil {
		return err
	}

	if opts.OutputOnly {
		fmt.Println(result)
		return nil
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("DEFINITIVE BUG FIXES")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println(result)
	return nil
}

// Validate reports whether the bug description plus codebase fit each
// configured role's budget. No network activity.
func Validate(opts Options, logger *zap.Logger) error {
	cfg, err := config.Load(opts.ConfigPath, logger)
	if err != nil {
		return err
	}

	bugFile, codebaseFolder, err := resolveInputs(cfg, opts, logger)
	if err != nil {
		return err
	}

	files := codebase.NewManager(logger)
	bugDescription, err := files.ReadFile(bugFile)
	if err != nil {
		return err
	}
	paths, err := files.Scan(codebaseFolder, cfg.Paths.SupportedExtensions)
	if err != nil {
		return err
	}
	content := files.Combine(codebaseFolder, paths)

	fmt.Println("Content Analysis:")
	fmt.Printf("   - Bug description: %d chars\n", len(bugDescription))
	fmt.Printf("   - Codebase: %d chars\n", len(content))

	combined := bugDescription + content
	allFit := true
	for _, rp := range cfg.RoleProviders() {
		role, providerName := rp[0], rp[1]
		api, err := cfg.API(providerName)
		if err != nil {
			return err
		}
		fits, estimated, safeLimit := tokens.Fits(combined, providerName, api.Model)
		status := "FITS"
		if !fits {
			status = "TOO LARGE"
			allFit = false
		}
		fmt.Printf("   - %s_%s: %d/%d tokens %s\n", role, providerName, estimated, safeLimit, status)
	}

	if !allFit {
		fmt.Println("\nContent too large for some APIs. The workflow will automatically chunk content.")
	} else {
		fmt.Println("\nValidation complete. Content is ready for analysis.")
	}
	return nil
}

// TestConnections sends one short prompt to every configured role provider
// and reports the result. Returns an error when any provider fails.
func TestConnections(ctx context.Context, opts Options, logger *zap.Logger) error {
	cfg, err := config.Load(opts.ConfigPath, logger)
	if err != nil {
		return err
	}

	var failures []string
	for _, rp := range cfg.RoleProviders() {
		role, providerName := rp[0], rp[1]
		api, err := cfg.API(providerName)
		if err != nil {
			return err
		}

		provider, err := llm.NewProvider(providerName, llm.Config{
			APIKey:      api.APIKey,
			BaseURL:     api.BaseURL,
			Model:       api.Model,
			Temperature: api.Temperature,
			MaxTokens:   api.MaxTokens,
		})
		if err != nil {
			fmt.Printf("   - %s (%s): FAILED (%v)\n", role, providerName, err)
			failures = append(failures, role)
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		reply, err := provider.Complete(pingCtx, "Connection test. Respond with the single word: OK")
		cancel()
		if err != nil {
			fmt.Printf("   - %s (%s, %s): FAILED (%v)\n", role, providerName, api.Model, err)
			failures = append(failures, role)
			continue
		}
		fmt.Printf("   - %s (%s, %s): OK (%q)\n", role, providerName, api.Model, firstLine(reply))
	}

	if len(failures) > 0 {
		return fmt.Errorf("connection test failed for: %s", strings.Join(failures, ", "))
	}
	fmt.Println("All connections OK.")
	return nil
}

// History prints the recorded runs, newest first.
func History(ctx context.Context, opts Options, logger *zap.Logger) error {
	store, err := storage.Open(historyDBPath(opts))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, r := range runs {
		line := fmt.Sprintf("bug%04d  %-9s  %s  %s", r.Sequence, r.Status, r.StartedAt.Format(time.RFC3339), r.Dir)
		if r.FinalPath != "" {
			line += "  -> " + r.FinalPath
		}
		fmt.Println(line)
	}
	return nil
}

// Setup scaffolds the expected project structure in the working directory.
func Setup(logger *zap.Logger) error {
	files := codebase.NewManager(logger)

	for _, dir := range []string{"codebase", "prompts"} {
		if codebase.FolderExists(dir) {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s/: %w", dir, err)
		}
		fmt.Printf("   - Created '%s/' folder\n", dir)
	}

	if !codebase.FileExists("bug.txt") {
		if err := files.WriteFile("bug.txt", sampleBug); err != nil {
			return err
		}
		fmt.Println("   - Created sample 'bug.txt' file")
	}

	fmt.Println("Project structure ready!")
	fmt.Println("Next steps:")
	fmt.Println("   1. Edit 'bug.txt' with your bug description")
	fmt.Println("   2. Put your code files in the 'codebase/' folder")
	fmt.Println("   3. Add your API keys to 'config.yaml'")
	fmt.Println("   4. Run: tribunal run")
	fmt.Println("   5. Results will be saved in auto-generated 'bug####_results/' folders")
	return nil
}

// resolveInputs applies configured defaults to the input flags and fails
// fast on missing inputs, before any orchestration begins.
func resolveInputs(cfg *config.Config, opts Options, logger *zap.Logger) (bugFile, codebaseFolder string, err error) {
	bugFile = opts.BugFile
	if bugFile == "" {
		bugFile = cfg.Paths.BugFile
	}
	codebaseFolder = opts.CodebaseFolder
	if codebaseFolder == "" {
		codebaseFolder = cfg.Paths.CodebaseFolder
	}

	if !codebase.FileExists(bugFile) {
		return "", "", fmt.Errorf("bug file %q not found (run 'tribunal setup' to create project structure)", bugFile)
	}
	if !codebase.FolderExists(codebaseFolder) {
		return "", "", fmt.Errorf("codebase folder %q not found (run 'tribunal setup' to create project structure)", codebaseFolder)
	}

	found, err := codebase.NewManager(logger).Scan(codebaseFolder, cfg.Paths.SupportedExtensions)
	if err != nil {
		return "", "", err
	}
	if len(found) == 0 {
		return "", "", fmt.Errorf("no supported code files found in %q (supported: %s)",
			codebaseFolder, strings.Join(cfg.Paths.SupportedExtensions, ", "))
	}
	return bugFile, codebaseFolder, nil
}

func historyDBPath(opts Options) string {
	if opts.HistoryDB != "" {
		return opts.HistoryDB
	}
	return filepath.Clean(DefaultHistoryDB)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

const sampleBug = `PROBLEM: Describe your issue here

STACK TRACE:
Paste your error/stack trace here

DESCRIPTION:
Provide detailed description of:
- What you were trying to do
- What happened instead
- Steps to reproduce
- Expected behavior

ENVIRONMENT:
- Programming language and version
- Framework versions
- Operating system
- Other relevant details
`
