// Versioned run directory allocation.
//
// Every investigation owns a fresh directory named bugNNNN_results. The
// sequence number is max(existing)+1 with no gap filling, so re-running in
// the same working directory never collides with an earlier run.

package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/richinex/tribunal/codebase"
	"github.com/richinex/tribunal/config"
)

var runDirRe = regexp.MustCompile(`^bug(\d{4})_results$`)

// Run is one allocated investigation run: its directory, its sequence
// number, and the output paths rebased into the directory.
type Run struct {
	Dir      string
	Sequence int
	Output   config.OutputConfig
}

// AllocateRun creates the next run directory under baseDir, copies the bug
// description into it as bug.txt, and returns the run with an immutable
// per-run snapshot of the output paths.
func AllocateRun(baseDir, bugFile string, output config.OutputConfig, files *codebase.Manager) (Run, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return Run{}, fmt.Errorf("reading working directory %s: %w", baseDir, err)
	}

	next := 1
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m := runDirRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n >= next {
			next = n + 1
		}
	}

	dir := filepath.Join(baseDir, fmt.Sprintf("bug%04d_results", next))
	if err := os.Mkdir(dir, 0755); err != nil {
		return Run{}, fmt.Errorf("creating run directory %s: %w", dir, err)
	}

	bug, err := files.ReadFile(bugFile)
	if err != nil {
		return Run{}, err
	}
	if err := files.WriteFile(filepath.Join(dir, "bug.txt"), bug); err != nil {
		return Run{}, err
	}

	return Run{Dir: dir, Sequence: next, Output: output.ForRunDir(dir)}, nil
}
