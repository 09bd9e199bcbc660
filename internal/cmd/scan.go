package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmmlang/cx/internal/config"
	"github.com/cmmlang/cx/internal/orchestrate"
	"github.com/cmmlang/cx/internal/parser"
	"github.com/cmmlang/cx/internal/store"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a Python codebase and build the CMM graph",
	Long: `Scan walks the specified directory (or the current directory if none
given), extracts every Python file's entities and candidate relations, and
persists them to the configured SQLite database.

If a language server is available (see the lsp.command config key), a
second pass resolves candidate call relations and attaches type hints.

Examples:
  cx scan                # scan the current directory
  cx scan ./src          # scan a specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	scanPath := "."
	if len(args) > 0 {
		scanPath = args[0]
	}
	absPath, err := filepath.Abs(scanPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load(absPath)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	files, err := discoverPythonFiles(absPath, cfg.Scan.Exclude)
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}

	dbPath := cfg.Database.Path
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(absPath, dbPath)
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	orch := orchestrate.New(db, cfg.LSP.Command, absPath)
	stats, err := orch.Scan(context.Background(), files)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	fmt.Printf("scanned %d files (%d parse errors)\n", stats.FilesScanned, stats.ParseErrors)
	fmt.Printf("relations: %d resolved, %d failed, %d external\n", stats.Resolved, stats.Failed, stats.External)
	return nil
}

// discoverPythonFiles walks root, returning every .py/.pyi file not matched
// by an exclude pattern. Hidden directories and files are always excluded.
func discoverPythonFiles(root string, excludes []string) ([]string, error) {
	var files []string
	walker := newFileWalker(root, excludes)
	if err := walker.walk(root, &files); err != nil {
		return nil, err
	}
	return files, nil
}

type fileWalker struct {
	root     string
	excludes []string
}

func newFileWalker(root string, excludes []string) *fileWalker {
	return &fileWalker{root: root, excludes: excludes}
}

func (w *fileWalker) walk(dir string, out *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		rel := w.relPath(path)

		if entry.IsDir() {
			if shouldExcludeDir(path, entry.Name(), rel, w.excludes) {
				continue
			}
			if err := w.walk(path, out); err != nil {
				return err
			}
			continue
		}

		if shouldExcludeFile(entry.Name(), rel, w.excludes) {
			continue
		}
		if isPythonSource(entry.Name()) {
			*out = append(*out, path)
		}
	}
	return nil
}

func (w *fileWalker) relPath(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return rel
}

func isPythonSource(name string) bool {
	return parser.LanguageFromExtension(filepath.Ext(name)) == parser.Python
}

func shouldExcludeDir(path, base, relPath string, patterns []string) bool {
	if strings.HasPrefix(base, ".") && base != "." {
		return true
	}
	return matchesAny(base, relPath, patterns)
}

func shouldExcludeFile(base, relPath string, patterns []string) bool {
	if strings.HasPrefix(base, ".") {
		return true
	}
	return matchesAny(base, relPath, patterns)
}

// matchesAny reports whether base or relPath matches any of patterns.
// Patterns ending in "/**" or "/*" are treated as directory-name matches;
// "**" segments elsewhere are stripped before attempting filepath.Match,
// which has no glob-star-of-directories concept of its own.
func matchesAny(base, relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		dirPattern := strings.TrimSuffix(pattern, "/**")
		dirPattern = strings.TrimSuffix(dirPattern, "/*")
		dirPattern = strings.TrimPrefix(dirPattern, "**/")
		if base == dirPattern || relPath == dirPattern {
			return true
		}

		simplePattern := strings.ReplaceAll(pattern, "**/", "")
		simplePattern = strings.ReplaceAll(simplePattern, "**", "")

		if matched, _ := filepath.Match(simplePattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
