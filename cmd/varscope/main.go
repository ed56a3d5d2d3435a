package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/varscope"
	"github.com/jward/varscope/internal/config"
	"github.com/jward/varscope/internal/logger"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose int
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "varscope",
	Short:         "Static scope resolution for JavaScript",
	Long:          "Varscope resolves every identifier in JavaScript sources to its declaration and classifies its binding, writing the results to a SQLite database for queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .varscope/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: nearest "+config.FileName+")")
	rootCmd.PersistentFlags().CountVarP(&flagVerbose, "verbose", "v", "verbose progress output on stderr (repeat for more)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(scriptCmd)
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".varscope", "index.db")
}

// loadConfig reads the --config file, or the nearest config file above
// startDir. A missing default config is not an error.
func loadConfig(startDir string) (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	path, ok := config.Find(startDir)
	if !ok {
		return nil, nil
	}
	return config.Load(path)
}

func newLogger() *logger.Logger {
	return logger.NewLogger(flagVerbose)
}

// engineOptions turns configuration into Engine options. A non-empty
// frontend overrides the configured one.
func engineOptions(cfg *config.Config, frontend string, log *logger.Logger) ([]varscope.Option, error) {
	tax, err := cfg.Taxonomy()
	if err != nil {
		return nil, err
	}
	opts := []varscope.Option{
		varscope.WithTaxonomy(tax),
		varscope.WithLogger(log),
		varscope.WithParallel(cfg.ParallelOr(true)),
	}
	if frontend == "" && cfg != nil {
		frontend = cfg.Frontend
	}
	if frontend != "" {
		opts = append(opts, varscope.WithFrontend(frontend))
	}
	if cfg != nil && len(cfg.SkipDirs) > 0 {
		opts = append(opts, varscope.WithSkipDirs(cfg.SkipDirs...))
	}
	return opts, nil
}

// openEngine opens the database for the repository containing the working
// directory. The database must already exist.
func openEngine(extra ...varscope.Option) (*varscope.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'varscope analyze' first)", dbPath)
	}
	cfg, err := loadConfig(cwd)
	if err != nil {
		return nil, err
	}
	opts, err := engineOptions(cfg, "", newLogger())
	if err != nil {
		return nil, err
	}
	return varscope.New(dbPath, append(opts, extra...)...)
}
