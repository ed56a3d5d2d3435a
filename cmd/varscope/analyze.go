package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/varscope"
)

var (
	flagForce    bool
	flagWatch    bool
	flagFrontend string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a directory and write scopes and bindings to the database",
	Long:  "Parses every JavaScript and HTML file under path, resolves each identifier to its declaration, and writes the results to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reanalyze from scratch")
	analyzeCmd.Flags().BoolVar(&flagWatch, "watch", false, "keep running and reanalyze files as they change")
	analyzeCmd.Flags().StringVar(&flagFrontend, "frontend", "", "parser: tree-sitter|goja (default from config, else tree-sitter)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	if flagForce {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing database for --force: %w", err)
			}
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	cfg, err := loadConfig(targetDir)
	if err != nil {
		return err
	}
	log := newLogger()
	opts, err := engineOptions(cfg, flagFrontend, log)
	if err != nil {
		return err
	}

	engine, err := varscope.New(dbPath, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := engine.IndexDirectory(ctx, targetDir); err != nil {
		return fmt.Errorf("analyzing: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Analyzed %s in %s (frontend: %s)\n",
		targetDir, time.Since(start).Round(time.Millisecond), engine.Frontend())
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)

	if !flagWatch {
		return nil
	}
	return engine.Watch(ctx, targetDir, func(b varscope.WatchBatch, err error) {
		if err != nil {
			log.Error("%v", err)
			return
		}
		log.Info("updated %d file(s), removed %d", len(b.Changed), len(b.Removed))
	})
}

// resolveTargetDir returns the absolute path of the directory to analyze.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}
