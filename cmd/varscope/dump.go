package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/varscope"
	"github.com/jward/varscope/internal/frontend"
	"github.com/jward/varscope/internal/jsast"
	"github.com/jward/varscope/internal/scope"
)

var flagTree bool

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the classified identifiers of one file without a database",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&flagFrontend, "frontend", "", "parser: tree-sitter|goja")
	dumpCmd.Flags().BoolVar(&flagTree, "tree", false, "print the syntax tree of each program instead")
}

func runDump(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return outputError("dump", err)
	}
	cfg, err := loadConfig(filepath.Dir(path))
	if err != nil {
		return outputError("dump", err)
	}
	tax, err := cfg.Taxonomy()
	if err != nil {
		return outputError("dump", err)
	}
	name := flagFrontend
	if name == "" && cfg != nil {
		name = cfg.Frontend
	}

	units, err := analyzeFile(cmd.Context(), path, name, tax)
	if err != nil {
		return outputError("dump", err)
	}

	if flagTree {
		return dumpTrees(stdout, units)
	}
	var occ []varscope.Occurrence
	for _, u := range units {
		occ = append(occ, u.Occurrences(path)...)
	}
	results := occurrencesToCLI(occ)
	return outputResult(CLIResult{
		Command:    "dump",
		Results:    results,
		TotalCount: count(len(results)),
	})
}

// analyzeFile parses and analyses one file in memory.
func analyzeFile(ctx context.Context, path, parser string, tax scope.Taxonomy) ([]varscope.UnitAnalysis, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	lang, ok := frontend.LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
	p, err := frontend.For(parser)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	parsed, err := frontend.ParseFile(ctx, p, lang, path, src)
	if err != nil {
		return nil, err
	}
	units := make([]varscope.UnitAnalysis, 0, len(parsed))
	for _, u := range parsed {
		a, err := scope.Analyze(u.Tree, tax)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", u.Index, err)
		}
		units = append(units, varscope.UnitAnalysis{Index: u.Index, Analysis: a})
	}
	return units, nil
}

func dumpTrees(w io.Writer, units []varscope.UnitAnalysis) error {
	for _, u := range units {
		if len(units) > 1 {
			fmt.Fprintf(w, "# script %d\n", u.Index)
		}
		if err := jsast.Dump(w, u.Analysis.Tree()); err != nil {
			return err
		}
	}
	return nil
}
