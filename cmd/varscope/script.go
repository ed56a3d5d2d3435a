package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor/object"
	"github.com/spf13/cobra"

	"github.com/jward/varscope"
	"github.com/jward/varscope/scripts"
)

var scriptCmd = &cobra.Command{
	Use:   "script <file.risor|report> [args...]",
	Short: "Run a Risor script against the database",
	Long: `Runs a Risor script with the database's query functions as globals. Extra
arguments are available to the script as the list 'args'.

A bare name that is not a file runs the stock report of that name:
undeclared, dynamic or globals.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	path, extra, err := resolveScript(args[0])
	if err != nil {
		return err
	}
	engine, err := openEngine(extra...)
	if err != nil {
		return err
	}
	defer engine.Close()

	scriptArgs := make([]object.Object, 0, len(args)-1)
	for _, a := range args[1:] {
		scriptArgs = append(scriptArgs, object.NewString(a))
	}
	return engine.RunScript(cmd.Context(), path, map[string]any{"args": object.NewList(scriptArgs)})
}

// resolveScript maps the script argument to a path and the engine options
// needed to load it. Files on disk win over stock reports.
func resolveScript(arg string) (string, []varscope.Option, error) {
	if _, err := os.Stat(arg); err == nil || strings.HasSuffix(arg, ".risor") {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return "", nil, err
		}
		return abs, nil, nil
	}
	report := scripts.Report(arg)
	if _, err := fs.Stat(scripts.FS, report); err != nil {
		return "", nil, err
	}
	return report, []varscope.Option{varscope.WithScriptsFS(scripts.FS)}, nil
}
