package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/varscope"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the analysis database",
	Long:  "Run queries against an analyzed codebase. All line and column numbers are 0-based.",
}

func init() {
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(scopesCmd)
	queryCmd.AddCommand(identifierCmd)
	queryCmd.AddCommand(definitionCmd)
	queryCmd.AddCommand(refsCmd)
	queryCmd.AddCommand(undeclaredCmd)
	queryCmd.AddCommand(dynamicCmd)
	queryCmd.AddCommand(summaryCmd)
}

// --- Helpers ---

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// parsePosition parses <file> <line> <col> arguments.
func parsePosition(args []string) (string, int, int, error) {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return "", 0, 0, err
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return "", 0, 0, err
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return "", 0, 0, err
	}
	return file, line, col, nil
}

// withQuery opens the engine, runs fn and prints its result.
func withQuery(command string, fn func(q *varscope.QueryBuilder, e *varscope.Engine) (CLIResult, error)) error {
	engine, err := openEngine()
	if err != nil {
		return outputError(command, err)
	}
	defer engine.Close()

	result, err := fn(engine.Query(), engine)
	if err != nil {
		return outputError(command, err)
	}
	result.Command = command
	return outputResult(result)
}

// --- Commands ---

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List analyzed files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("files", func(q *varscope.QueryBuilder, _ *varscope.Engine) (CLIResult, error) {
			files, err := q.Files()
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLIFile, len(files))
			for i, f := range files {
				out[i] = CLIFile{ID: f.ID, Path: f.Path, Language: f.Language, LineCount: f.LineCount}
			}
			return CLIResult{Results: out, TotalCount: count(len(out))}, nil
		})
	},
}

var scopesCmd = &cobra.Command{
	Use:   "scopes <file>",
	Short: "List the scopes of a file in pre-order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("scopes", func(q *varscope.QueryBuilder, _ *varscope.Engine) (CLIResult, error) {
			file, err := resolveFilePath(args[0])
			if err != nil {
				return CLIResult{}, err
			}
			scopes, err := q.Scopes(file)
			if err != nil {
				return CLIResult{}, err
			}
			out := scopesToCLI(scopes)
			return CLIResult{Results: out, TotalCount: count(len(out))}, nil
		})
	},
}

var identifierCmd = &cobra.Command{
	Use:   "identifier <file> <line> <col>",
	Short: "Show the classification of the identifier at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("identifier", func(q *varscope.QueryBuilder, _ *varscope.Engine) (CLIResult, error) {
			file, line, col, err := parsePosition(args)
			if err != nil {
				return CLIResult{}, err
			}
			o, err := q.IdentifierAt(file, line, col)
			if err != nil || o == nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: occurrenceToCLI(*o), TotalCount: count(1)}, nil
		})
	},
}

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Find the declaration the identifier at a position binds to",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("definition", func(q *varscope.QueryBuilder, _ *varscope.Engine) (CLIResult, error) {
			file, line, col, err := parsePosition(args)
			if err != nil {
				return CLIResult{}, err
			}
			loc, err := q.DeclarationAt(file, line, col)
			if err != nil || loc == nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: []CLILocation{locationToCLI(*loc)}, TotalCount: count(1)}, nil
		})
	},
}

var refsCmd = &cobra.Command{
	Use:   "refs <file> <line> <col>",
	Short: "Find every other identifier bound to the same declaration",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("refs", func(q *varscope.QueryBuilder, _ *varscope.Engine) (CLIResult, error) {
			file, line, col, err := parsePosition(args)
			if err != nil {
				return CLIResult{}, err
			}
			locs, err := q.ReferencesAt(file, line, col)
			if err != nil {
				return CLIResult{}, err
			}
			out := make([]CLILocation, len(locs))
			for i, l := range locs {
				out[i] = locationToCLI(l)
			}
			return CLIResult{Results: out, TotalCount: count(len(out))}, nil
		})
	},
}

// filterCommand builds a command listing occurrences in one file or all.
func filterCommand(use, short string, query func(q *varscope.QueryBuilder, file string) ([]varscope.Occurrence, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [file]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withQuery(use, func(q *varscope.QueryBuilder, _ *varscope.Engine) (CLIResult, error) {
				var file string
				if len(args) > 0 {
					var err error
					if file, err = resolveFilePath(args[0]); err != nil {
						return CLIResult{}, err
					}
				}
				occ, err := query(q, file)
				if err != nil {
					return CLIResult{}, err
				}
				out := occurrencesToCLI(occ)
				return CLIResult{Results: out, TotalCount: count(len(out))}, nil
			})
		},
	}
}

var undeclaredCmd = filterCommand("undeclared", "List references that resolve to no declaration",
	(*varscope.QueryBuilder).Undeclared)

var dynamicCmd = filterCommand("dynamic", "List identifiers whose binding is used inside a dynamic scope",
	(*varscope.QueryBuilder).DynamicTainted)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count files, scopes and identifiers in the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQuery("summary", func(q *varscope.QueryBuilder, e *varscope.Engine) (CLIResult, error) {
			s, err := q.Summary()
			if err != nil {
				return CLIResult{}, err
			}
			return CLIResult{Results: CLISummary{
				Files:          s.Files,
				Scopes:         s.Scopes,
				ScopesByKind:   s.ScopesByKind,
				Declarations:   s.Declarations,
				References:     s.References,
				Undeclared:     s.Undeclared,
				DynamicTainted: s.DynamicTainted,
				ByBindingKind:  s.ByBindingKind,
				Version:        e.StoredVersion(),
				Frontend:       e.Frontend(),
			}}, nil
		})
	},
}
