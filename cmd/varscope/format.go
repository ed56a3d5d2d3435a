package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/jward/varscope"
)

// stdout is where results are written; tests replace it.
var stdout io.Writer = os.Stdout

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatOccurrencesText formats CLIOccurrence results as aligned columns.
func formatOccurrencesText(w io.Writer, occ []CLIOccurrence) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "POSITION\tNAME\tBINDING\tFLAGS\tDECLARED AT")
	for _, o := range occ {
		declared := "-"
		if o.DeclaredAt != nil {
			declared = fmt.Sprintf("%d:%d", o.DeclaredAt.StartLine, o.DeclaredAt.StartCol)
		}
		fmt.Fprintf(tw, "%s:%d:%d\t%s\t%s\t%s\t%s\n",
			o.File, o.StartLine, o.StartCol, o.Name, o.BindingKind, occurrenceFlags(o), declared)
	}
	tw.Flush()
}

func occurrenceFlags(o CLIOccurrence) string {
	var flags []string
	if o.Declaration {
		flags = append(flags, "decl")
	}
	if o.TopLevel {
		flags = append(flags, "top")
	}
	if o.UsedInDynamic {
		flags = append(flags, "dyn-used")
	}
	if o.InsideDynamic {
		flags = append(flags, "in-dyn")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

// formatScopesText formats CLIScope results as aligned columns.
func formatScopesText(w io.Writer, scopes []CLIScope) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPARENT\tCATEGORY\tNODE\tSPAN")
	for _, s := range scopes {
		parent := "-"
		if s.ParentID != nil {
			parent = fmt.Sprintf("%d", *s.ParentID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d:%d-%d:%d\n",
			s.ID, parent, s.Category, s.NodeType, s.StartLine, s.StartCol, s.EndLine, s.EndCol)
	}
	tw.Flush()
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLANGUAGE\tLINES")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", f.ID, f.Path, f.Language, f.LineCount)
	}
	tw.Flush()
}

// formatSummaryText formats CLISummary as readable text.
func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintln(w, "Summary")
	fmt.Fprintln(w, "=======")
	if s.Version != "" {
		fmt.Fprintf(w, "Analyzer: %s (%s)\n", s.Version, s.Frontend)
	}
	fmt.Fprintf(w, "Files: %d\n", s.Files)
	fmt.Fprintf(w, "Scopes: %d\n", s.Scopes)
	writeCounts(w, s.ScopesByKind)
	fmt.Fprintf(w, "Declarations: %d\n", s.Declarations)
	fmt.Fprintf(w, "References: %d\n", s.References)
	fmt.Fprintf(w, "Undeclared: %d\n", s.Undeclared)
	fmt.Fprintf(w, "Used in dynamic scope: %d\n", s.DynamicTainted)
	fmt.Fprintln(w, "Binding kinds:")
	writeCounts(w, s.ByBindingKind)
}

func writeCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, counts[k])
	}
}

// outputResult writes a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(stdout, result)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case CLILocation:
		formatLocationsText(w, []CLILocation{v})
	case []CLIOccurrence:
		formatOccurrencesText(w, v)
	case CLIOccurrence:
		formatOccurrencesText(w, []CLIOccurrence{v})
	case []CLIScope:
		formatScopesText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case CLISummary:
		formatSummaryText(w, v)
	case nil:
		// No output for nil results (e.g., definition of an undeclared name).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

func locationToCLI(loc varscope.Location) CLILocation {
	return CLILocation{
		File:      loc.File,
		StartLine: loc.StartLine,
		StartCol:  loc.StartCol,
		EndLine:   loc.EndLine,
		EndCol:    loc.EndCol,
	}
}

func occurrenceToCLI(o varscope.Occurrence) CLIOccurrence {
	c := CLIOccurrence{
		CLILocation:   locationToCLI(o.Location),
		ID:            o.ID,
		Unit:          o.Unit,
		Name:          o.Name,
		Declaration:   o.Declaration,
		BindingKind:   o.BindingKind,
		TopLevel:      o.TopLevel,
		UsedInDynamic: o.UsedInDynamic,
		InsideDynamic: o.InsideDynamic,
	}
	if o.DeclaredAt != nil {
		d := locationToCLI(*o.DeclaredAt)
		c.DeclaredAt = &d
	}
	return c
}

func occurrencesToCLI(occ []varscope.Occurrence) []CLIOccurrence {
	out := make([]CLIOccurrence, len(occ))
	for i, o := range occ {
		out[i] = occurrenceToCLI(o)
	}
	return out
}

func scopesToCLI(scopes []*varscope.Scope) []CLIScope {
	out := make([]CLIScope, len(scopes))
	for i, s := range scopes {
		out[i] = CLIScope{
			ID:        s.ID,
			Unit:      s.Unit,
			Category:  s.Category,
			NodeType:  s.NodeType,
			StartLine: s.StartLine,
			StartCol:  s.StartCol,
			EndLine:   s.EndLine,
			EndCol:    s.EndCol,
			ParentID:  s.ParentScopeID,
		}
	}
	return out
}

func count(n int) *int { return &n }
