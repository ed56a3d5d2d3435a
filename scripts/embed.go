// Package scripts embeds the stock Risor reports shipped with varscope.
// Run one with Engine.RunScript after configuring the engine with
// WithScriptsFS(scripts.FS), e.g. "reports/undeclared.risor".
package scripts

import "embed"

// FS holds every report under reports/.
//
//go:embed reports/*.risor
var FS embed.FS

// Report returns the path of the named stock report within FS.
func Report(name string) string {
	return "reports/" + name + ".risor"
}
