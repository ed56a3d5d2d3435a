// Package frontend selects the parser that turns source files into jsast
// trees.
package frontend

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jward/varscope/internal/frontend/gojafe"
	"github.com/jward/varscope/internal/frontend/htmlscript"
	"github.com/jward/varscope/internal/frontend/treesitter"
	"github.com/jward/varscope/internal/jsast"
)

// Parser turns JavaScript source into a jsast tree.
type Parser interface {
	Name() string
	Parse(ctx context.Context, filename string, src []byte) (*jsast.Tree, error)
}

// Default is the front-end used when none is configured.
const Default = treesitter.Name

var parsers = map[string]Parser{
	treesitter.Name: treesitter.Parser{},
	gojafe.Name:     gojafe.Parser{},
}

// For returns the parser registered under name.
func For(name string) (Parser, error) {
	if name == "" {
		name = Default
	}
	p, ok := parsers[name]
	if !ok {
		return nil, fmt.Errorf("frontend: unknown parser %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names lists the registered parser names.
func Names() []string {
	names := make([]string, 0, len(parsers))
	for n := range parsers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Language names returned by LanguageForFile.
const (
	LangJavaScript = "javascript"
	LangHTML       = "html"
)

var extToLanguage = map[string]string{
	".js":   LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".jsx":  LangJavaScript,
	".html": LangHTML,
	".htm":  LangHTML,
}

// LanguageForFile returns the language of a file from its extension.
func LanguageForFile(path string) (string, bool) {
	lang, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Unit is one independently analysed program within a file. JavaScript
// files have one unit; HTML files have one per inline script.
type Unit struct {
	Index int
	Tree  *jsast.Tree
}

// ParseFile parses every program in a file of the given language.
func ParseFile(ctx context.Context, p Parser, lang, filename string, src []byte) ([]Unit, error) {
	switch lang {
	case LangJavaScript:
		tree, err := p.Parse(ctx, filename, src)
		if err != nil {
			return nil, err
		}
		return []Unit{{Index: 0, Tree: tree}}, nil
	case LangHTML:
		scripts, err := htmlscript.Extract(src)
		if err != nil {
			return nil, fmt.Errorf("frontend: extract scripts from %s: %w", filename, err)
		}
		units := make([]Unit, 0, len(scripts))
		for i, s := range scripts {
			tree, err := p.Parse(ctx, fmt.Sprintf("%s#script%d", filename, i), s.Source)
			if err != nil {
				return nil, err
			}
			units = append(units, Unit{Index: i, Tree: tree})
		}
		return units, nil
	}
	return nil, fmt.Errorf("frontend: unsupported language %q", lang)
}
