// Package config loads the optional .varscope.yaml project file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jward/varscope/internal/jsast"
	"github.com/jward/varscope/internal/scope"
)

// FileName is the project configuration file looked up by Find.
const FileName = ".varscope.yaml"

// Config is the on-disk configuration. Unset fields keep their defaults.
type Config struct {
	Frontend      string   `yaml:"frontend"`
	BlockKeywords []string `yaml:"block_keywords"`
	LexicalKinds  []string `yaml:"lexical_kinds"`
	BlockKinds    []string `yaml:"block_kinds"`
	DynamicKinds  []string `yaml:"dynamic_kinds"`
	Parallel      *bool    `yaml:"parallel"`
	SkipDirs      []string `yaml:"skip_dirs"`
}

// Parse decodes YAML configuration. Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if _, err := c.Taxonomy(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Find looks for FileName in dir and its ancestors.
func Find(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		p := filepath.Join(dir, FileName)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Taxonomy returns the default taxonomy with any configured kind sets or
// block keywords substituted in.
func (c *Config) Taxonomy() (scope.Taxonomy, error) {
	t := scope.DefaultTaxonomy()
	if c == nil {
		return t, nil
	}
	for _, set := range []struct {
		names []string
		dst   *[]jsast.Kind
	}{
		{c.LexicalKinds, &t.Lexical},
		{c.BlockKinds, &t.Block},
		{c.DynamicKinds, &t.Dynamic},
	} {
		if set.names == nil {
			continue
		}
		kinds, err := parseKinds(set.names)
		if err != nil {
			return scope.Taxonomy{}, err
		}
		*set.dst = kinds
	}
	if c.BlockKeywords != nil {
		t.BlockKeywords = append([]string(nil), c.BlockKeywords...)
	}
	if err := t.Validate(); err != nil {
		return scope.Taxonomy{}, fmt.Errorf("config: %w", err)
	}
	return t, nil
}

func parseKinds(names []string) ([]jsast.Kind, error) {
	kinds := make([]jsast.Kind, 0, len(names))
	for _, n := range names {
		k, ok := jsast.ParseKind(n)
		if !ok || k == jsast.KindOther {
			return nil, fmt.Errorf("config: unknown node kind %q", n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// ParallelOr returns the configured parallel setting or def when unset.
func (c *Config) ParallelOr(def bool) bool {
	if c == nil || c.Parallel == nil {
		return def
	}
	return *c.Parallel
}
