package varscope

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/jward/varscope/internal/jsast"
	"github.com/jward/varscope/internal/store"
)

// Version is the analyzer version recorded in every database it writes.
// Databases written by a different minor version are rebuilt, since the
// stored classifications may differ.
const Version = "0.4.0"

const (
	metaVersion    = "analyzer_version"
	metaConfigHash = "config_hash"
)

// VersionChanged reports whether the database was written by an analyzer
// whose output may differ from this one: a different major or minor
// version, or none recorded at all.
func (e *Engine) VersionChanged() bool {
	stored, err := e.store.GetMetadata(metaVersion)
	if err != nil || stored == "" {
		return true
	}
	return !compatibleVersion(stored, Version)
}

// compatibleVersion reports whether stored shares current's major and minor
// version, in either patch direction.
func compatibleVersion(stored, current string) bool {
	v, err := semver.NewVersion(stored)
	if err != nil {
		return false
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	c, err := semver.NewConstraint(fmt.Sprintf("~%d.%d", cur.Major(), cur.Minor()))
	if err != nil {
		return false
	}
	return c.Check(v)
}

// ConfigChanged reports whether the database was built with a different
// front-end or taxonomy.
func (e *Engine) ConfigChanged() bool {
	stored, err := e.store.GetMetadata(metaConfigHash)
	if err != nil || stored == "" {
		return true
	}
	return stored != e.configHash()
}

// NeedsRebuild reports whether existing data must be discarded before
// indexing.
func (e *Engine) NeedsRebuild() bool {
	return e.VersionChanged() || e.ConfigChanged()
}

// Stamp records the analyzer version and configuration in the database.
func (e *Engine) Stamp() error {
	if err := e.store.SetMetadata(metaVersion, Version); err != nil {
		return fmt.Errorf("varscope: stamp: %w", err)
	}
	if err := e.store.SetMetadata(metaConfigHash, e.configHash()); err != nil {
		return fmt.Errorf("varscope: stamp: %w", err)
	}
	return nil
}

func (e *Engine) configHash() string {
	return store.ComputeConfigHash(
		e.parser.Name(),
		kindNames(e.taxonomy.Lexical),
		kindNames(e.taxonomy.Block),
		kindNames(e.taxonomy.Dynamic),
		e.taxonomy.BlockKeywords,
	)
}

func kindNames(kinds []jsast.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.String()
	}
	return out
}

// StoredVersion returns the analyzer version recorded in the database.
func (e *Engine) StoredVersion() string {
	v, _ := e.store.GetMetadata(metaVersion)
	return strings.TrimSpace(v)
}
