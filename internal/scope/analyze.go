package scope

import (
	"fmt"

	"github.com/jward/varscope/internal/jsast"
)

// Analyze runs all four passes over tree. On error no Analysis is returned.
func Analyze(tree *jsast.Tree, taxonomy Taxonomy) (*Analysis, error) {
	if err := taxonomy.Validate(); err != nil {
		return nil, err
	}
	a, err := Build(tree, taxonomy)
	if err != nil {
		return nil, err
	}
	if err := a.declare(); err != nil {
		return nil, fmt.Errorf("declare: %w", err)
	}
	a.resolveReferences()
	a.classify()
	return a, nil
}
