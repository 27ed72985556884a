package content

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/tailored-agentic-units/flow/engine"
)

// Contract names registered in an engine catalog.
const (
	ContractArticle   = "content.article"
	ContractProcessed = "content.processed"
	ContractReport    = "content.report"
)

//go:embed definitions/*.yaml
var definitionFS embed.FS

// Register adds the steps, predicates and contracts of s to catalog so that
// declarative definitions can refer to them by name.
func Register(catalog *engine.Catalog, s *Steps) error {
	if err := catalog.RegisterStep(s.All()...); err != nil {
		return fmt.Errorf("register content steps: %w", err)
	}

	catalog.RegisterPredicate(PredicateShort, IsShort)
	catalog.RegisterPredicate(PredicateLongOrComplex, IsLongOrComplex)
	catalog.RegisterPredicate(PredicateMediumSimple, IsMediumSimple)

	catalog.RegisterContract(ContractArticle, Article())
	catalog.RegisterContract(ContractProcessed, Processed())
	catalog.RegisterContract(ContractReport, Report())
	return nil
}

// Definitions returns the declarative form of the reference workflows.
func Definitions() ([]*engine.Definition, error) {
	names, err := fs.Glob(definitionFS, "definitions/*.yaml")
	if err != nil {
		return nil, err
	}

	defs := make([]*engine.Definition, 0, len(names))
	for _, name := range names {
		data, err := definitionFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		def, err := engine.ParseDefinition(path.Base(name), data)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
