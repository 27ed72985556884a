package engine

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
	"github.com/tailored-agentic-units/flow/schema"
)

// Catalog holds the named steps, predicates and contracts that declarative
// definitions refer to. Steps are registered under their own id.
type Catalog struct {
	mu         sync.RWMutex
	steps      map[string]*workflows.Step
	predicates map[string]workflows.Predicate
	contracts  map[string]*schema.Contract
}

// NewCatalog creates an empty catalog. The predicate "always" is built in.
func NewCatalog() *Catalog {
	return &Catalog{
		steps:      make(map[string]*workflows.Step),
		predicates: map[string]workflows.Predicate{"always": workflows.Always},
		contracts:  map[string]*schema.Contract{"any": schema.Any()},
	}
}

// RegisterStep adds steps by id. Registering an id twice is an error.
func (c *Catalog) RegisterStep(steps ...*workflows.Step) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, step := range steps {
		if step == nil || step.ID == "" {
			return fmt.Errorf("%w: step has no id", workflows.ErrInvalidStep)
		}
		if _, exists := c.steps[step.ID]; exists {
			return fmt.Errorf("%w: %q", workflows.ErrDuplicateStep, step.ID)
		}
		c.steps[step.ID] = step
	}
	return nil
}

// RegisterPredicate adds or replaces a named predicate.
func (c *Catalog) RegisterPredicate(name string, p workflows.Predicate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.predicates[name] = p
}

// RegisterContract adds or replaces a named contract.
func (c *Catalog) RegisterContract(name string, contract *schema.Contract) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contracts[name] = contract
}

func (c *Catalog) Step(id string) (*workflows.Step, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.steps[id]
	return s, ok
}

func (c *Catalog) Predicate(name string) (workflows.Predicate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.predicates[name]
	return p, ok
}

func (c *Catalog) Contract(name string) (*schema.Contract, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	contract, ok := c.contracts[name]
	return contract, ok
}

// Steps returns the registered step ids, sorted.
func (c *Catalog) Steps() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.steps))
}

// Predicates returns the registered predicate names, sorted.
func (c *Catalog) Predicates() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.predicates))
}

// Contracts returns the registered contract names, sorted.
func (c *Catalog) Contracts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.contracts))
}
