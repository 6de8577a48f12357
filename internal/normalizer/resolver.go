package normalizer

import (
	"fmt"
	"strings"
	"sync"
)

// StaticResolver resolves definitions from an in-memory table. It backs
// file-based assessment runs, where the input document carries its own
// definition metadata, and deterministic test fixtures.
type StaticResolver struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewStaticResolver creates a resolver over the given definitions, keyed by
// lowercased definition ID.
func NewStaticResolver(defs []Definition) *StaticResolver {
	r := &StaticResolver{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		r.defs[strings.ToLower(d.ID)] = d
	}
	return r
}

// Add registers or replaces a definition.
func (r *StaticResolver) Add(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[strings.ToLower(def.ID)] = def
}

// Resolve implements DefinitionResolver.
func (r *StaticResolver) Resolve(definitionID string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[strings.ToLower(definitionID)]
	if !ok {
		return nil, fmt.Errorf("definition %q not found", definitionID)
	}
	return &d, nil
}
