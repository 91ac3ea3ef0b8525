package lctable

import "github.com/spacely/limitchecker/internal/lcfield"

// CustomPredicate is invoked by the watchpoint evaluator when a
// WatchpointDefinition's Operator is OpCustom (spec.md §4.2). A returned
// error maps to WatchResult ERROR.
type CustomPredicate func(value lcfield.Scalar, arg uint32) (bool, error)

// Registry holds the custom predicates named by CustomPredicateName.
// Populated by the host application at startup, before the table service
// publishes the Tables handle; read-only thereafter.
type Registry struct {
	predicates map[string]CustomPredicate
}

func NewRegistry() *Registry {
	return &Registry{predicates: make(map[string]CustomPredicate)}
}

func (r *Registry) Register(name string, pred CustomPredicate) {
	r.predicates[name] = pred
}

func (r *Registry) Lookup(name string) (CustomPredicate, bool) {
	pred, ok := r.predicates[name]
	return pred, ok
}
