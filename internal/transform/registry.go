package transform

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownTransformer = errors.New("unknown transformer")

// Constructor builds a transformer for one contract.
type Constructor func(Params) (Transformer, error)

// Registry maps transformer names to constructors.
type Registry struct {
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

func (r *Registry) Register(name string, constructor Constructor) error {
	if name == "" {
		return fmt.Errorf("transformer name is required")
	}
	if constructor == nil {
		return fmt.Errorf("transformer %s: nil constructor", name)
	}
	if _, exists := r.constructors[name]; exists {
		return fmt.Errorf("transformer %s already registered", name)
	}
	r.constructors[name] = constructor
	return nil
}

func (r *Registry) New(name string, params Params) (Transformer, error) {
	constructor, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (known: %v)", ErrUnknownTransformer, name, r.Names())
	}
	if params.Store == nil {
		return nil, fmt.Errorf("transformer %s: store is nil", name)
	}
	return constructor(params)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
