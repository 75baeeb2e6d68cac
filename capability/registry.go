package capability

import (
	"errors"
	"sync"
)

// Registry maps capability names to descriptors in insertion order.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Descriptor
	order  []string

	once    sync.Once
	initErr error
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Descriptor)}
}

// Init runs populate exactly once for the lifetime of r. Concurrent and
// later callers block until the first call returns and then get its error.
func (r *Registry) Init(populate func(*Registry) error) error {
	r.once.Do(func() {
		r.initErr = populate(r)
	})
	return r.initErr
}

// Register adds d. Registering an identical descriptor again is a no-op;
// a different descriptor under an existing name returns *DuplicateError.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return errors.New("capability: name is required")
	}
	if d.Handler == nil {
		return errors.New("capability: handler is required for " + d.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[d.Name]; ok {
		if existing.sameAs(d) {
			return nil
		}
		return &DuplicateError{Name: d.Name}
	}

	r.byName[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Resolve returns the descriptor registered under name or *NotFoundError.
func (r *Registry) Resolve(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, &NotFoundError{Name: name}
	}
	return d, nil
}

// List returns registered names in insertion order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Describe returns the metadata of name or *NotFoundError.
func (r *Registry) Describe(name string) (Metadata, error) {
	d, err := r.Resolve(name)
	if err != nil {
		return Metadata{}, err
	}
	return d.Metadata(), nil
}

// Catalogue exports every capability in insertion order.
func (r *Registry) Catalogue() []CatalogueEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]CatalogueEntry, 0, len(r.order))
	for _, name := range r.order {
		d := r.byName[name]
		params := make(map[string]string, len(d.Params))
		for _, p := range d.Params {
			params[p.Name] = p.Description
		}
		out = append(out, CatalogueEntry{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  params,
		})
	}
	return out
}
