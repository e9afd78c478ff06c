package registry

import (
	"slices"
	"time"

	"github.com/claudekit-labs/claudekit/internal/manifest"
)

// DiscoverOptions filters and controls a discovery call.
type DiscoverOptions struct {
	IncludeDisabled bool
	Categories      []manifest.Category // empty means all
	Types           []manifest.Type     // empty means all
	ForceRefresh    bool
}

// Registry is an immutable snapshot of the components found under one
// source root. Every key of Dependencies and Dependents is either a
// component id or a known external tool.
type Registry struct {
	Root         string
	Components   map[string]*manifest.Component
	Dependencies map[string]map[string]bool // id -> ids it depends on
	Dependents   map[string]map[string]bool // id -> ids depending on it
	Categories   map[manifest.Category]map[string]bool
	Types        map[manifest.Type]map[string]bool
	LastScan     time.Time
	Valid        bool
	Skipped      []SkippedFile

	order []string // ids in discovery order
}

// SkippedFile is a source file left out of a scan.
type SkippedFile struct {
	Path   string
	Reason string
}

func newRegistry(root string, scannedAt time.Time) *Registry {
	return &Registry{
		Root:         root,
		Components:   make(map[string]*manifest.Component),
		Dependencies: make(map[string]map[string]bool),
		Dependents:   make(map[string]map[string]bool),
		Categories:   make(map[manifest.Category]map[string]bool),
		Types:        make(map[manifest.Type]map[string]bool),
		LastScan:     scannedAt,
		Valid:        true,
	}
}

// NewFromComponents builds a registry snapshot from an in-memory component
// list. Later duplicates of an id are ignored.
func NewFromComponents(components []*manifest.Component) *Registry {
	reg := newRegistry("", time.Now())
	for _, c := range components {
		reg.add(c)
	}
	reg.buildIndexes()
	return reg
}

// add inserts a component unless its id is already present.
func (r *Registry) add(c *manifest.Component) bool {
	if _, exists := r.Components[c.ID]; exists {
		return false
	}
	r.Components[c.ID] = c
	r.order = append(r.order, c.ID)
	return true
}

// buildIndexes derives the dependency, dependent, category, and type
// indexes from the component map.
func (r *Registry) buildIndexes() {
	for _, id := range r.order {
		c := r.Components[id]

		addToSet(r.Categories, c.Category, id)
		addToSet(r.Types, c.Type, id)

		deps := make(map[string]bool)
		for _, dep := range c.AllDependencies(false) {
			if _, ok := r.Components[dep]; !ok && !manifest.IsKnownTool(dep) {
				continue
			}
			deps[dep] = true
			addToSet(r.Dependents, dep, id)
		}
		r.Dependencies[id] = deps
	}
}

func addToSet[K comparable](m map[K]map[string]bool, key K, id string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]bool)
		m[key] = set
	}
	set[id] = true
}

// Get returns the component with the given id.
func (r *Registry) Get(id string) (*manifest.Component, bool) {
	c, ok := r.Components[id]
	return c, ok
}

// Has reports whether id is a component in the registry.
func (r *Registry) Has(id string) bool {
	_, ok := r.Components[id]
	return ok
}

// Len returns the number of components.
func (r *Registry) Len() int {
	return len(r.Components)
}

// IDs returns component ids in discovery order.
func (r *Registry) IDs() []string {
	return slices.Clone(r.order)
}

// All returns components in discovery order.
func (r *Registry) All() []*manifest.Component {
	out := make([]*manifest.Component, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.Components[id])
	}
	return out
}

// ByType returns the components of a type, in discovery order.
func (r *Registry) ByType(t manifest.Type) []*manifest.Component {
	return r.filterOrdered(r.Types[t])
}

func (r *Registry) filterOrdered(set map[string]bool) []*manifest.Component {
	var out []*manifest.Component
	for _, id := range r.order {
		if set[id] {
			out = append(out, r.Components[id])
		}
	}
	return out
}

// Filter returns a new snapshot containing only components matching opts.
// The receiver is not modified.
func (r *Registry) Filter(opts DiscoverOptions) *Registry {
	out := newRegistry(r.Root, r.LastScan)
	out.Valid = r.Valid
	out.Skipped = slices.Clone(r.Skipped)
	for _, id := range r.order {
		c := r.Components[id]
		if !c.Enabled && !opts.IncludeDisabled {
			continue
		}
		if len(opts.Categories) > 0 && !slices.Contains(opts.Categories, c.Category) {
			continue
		}
		if len(opts.Types) > 0 && !slices.Contains(opts.Types, c.Type) {
			continue
		}
		out.add(c)
	}
	out.buildIndexes()
	return out
}
