// internal/forms/registry.go
package forms

import (
	"fmt"
	"strings"

	"rts-portal/internal/models"
)

// Registry indexes form definitions by route, type and tracking prefix.
type Registry struct {
	ordered  []*Definition
	byRoute  map[string]*Definition
	byType   map[models.ApplicationType]*Definition
	byPrefix map[string]*Definition
}

// NewRegistry compiles each definition's schema and rejects duplicates.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{
		byRoute:  make(map[string]*Definition, len(defs)),
		byType:   make(map[models.ApplicationType]*Definition, len(defs)),
		byPrefix: make(map[string]*Definition, len(defs)),
	}
	for _, d := range defs {
		if len(d.Prefix) != prefixLength || strings.ToUpper(d.Prefix) != d.Prefix {
			return nil, fmt.Errorf("form %s: prefix %q must be %d upper-case letters", d.Route, d.Prefix, prefixLength)
		}
		route := strings.ToLower(d.Route)
		if _, dup := r.byRoute[route]; dup {
			return nil, fmt.Errorf("duplicate form route %s", d.Route)
		}
		if _, dup := r.byType[d.Type]; dup {
			return nil, fmt.Errorf("duplicate application type %s", d.Type)
		}
		if _, dup := r.byPrefix[d.Prefix]; dup {
			return nil, fmt.Errorf("duplicate tracking prefix %s", d.Prefix)
		}
		if err := d.compile(); err != nil {
			return nil, fmt.Errorf("form %s: %w", d.Route, err)
		}
		r.ordered = append(r.ordered, d)
		r.byRoute[route] = d
		r.byType[d.Type] = d
		r.byPrefix[d.Prefix] = d
	}
	return r, nil
}

var builtin = mustRegistry(catalogue()...)

func mustRegistry(defs ...*Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the registry of the portal's nine application forms.
func Default() *Registry {
	return builtin
}

// All returns the definitions in registration order.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// ByRoute matches the route segment case-insensitively.
func (r *Registry) ByRoute(route string) (*Definition, bool) {
	d, ok := r.byRoute[strings.ToLower(route)]
	return d, ok
}

func (r *Registry) ByType(t models.ApplicationType) (*Definition, bool) {
	d, ok := r.byType[t]
	return d, ok
}

func (r *Registry) ByPrefix(prefix string) (*Definition, bool) {
	d, ok := r.byPrefix[prefix]
	return d, ok
}

// ForTrackingCode resolves the form a canonical tracking code belongs to.
func (r *Registry) ForTrackingCode(code string) (*Definition, bool) {
	if !trackingCodePattern.MatchString(code) {
		return nil, false
	}
	return r.ByPrefix(code[:prefixLength])
}

// ValidTrackingCode reports whether code is canonical for a registered form.
func (r *Registry) ValidTrackingCode(code string) bool {
	_, ok := r.ForTrackingCode(code)
	return ok
}
