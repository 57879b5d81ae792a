package catalog

import (
	"fmt"
	"strings"
)

// Capabilities flags what a model can consume and produce.
type Capabilities struct {
	Text      bool `json:"text"`
	Image     bool `json:"image"`
	Tools     bool `json:"tools"`
	Reasoning bool `json:"reasoning"`
}

// ModelDescriptor describes one upstream model known to the gateway.
// IDs are globally unique and always have the form "provider:model".
type ModelDescriptor struct {
	ID           string       `json:"id"`
	DisplayName  string       `json:"name"`
	Provider     string       `json:"provider"`
	Description  string       `json:"description,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

// Catalog is the source of truth for which models exist and what they can do.
// It is populated once at startup and read-only afterwards, so lookups need
// no locking.
type Catalog struct {
	byID  map[string]ModelDescriptor
	order []ModelDescriptor
}

// NewCatalog builds a catalog from the given descriptors. A duplicate ID or a
// descriptor whose ID does not match its Provider segment is a configuration
// error and fails immediately rather than silently overwriting.
func NewCatalog(descriptors []ModelDescriptor) (*Catalog, error) {
	c := &Catalog{
		byID:  make(map[string]ModelDescriptor, len(descriptors)),
		order: make([]ModelDescriptor, 0, len(descriptors)),
	}

	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("model descriptor %q has an empty id", d.DisplayName)
		}
		if _, exists := c.byID[d.ID]; exists {
			return nil, fmt.Errorf("duplicate model id: %s", d.ID)
		}
		provider, _, ok := strings.Cut(d.ID, ":")
		if !ok || provider != d.Provider {
			return nil, fmt.Errorf("model id %q does not match provider %q", d.ID, d.Provider)
		}
		c.byID[d.ID] = d
		c.order = append(c.order, d)
	}

	return c, nil
}

// Get performs an exact lookup by ID. Alias resolution happens in the
// Resolver, never here.
func (c *Catalog) Get(id string) (ModelDescriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// List returns all descriptors in declaration order. The order is stable so
// UI population stays deterministic across calls.
func (c *Catalog) List() []ModelDescriptor {
	out := make([]ModelDescriptor, len(c.order))
	copy(out, c.order)
	return out
}

// ListByProvider returns all descriptors for one provider, in declaration
// order.
func (c *Catalog) ListByProvider(provider string) []ModelDescriptor {
	var out []ModelDescriptor
	for _, d := range c.order {
		if d.Provider == provider {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of registered models.
func (c *Catalog) Len() int {
	return len(c.order)
}
