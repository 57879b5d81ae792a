package catalog

import "strings"

// ResolvedRef is the outcome of resolving a caller-supplied model identifier.
// When Valid is false, Provider and Model are empty but ResolvedID still
// carries the value that was attempted, so callers can log it.
type ResolvedRef struct {
	Valid      bool   `json:"isValid"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	ResolvedID string `json:"resolvedId"`
}

// Resolver turns arbitrary caller input into a validated canonical model
// reference. It is a pure function of the catalog and alias table, both of
// which are read-only after startup.
type Resolver struct {
	catalog *Catalog
	aliases *AliasTable
}

// NewResolver builds a resolver over a catalog and alias table.
func NewResolver(c *Catalog, aliases *AliasTable) *Resolver {
	return &Resolver{catalog: c, aliases: aliases}
}

// Resolve substitutes a known alias first (single substitution, never
// recursive), then requires the result to split into non-empty
// "provider:model" segments and to exist in the catalog. No default provider
// is guessed for bare names.
func (r *Resolver) Resolve(input string) ResolvedRef {
	id := input
	if r.aliases != nil {
		if target, ok := r.aliases.Lookup(input); ok {
			id = target
		}
	}

	provider, model, found := strings.Cut(id, ":")
	if !found || provider == "" || model == "" {
		return ResolvedRef{ResolvedID: id}
	}

	if _, ok := r.catalog.Get(id); !ok {
		return ResolvedRef{ResolvedID: id}
	}

	return ResolvedRef{
		Valid:      true,
		Provider:   provider,
		Model:      model,
		ResolvedID: id,
	}
}
