package catalog

import "fmt"

// AliasTable maps short human-friendly names to canonical model IDs.
// Resolution is single-hop: an alias points at a catalog ID, never at another
// alias, so cycles are impossible by construction.
type AliasTable struct {
	targets map[string]string
}

// NewAliasTable validates that every alias target exists in the catalog.
// A dangling target is a configuration bug and must surface at startup, not
// at request time.
func NewAliasTable(c *Catalog, entries map[string]string) (*AliasTable, error) {
	targets := make(map[string]string, len(entries))
	for alias, target := range entries {
		if alias == "" {
			return nil, fmt.Errorf("empty alias for target %q", target)
		}
		if _, ok := c.Get(target); !ok {
			return nil, fmt.Errorf("alias %q points to unknown model %q", alias, target)
		}
		targets[alias] = target
	}
	return &AliasTable{targets: targets}, nil
}

// Lookup returns the canonical ID for an alias, if registered.
func (t *AliasTable) Lookup(alias string) (string, bool) {
	target, ok := t.targets[alias]
	return target, ok
}

// Len returns the number of registered aliases.
func (t *AliasTable) Len() int {
	return len(t.targets)
}
