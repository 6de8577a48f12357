package catalog

// Group is one category of recommended assignments in a baseline catalog.
type Group struct {
	Category string   `json:"category" yaml:"category"`
	Entries  []string `json:"entries" yaml:"entries"`
}

// Catalog is an ordered, read-only list of recommended assignment names
// grouped by category. It is supplied by an external source; this engine
// only reads it.
type Catalog struct {
	Groups []Group `json:"groups" yaml:"groups"`
}

// TotalEntries returns the number of recommended names across all groups.
func (c Catalog) TotalEntries() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Entries)
	}
	return n
}

// IsEmpty reports whether the catalog carries no entries at all.
func (c Catalog) IsEmpty() bool {
	return c.TotalEntries() == 0
}
