// Package ids generates identifiers for document model entries.
//
// Node and annotation ids are "<type>_<n>" with one counter per type. A
// Generator belongs to a single import call; nothing here is shared between
// calls.
package ids

import (
	"strconv"

	"github.com/google/uuid"
)

// Generator hands out per-type sequential ids.
type Generator struct {
	counters map[string]int
}

// New returns a Generator whose counters all start at 1.
func New() *Generator {
	return &Generator{counters: make(map[string]int)}
}

// Next returns the next id for typ.
func (g *Generator) Next(typ string) string {
	g.counters[typ]++
	return typ + "_" + strconv.Itoa(g.counters[typ])
}

// Count returns how many ids have been issued for typ.
func (g *Generator) Count(typ string) int {
	return g.counters[typ]
}

// DocumentID returns a fresh, time-sortable document id.
func DocumentID() string {
	return uuid.Must(uuid.NewV7()).String()
}
