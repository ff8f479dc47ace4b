package services

import (
	"sort"
	"sync"

	"github.com/sophialabs/samplingconformance/internal/domain/match"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
)

type indexEntry struct {
	def      rule.Definition
	compiled *match.CompiledRule
}

// RuleIndex holds the emulator's live rules. It is safe for concurrent use;
// readers get a snapshot ordered by priority ascending, then name.
type RuleIndex struct {
	mu      sync.RWMutex
	entries map[string]indexEntry
	ordered []*match.CompiledRule
	defs    []rule.Definition
}

// NewRuleIndex creates an empty index.
func NewRuleIndex() *RuleIndex {
	return &RuleIndex{entries: make(map[string]indexEntry)}
}

// Put inserts or replaces a rule.
func (idx *RuleIndex) Put(def rule.Definition, compiled *match.CompiledRule) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[def.RuleName] = indexEntry{def: def, compiled: compiled}
	idx.build()
}

// Delete removes a rule and reports whether it existed.
func (idx *RuleIndex) Delete(name string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.entries[name]; !ok {
		return false
	}
	delete(idx.entries, name)
	idx.build()
	return true
}

// Get returns the definition stored under name.
func (idx *RuleIndex) Get(name string) (rule.Definition, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[name]
	return e.def, ok
}

// Ordered returns the compiled rules in evaluation order. The slice must not
// be modified.
func (idx *RuleIndex) Ordered() []*match.CompiledRule {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.ordered
}

// Definitions returns a copy of the definitions in evaluation order.
func (idx *RuleIndex) Definitions() []rule.Definition {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]rule.Definition, len(idx.defs))
	copy(out, idx.defs)
	return out
}

// Len returns the number of rules.
func (idx *RuleIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// build rebuilds the ordered snapshots. Callers hold the write lock.
func (idx *RuleIndex) build() {
	entries := make([]indexEntry, 0, len(idx.entries))
	for _, e := range idx.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].def.Priority != entries[j].def.Priority {
			return entries[i].def.Priority < entries[j].def.Priority
		}
		return entries[i].def.RuleName < entries[j].def.RuleName
	})

	// Fresh slices so snapshots handed out earlier stay valid.
	idx.ordered = make([]*match.CompiledRule, len(entries))
	idx.defs = make([]rule.Definition, len(entries))
	for i, e := range entries {
		idx.ordered[i] = e.compiled
		idx.defs[i] = e.def
	}
}
