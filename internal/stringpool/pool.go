// Package stringpool interns short, frequently repeated strings
// (process names, application names, writer names, level names, tags)
// so that equal values share one representation, and caches the
// store-assigned numeric id for each interned name.
//
// Adapted from the in-memory map store pattern used elsewhere in this
// module for docstore-style lookups: a RWMutex-guarded map, lazy init,
// never shrunk for the lifetime of the pool.
package stringpool

import "sync"

// Pool interns strings. It is initialised lazily (the zero value is
// ready to use) and shrinks only on Reset. Interning is per Pool value,
// not process-wide: each accessor holds its own Pool, so two open
// stores do not share canonical instances.
type Pool struct {
	mu      sync.RWMutex
	strings map[string]string
}

// Intern returns the canonical shared instance for s, interning it on
// first sight. Two equal strings passed to Intern always return values
// that are == after the first call.
func (p *Pool) Intern(s string) string {
	p.mu.RLock()
	if canon, ok := p.strings[s]; ok {
		p.mu.RUnlock()
		return canon
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.strings == nil {
		p.strings = make(map[string]string)
	}
	if canon, ok := p.strings[s]; ok {
		return canon
	}
	p.strings[s] = s
	return s
}

// Len reports how many distinct strings are currently interned.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.strings)
}

// Reset discards every interned string. Called on clear-all, since
// none of the previously interned dictionary names are guaranteed to
// still be referenced.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strings = nil
}

// NameIDCache is the per-accessor, per-dictionary overlay mapping an
// interned name to the id the backing store assigned it. It is
// authoritative until Reset is called (on a clear-all).
type NameIDCache struct {
	mu  sync.RWMutex
	ids map[string]int64
}

// Lookup returns the cached id for name, if any.
func (c *NameIDCache) Lookup(name string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[name]
	return id, ok
}

// Store records the id assigned to name.
func (c *NameIDCache) Store(name string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ids == nil {
		c.ids = make(map[string]int64)
	}
	c.ids[name] = id
}

// Reset discards every cached name->id mapping. Called on clear-all,
// since the dictionary rows it mirrors no longer exist.
func (c *NameIDCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = nil
}
