// Package pattern interns the dependency lists recorded during query
// execution. Sibling properties frequently read the same few upstream
// properties, so sharing one canonical instance per distinct list amortizes
// both memory and reverse-index maintenance.
package pattern

import (
	"encoding/binary"
	"hash/maphash"
	"sync/atomic"

	"github.com/vk/propgrid/internal/propkey"
	"github.com/vk/propgrid/internal/shardmap"
)

// Pattern is an interned, reference-counted, ordered dependency list. Two
// computations whose recorded lists are equal share the identical *Pattern;
// callers may compare handles by pointer identity.
type Pattern struct {
	deps []propkey.Dependency
	fp   string
	refs atomic.Int64
}

// Dependencies returns the interned list. Callers must not mutate it.
func (p *Pattern) Dependencies() []propkey.Dependency {
	if p == nil {
		return nil
	}
	return p.deps
}

// Len returns the number of dependencies in the pattern.
func (p *Pattern) Len() int {
	if p == nil {
		return 0
	}
	return len(p.deps)
}

// Stats is a point-in-time snapshot of cache behavior, for diagnostics only.
type Stats struct {
	Size     int
	Hits     uint64
	Misses   uint64
	Released uint64
}

var fpSeed = maphash.MakeSeed()

// Cache deduplicates dependency patterns. Safe for concurrent interning;
// racing inserts of the same list resolve to one canonical winner.
type Cache struct {
	entries  *shardmap.Map[string, *Pattern]
	hits     atomic.Uint64
	misses   atomic.Uint64
	released atomic.Uint64
}

// NewCache creates an empty pattern cache.
func NewCache() *Cache {
	return &Cache{
		entries: shardmap.New[string, *Pattern](func(fp string) uint64 {
			return maphash.String(fpSeed, fp)
		}),
	}
}

// Intern returns the canonical Pattern for the given ordered dependency
// list, retaining one reference on behalf of the caller. The caller must
// pair it with Release when the owning property slot lets go of the pattern.
func (c *Cache) Intern(deps []propkey.Dependency) *Pattern {
	fp := fingerprint(deps)

	var out *Pattern
	c.entries.Update(fp, func(cur *Pattern, ok bool) (*Pattern, bool) {
		if ok {
			cur.refs.Add(1)
			c.hits.Add(1)
			out = cur
			return cur, true
		}
		p := &Pattern{deps: append([]propkey.Dependency(nil), deps...), fp: fp}
		p.refs.Add(1)
		c.misses.Add(1)
		out = p
		return p, true
	})
	return out
}

// Release drops one reference. The interned entry is evicted once no
// property slot references it anymore.
func (c *Cache) Release(p *Pattern) {
	if p == nil {
		return
	}
	c.entries.Update(p.fp, func(cur *Pattern, ok bool) (*Pattern, bool) {
		if !ok {
			return cur, false
		}
		if cur.refs.Add(-1) > 0 {
			return cur, true
		}
		c.released.Add(1)
		return nil, false
	})
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Size:     c.entries.Len(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Released: c.released.Load(),
	}
}

// fingerprint builds the normalized representation used as the interning
// key: query identity and key hash of every dependency, in order.
func fingerprint(deps []propkey.Dependency) string {
	buf := make([]byte, 0, len(deps)*24)
	for _, d := range deps {
		buf = append(buf, d.Query...)
		buf = append(buf, 0)
		buf = binary.LittleEndian.AppendUint64(buf, d.KeyHash)
	}
	return string(buf)
}
