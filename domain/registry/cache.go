package registry

import (
	"bytes"

	"github.com/google/btree"
	"github.com/pkg/errors"
)

// DomainLess reports whether domain a sorts before domain b. Domains are
// ordered by length first and lexicographically within one length. The
// persistent store prefixes every domain key with its length so that raw
// byte order matches this comparator.
func DomainLess(a, b []byte) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return bytes.Compare(a, b) < 0
}

// btreeDegree is the branching factor of the cache's ordered trees.
const btreeDegree = 32

type entryItem struct {
	domain []byte
	record *Record
}

func entryLess(a, b entryItem) bool {
	return DomainLess(a.domain, b.domain)
}

type expireItem struct {
	height uint32
	domain []byte

	// add stages an index insert when true and an index delete when
	// false. It does not participate in the ordering, so staging the
	// opposite change for the same height and domain replaces it.
	add bool
}

func expireLess(a, b expireItem) bool {
	if a.height != b.height {
		return a.height < b.height
	}
	return bytes.Compare(a.domain, b.domain) < 0
}

// Cache is an overlay of registry changes staged on top of a base state.
// It holds new and updated records, tombstones for deleted domains,
// staged history stacks, and pending expiry-index changes. A cache is
// owned by exactly one chain-state view and performs no locking.
type Cache struct {
	entries     *btree.BTreeG[entryItem]
	deleted     map[string]struct{}
	history     map[string]*History
	expireIndex *btree.BTreeG[expireItem]

	trackHistory bool
}

// NewCache returns an empty cache. trackHistory enables the staging of
// history stacks; GetHistory and SetHistory panic without it.
func NewCache(trackHistory bool) *Cache {
	return &Cache{
		entries:      btree.NewG(btreeDegree, entryLess),
		deleted:      make(map[string]struct{}),
		history:      make(map[string]*History),
		expireIndex:  btree.NewG(btreeDegree, expireLess),
		trackHistory: trackHistory,
	}
}

// TracksHistory reports whether the cache stages history stacks.
func (c *Cache) TracksHistory() bool {
	return c.trackHistory
}

// Clear drops every staged change.
func (c *Cache) Clear() {
	c.entries.Clear(false)
	c.deleted = make(map[string]struct{})
	c.history = make(map[string]*History)
	c.expireIndex.Clear(false)
}

// Empty reports whether no changes are staged. A cache with staged
// history or expiry-index changes but no staged entries or tombstones is
// internally inconsistent and panics.
func (c *Cache) Empty() bool {
	if c.entries.Len() == 0 && len(c.deleted) == 0 {
		if len(c.history) != 0 || c.expireIndex.Len() != 0 {
			panic(errors.New("registry cache stages history or expiry " +
				"changes without entry changes"))
		}
		return true
	}
	return false
}

// IsDeleted reports whether the domain is tombstoned.
func (c *Cache) IsDeleted(domain []byte) bool {
	_, ok := c.deleted[string(domain)]
	return ok
}

// Get returns the staged record for the domain. It looks only at staged
// entries; a tombstoned domain reports not found, exactly like a domain
// the cache has no opinion on.
func (c *Cache) Get(domain []byte) (*Record, bool) {
	item, ok := c.entries.Get(entryItem{domain: domain})
	if !ok {
		return nil, false
	}
	return item.record, true
}

// Set stages a record for the domain, clearing any tombstone.
func (c *Cache) Set(domain []byte, record *Record) {
	delete(c.deleted, string(domain))
	c.entries.ReplaceOrInsert(entryItem{domain: domain, record: record})
}

// Remove tombstones the domain, dropping any staged record.
func (c *Cache) Remove(domain []byte) {
	c.entries.Delete(entryItem{domain: domain})
	c.deleted[string(domain)] = struct{}{}
}

// GetHistory returns the staged history for the domain.
func (c *Cache) GetHistory(domain []byte) (*History, bool) {
	if !c.trackHistory {
		panic(errors.New("domain history is not tracked"))
	}
	history, ok := c.history[string(domain)]
	return history, ok
}

// SetHistory stages a history stack for the domain. The cache takes
// ownership of the history.
func (c *Cache) SetHistory(domain []byte, history *History) {
	if !c.trackHistory {
		panic(errors.New("domain history is not tracked"))
	}
	c.history[string(domain)] = history
}

// UpdateDomainsForHeight applies the staged expiry-index changes for
// exactly the given height to a set of domains read from the base state:
// domains staged for addition are inserted and domains staged for
// removal are erased, in place.
func (c *Cache) UpdateDomainsForHeight(height uint32, domains map[string]struct{}) {
	c.expireIndex.AscendGreaterOrEqual(expireItem{height: height},
		func(item expireItem) bool {
			if item.height > height {
				return false
			}
			if item.add {
				domains[string(item.domain)] = struct{}{}
			} else {
				delete(domains, string(item.domain))
			}
			return true
		})
}

// AddExpireIndex stages an expiry-index insert for the domain at the
// given update height.
func (c *Cache) AddExpireIndex(domain []byte, height uint32) {
	c.expireIndex.ReplaceOrInsert(expireItem{height: height, domain: domain, add: true})
}

// RemoveExpireIndex stages an expiry-index delete for the domain at the
// given update height.
func (c *Cache) RemoveExpireIndex(domain []byte, height uint32) {
	c.expireIndex.ReplaceOrInsert(expireItem{height: height, domain: domain, add: false})
}

// Apply folds all changes staged in a child cache on top of this one.
// The child is left unchanged, but this cache takes ownership of the
// records and histories it references.
func (c *Cache) Apply(other *Cache) {
	if c.trackHistory != other.trackHistory {
		panic(errors.New("folding registry caches with different history " +
			"tracking"))
	}

	other.entries.Ascend(func(item entryItem) bool {
		c.Set(item.domain, item.record)
		return true
	})
	for domain := range other.deleted {
		c.Remove([]byte(domain))
	}
	for domain, history := range other.history {
		c.history[domain] = history
	}
	other.expireIndex.Ascend(func(item expireItem) bool {
		c.expireIndex.ReplaceOrInsert(item)
		return true
	})
}

// ForEachEntry calls fn for every staged record in domain order.
func (c *Cache) ForEachEntry(fn func(domain []byte, record *Record) error) error {
	var err error
	c.entries.Ascend(func(item entryItem) bool {
		err = fn(item.domain, item.record)
		return err == nil
	})
	return err
}

// ForEachDeleted calls fn for every tombstoned domain. The order is not
// specified.
func (c *Cache) ForEachDeleted(fn func(domain []byte) error) error {
	for domain := range c.deleted {
		err := fn([]byte(domain))
		if err != nil {
			return err
		}
	}
	return nil
}

// ForEachHistory calls fn for every staged history stack. The order is
// not specified.
func (c *Cache) ForEachHistory(fn func(domain []byte, history *History) error) error {
	for domain, history := range c.history {
		err := fn([]byte(domain), history)
		if err != nil {
			return err
		}
	}
	return nil
}

// ForEachExpireIndexChange calls fn for every staged expiry-index change
// in (height, domain) order. add reports whether the change inserts the
// index entry or deletes it.
func (c *Cache) ForEachExpireIndexChange(
	fn func(height uint32, domain []byte, add bool) error) error {

	var err error
	c.expireIndex.Ascend(func(item expireItem) bool {
		err = fn(item.height, item.domain, item.add)
		return err == nil
	})
	return err
}
