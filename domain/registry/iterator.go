package registry

import (
	"bytes"

	"github.com/pkg/errors"
)

// Iterator enumerates domains and their records in the domain order
// (see DomainLess).
//
// An iterator starts positioned before its first entry, and Seek
// repositions it before the first domain at or after the given start.
// Seeking past the last domain is not an error; the following Next
// reports false. Next advances onto an entry and reports whether one is
// there; Get returns that entry, or the failure that occurred while
// advancing onto it. Close releases the iterator's resources and must be
// called exactly once.
type Iterator interface {
	Seek(start []byte) error
	Next() bool
	Get() (domain []byte, record *Record, err error)
	Close() error
}

// IterateDomains returns an iterator that merges the cache's staged
// changes into a base iterator over the underlying state: staged records
// override and interleave with base entries in domain order, and
// tombstoned domains are skipped. The merged iterator takes ownership of
// the base iterator and closes it when it is closed itself.
//
// The cache must not be mutated while the merged iterator is open.
func (c *Cache) IterateDomains(base Iterator) Iterator {
	it := &mergedIterator{cache: c, base: base}
	// Seek to the start so that the iterator is usable without an
	// explicit Seek. The call is superfluous if the caller seeks
	// somewhere else first, but it does not hurt much either. A seek
	// failure sticks to the iterator and surfaces on the first Get.
	_ = it.Seek(nil)
	return it
}

// mergedIterator combines a snapshot of the cache's staged entries with
// a base iterator. Both sources are already sorted, so each step takes
// whichever side holds the smaller next domain; when both hold the same
// domain the cache version wins and both advance.
type mergedIterator struct {
	cache *Cache
	base  Iterator

	// cacheEntries holds the staged entries at or after the seek start,
	// cacheIndex the position of the next one not yet consumed.
	cacheEntries []entryItem
	cacheIndex   int

	baseHasMore bool
	baseDomain  []byte
	baseRecord  *Record

	currentDomain []byte
	currentRecord *Record
	positioned    bool

	err    error
	closed bool
}

// advanceBase pulls the next base entry that is not tombstoned in the
// cache into baseDomain and baseRecord.
func (it *mergedIterator) advanceBase() error {
	for {
		if !it.base.Next() {
			it.baseHasMore = false
			return nil
		}
		domain, record, err := it.base.Get()
		if err != nil {
			return err
		}
		if it.cache.IsDeleted(domain) {
			continue
		}
		it.baseDomain, it.baseRecord = domain, record
		return nil
	}
}

func (it *mergedIterator) Seek(start []byte) error {
	if it.closed {
		return errors.New("cannot seek a closed iterator")
	}

	it.cacheEntries = it.cacheEntries[:0]
	it.cache.entries.AscendGreaterOrEqual(entryItem{domain: start},
		func(item entryItem) bool {
			it.cacheEntries = append(it.cacheEntries, item)
			return true
		})
	it.cacheIndex = 0

	it.positioned = false
	it.err = nil

	err := it.base.Seek(start)
	if err != nil {
		it.err = err
		return err
	}
	it.baseHasMore = true
	err = it.advanceBase()
	if err != nil {
		it.err = err
	}
	return err
}

func (it *mergedIterator) Next() bool {
	if it.closed {
		panic("cannot call next on a closed iterator")
	}
	if it.err != nil {
		// Hold the position so that Get reports the failure.
		return true
	}

	cacheHasMore := it.cacheIndex < len(it.cacheEntries)
	if !it.baseHasMore && !cacheHasMore {
		it.positioned = false
		return false
	}

	// Determine which source provides the next entry. When both sides
	// hold the same domain the cache version is the live one, and the
	// base entry it overrides is skipped.
	var useBase bool
	switch {
	case !it.baseHasMore:
		useBase = false
	case !cacheHasMore:
		useBase = true
	default:
		if bytes.Equal(it.baseDomain, it.cacheEntries[it.cacheIndex].domain) {
			err := it.advanceBase()
			if err != nil {
				it.err = err
				return true
			}
		}
		if !it.baseHasMore {
			useBase = false
		} else {
			useBase = DomainLess(it.baseDomain,
				it.cacheEntries[it.cacheIndex].domain)
		}
	}

	if useBase {
		it.currentDomain, it.currentRecord = it.baseDomain, it.baseRecord
		err := it.advanceBase()
		if err != nil {
			it.err = err
			return true
		}
	} else {
		next := it.cacheEntries[it.cacheIndex]
		it.currentDomain, it.currentRecord = next.domain, next.record
		it.cacheIndex++
	}

	it.positioned = true
	return true
}

func (it *mergedIterator) Get() ([]byte, *Record, error) {
	if it.closed {
		return nil, nil, errors.New("cannot get the current entry of a " +
			"closed iterator")
	}
	if it.err != nil {
		return nil, nil, it.err
	}
	if !it.positioned {
		return nil, nil, errors.New("cannot get the current entry of an " +
			"unpositioned iterator")
	}
	return it.currentDomain, it.currentRecord, nil
}

func (it *mergedIterator) Close() error {
	if it.closed {
		return errors.New("cannot close an already closed iterator")
	}
	it.closed = true
	it.cacheEntries = nil
	return it.base.Close()
}
