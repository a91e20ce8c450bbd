package registrystore

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/registry"
	"github.com/domiranet/domirad/infrastructure/db/database"
)

// Iterate returns an iterator over the stored records in domain order.
// The length-prefixed keys make the cursor's byte order the domain
// order, so the cursor is used as is.
func Iterate(db database.DataAccessor) (registry.Iterator, error) {
	cursor, err := db.Cursor(recordsBucket)
	if err != nil {
		return nil, err
	}
	return &storeIterator{cursor: cursor}, nil
}

// storeIterator adapts a database cursor to the registry's iterator
// contract. The cursor's Seek positions on the found pair rather than
// before it, so the entry found by a seek is held back until the first
// Next consumes it.
type storeIterator struct {
	cursor database.Cursor

	pending   bool
	exhausted bool
	closed    bool
}

func (it *storeIterator) Seek(start []byte) error {
	if it.closed {
		return errors.New("cannot seek a closed iterator")
	}

	err := it.cursor.Seek(recordsBucket.Key(domainKey(start)))
	if database.IsNotFoundError(err) {
		// No stored domain at or after the start. Not an error; the
		// next Next reports exhaustion.
		it.pending = false
		it.exhausted = true
		return nil
	}
	if err != nil {
		return err
	}
	it.pending = true
	it.exhausted = false
	return nil
}

func (it *storeIterator) Next() bool {
	if it.closed {
		panic("cannot call next on a closed iterator")
	}
	if it.exhausted {
		return false
	}
	if it.pending {
		it.pending = false
		return true
	}
	if !it.cursor.Next() {
		it.exhausted = true
		return false
	}
	return true
}

func (it *storeIterator) Get() ([]byte, *registry.Record, error) {
	if it.closed {
		return nil, nil, errors.New("cannot get the current entry of a " +
			"closed iterator")
	}
	if it.exhausted {
		return nil, nil, errors.New("cannot get the current entry of an " +
			"exhausted iterator")
	}
	if it.pending {
		return nil, nil, errors.New("cannot get the current entry of an " +
			"unpositioned iterator")
	}

	key, err := it.cursor.Key()
	if err != nil {
		return nil, nil, err
	}
	domain, err := domainFromKey(key.Suffix())
	if err != nil {
		return nil, nil, err
	}
	serialized, err := it.cursor.Value()
	if err != nil {
		return nil, nil, err
	}
	record, err := registry.DeserializeRecord(bytes.NewReader(serialized))
	if err != nil {
		return nil, nil, errors.Wrapf(err,
			"failed to deserialize the record of domain '%s'", domain)
	}
	return domain, record, nil
}

func (it *storeIterator) Close() error {
	if it.closed {
		return errors.New("cannot close an already closed iterator")
	}
	it.closed = true
	return it.cursor.Close()
}
