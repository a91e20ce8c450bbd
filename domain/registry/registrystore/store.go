// Package registrystore persists the domain registry: the current
// records, their histories, the expiry index and the registry set
// commitment, all under one bucket of the node's database.
package registrystore

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/registry"
	"github.com/domiranet/domirad/infrastructure/db/database"
)

var (
	registryBucket = database.MakeBucket([]byte("registry"))

	// recordsBucket holds the current record of every registered domain,
	// keyed by the length-prefixed domain.
	recordsBucket = registryBucket.Bucket([]byte("records"))

	// historiesBucket holds the history stack of every domain that has
	// one, keyed like recordsBucket. Only populated when the node tracks
	// history.
	historiesBucket = registryBucket.Bucket([]byte("histories"))

	// expireIndexBucket indexes domains by the height of their last
	// update, keyed by big-endian height followed by the raw domain. The
	// values are empty; the key is the datum.
	expireIndexBucket = registryBucket.Bucket([]byte("expire"))

	// commitmentKey holds the serialized multiset hash over all records.
	commitmentKey = registryBucket.Key([]byte("commitment"))
)

// domainKey returns the database key suffix for a domain: a one byte
// length prefix followed by the domain itself. Plain byte order over
// these keys equals the domain order, length first and lexicographic
// within one length.
func domainKey(domain []byte) []byte {
	key := make([]byte, 1+len(domain))
	key[0] = byte(len(domain))
	copy(key[1:], domain)
	return key
}

// domainFromKey parses a domain out of its length-prefixed key suffix.
func domainFromKey(key []byte) ([]byte, error) {
	if len(key) == 0 || int(key[0]) != len(key)-1 {
		return nil, errors.Errorf("malformed domain key %x", key)
	}
	return key[1:], nil
}

// expireIndexKey returns the database key suffix of an expiry index
// entry: the update height in big-endian followed by the raw domain, so
// that byte order scans the index height by height.
func expireIndexKey(height uint32, domain []byte) []byte {
	key := make([]byte, 4+len(domain))
	binary.BigEndian.PutUint32(key[:4], height)
	copy(key[4:], domain)
	return key
}

// expireIndexFromKey parses an expiry index key suffix back into the
// update height and the domain.
func expireIndexFromKey(key []byte) (height uint32, domain []byte, err error) {
	if len(key) < 4 {
		return 0, nil, errors.Errorf("malformed expiry index key %x", key)
	}
	return binary.BigEndian.Uint32(key[:4]), key[4:], nil
}

// GetRecord returns the stored record for the domain, or ok=false when
// the domain is not registered.
func GetRecord(db database.DataAccessor, domain []byte) (*registry.Record, bool, error) {
	serialized, err := db.Get(recordsBucket.Key(domainKey(domain)))
	if database.IsNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	record, err := registry.DeserializeRecord(bytes.NewReader(serialized))
	if err != nil {
		return nil, false, errors.Wrapf(err,
			"failed to deserialize the record of domain '%s'", domain)
	}
	return record, true, nil
}

func putRecord(db database.DataAccessor, domain []byte, record *registry.Record) error {
	w := &bytes.Buffer{}
	err := registry.SerializeRecord(w, record)
	if err != nil {
		return err
	}
	return db.Put(recordsBucket.Key(domainKey(domain)), w.Bytes())
}

func deleteRecord(db database.DataAccessor, domain []byte) error {
	return db.Delete(recordsBucket.Key(domainKey(domain)))
}

// GetHistory returns the stored history stack for the domain, or
// ok=false when none is stored.
func GetHistory(db database.DataAccessor, domain []byte) (*registry.History, bool, error) {
	serialized, err := db.Get(historiesBucket.Key(domainKey(domain)))
	if database.IsNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	history, err := registry.DeserializeHistory(bytes.NewReader(serialized))
	if err != nil {
		return nil, false, errors.Wrapf(err,
			"failed to deserialize the history of domain '%s'", domain)
	}
	return history, true, nil
}

func putHistory(db database.DataAccessor, domain []byte, history *registry.History) error {
	// An empty history is expressed by absence.
	if history.Empty() {
		return db.Delete(historiesBucket.Key(domainKey(domain)))
	}
	w := &bytes.Buffer{}
	err := registry.SerializeHistory(w, history)
	if err != nil {
		return err
	}
	return db.Put(historiesBucket.Key(domainKey(domain)), w.Bytes())
}

// DomainsAtHeight returns the set of domains whose records were last
// updated at the given height, read from the expiry index.
func DomainsAtHeight(db database.DataAccessor, height uint32) (map[string]struct{}, error) {
	domains := make(map[string]struct{})

	cursor, err := db.Cursor(expireIndexBucket)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	err = cursor.Seek(expireIndexBucket.Key(expireIndexKey(height, nil)))
	if database.IsNotFoundError(err) {
		return domains, nil
	}
	if err != nil {
		return nil, err
	}

	for {
		key, err := cursor.Key()
		if err != nil {
			return nil, err
		}
		entryHeight, domain, err := expireIndexFromKey(key.Suffix())
		if err != nil {
			return nil, err
		}
		if entryHeight > height {
			break
		}
		domains[string(domain)] = struct{}{}

		if !cursor.Next() {
			break
		}
	}
	return domains, nil
}

// WriteBatch writes every change staged in the cache through the given
// database transaction: records and tombstones, history stacks, expiry
// index changes, and the incrementally maintained registry commitment.
// The cache must have been built on the state the transaction reads.
func WriteBatch(dbTx database.Transaction, cache *registry.Cache) error {
	commitment, err := getCommitment(dbTx)
	if err != nil {
		return err
	}

	err = cache.ForEachEntry(func(domain []byte, record *registry.Record) error {
		old, ok, err := GetRecord(dbTx, domain)
		if err != nil {
			return err
		}
		if ok {
			element, err := commitmentElement(domain, old)
			if err != nil {
				return err
			}
			commitment.Remove(element)
		}
		element, err := commitmentElement(domain, record)
		if err != nil {
			return err
		}
		commitment.Add(element)
		return putRecord(dbTx, domain, record)
	})
	if err != nil {
		return err
	}

	err = cache.ForEachDeleted(func(domain []byte) error {
		old, ok, err := GetRecord(dbTx, domain)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		element, err := commitmentElement(domain, old)
		if err != nil {
			return err
		}
		commitment.Remove(element)
		return deleteRecord(dbTx, domain)
	})
	if err != nil {
		return err
	}

	if cache.TracksHistory() {
		err = cache.ForEachHistory(func(domain []byte, history *registry.History) error {
			return putHistory(dbTx, domain, history)
		})
		if err != nil {
			return err
		}
	}

	err = cache.ForEachExpireIndexChange(func(height uint32, domain []byte, add bool) error {
		key := expireIndexBucket.Key(expireIndexKey(height, domain))
		if add {
			return dbTx.Put(key, []byte{})
		}
		return dbTx.Delete(key)
	})
	if err != nil {
		return err
	}

	return putCommitment(dbTx, commitment)
}
