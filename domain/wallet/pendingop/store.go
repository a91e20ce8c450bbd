package pendingop

import (
	"bytes"

	"github.com/domiranet/domirad/infrastructure/db/database"
)

var (
	// pendingBucket holds the pending records, keyed by the raw domain.
	// Enumeration order does not matter here, so the keys carry no
	// length prefix.
	pendingBucket = database.MakeBucket([]byte("wallet")).
			Bucket([]byte("pendingops"))
)

// Store persists pending registrations keyed by domain. A record must be
// durable before the new operation it pairs with is broadcast; a crash
// between the two halves of a registration must not lose the salt the
// commitment was built from. The owning wallet serializes access.
type Store interface {
	// Write stores record as the domain's pending registration,
	// replacing any previous one.
	Write(domain []byte, record *Record) error

	// Erase drops the domain's pending registration once the first
	// update is mined or the registration is abandoned. Erasing a
	// domain without a pending record is not an error.
	Erase(domain []byte) error

	// Get returns the domain's pending registration, or ok=false when
	// there is none.
	Get(domain []byte) (*Record, bool, error)

	// ForEach calls fn for every pending registration, stopping at the
	// first error and returning it.
	ForEach(fn func(domain []byte, record *Record) error) error
}

// levelDBStore keeps the pending records in the wallet's database.
type levelDBStore struct {
	db database.Database
}

// NewStore returns a Store over db.
func NewStore(db database.Database) Store {
	return &levelDBStore{db: db}
}

func (s *levelDBStore) Write(domain []byte, record *Record) error {
	w := &bytes.Buffer{}
	err := serializeRecord(w, record)
	if err != nil {
		return err
	}
	err = s.db.Put(pendingBucket.Key(domain), w.Bytes())
	if err != nil {
		return err
	}
	log.Debugf("Stored the pending registration of '%s' by transaction %s",
		domain, record.TxID())
	return nil
}

func (s *levelDBStore) Erase(domain []byte) error {
	err := s.db.Delete(pendingBucket.Key(domain))
	if err != nil {
		return err
	}
	log.Debugf("Dropped the pending registration of '%s'", domain)
	return nil
}

func (s *levelDBStore) Get(domain []byte) (*Record, bool, error) {
	serialized, err := s.db.Get(pendingBucket.Key(domain))
	if database.IsNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	record, err := deserializeRecord(bytes.NewReader(serialized))
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

func (s *levelDBStore) ForEach(fn func(domain []byte, record *Record) error) error {
	cursor, err := s.db.Cursor(pendingBucket)
	if err != nil {
		return err
	}
	defer cursor.Close()

	for cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			return err
		}
		serialized, err := cursor.Value()
		if err != nil {
			return err
		}
		record, err := deserializeRecord(bytes.NewReader(serialized))
		if err != nil {
			return err
		}
		err = fn(key.Suffix(), record)
		if err != nil {
			return err
		}
	}
	return nil
}
