package registrystore

import (
	"bytes"

	"github.com/kaspanet/go-muhash"
	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/registry"
	"github.com/domiranet/domirad/infrastructure/db/database"
)

// The registry commitment is a multiset hash over every (domain, record)
// pair in the store. WriteBatch maintains it incrementally, so checking
// it against a from-scratch recomputation covers the whole record bucket
// without trusting the incremental path.

// commitmentElement returns the multiset element of one domain and its
// record: the length-prefixed domain key followed by the serialized
// record.
func commitmentElement(domain []byte, record *registry.Record) ([]byte, error) {
	w := &bytes.Buffer{}
	w.Write(domainKey(domain))
	err := registry.SerializeRecord(w, record)
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// getCommitment loads the stored registry multiset. A store without one
// yet, such as a fresh database, yields the empty multiset.
func getCommitment(db database.DataAccessor) (*muhash.MuHash, error) {
	serialized, err := db.Get(commitmentKey)
	if database.IsNotFoundError(err) {
		return muhash.NewMuHash(), nil
	}
	if err != nil {
		return nil, err
	}
	if len(serialized) != muhash.SerializedMuHashSize {
		return nil, errors.Errorf("serialized registry commitment has %d "+
			"bytes instead of %d", len(serialized), muhash.SerializedMuHashSize)
	}
	var fixed muhash.SerializedMuHash
	copy(fixed[:], serialized)
	commitment, err := muhash.DeserializeMuHash(&fixed)
	if err != nil {
		return nil, errors.Wrap(err,
			"failed to deserialize the registry commitment")
	}
	return commitment, nil
}

func putCommitment(db database.DataAccessor, commitment *muhash.MuHash) error {
	return db.Put(commitmentKey, commitment.Serialize()[:])
}

// CommitmentHash returns the finalized hash of the stored registry
// commitment.
func CommitmentHash(db database.DataAccessor) (muhash.Hash, error) {
	commitment, err := getCommitment(db)
	if err != nil {
		return muhash.Hash{}, err
	}
	return *commitment.Finalize(), nil
}
