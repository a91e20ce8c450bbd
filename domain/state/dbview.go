package state

import (
	"bytes"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kaspanet/go-muhash"
	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/registry"
	"github.com/domiranet/domirad/domain/registry/registrystore"
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/infrastructure/db/database"
	"github.com/domiranet/domirad/util/chainlock"
	"github.com/domiranet/domirad/wire"
)

// utxoBucket holds the unspent transaction outputs, keyed by serialized
// outpoint.
var utxoBucket = database.MakeBucket([]byte("utxo"))

// DefaultRecordCacheSize is the record read cache size used when
// NewDBView is given a non-positive one.
const DefaultRecordCacheSize = 4096

var errReadOnlyView = errors.New(
	"the database view is read only; stage changes in an overlay cache")

// DBView is the base of the chain state: reads answer straight from the
// database, records through an LRU read cache. Mutations are rejected;
// changes reach the database only by committing an overlay cache, which
// flushes them through one database transaction.
type DBView struct {
	db      database.Database
	records *lru.Cache[string, *registry.Record]
}

// NewDBView returns a database view over db, holding up to
// recordCacheSize records in its read cache.
func NewDBView(db database.Database, recordCacheSize int) (*DBView, error) {
	if recordCacheSize <= 0 {
		recordCacheSize = DefaultRecordCacheSize
	}
	records, err := lru.New[string, *registry.Record](recordCacheSize)
	if err != nil {
		return nil, err
	}
	return &DBView{db: db, records: records}, nil
}

// GetDomain returns the domain's stored record.
func (v *DBView) GetDomain(guard *chainlock.Guard, domain []byte) (*registry.Record, bool, error) {
	if record, ok := v.records.Get(string(domain)); ok {
		return record, true, nil
	}
	record, ok, err := registrystore.GetRecord(v.db, domain)
	if err != nil || !ok {
		return nil, ok, err
	}
	v.records.Add(string(domain), record)
	return record, true, nil
}

// SetDomain rejects the mutation; the database view is read only.
func (v *DBView) SetDomain(guard *chainlock.Guard, domain []byte, record *registry.Record, undo bool) error {
	return errReadOnlyView
}

// DeleteDomain rejects the mutation; the database view is read only.
func (v *DBView) DeleteDomain(guard *chainlock.Guard, domain []byte) error {
	return errReadOnlyView
}

// GetDomainHistory returns the domain's stored history stack.
func (v *DBView) GetDomainHistory(guard *chainlock.Guard, domain []byte) (*registry.History, bool, error) {
	return registrystore.GetHistory(v.db, domain)
}

// SetDomainHistory rejects the mutation; the database view is read only.
func (v *DBView) SetDomainHistory(guard *chainlock.Guard, domain []byte, history *registry.History) error {
	return errReadOnlyView
}

// DomainsAtHeight returns the set of domains last updated at the given
// height, per the stored expiry index.
func (v *DBView) DomainsAtHeight(guard *chainlock.Guard, height uint32) (map[string]struct{}, error) {
	return registrystore.DomainsAtHeight(v.db, height)
}

// GetUTXO returns the stored unspent entry for the outpoint.
func (v *DBView) GetUTXO(guard *chainlock.Guard, outpoint wire.OutPoint) (*utxoset.Entry, bool, error) {
	key, err := utxoKey(outpoint)
	if err != nil {
		return nil, false, err
	}
	serialized, err := v.db.Get(key)
	if database.IsNotFoundError(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	entry, err := utxoset.DeserializeUTXOEntry(bytes.NewReader(serialized))
	if err != nil {
		return nil, false, errors.Wrapf(err,
			"failed to deserialize the utxo entry of %s", outpoint)
	}
	return entry, true, nil
}

// AddUTXO rejects the mutation; the database view is read only.
func (v *DBView) AddUTXO(guard *chainlock.Guard, outpoint wire.OutPoint, entry *utxoset.Entry) error {
	return errReadOnlyView
}

// SpendUTXO rejects the mutation; the database view is read only.
func (v *DBView) SpendUTXO(guard *chainlock.Guard, outpoint wire.OutPoint) (*utxoset.Entry, bool, error) {
	return nil, false, errReadOnlyView
}

// RestoreUTXO rejects the mutation; the database view is read only.
func (v *DBView) RestoreUTXO(guard *chainlock.Guard, outpoint wire.OutPoint, entry *utxoset.Entry) error {
	return errReadOnlyView
}

// Iterate returns an iterator over the stored registry in domain order.
func (v *DBView) Iterate(guard *chainlock.Guard) (registry.Iterator, error) {
	return registrystore.Iterate(v.db)
}

// CommitmentHash returns the finalized hash of the stored registry
// commitment.
func (v *DBView) CommitmentHash(guard *chainlock.Guard) (muhash.Hash, error) {
	return registrystore.CommitmentHash(v.db)
}

// CheckConsistency audits the stored registry against the stored UTXO
// set at the given chain height.
func (v *DBView) CheckConsistency(guard *chainlock.Guard, params *chaincfg.Params, height uint32) error {
	return registrystore.CheckConsistency(v.db, params, height,
		func(outpoint wire.OutPoint) (*utxoset.Entry, bool, error) {
			return v.GetUTXO(guard, outpoint)
		})
}

func (v *DBView) applyBatch(guard *chainlock.Guard, child *Cache) error {
	dbTx, err := v.db.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	err = registrystore.WriteBatch(dbTx, child.registry)
	if err != nil {
		return err
	}

	// Spends before adds, so a coin deleted and re-created within one
	// batch survives.
	for outpoint := range child.utxoSpent {
		key, err := utxoKey(outpoint)
		if err != nil {
			return err
		}
		err = dbTx.Delete(key)
		if err != nil {
			return err
		}
	}
	for outpoint, entry := range child.utxoAdded {
		key, err := utxoKey(outpoint)
		if err != nil {
			return err
		}
		w := &bytes.Buffer{}
		err = utxoset.SerializeUTXOEntry(w, entry)
		if err != nil {
			return err
		}
		err = dbTx.Put(key, w.Bytes())
		if err != nil {
			return err
		}
	}

	err = dbTx.Commit()
	if err != nil {
		return err
	}

	// The transaction is durable; bring the read cache up to date.
	_ = child.registry.ForEachEntry(func(domain []byte, record *registry.Record) error {
		v.records.Add(string(domain), record)
		return nil
	})
	_ = child.registry.ForEachDeleted(func(domain []byte) error {
		v.records.Remove(string(domain))
		return nil
	})

	log.Debugf("Flushed a chain state overlay: %d coins added, %d spent",
		len(child.utxoAdded), len(child.utxoSpent))
	return nil
}

func utxoKey(outpoint wire.OutPoint) (*database.Key, error) {
	w := &bytes.Buffer{}
	err := utxoset.SerializeOutpoint(w, &outpoint)
	if err != nil {
		return nil, err
	}
	return utxoBucket.Key(w.Bytes()), nil
}
