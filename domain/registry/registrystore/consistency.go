package registrystore

import (
	"bytes"
	"fmt"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/domainscript"
	"github.com/domiranet/domirad/domain/registry/registryerrors"
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/infrastructure/db/database"
	"github.com/domiranet/domirad/infrastructure/logger"
	"github.com/domiranet/domirad/wire"
	"github.com/kaspanet/go-muhash"
)

// Heights between which the registration-stealing transactions disturbed
// the registry. A store that fails its audit while the chain tip is
// inside this window is logged instead of reported broken.
const (
	stealingEraStart = 139000
	stealingEraEnd   = 180000
)

// UTXOLookup resolves an outpoint to its unspent entry so that the audit
// can check the coins behind unexpired records.
type UTXOLookup func(outpoint wire.OutPoint) (*utxoset.Entry, bool, error)

// CheckConsistency audits the whole store at the given chain height:
// every record must be indexed for expiry at its update height, every
// unexpired record must be anchored to an unspent coin carrying its
// update script, every expiry index entry must point back at a record,
// and the stored commitment must equal a from-scratch recomputation.
//
// Problems are state errors, except while the chain tip is inside the
// registration stealing era, where they are logged and tolerated.
func CheckConsistency(db database.DataAccessor, params *chaincfg.Params,
	height uint32, getUTXO UTXOLookup) error {

	onEnd := logger.LogAndMeasureExecutionTime(log, "CheckConsistency")
	defer onEnd()

	var problems []string
	problemf := func(format string, args ...interface{}) {
		problem := fmt.Sprintf(format, args...)
		log.Errorf("Registry store audit: %s", problem)
		problems = append(problems, problem)
	}

	recomputed, records, err := auditRecords(db, params, height, getUTXO,
		problemf)
	if err != nil {
		return err
	}
	err = auditExpireIndex(db, records, problemf)
	if err != nil {
		return err
	}

	stored, err := getCommitment(db)
	if err != nil {
		return err
	}
	storedHash := *stored.Finalize()
	recomputedHash := *recomputed.Finalize()
	if storedHash != recomputedHash {
		problemf("stored commitment %s differs from the recomputed %s",
			storedHash.String(), recomputedHash.String())
	}

	if len(problems) == 0 {
		log.Infof("Registry store is consistent: %d records audited at "+
			"height %d", len(records), height)
		return nil
	}
	if height >= stealingEraStart && height <= stealingEraEnd {
		log.Warnf("Registry store is inconsistent at height %d (%d "+
			"problems); this is expected during the registration "+
			"stealing era", height, len(problems))
		return nil
	}
	return registryerrors.NewStateError("registry store is inconsistent "+
		"at height %d: %d problems, first: %s",
		height, len(problems), problems[0])
}

// auditRecords walks the record bucket, reporting problems through
// problemf, and returns the recomputed commitment together with the
// update height of every record seen.
func auditRecords(db database.DataAccessor, params *chaincfg.Params,
	height uint32, getUTXO UTXOLookup,
	problemf func(format string, args ...interface{})) (
	*muhash.MuHash, map[string]uint32, error) {

	recomputed := muhash.NewMuHash()
	records := make(map[string]uint32)

	it, err := Iterate(db)
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()

	for it.Next() {
		domain, record, err := it.Get()
		if err != nil {
			return nil, nil, err
		}
		records[string(domain)] = record.Height()

		element, err := commitmentElement(domain, record)
		if err != nil {
			return nil, nil, err
		}
		recomputed.Add(element)

		indexed, err := db.Has(expireIndexBucket.Key(
			expireIndexKey(record.Height(), domain)))
		if err != nil {
			return nil, nil, err
		}
		if !indexed {
			problemf("domain '%s' is not indexed for expiry at its "+
				"update height %d", domain, record.Height())
		}

		// Expired records are unanchored; their coins were spent by the
		// expiry sweep.
		if record.Expired(height, params) {
			continue
		}
		entry, ok, err := getUTXO(record.UpdateOutpoint())
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			problemf("coin %s of unexpired domain '%s' is not available",
				record.UpdateOutpoint(), domain)
			continue
		}
		op := domainscript.ParseScript(entry.ScriptPubKey())
		switch {
		case !op.IsDomainOp() || !op.IsAnyUpdate() ||
			!bytes.Equal(op.Domain(), domain):

			problemf("coin %s of domain '%s' carries the wrong script",
				record.UpdateOutpoint(), domain)
		case !bytes.Equal(op.Value(), record.Value()):
			problemf("coin %s of domain '%s' carries a value different from "+
				"the record's", record.UpdateOutpoint(), domain)
		case !bytes.Equal(op.AddressScript(), record.AddressScript()):
			problemf("coin %s of domain '%s' pays an address different from "+
				"the record's", record.UpdateOutpoint(), domain)
		}
	}
	return recomputed, records, nil
}

// auditExpireIndex walks the expiry index and checks that every entry
// points back at a record updated at the entry's height.
func auditExpireIndex(db database.DataAccessor, records map[string]uint32,
	problemf func(format string, args ...interface{})) error {

	cursor, err := db.Cursor(expireIndexBucket)
	if err != nil {
		return err
	}
	defer cursor.Close()

	for cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			return err
		}
		entryHeight, domain, err := expireIndexFromKey(key.Suffix())
		if err != nil {
			return err
		}
		recordHeight, ok := records[string(domain)]
		if !ok {
			problemf("expiry index lists the unregistered domain '%s' at "+
				"height %d", domain, entryHeight)
			continue
		}
		if recordHeight != entryHeight {
			problemf("expiry index lists domain '%s' at height %d but its "+
				"record was updated at %d", domain, entryHeight, recordHeight)
		}
	}
	return nil
}
