package mempool

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/domainscript"
	"github.com/domiranet/domirad/domain/registry"
	"github.com/domiranet/domirad/domain/registry/registryerrors"
	"github.com/domiranet/domirad/util/chainhash"
	"github.com/domiranet/domirad/util/chainlock"
	"github.com/domiranet/domirad/wire"
)

// Tracker indexes the domain operations pending in the transaction pool.
// Conflicting operations are rejected at admission through
// CheckTransaction, and operations the chain has overtaken are evicted
// through the pool when blocks connect, expire domains, or roll back.
//
// The tracker keeps at most one pending registration and one pending
// update per domain. It does no locking; every method takes the chain
// lock guard of the pool operation it serves.
type Tracker struct {
	pool TransactionPool

	// registrations and updates map a domain to the one pooled
	// transaction registering or updating it.
	registrations map[string]chainhash.TxID
	updates       map[string]chainhash.TxID

	// news maps the commitment hash of every new operation seen in the
	// pool to its transaction. Entries are kept until a restart even
	// after the transaction leaves the pool; this is the soft protection
	// against registration stealing.
	news map[string]chainhash.TxID
}

// NewTracker returns an empty tracker evicting through pool.
func NewTracker(pool TransactionPool) *Tracker {
	return &Tracker{
		pool:          pool,
		registrations: make(map[string]chainhash.TxID),
		updates:       make(map[string]chainhash.TxID),
		news:          make(map[string]chainhash.TxID),
	}
}

// RegistersDomain reports whether a pooled transaction registers the
// domain.
func (t *Tracker) RegistersDomain(guard *chainlock.Guard, domain []byte) bool {
	_, ok := t.registrations[string(domain)]
	return ok
}

// UpdatesDomain reports whether a pooled transaction updates the domain.
func (t *Tracker) UpdatesDomain(guard *chainlock.Guard, domain []byte) bool {
	_, ok := t.updates[string(domain)]
	return ok
}

// Clear drops everything the tracker holds, the new-operation
// commitments included.
func (t *Tracker) Clear(guard *chainlock.Guard) {
	t.registrations = make(map[string]chainhash.TxID)
	t.updates = make(map[string]chainhash.TxID)
	t.news = make(map[string]chainhash.TxID)
}

// CheckTransaction reports whether tx can join the pool without
// conflicting with a pending operation: a new operation whose commitment
// hash another transaction has claimed, a first update for a domain with
// a pending registration, or an update for a domain with a pending
// update. Chained updates of one domain within the pool are not
// supported, which is why the second update counts as a conflict.
func (t *Tracker) CheckTransaction(guard *chainlock.Guard, tx *wire.MsgTx) bool {
	if !tx.IsRegistryTx() {
		return true
	}
	txID := tx.TxID()

	for _, txOut := range tx.TxOut {
		op := domainscript.ParseScript(txOut.PkScript)
		if !op.IsDomainOp() {
			continue
		}

		switch op.Op() {
		case domainscript.OpDomainNew:
			claimedBy, ok := t.news[string(op.CommitmentHash())]
			if ok && claimedBy != txID {
				return false
			}

		case domainscript.OpDomainFirstUpdate:
			if t.RegistersDomain(guard, op.Domain()) {
				return false
			}

		case domainscript.OpDomainUpdate:
			if t.UpdatesDomain(guard, op.Domain()) {
				return false
			}
		}
	}
	return true
}

// AddTransaction tracks the operations of an entry admitted to the pool.
// The entry's transaction must have passed CheckTransaction while the
// tracker was in this state; a conflicting add panics.
func (t *Tracker) AddTransaction(guard *chainlock.Guard, entry *Entry) {
	if entry.IsNew() {
		newHash := string(entry.NewHash())
		claimedBy, ok := t.news[newHash]
		if ok && claimedBy != entry.TxID() {
			panic(errors.Errorf("the new-operation hash of transaction %s "+
				"is already claimed by transaction %s", entry.TxID(), claimedBy))
		}
		if !ok {
			t.news[newHash] = entry.TxID()
		}
	}

	if entry.IsRegistration() {
		if _, ok := t.registrations[string(entry.Domain())]; ok {
			panic(errors.Errorf("domain '%s' already has a pending "+
				"registration", entry.Domain()))
		}
		t.registrations[string(entry.Domain())] = entry.TxID()
	}

	if entry.IsUpdate() {
		if _, ok := t.updates[string(entry.Domain())]; ok {
			panic(errors.Errorf("domain '%s' already has a pending update",
				entry.Domain()))
		}
		t.updates[string(entry.Domain())] = entry.TxID()
	}
}

// RemoveTransaction stops tracking the registration or update of an
// entry leaving the pool, whatever the reason it leaves. The entry must
// be tracked. New-operation commitments are deliberately kept; see news.
func (t *Tracker) RemoveTransaction(guard *chainlock.Guard, entry *Entry) {
	if entry.IsRegistration() {
		if _, ok := t.registrations[string(entry.Domain())]; !ok {
			panic(errors.Errorf("domain '%s' has no pending registration "+
				"to remove", entry.Domain()))
		}
		delete(t.registrations, string(entry.Domain()))
	}

	if entry.IsUpdate() {
		if _, ok := t.updates[string(entry.Domain())]; !ok {
			panic(errors.Errorf("domain '%s' has no pending update "+
				"to remove", entry.Domain()))
		}
		delete(t.updates, string(entry.Domain()))
	}
}

// RemoveConflicts evicts the pooled transactions whose pending
// registrations lost to the first updates of tx, a transaction accepted
// into a block.
func (t *Tracker) RemoveConflicts(guard *chainlock.Guard, tx *wire.MsgTx) error {
	if !tx.IsRegistryTx() {
		return nil
	}
	txID := tx.TxID()

	for _, txOut := range tx.TxOut {
		op := domainscript.ParseScript(txOut.PkScript)
		if !op.IsDomainOp() || op.Op() != domainscript.OpDomainFirstUpdate {
			continue
		}
		loser, ok := t.registrations[string(op.Domain())]
		if !ok {
			continue
		}
		log.Debugf("Evicting transaction %s: its registration of '%s' "+
			"lost to transaction %s", loser, op.Domain(), txID)
		err := t.pool.RemoveTransaction(guard, loser)
		if err != nil {
			return err
		}
	}
	return nil
}

// RemoveExpireConflicts evicts the pooled updates of domains that just
// expired; the sweep spent the coins those updates build on.
func (t *Tracker) RemoveExpireConflicts(guard *chainlock.Guard, expired map[string]struct{}) error {
	for _, domain := range sortedDomains(expired) {
		txID, ok := t.updates[domain]
		if !ok {
			continue
		}
		log.Debugf("Evicting transaction %s: it updates the expired "+
			"domain '%s'", txID, domain)
		err := t.pool.RemoveTransaction(guard, txID)
		if err != nil {
			return err
		}
	}
	return nil
}

// RemoveUnexpireConflicts evicts the pooled registrations of domains a
// chain rollback brought back to life.
func (t *Tracker) RemoveUnexpireConflicts(guard *chainlock.Guard, unexpired map[string]struct{}) error {
	for _, domain := range sortedDomains(unexpired) {
		txID, ok := t.registrations[domain]
		if !ok {
			continue
		}
		log.Debugf("Evicting transaction %s: it registers the revived "+
			"domain '%s'", txID, domain)
		err := t.pool.RemoveTransaction(guard, txID)
		if err != nil {
			return err
		}
	}
	return nil
}

// CheckConsistency audits the tracker against the pool's entries and the
// chain state with its tip at the given height. Every pooled operation
// must be tracked under its own transaction, every tracked operation
// must belong to exactly one pooled transaction, and the expiry
// assumptions must hold at height+1, where the transactions would
// actually be mined.
func (t *Tracker) CheckConsistency(guard *chainlock.Guard, view registry.View,
	params *chaincfg.Params, height uint32, entries []*Entry) error {

	registrations := make(map[string]struct{})
	updates := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsNew() {
			claimedBy, ok := t.news[string(entry.NewHash())]
			if !ok {
				return registryerrors.NewStateError(
					"the new operation of pooled transaction %s is not "+
						"tracked", entry.TxID())
			}
			if claimedBy != entry.TxID() {
				return registryerrors.NewStateError(
					"the new-operation hash of pooled transaction %s is "+
						"tracked for transaction %s", entry.TxID(), claimedBy)
			}
		}

		if entry.IsRegistration() {
			domain := entry.Domain()
			txID, ok := t.registrations[string(domain)]
			if !ok || txID != entry.TxID() {
				return registryerrors.NewStateError(
					"the registration of '%s' by pooled transaction %s is "+
						"not tracked", domain, entry.TxID())
			}
			if _, ok := registrations[string(domain)]; ok {
				return registryerrors.NewStateError(
					"domain '%s' is registered by more than one pooled "+
						"transaction", domain)
			}
			registrations[string(domain)] = struct{}{}

			record, ok, err := view.GetDomain(guard, domain)
			if err != nil {
				return err
			}
			if ok && !record.Expired(height+1, params) {
				return registryerrors.NewStateError(
					"domain '%s' has a pending registration but does not "+
						"expire by height %d", domain, height+1)
			}
		}

		if entry.IsUpdate() {
			domain := entry.Domain()
			txID, ok := t.updates[string(domain)]
			if !ok || txID != entry.TxID() {
				return registryerrors.NewStateError(
					"the update of '%s' by pooled transaction %s is not "+
						"tracked", domain, entry.TxID())
			}
			if _, ok := updates[string(domain)]; ok {
				return registryerrors.NewStateError(
					"domain '%s' is updated by more than one pooled "+
						"transaction", domain)
			}
			updates[string(domain)] = struct{}{}

			record, ok, err := view.GetDomain(guard, domain)
			if err != nil {
				return err
			}
			if !ok {
				return registryerrors.NewStateError(
					"domain '%s' has a pending update but no record", domain)
			}
			if record.Expired(height+1, params) {
				return registryerrors.NewStateError(
					"domain '%s' has a pending update but expires by "+
						"height %d", domain, height+1)
			}
		}
	}

	if len(registrations) != len(t.registrations) {
		return registryerrors.NewStateError(
			"%d pending registrations tracked but %d found in the pool",
			len(t.registrations), len(registrations))
	}
	if len(updates) != len(t.updates) {
		return registryerrors.NewStateError(
			"%d pending updates tracked but %d found in the pool",
			len(t.updates), len(updates))
	}
	return nil
}

func sortedDomains(set map[string]struct{}) []string {
	domains := make([]string, 0, len(set))
	for domain := range set {
		domains = append(domains, domain)
	}
	sort.Slice(domains, func(i, j int) bool {
		return registry.DomainLess([]byte(domains[i]), []byte(domains[j]))
	})
	return domains
}
