package mempool

import (
	"github.com/domiranet/domirad/domain/domainscript"
	"github.com/domiranet/domirad/util/chainhash"
	"github.com/domiranet/domirad/util/chainlock"
	"github.com/domiranet/domirad/wire"
)

// TransactionPool is the surrounding transaction pool the tracker evicts
// conflicting transactions through. RemoveTransaction must remove the
// transaction and everything spending its outputs from the pool, calling
// Tracker.RemoveTransaction for each removed entry.
type TransactionPool interface {
	RemoveTransaction(guard *chainlock.Guard, txID chainhash.TxID) error
}

// Entry is the tracker's digest of one pooled transaction: its ID and
// the domain operation it carries, parsed once on the way into the pool.
type Entry struct {
	txID chainhash.TxID

	isNew   bool
	newHash []byte

	isRegistration bool
	isUpdate       bool
	domain         []byte
}

// NewEntry digests tx for the tracker. A transaction without the
// registry version or without a domain operation output yields an entry
// with no operation flags set.
func NewEntry(tx *wire.MsgTx) *Entry {
	entry := &Entry{txID: tx.TxID()}
	if !tx.IsRegistryTx() {
		return entry
	}

	for _, txOut := range tx.TxOut {
		op := domainscript.ParseScript(txOut.PkScript)
		if !op.IsDomainOp() {
			continue
		}

		switch op.Op() {
		case domainscript.OpDomainNew:
			entry.isNew = true
			entry.newHash = op.CommitmentHash()
		case domainscript.OpDomainFirstUpdate:
			entry.isRegistration = true
			entry.domain = op.Domain()
		case domainscript.OpDomainUpdate:
			entry.isUpdate = true
			entry.domain = op.Domain()
		}
	}
	return entry
}

// TxID returns the ID of the digested transaction.
func (e *Entry) TxID() chainhash.TxID {
	return e.txID
}

// IsNew reports whether the transaction carries a new operation.
func (e *Entry) IsNew() bool {
	return e.isNew
}

// NewHash returns the commitment hash of the new operation. Only valid
// when IsNew reports true.
func (e *Entry) NewHash() []byte {
	return e.newHash
}

// IsRegistration reports whether the transaction carries a first update.
func (e *Entry) IsRegistration() bool {
	return e.isRegistration
}

// IsUpdate reports whether the transaction carries an update.
func (e *Entry) IsUpdate() bool {
	return e.isUpdate
}

// Domain returns the domain of the first update or update the
// transaction carries. Only valid when IsRegistration or IsUpdate
// reports true.
func (e *Entry) Domain() []byte {
	return e.domain
}
