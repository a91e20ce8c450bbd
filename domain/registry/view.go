package registry

import (
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/util/chainlock"
	"github.com/domiranet/domirad/wire"
)

// View is the chain state the registry operations read and mutate: the
// domain records with their histories and expiry index, and the UTXO
// entries the records are anchored to. It is implemented by the
// chain-state overlay in domain/state.
//
// Every method takes the chain lock guard of the operation it serves;
// implementations do no locking of their own.
type View interface {
	// GetDomain returns the current record for the domain, or ok=false
	// when the domain has none. The record of an expired domain is still
	// returned; callers that care check Record.Expired themselves.
	GetDomain(guard *chainlock.Guard, domain []byte) (record *Record, ok bool, err error)

	// SetDomain makes record the domain's current record and keeps the
	// expiry index in step. When history tracking is enabled it also
	// maintains the domain's history: a forward set pushes the replaced
	// record, while an undo set pops the record being restored off the
	// stack instead.
	SetDomain(guard *chainlock.Guard, domain []byte, record *Record, undo bool) error

	// DeleteDomain removes the domain's record entirely. It is only used
	// when unwinding the block that first registered the domain, so the
	// domain must exist and its history must already be empty.
	DeleteDomain(guard *chainlock.Guard, domain []byte) error

	// GetDomainHistory returns the domain's history stack, or ok=false
	// when none is stored. Implementations may only be asked when
	// history tracking is enabled.
	GetDomainHistory(guard *chainlock.Guard, domain []byte) (history *History, ok bool, err error)

	// SetDomainHistory replaces the domain's history stack. An empty
	// history erases the stored stack.
	SetDomainHistory(guard *chainlock.Guard, domain []byte, history *History) error

	// DomainsAtHeight returns the set of domains whose records were last
	// updated at the given height, per the expiry index. The returned
	// set is freshly built and owned by the caller.
	DomainsAtHeight(guard *chainlock.Guard, height uint32) (map[string]struct{}, error)

	// GetUTXO returns the unspent entry for the outpoint, or ok=false
	// when the outpoint is unknown or already spent.
	GetUTXO(guard *chainlock.Guard, outpoint wire.OutPoint) (entry *utxoset.Entry, ok bool, err error)

	// AddUTXO adds a new unspent entry for the outpoint.
	AddUTXO(guard *chainlock.Guard, outpoint wire.OutPoint, entry *utxoset.Entry) error

	// SpendUTXO spends the outpoint and returns the entry it held, or
	// ok=false when there is nothing to spend.
	SpendUTXO(guard *chainlock.Guard, outpoint wire.OutPoint) (entry *utxoset.Entry, ok bool, err error)

	// RestoreUTXO re-adds a coin spent by the expiry sweep. The entry
	// must be the one recorded when the coin was spent, and the outpoint
	// must not currently be unspent.
	RestoreUTXO(guard *chainlock.Guard, outpoint wire.OutPoint, entry *utxoset.Entry) error
}
