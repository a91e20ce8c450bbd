package registry

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/domainscript"
	"github.com/domiranet/domirad/domain/registry/registryerrors"
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/util/chainlock"
	"github.com/domiranet/domirad/wire"
)

// CheckFlags adjust the behavior of CheckTransaction.
type CheckFlags uint32

const (
	// CheckNone is the default behavior: validate for inclusion in a
	// block at the given height.
	CheckNone CheckFlags = 0

	// CheckMempool validates for mempool admission. The confirmation
	// depth of the spent new operation is not enforced, since the next
	// blocks will deepen it before the first-update can be mined.
	CheckMempool CheckFlags = 1 << 0
)

// CheckTransaction validates the domain rules for a single transaction
// at the given height. It returns nil for transactions that do not touch
// the registry at all. Violations are returned as rule errors from the
// registryerrors package; transactions matching the historic-bug registry
// bypass every rule.
func CheckTransaction(guard *chainlock.Guard, params *chaincfg.Params,
	tx *wire.MsgTx, height uint32, view View, flags CheckFlags) error {

	txID := tx.TxID()
	mempool := flags&CheckMempool != 0

	// Ignore historic bugs.
	if _, ok := params.IsHistoricBug(&txID, height); ok {
		return nil
	}

	// Locate the inputs and outputs of the transaction that are domain
	// scripts. At most one of each may be present.
	var domainIn *domainscript.DomainScript
	var coinsIn *utxoset.Entry
	for _, txIn := range tx.TxIn {
		entry, ok, err := view.GetUTXO(guard, txIn.PreviousOutPoint)
		if err != nil {
			return errors.Wrapf(err, "failed to fetch input coins for %s", txID)
		}
		if !ok {
			return errors.Errorf("input coin %s of transaction %s is missing",
				txIn.PreviousOutPoint, txID)
		}

		op := domainscript.ParseScript(entry.ScriptPubKey())
		if !op.IsDomainOp() {
			continue
		}
		if domainIn != nil {
			return errors.Wrapf(registryerrors.ErrMultipleRegistryInputs,
				"multiple domain inputs into transaction %s", txID)
		}
		domainIn, coinsIn = op, entry
	}

	var domainOut *domainscript.DomainScript
	domainOutIndex := -1
	for i, txOut := range tx.TxOut {
		op := domainscript.ParseScript(txOut.PkScript)
		if !op.IsDomainOp() {
			continue
		}
		if domainOut != nil {
			return errors.Wrapf(registryerrors.ErrMultipleRegistryOutputs,
				"multiple domain outputs from transaction %s", txID)
		}
		domainOut, domainOutIndex = op, i
	}

	// A transaction that does not carry the registry version must not
	// touch the registry in any way. A registry-versioned transaction
	// needs an output; inputs are optional only for the new operation.
	if !tx.IsRegistryTx() {
		if domainIn != nil {
			return errors.Wrapf(registryerrors.ErrUnmarkedTransaction,
				"unmarked transaction %s has a domain input", txID)
		}
		if domainOut != nil {
			return errors.Wrapf(registryerrors.ErrUnmarkedTransaction,
				"unmarked transaction %s at height %d has a domain output",
				txID, height)
		}
		return nil
	}
	if domainOut == nil {
		return errors.Wrapf(registryerrors.ErrNoRegistryOutput,
			"registry transaction %s has no domain output", txID)
	}

	// Reject greedy domains.
	minAmount := uint64(params.MinRegistrationAmount(height))
	if tx.TxOut[domainOutIndex].Value < minAmount {
		return errors.Wrapf(registryerrors.ErrLockedAmountTooLow,
			"domain output of %s locks %d, minimum is %d",
			txID, tx.TxOut[domainOutIndex].Value, minAmount)
	}

	// Handle the new operation now, since it is easy and different from
	// the other operations.
	if domainOut.Op() == domainscript.OpDomainNew {
		if domainIn != nil {
			return errors.Wrapf(registryerrors.ErrNewWithRegistryInput,
				"new operation %s has a previous domain input", txID)
		}
		if len(domainOut.CommitmentHash()) != 20 {
			return errors.Wrapf(registryerrors.ErrBadCommitmentHash,
				"commitment hash of %s has %d bytes",
				txID, len(domainOut.CommitmentHash()))
		}
		return nil
	}

	// Now that the new operation is ruled out, a previous domain input
	// being updated is required.
	if domainIn == nil {
		return errors.Wrapf(registryerrors.ErrMissingRegistryInput,
			"update %s has no previous domain input", txID)
	}
	domain := domainOut.Domain()

	if len(domain) > chaincfg.MaxDomainLength {
		return errors.Wrapf(registryerrors.ErrDomainTooLong,
			"domain of %s has %d bytes", txID, len(domain))
	}
	if len(domainOut.Value()) > chaincfg.MaxValueLength {
		return errors.Wrapf(registryerrors.ErrValueTooLong,
			"value of %s has %d bytes", txID, len(domainOut.Value()))
	}

	if domainOut.Op() == domainscript.OpDomainUpdate {
		if !domainIn.IsAnyUpdate() {
			return errors.Wrapf(registryerrors.ErrInputNotUpdate,
				"update %s spends an input that is no update", txID)
		}
		if !bytes.Equal(domain, domainIn.Domain()) {
			return errors.Wrapf(registryerrors.ErrDomainMismatch,
				"update %s renames '%s' to '%s'",
				txID, domainIn.Domain(), domain)
		}

		// This is actually redundant, since expired domains are spent
		// off the UTXO set and are not available as inputs anyway. It
		// does not hurt to enforce it here, too.
		if heightExpired(coinsIn.BlockHeight(), height, params) {
			return errors.Wrapf(registryerrors.ErrDomainExpired,
				"update %s on expired domain '%s'", txID, domain)
		}
		return nil
	}

	// Finally, the first-update operation.
	if domainIn.Op() != domainscript.OpDomainNew {
		return errors.Wrapf(registryerrors.ErrInputNotNew,
			"first-update %s spends an input that is no new operation", txID)
	}

	// Maturity of the new operation is checked only outside the mempool.
	if !mempool {
		if coinsIn.IsUnmined() {
			panic(errors.Errorf("validating first-update %s at height %d "+
				"against an unmined new operation", txID, height))
		}
		if coinsIn.BlockHeight()+chaincfg.MinRegistrationDepth > height {
			return errors.Wrapf(registryerrors.ErrRegistrationNotMature,
				"new operation at height %d is not mature for the "+
					"first-update %s at height %d",
				coinsIn.BlockHeight(), txID, height)
		}
	}

	if len(domainOut.Rand()) > chaincfg.MaxCommitmentRandLength {
		return errors.Wrapf(registryerrors.ErrRandTooLong,
			"first-update %s has a %d byte rand",
			txID, len(domainOut.Rand()))
	}

	hash := domainscript.Commitment(domainOut.Rand(), domain)
	if !bytes.Equal(hash, domainIn.CommitmentHash()) {
		return errors.Wrapf(registryerrors.ErrCommitmentMismatch,
			"first-update %s does not match the committed hash", txID)
	}

	record, ok, err := view.GetDomain(guard, domain)
	if err != nil {
		return err
	}
	if ok && !record.Expired(height, params) {
		return errors.Wrapf(registryerrors.ErrDomainNotExpired,
			"first-update %s on the unexpired domain '%s'", txID, domain)
	}

	// Miners cannot create blocks with conflicting first-updates: the
	// first one mined registers the domain, and the check above rejects
	// the rest while the registration is alive.
	return nil
}
