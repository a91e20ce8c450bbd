package registry

import (
	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/domainscript"
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/util/chainlock"
	"github.com/domiranet/domirad/wire"
)

// ApplyTransaction applies the registry changes of a transaction inside a
// block at the given height to the view, appending an undo record for
// every replaced state to undo. The transaction must already have passed
// CheckTransaction as part of its block.
func ApplyTransaction(guard *chainlock.Guard, params *chaincfg.Params,
	tx *wire.MsgTx, height uint32, view View, undo *BlockUndo) error {

	if height == utxoset.MempoolHeight {
		panic(errors.New("applying a domain transaction at the mempool " +
			"height sentinel"))
	}
	txID := tx.TxID()

	// Handle historic bugs that should not be applied. Domain outputs
	// must become unspendable in this case, otherwise the UTXO set and
	// the registry fall out of step with the historical chain.
	bugType, isBug := params.IsHistoricBug(&txID, height)
	if isBug && bugType != chaincfg.BugFullyApply {
		if bugType == chaincfg.BugFullyIgnore {
			for i, txOut := range tx.TxOut {
				op := domainscript.ParseScript(txOut.PkScript)
				if !op.IsDomainOp() || !op.IsAnyUpdate() {
					continue
				}
				outpoint := wire.OutPoint{TxID: txID, Index: uint32(i)}
				_, ok, err := view.SpendUTXO(guard, outpoint)
				if err != nil {
					return err
				}
				if !ok {
					log.Errorf("Spending buggy domain output %s failed",
						outpoint)
				}
			}
		}
		return nil
	}

	// This check must come after the historic bug handling above. Some
	// of the domains handled there were produced by transactions not
	// marked as registry transactions.
	if !tx.IsRegistryTx() {
		return nil
	}

	// Changes are encoded in the outputs. Checks already happened, so
	// simply apply all of them.
	for i, txOut := range tx.TxOut {
		op := domainscript.ParseScript(txOut.PkScript)
		if !op.IsDomainOp() || !op.IsAnyUpdate() {
			continue
		}
		domain := op.Domain()
		log.Debugf("Updating domain at height %d: '%s'", height, domain)

		opUndo, err := NewOpUndo(guard, domain, view)
		if err != nil {
			return err
		}
		undo.OpUndos = append(undo.OpUndos, opUndo)

		record := NewRecordFromScript(height,
			wire.OutPoint{TxID: txID, Index: uint32(i)}, op)
		err = view.SetDomain(guard, domain, record, false)
		if err != nil {
			return err
		}
	}
	return nil
}

// UndoBlock unwinds the per-output registry changes recorded for one
// block, most recent first. Coins spent by the block's expiry sweep are
// restored separately through UnexpireAtHeight.
func UndoBlock(guard *chainlock.Guard, undo *BlockUndo, view View) error {
	for i := len(undo.OpUndos) - 1; i >= 0; i-- {
		err := undo.OpUndos[i].Apply(guard, view)
		if err != nil {
			return err
		}
	}
	return nil
}
