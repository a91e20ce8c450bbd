// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"github.com/domiranet/domirad/util/chainhash"
)

// BugType describes how the clients that accepted a historic bug
// transaction into the chain treated it.
type BugType byte

const (
	// BugFullyApply marks a transaction that was applied in full, to the
	// UTXO set as well as the domain registry, even though it violates
	// the rules enforced today.
	BugFullyApply BugType = iota

	// BugFullyIgnore marks a transaction whose domain outputs were kept
	// out of the registry and marked as spent in the UTXO set.
	BugFullyIgnore

	// BugInUTXO marks a transaction whose domain outputs were kept out
	// of the registry but left spendable in the UTXO set. This is an
	// inconsistency between the two views that has to be preserved.
	BugInUTXO
)

// historicBugKey identifies a single historic bug match. Matches are
// exact on both the transaction ID and the height. The same transaction
// included at any other height is validated by the ordinary rules.
type historicBugKey struct {
	txID   chainhash.TxID
	height uint32
}

// historicBugRegistry holds the historic bugs of one network.
type historicBugRegistry map[historicBugKey]BugType

type historicBugEntry struct {
	height  uint32
	txID    string
	bugType BugType
}

func makeHistoricBugRegistry(entries []historicBugEntry) historicBugRegistry {
	registry := make(historicBugRegistry, len(entries))
	for _, entry := range entries {
		txID, err := chainhash.NewTxIDFromStr(entry.txID)
		if err != nil {
			panic(err)
		}
		registry[historicBugKey{txID: *txID, height: entry.height}] = entry.bugType
	}
	return registry
}

// Historic bugs on the main network. All of them date back to the old
// clients of the registration stealing era, during which a malformed
// first-update could take over a domain that someone else had committed
// to. The chain that everyone agreed on contains these transactions, so
// validation has to let them pass exactly as the old clients did.
//
// The first two steals were kept out of the registry but their outputs
// stayed spendable in the UTXO set. The third was dropped entirely,
// with its outputs marked as spent.
var mainnetHistoricBugs = makeHistoricBugRegistry([]historicBugEntry{
	{139872, "0eabcfcd97e8ce7ddaac039eebc0a80d6aaaf9412556bca9e6cb961fecb0319e", BugInUTXO},
	{139936, "b2c7c085bd50d7118ffd80149e50be730c936fc047a692f87139a5ba10c6221c", BugInUTXO},
	{140421, "e9033f34f58b38615d015306ba7b9dbc3e9743d30cac4d3e990f9ae5a00c5661", BugFullyIgnore},
})

// IsHistoricBug returns whether the given transaction at the given height
// is registered as a historic bug on this network and, if it is, how it
// was originally applied.
func (p *Params) IsHistoricBug(txID *chainhash.TxID, height uint32) (BugType, bool) {
	bugType, ok := p.historicBugs[historicBugKey{txID: *txID, height: height}]
	return bugType, ok
}
