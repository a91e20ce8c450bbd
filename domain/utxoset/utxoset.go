package utxoset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/domiranet/domirad/wire"
)

// MempoolHeight is the height assigned to UTXO entries created by
// transactions that have not been mined yet. It sorts after every real
// block height, so domain records carrying it never count as expired.
const MempoolHeight uint32 = 0x7fffffff

// txoFlags is a bitmask defining additional information and state for a
// transaction output in a UTXO set.
type txoFlags uint8

const (
	// tfCoinbase indicates that a txout was contained in a coinbase tx.
	tfCoinbase txoFlags = 1 << iota
)

// Entry houses details about an individual transaction output in a utxo
// set such as whether or not it was contained in a coinbase tx, the
// height of the block that contains the tx, its public key script, and
// how much it pays.
type Entry struct {
	amount       uint64
	scriptPubKey []byte // The public key script for the output.
	blockHeight  uint32 // Height of the block containing the tx.

	// packedFlags contains additional info about the output such as
	// whether it is a coinbase. This approach is used in order to
	// reduce memory usage since there will be a lot of these in memory.
	packedFlags txoFlags
}

// NewEntry creates a new utxo entry representing the given txOut.
func NewEntry(txOut *wire.TxOut, isCoinbase bool, blockHeight uint32) *Entry {
	entry := &Entry{
		amount:       txOut.Value,
		scriptPubKey: txOut.PkScript,
		blockHeight:  blockHeight,
	}

	if isCoinbase {
		entry.packedFlags |= tfCoinbase
	}

	return entry
}

// Amount returns the amount of the output.
func (entry *Entry) Amount() uint64 {
	return entry.amount
}

// ScriptPubKey returns the public key script for the output.
func (entry *Entry) ScriptPubKey() []byte {
	return entry.scriptPubKey
}

// BlockHeight returns the height of the block containing the output.
func (entry *Entry) BlockHeight() uint32 {
	return entry.blockHeight
}

// IsCoinbase returns whether or not the output was contained in a block
// reward transaction.
func (entry *Entry) IsCoinbase() bool {
	return entry.packedFlags&tfCoinbase == tfCoinbase
}

// IsUnmined returns whether the output belongs to a transaction that
// has not been mined yet.
func (entry *Entry) IsUnmined() bool {
	return entry.blockHeight == MempoolHeight
}

// Clone returns a copy of this entry.
func (entry *Entry) Clone() *Entry {
	scriptPubKey := make([]byte, len(entry.scriptPubKey))
	copy(scriptPubKey, entry.scriptPubKey)
	return &Entry{
		amount:       entry.amount,
		scriptPubKey: scriptPubKey,
		blockHeight:  entry.blockHeight,
		packedFlags:  entry.packedFlags,
	}
}

// Collection represents a set of UTXOs indexed by their outpoints.
type Collection map[wire.OutPoint]*Entry

func (c Collection) String() string {
	utxoStrings := make([]string, len(c))

	i := 0
	for outpoint, entry := range c {
		utxoStrings[i] = fmt.Sprintf("(%s, %d) => %d, height: %d",
			outpoint.TxID, outpoint.Index, entry.amount, entry.blockHeight)
		i++
	}

	// Sort strings for determinism.
	sort.Strings(utxoStrings)

	return fmt.Sprintf("[ %s ]", strings.Join(utxoStrings, ", "))
}

// Add adds a new UTXO entry to this collection.
func (c Collection) Add(outpoint wire.OutPoint, entry *Entry) {
	c[outpoint] = entry
}

// Remove removes a UTXO entry from this collection if it exists.
func (c Collection) Remove(outpoint wire.OutPoint) {
	delete(c, outpoint)
}

// Get returns the Entry represented by the provided outpoint, and a
// boolean value indicating if said Entry is in the set or not.
func (c Collection) Get(outpoint wire.OutPoint) (*Entry, bool) {
	entry, ok := c[outpoint]
	return entry, ok
}

// Contains returns a boolean value indicating whether a UTXO entry is
// in the set.
func (c Collection) Contains(outpoint wire.OutPoint) bool {
	_, ok := c[outpoint]
	return ok
}

// Clone returns a clone of this collection.
func (c Collection) Clone() Collection {
	clone := make(Collection, len(c))
	for outpoint, entry := range c {
		clone.Add(outpoint, entry)
	}

	return clone
}

// SpentUTXO couples a spent entry with the outpoint it was spendable
// at. The expire path records these so that a chain disconnect can
// restore the coin exactly as it was.
type SpentUTXO struct {
	Outpoint wire.OutPoint
	Entry    *Entry
}
