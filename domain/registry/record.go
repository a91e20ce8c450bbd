// Package registry implements the domain registry that rides on top of the
// UTXO set: the record and history data model, the overlay cache that stages
// registry changes between flushes, and the consensus operations that
// validate, apply, expire and unexpire domain transactions.
package registry

import (
	"bytes"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/domainscript"
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/wire"
)

// Record is the current state of one registered domain. Records are
// immutable once constructed; an update replaces the record as a whole.
type Record struct {
	value          []byte
	height         uint32
	updateOutpoint wire.OutPoint
	addressScript  []byte
}

// NewRecord returns a record built from its parts.
func NewRecord(value []byte, height uint32, updateOutpoint wire.OutPoint,
	addressScript []byte) *Record {

	return &Record{
		value:          value,
		height:         height,
		updateOutpoint: updateOutpoint,
		addressScript:  addressScript,
	}
}

// NewRecordFromScript returns the record a domain-update output creates.
// The script must be an update-type domain operation; the height and
// outpoint come from the containing block and transaction, since the
// script itself does not carry them.
func NewRecordFromScript(height uint32, updateOutpoint wire.OutPoint,
	script *domainscript.DomainScript) *Record {

	if !script.IsAnyUpdate() {
		panic("building a domain record from a non-update script")
	}
	return &Record{
		value:          script.Value(),
		height:         height,
		updateOutpoint: updateOutpoint,
		addressScript:  script.AddressScript(),
	}
}

// Value returns the opaque value currently bound to the domain.
func (r *Record) Value() []byte {
	return r.value
}

// Height returns the height of the block that last updated the domain.
func (r *Record) Height() uint32 {
	return r.height
}

// UpdateOutpoint returns the outpoint of the coin that carries the
// domain's claim. Spending that coin is what performs the next update.
func (r *Record) UpdateOutpoint() wire.OutPoint {
	return r.updateOutpoint
}

// AddressScript returns the output script holding the domain, kept so
// callers do not have to re-parse the owning coin.
func (r *Record) AddressScript() []byte {
	return r.addressScript
}

// Expired reports whether the record is expired at the given height.
func (r *Record) Expired(height uint32, params *chaincfg.Params) bool {
	return heightExpired(r.height, height, params)
}

// Equal reports whether both records hold the same data.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	return bytes.Equal(r.value, other.value) &&
		r.height == other.height &&
		r.updateOutpoint == other.updateOutpoint &&
		bytes.Equal(r.addressScript, other.addressScript)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	clone := *r
	clone.value = make([]byte, len(r.value))
	copy(clone.value, r.value)
	clone.addressScript = make([]byte, len(r.addressScript))
	copy(clone.addressScript, r.addressScript)
	return &clone
}

// heightExpired reports whether a domain last updated at updateHeight is
// expired at height. height must be a real chain height. Records carrying
// the mempool sentinel are never expired.
func heightExpired(updateHeight, height uint32, params *chaincfg.Params) bool {
	if height == utxoset.MempoolHeight {
		panic("expiry checked at the mempool height sentinel")
	}
	if updateHeight == utxoset.MempoolHeight {
		return false
	}
	return updateHeight+params.ExpirationDepth(height) <= height
}
