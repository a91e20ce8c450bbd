// Package pendingop persists the wallet half of an in-flight domain
// registration. A registration runs in two transactions: the new
// operation publishes a salted commitment, and the first update reveals
// the domain once the commitment has matured. Between the two the wallet
// must remember the salt, the value to publish and where the domain
// should end up; losing that state loses the domain.
package pendingop

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/util/chainhash"
	"github.com/domiranet/domirad/wire"
)

// maxAddressScriptLen is the maximum length of a serialized address
// script that deserialization accepts.
const maxAddressScriptLen = 10000

// Record is what the wallet remembers about one pending registration:
// the transaction carrying the new operation, the salt its commitment
// was built from, the value the first update will publish, and
// optionally the script of the address the registration should be sent
// to.
type Record struct {
	addressScript []byte
	txID          chainhash.TxID
	rand          []byte
	value         []byte
}

// NewRecord returns a pending record. An empty addressScript means the
// wallet picks a fresh address when it fires the first update.
func NewRecord(txID chainhash.TxID, rand, value, addressScript []byte) *Record {
	return &Record{
		addressScript: addressScript,
		txID:          txID,
		rand:          rand,
		value:         value,
	}
}

// TxID returns the ID of the transaction carrying the new operation.
func (r *Record) TxID() chainhash.TxID {
	return r.txID
}

// Rand returns the salt the registration commitment was built from.
func (r *Record) Rand() []byte {
	return r.rand
}

// Value returns the value the first update will publish.
func (r *Record) Value() []byte {
	return r.value
}

// AddressScript returns the script of the address the registration
// should be sent to, or an empty script when the wallet picks one.
func (r *Record) AddressScript() []byte {
	return r.addressScript
}

// Equal reports whether both records hold the same pending
// registration. Records that are nil are equal to each other.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.txID == other.txID &&
		bytes.Equal(r.rand, other.rand) &&
		bytes.Equal(r.value, other.value) &&
		bytes.Equal(r.addressScript, other.addressScript)
}

// serializeRecord serializes a pending record into the given writer.
//
// The serialized format is:
//
//	addressScript var bytes
//	txID          32 bytes
//	rand          var bytes
//	value         var bytes
func serializeRecord(w io.Writer, record *Record) error {
	err := wire.WriteVarBytes(w, record.addressScript)
	if err != nil {
		return err
	}
	_, err = w.Write(record.txID[:])
	if err != nil {
		return errors.WithStack(err)
	}
	err = wire.WriteVarBytes(w, record.rand)
	if err != nil {
		return err
	}
	return wire.WriteVarBytes(w, record.value)
}

// deserializeRecord deserializes a pending record from the given reader.
func deserializeRecord(r io.Reader) (*Record, error) {
	addressScript, err := wire.ReadVarBytes(r, maxAddressScriptLen,
		"pending address script")
	if err != nil {
		return nil, err
	}
	record := &Record{addressScript: addressScript}
	_, err = io.ReadFull(r, record.txID[:])
	if err != nil {
		return nil, errors.WithStack(err)
	}
	record.rand, err = wire.ReadVarBytes(r,
		chaincfg.MaxCommitmentRandLength, "pending rand")
	if err != nil {
		return nil, err
	}
	record.value, err = wire.ReadVarBytes(r, chaincfg.MaxValueLength,
		"pending value")
	if err != nil {
		return nil, err
	}
	return record, nil
}
