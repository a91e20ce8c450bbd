package registry

import (
	"io"

	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/util/binaryserializer"
	"github.com/domiranet/domirad/util/chainlock"
	"github.com/domiranet/domirad/wire"
)

// OpUndo captures the registry state a single domain-update output
// replaced, so that disconnecting its block can restore it.
type OpUndo struct {
	domain    []byte
	isNew     bool
	oldRecord *Record
}

// NewOpUndo snapshots the pre-state of the given domain from the view.
// A domain with no current record marks the undo as a first registration,
// which deletes the domain when undone.
func NewOpUndo(guard *chainlock.Guard, domain []byte, view View) (*OpUndo, error) {
	oldRecord, ok, err := view.GetDomain(guard, domain)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &OpUndo{domain: domain, isNew: true}, nil
	}
	return &OpUndo{domain: domain, oldRecord: oldRecord.Clone()}, nil
}

// Domain returns the domain the undo restores.
func (u *OpUndo) Domain() []byte {
	return u.domain
}

// Apply restores the captured pre-state through the view.
func (u *OpUndo) Apply(guard *chainlock.Guard, view View) error {
	if u.isNew {
		return view.DeleteDomain(guard, u.domain)
	}
	return view.SetDomain(guard, u.domain, u.oldRecord, true)
}

// BlockUndo collects everything needed to disconnect one block from the
// registry: the per-output undo records in application order, and the
// coins the expiry sweep spent.
type BlockUndo struct {
	OpUndos []*OpUndo
	Expired []*utxoset.SpentUTXO
}

// SerializeOpUndo serializes an op undo into the given writer.
func SerializeOpUndo(w io.Writer, undo *OpUndo) error {
	err := wire.WriteVarBytes(w, undo.domain)
	if err != nil {
		return err
	}
	isNew := uint8(0)
	if undo.isNew {
		isNew = 1
	}
	err = binaryserializer.PutUint8(w, isNew)
	if err != nil {
		return err
	}
	if undo.isNew {
		return nil
	}
	return SerializeRecord(w, undo.oldRecord)
}

// DeserializeOpUndo deserializes an op undo from the given reader.
func DeserializeOpUndo(r io.Reader) (*OpUndo, error) {
	domain, err := wire.ReadVarBytes(r, chaincfg.MaxDomainLength,
		"op undo domain")
	if err != nil {
		return nil, err
	}
	isNew, err := binaryserializer.Uint8(r)
	if err != nil {
		return nil, err
	}
	undo := &OpUndo{domain: domain}
	switch isNew {
	case 1:
		undo.isNew = true
	case 0:
		undo.oldRecord, err = DeserializeRecord(r)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("malformed op undo: is-new byte is %d", isNew)
	}
	return undo, nil
}

// SerializeBlockUndo serializes a block undo into the given writer.
func SerializeBlockUndo(w io.Writer, undo *BlockUndo) error {
	err := wire.WriteVarInt(w, uint64(len(undo.OpUndos)))
	if err != nil {
		return err
	}
	for _, opUndo := range undo.OpUndos {
		err = SerializeOpUndo(w, opUndo)
		if err != nil {
			return err
		}
	}

	err = wire.WriteVarInt(w, uint64(len(undo.Expired)))
	if err != nil {
		return err
	}
	for _, spent := range undo.Expired {
		err = utxoset.SerializeOutpoint(w, &spent.Outpoint)
		if err != nil {
			return err
		}
		err = utxoset.SerializeUTXOEntry(w, spent.Entry)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeserializeBlockUndo deserializes a block undo from the given reader.
func DeserializeBlockUndo(r io.Reader) (*BlockUndo, error) {
	undo := &BlockUndo{}

	opUndoCount, err := wire.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < opUndoCount; i++ {
		opUndo, err := DeserializeOpUndo(r)
		if err != nil {
			return nil, err
		}
		undo.OpUndos = append(undo.OpUndos, opUndo)
	}

	expiredCount, err := wire.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < expiredCount; i++ {
		outpoint, err := utxoset.DeserializeOutpoint(r)
		if err != nil {
			return nil, err
		}
		entry, err := utxoset.DeserializeUTXOEntry(r)
		if err != nil {
			return nil, err
		}
		undo.Expired = append(undo.Expired, &utxoset.SpentUTXO{
			Outpoint: *outpoint,
			Entry:    entry,
		})
	}
	return undo, nil
}
