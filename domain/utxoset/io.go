package utxoset

import (
	"io"

	"github.com/pkg/errors"

	"github.com/domiranet/domirad/util/binaryserializer"
	"github.com/domiranet/domirad/wire"
)

// maxScriptPubKeySize is the maximum script size accepted when
// deserializing an entry. It matches the largest script that can appear
// in a transaction output.
const maxScriptPubKeySize = 10000

// SerializeOutpoint serializes the passed outpoint in a format that is
// suitable for long-term storage.
func SerializeOutpoint(w io.Writer, outpoint *wire.OutPoint) error {
	_, err := w.Write(outpoint.TxID[:])
	if err != nil {
		return errors.WithStack(err)
	}

	return binaryserializer.PutUint32(w, outpoint.Index)
}

// DeserializeOutpoint decodes an outpoint from the passed reader using
// the format written by SerializeOutpoint.
func DeserializeOutpoint(r io.Reader) (*wire.OutPoint, error) {
	outpoint := &wire.OutPoint{}
	_, err := io.ReadFull(r, outpoint.TxID[:])
	if err != nil {
		return nil, errors.WithStack(err)
	}

	outpoint.Index, err = binaryserializer.Uint32(r)
	if err != nil {
		return nil, err
	}

	return outpoint, nil
}

// SerializeUTXOEntry serializes the passed entry in the following
// format:
//
// 	Field        | Type      | Description
// 	------------ | --------- | -----------
// 	amount       | uint64    | the amount the output pays
// 	blockHeight  | uint32    | height of the block containing the tx
// 	packedFlags  | uint8     | coinbase flag
// 	scriptPubKey | var bytes | the output's public key script
func SerializeUTXOEntry(w io.Writer, entry *Entry) error {
	err := binaryserializer.PutUint64(w, entry.amount)
	if err != nil {
		return err
	}

	err = binaryserializer.PutUint32(w, entry.blockHeight)
	if err != nil {
		return err
	}

	err = binaryserializer.PutUint8(w, uint8(entry.packedFlags))
	if err != nil {
		return err
	}

	return wire.WriteVarBytes(w, entry.scriptPubKey)
}

// DeserializeUTXOEntry decodes an entry from the passed reader using
// the format written by SerializeUTXOEntry.
func DeserializeUTXOEntry(r io.Reader) (*Entry, error) {
	entry := &Entry{}

	var err error
	entry.amount, err = binaryserializer.Uint64(r)
	if err != nil {
		return nil, err
	}

	entry.blockHeight, err = binaryserializer.Uint32(r)
	if err != nil {
		return nil, err
	}

	packedFlags, err := binaryserializer.Uint8(r)
	if err != nil {
		return nil, err
	}
	entry.packedFlags = txoFlags(packedFlags)

	entry.scriptPubKey, err = wire.ReadVarBytes(r, maxScriptPubKeySize,
		"utxo entry scriptPubKey")
	if err != nil {
		return nil, err
	}

	return entry, nil
}
