package registry

import (
	"io"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/util/binaryserializer"
	"github.com/domiranet/domirad/wire"
)

// maxAddressScriptLen is the maximum length of a serialized address
// script that deserialization accepts.
const maxAddressScriptLen = 10000

// SerializeRecord serializes a record into the given writer.
//
// The serialized format is:
//
//	value          var bytes
//	height         uint32
//	updateOutpoint TxID (32 bytes) + index (uint32)
//	addressScript  var bytes
func SerializeRecord(w io.Writer, record *Record) error {
	err := wire.WriteVarBytes(w, record.value)
	if err != nil {
		return err
	}
	err = binaryserializer.PutUint32(w, record.height)
	if err != nil {
		return err
	}
	err = utxoset.SerializeOutpoint(w, &record.updateOutpoint)
	if err != nil {
		return err
	}
	return wire.WriteVarBytes(w, record.addressScript)
}

// DeserializeRecord deserializes a record from the given reader.
func DeserializeRecord(r io.Reader) (*Record, error) {
	value, err := wire.ReadVarBytes(r, chaincfg.MaxValueLength, "record value")
	if err != nil {
		return nil, err
	}
	height, err := binaryserializer.Uint32(r)
	if err != nil {
		return nil, err
	}
	outpoint, err := utxoset.DeserializeOutpoint(r)
	if err != nil {
		return nil, err
	}
	addressScript, err := wire.ReadVarBytes(r, maxAddressScriptLen,
		"record address script")
	if err != nil {
		return nil, err
	}
	return &Record{
		value:          value,
		height:         height,
		updateOutpoint: *outpoint,
		addressScript:  addressScript,
	}, nil
}

// SerializeHistory serializes a history into the given writer as a record
// count followed by the records, oldest first.
func SerializeHistory(w io.Writer, history *History) error {
	err := wire.WriteVarInt(w, uint64(len(history.records)))
	if err != nil {
		return err
	}
	for _, record := range history.records {
		err = SerializeRecord(w, record)
		if err != nil {
			return err
		}
	}
	return nil
}

// DeserializeHistory deserializes a history from the given reader.
func DeserializeHistory(r io.Reader) (*History, error) {
	count, err := wire.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	history := NewHistory()
	for i := uint64(0); i < count; i++ {
		record, err := DeserializeRecord(r)
		if err != nil {
			return nil, err
		}
		history.records = append(history.records, record)
	}
	return history, nil
}
