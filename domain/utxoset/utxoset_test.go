package utxoset

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/domiranet/domirad/util/chainhash"
	"github.com/domiranet/domirad/wire"
)

func TestEntry(t *testing.T) {
	txOut := &wire.TxOut{
		Value:    1000000,
		PkScript: []byte{0x51, 0x52, 0x53},
	}

	entry := NewEntry(txOut, false, 7)
	if entry.Amount() != 1000000 {
		t.Fatalf("TestEntry: wrong amount. Want: %d, got: %d",
			1000000, entry.Amount())
	}
	if !bytes.Equal(entry.ScriptPubKey(), txOut.PkScript) {
		t.Fatalf("TestEntry: wrong scriptPubKey. Want: %x, got: %x",
			txOut.PkScript, entry.ScriptPubKey())
	}
	if entry.BlockHeight() != 7 {
		t.Fatalf("TestEntry: wrong block height. Want: %d, got: %d",
			7, entry.BlockHeight())
	}
	if entry.IsCoinbase() {
		t.Fatalf("TestEntry: entry unexpectedly reported as coinbase")
	}
	if entry.IsUnmined() {
		t.Fatalf("TestEntry: entry unexpectedly reported as unmined")
	}

	coinbaseEntry := NewEntry(txOut, true, 7)
	if !coinbaseEntry.IsCoinbase() {
		t.Fatalf("TestEntry: coinbase entry unexpectedly reported as " +
			"non-coinbase")
	}

	unminedEntry := NewEntry(txOut, false, MempoolHeight)
	if !unminedEntry.IsUnmined() {
		t.Fatalf("TestEntry: unmined entry unexpectedly reported as mined")
	}

	// Make sure that mutating a clone doesn't affect the original
	clone := entry.Clone()
	if !reflect.DeepEqual(clone, entry) {
		t.Fatalf("TestEntry: clone differs from the original entry")
	}
	clone.scriptPubKey[0] = 0x00
	if bytes.Equal(clone.ScriptPubKey(), entry.ScriptPubKey()) {
		t.Fatalf("TestEntry: mutating a clone unexpectedly changed " +
			"the original entry")
	}
}

func TestCollection(t *testing.T) {
	txID, err := chainhash.NewTxIDFromStr(
		"1111111111111111111111111111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("TestCollection: NewTxIDFromStr unexpectedly failed: %s", err)
	}
	outpoint := *wire.NewOutPoint(txID, 0)
	entry := NewEntry(&wire.TxOut{Value: 42, PkScript: []byte{0x51}}, false, 1)

	collection := Collection{}
	if collection.Contains(outpoint) {
		t.Fatalf("TestCollection: empty collection unexpectedly " +
			"contains an outpoint")
	}

	collection.Add(outpoint, entry)
	if !collection.Contains(outpoint) {
		t.Fatalf("TestCollection: collection unexpectedly does not " +
			"contain an added outpoint")
	}
	gotEntry, ok := collection.Get(outpoint)
	if !ok || gotEntry != entry {
		t.Fatalf("TestCollection: Get returned a wrong entry")
	}

	// Make sure that mutating a clone doesn't affect the original
	clone := collection.Clone()
	otherOutpoint := *wire.NewOutPoint(txID, 1)
	clone.Add(otherOutpoint, entry)
	if collection.Contains(otherOutpoint) {
		t.Fatalf("TestCollection: adding to a clone unexpectedly " +
			"changed the original collection")
	}

	collection.Remove(outpoint)
	if collection.Contains(outpoint) {
		t.Fatalf("TestCollection: collection unexpectedly contains " +
			"a removed outpoint")
	}
}

func TestOutpointSerialization(t *testing.T) {
	txID, err := chainhash.NewTxIDFromStr(
		"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	if err != nil {
		t.Fatalf("TestOutpointSerialization: NewTxIDFromStr "+
			"unexpectedly failed: %s", err)
	}
	outpoint := wire.NewOutPoint(txID, 5)

	buf := &bytes.Buffer{}
	err = SerializeOutpoint(buf, outpoint)
	if err != nil {
		t.Fatalf("TestOutpointSerialization: SerializeOutpoint "+
			"unexpectedly failed: %s", err)
	}

	deserialized, err := DeserializeOutpoint(buf)
	if err != nil {
		t.Fatalf("TestOutpointSerialization: DeserializeOutpoint "+
			"unexpectedly failed: %s", err)
	}
	if !reflect.DeepEqual(deserialized, outpoint) {
		t.Fatalf("TestOutpointSerialization: deserialized outpoint "+
			"differs from the original. Want: %s, got: %s",
			outpoint, deserialized)
	}

	// Deserializing truncated data should fail
	_, err = DeserializeOutpoint(bytes.NewReader([]byte{0x01, 0x02}))
	if err == nil {
		t.Fatalf("TestOutpointSerialization: DeserializeOutpoint " +
			"unexpectedly succeeded for truncated data")
	}
}

func TestUTXOEntrySerialization(t *testing.T) {
	entries := []*Entry{
		NewEntry(&wire.TxOut{Value: 1000000, PkScript: []byte{0x51, 0x6d, 0x76}}, false, 123),
		NewEntry(&wire.TxOut{Value: 5000000000, PkScript: []byte{0xac}}, true, 0),
		NewEntry(&wire.TxOut{Value: 1, PkScript: nil}, false, MempoolHeight),
	}

	for i, entry := range entries {
		buf := &bytes.Buffer{}
		err := SerializeUTXOEntry(buf, entry)
		if err != nil {
			t.Fatalf("TestUTXOEntrySerialization: %d: SerializeUTXOEntry "+
				"unexpectedly failed: %s", i, err)
		}

		deserialized, err := DeserializeUTXOEntry(buf)
		if err != nil {
			t.Fatalf("TestUTXOEntrySerialization: %d: DeserializeUTXOEntry "+
				"unexpectedly failed: %s", i, err)
		}

		if deserialized.amount != entry.amount ||
			deserialized.blockHeight != entry.blockHeight ||
			deserialized.packedFlags != entry.packedFlags ||
			!bytes.Equal(deserialized.scriptPubKey, entry.scriptPubKey) {

			t.Fatalf("TestUTXOEntrySerialization: %d: deserialized entry "+
				"differs from the original", i)
		}
	}

	// Deserializing truncated data should fail
	_, err := DeserializeUTXOEntry(bytes.NewReader([]byte{0x01}))
	if err == nil {
		t.Fatalf("TestUTXOEntrySerialization: DeserializeUTXOEntry " +
			"unexpectedly succeeded for truncated data")
	}
}
