// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/domiranet/domirad/util/chainhash"
)

// TestTx tests the MsgTx API.
func TestTx(t *testing.T) {
	txIDStr := "3ba27aa200b1cecaad478d2b00432346c3f1f3986da1afd33e506"
	txID, err := chainhash.NewTxIDFromStr(txIDStr)
	if err != nil {
		t.Errorf("NewTxIDFromStr: %v", err)
	}

	// Ensure we get the same transaction outpoint data back out.
	prevOutIndex := uint32(1)
	prevOut := NewOutPoint(txID, prevOutIndex)
	if !prevOut.TxID.IsEqual(txID) {
		t.Errorf("NewOutPoint: wrong ID - got %v, want %v",
			spew.Sprint(&prevOut.TxID), spew.Sprint(txID))
	}
	if prevOut.Index != prevOutIndex {
		t.Errorf("NewOutPoint: wrong index - got %v, want %v",
			prevOut.Index, prevOutIndex)
	}
	prevOutStr := fmt.Sprintf("%s:%d", txID.String(), prevOutIndex)
	if s := prevOut.String(); s != prevOutStr {
		t.Errorf("OutPoint.String: unexpected result - got %v, "+
			"want %v", s, prevOutStr)
	}

	// Ensure we get the same transaction input back out.
	sigScript := []byte{0x04, 0x31, 0xdc, 0x00, 0x1b, 0x01, 0x62}
	txIn := NewTxIn(prevOut, sigScript)
	if !reflect.DeepEqual(&txIn.PreviousOutPoint, prevOut) {
		t.Errorf("NewTxIn: wrong prev outpoint - got %v, want %v",
			spew.Sprint(&txIn.PreviousOutPoint),
			spew.Sprint(prevOut))
	}
	if !bytes.Equal(txIn.SignatureScript, sigScript) {
		t.Errorf("NewTxIn: wrong signature script - got %v, want %v",
			spew.Sdump(txIn.SignatureScript),
			spew.Sdump(sigScript))
	}

	// Ensure we get the same transaction output back out.
	txValue := uint64(5000000000)
	pkScript := []byte{0x76, 0xa9, 0x14, 0xc3, 0x98, 0xef, 0xa9,
		0xc3, 0x92, 0xba, 0x60, 0x13, 0xc5, 0xe0, 0x4e, 0xe7,
		0x29, 0x75, 0x5e, 0xf7, 0xf5, 0x8b, 0x32, 0x88, 0xac}
	txOut := NewTxOut(txValue, pkScript)
	if txOut.Value != txValue {
		t.Errorf("NewTxOut: wrong value - got %v, want %v",
			txOut.Value, txValue)
	}
	if !bytes.Equal(txOut.PkScript, pkScript) {
		t.Errorf("NewTxOut: wrong pk script - got %v, want %v",
			spew.Sdump(txOut.PkScript),
			spew.Sdump(pkScript))
	}

	// Ensure transaction inputs and outputs are added properly.
	msg := NewMsgTx(TxVersion)
	msg.AddTxIn(txIn)
	if !reflect.DeepEqual(msg.TxIn[0], txIn) {
		t.Errorf("AddTxIn: wrong transaction input added - got %v, want %v",
			spew.Sprint(msg.TxIn[0]), spew.Sprint(txIn))
	}
	msg.AddTxOut(txOut)
	if !reflect.DeepEqual(msg.TxOut[0], txOut) {
		t.Errorf("AddTxOut: wrong transaction output added - got %v, want %v",
			spew.Sprint(msg.TxOut[0]), spew.Sprint(txOut))
	}

	// Ensure the copy produced an identical transaction message.
	newMsg := msg.Copy()
	if !reflect.DeepEqual(newMsg, msg) {
		t.Errorf("Copy: mismatched tx messages - got %v, want %v",
			spew.Sdump(newMsg), spew.Sdump(msg))
	}

	// Mutating the copy must not affect the original.
	newMsg.TxIn[0].SignatureScript[0] ^= 0xff
	if msg.TxIn[0].SignatureScript[0] == newMsg.TxIn[0].SignatureScript[0] {
		t.Errorf("Copy: signature script is shared with the original")
	}

	// Registry marking follows the version.
	if msg.IsRegistryTx() {
		t.Errorf("IsRegistryTx: version %d unexpectedly marked as registry",
			msg.Version)
	}
	registryMsg := NewMsgTx(RegistryTxVersion)
	if !registryMsg.IsRegistryTx() {
		t.Errorf("IsRegistryTx: version %d not marked as registry",
			registryMsg.Version)
	}
}

// TestTxSerialize tests MsgTx serialize and deserialize against an explicit
// byte fixture.
func TestTxSerialize(t *testing.T) {
	noTx := NewMsgTx(1)
	noTxEncoded := []byte{
		0x01, 0x00, 0x00, 0x00, // Version
		0x00,                   // Varint for number of input transactions
		0x00,                   // Varint for number of output transactions
		0x00, 0x00, 0x00, 0x00, // Lock time
	}

	multiTx := NewMsgTx(1)
	multiTx.AddTxIn(&TxIn{
		PreviousOutPoint: OutPoint{
			TxID:  chainhash.TxID{},
			Index: 0xffffffff,
		},
		SignatureScript: []byte{0x04, 0x31, 0xdc, 0x00, 0x1b, 0x01, 0x62},
		Sequence:        0xffffffff,
	})
	multiTx.AddTxOut(&TxOut{
		Value:    0x12a05f200,
		PkScript: []byte{0x51},
	})
	multiTxEncoded := []byte{
		0x01, 0x00, 0x00, 0x00, // Version
		0x01, // Varint for number of input transactions
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Previous output ID
		0xff, 0xff, 0xff, 0xff, // Previous output index
		0x07,                                     // Varint for length of signature script
		0x04, 0x31, 0xdc, 0x00, 0x1b, 0x01, 0x62, // Signature script
		0xff, 0xff, 0xff, 0xff, // Sequence
		0x01,                                           // Varint for number of output transactions
		0x00, 0xf2, 0x05, 0x2a, 0x01, 0x00, 0x00, 0x00, // Transaction amount
		0x01, // Varint for length of pk script
		0x51, // pk script
		0x00, 0x00, 0x00, 0x00, // Lock time
	}

	tests := []struct {
		name string
		in   *MsgTx
		buf  []byte
	}{
		{"no transactions", noTx, noTxEncoded},
		{"one input one output", multiTx, multiTxEncoded},
	}

	for _, test := range tests {
		// Serialize the transaction.
		var buf bytes.Buffer
		err := test.in.Serialize(&buf)
		if err != nil {
			t.Errorf("%s: Serialize error %v", test.name, err)
			continue
		}
		if !bytes.Equal(buf.Bytes(), test.buf) {
			t.Errorf("%s: Serialize wrong bytes - got %s, want %s",
				test.name, spew.Sdump(buf.Bytes()), spew.Sdump(test.buf))
			continue
		}
		if buf.Len() != test.in.SerializeSize() {
			t.Errorf("%s: SerializeSize mismatch - got %d, want %d",
				test.name, test.in.SerializeSize(), buf.Len())
		}

		// Deserialize the transaction.
		var tx MsgTx
		rbuf := bytes.NewReader(test.buf)
		err = tx.Deserialize(rbuf)
		if err != nil {
			t.Errorf("%s: Deserialize error %v", test.name, err)
			continue
		}
		if !reflect.DeepEqual(&tx, test.in) {
			t.Errorf("%s: Deserialize mismatch - got %s, want %s",
				test.name, spew.Sdump(&tx), spew.Sdump(test.in))
		}
	}
}

// TestTxID ensures the transaction ID is stable across serialize round-trips.
func TestTxID(t *testing.T) {
	tx := NewMsgTx(RegistryTxVersion)
	tx.AddTxIn(&TxIn{
		PreviousOutPoint: OutPoint{Index: 0},
		SignatureScript:  []byte{0x51},
		Sequence:         MaxTxInSequenceNum,
	})
	tx.AddTxOut(&TxOut{Value: 1000000, PkScript: []byte{0x52}})

	want := tx.TxID()

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var decoded MsgTx
	if err := decoded.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	got := decoded.TxID()
	if !got.IsEqual(&want) {
		t.Errorf("TxID: changed across round-trip - got %s, want %s",
			got, want)
	}
}

// TestVarIntNonCanonical ensures variable length integers that are not
// canonically encoded are rejected.
func TestVarIntNonCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"0 encoded with 3 bytes", []byte{0xfd, 0x00, 0x00}},
		{"max single-byte value encoded with 3 bytes",
			[]byte{0xfd, 0xfc, 0x00}},
		{"max 3-byte value encoded with 5 bytes",
			[]byte{0xfe, 0xff, 0xff, 0x00, 0x00}},
		{"max 5-byte value encoded with 9 bytes",
			[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00}},
	}

	for _, test := range tests {
		rbuf := bytes.NewReader(test.in)
		val, err := ReadVarInt(rbuf)
		if _, ok := err.(*MessageError); !ok {
			t.Errorf("%s: unexpected error %v (val %d)", test.name,
				err, val)
		}
	}
}
