// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainhash

import (
	"bytes"
	"testing"
)

// TestHash tests the Hash API.
func TestHash(t *testing.T) {
	blockHashStr := "14a0810ac680a3eb3f82edc878cea25ec41d6b790744e5daeef"
	blockHash, err := NewHashFromStr(blockHashStr)
	if err != nil {
		t.Errorf("NewHashFromStr: %v", err)
	}

	buf := []byte{
		0x79, 0xa6, 0x1a, 0xdb, 0xc6, 0xe5, 0xa2, 0xe1,
		0x39, 0xd2, 0x71, 0x3a, 0x54, 0x6e, 0xc7, 0xc8,
		0x75, 0x63, 0x2e, 0x75, 0xf1, 0xdf, 0x9c, 0x3f,
		0xa6, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	hash, err := NewHash(buf)
	if err != nil {
		t.Errorf("NewHash: unexpected error %v", err)
	}

	// Ensure proper size.
	if len(hash) != HashSize {
		t.Errorf("NewHash: hash length mismatch - got: %v, want: %v",
			len(hash), HashSize)
	}

	// Ensure contents match.
	if !bytes.Equal(hash[:], buf) {
		t.Errorf("NewHash: hash contents mismatch - got: %v, want: %v",
			hash[:], buf)
	}

	// Ensure contents of two different hashes don't match.
	if hash.IsEqual(blockHash) {
		t.Errorf("IsEqual: hash contents should not match - got: %v, want: %v",
			hash, blockHash)
	}

	// Set hash from byte slice and ensure contents match.
	err = hash.SetBytes(blockHash.CloneBytes())
	if err != nil {
		t.Errorf("SetBytes: %v", err)
	}
	if !hash.IsEqual(blockHash) {
		t.Errorf("IsEqual: hash contents mismatch - got: %v, want: %v",
			hash, blockHash)
	}

	// Ensure nil hashes are handled properly.
	if !(*Hash)(nil).IsEqual(nil) {
		t.Error("IsEqual: nil hashes should match")
	}
	if hash.IsEqual(nil) {
		t.Error("IsEqual: non-nil hash matches nil hash")
	}

	// Invalid size for SetBytes.
	err = hash.SetBytes([]byte{0x00})
	if err == nil {
		t.Errorf("SetBytes: failed to received expected err - got: nil")
	}

	// Invalid size for NewHash.
	invalidHash := make([]byte, HashSize+1)
	_, err = NewHash(invalidHash)
	if err == nil {
		t.Errorf("NewHash: failed to received expected err - got: nil")
	}
}

// TestHashString tests the stringized output for hashes.
func TestHashString(t *testing.T) {
	// Block 100000 hash.
	wantStr := "000000000003ba27aa200b1cecaad478d2b00432346c3f1f3986da1afd33e506"
	hash := Hash([HashSize]byte{
		0x06, 0xe5, 0x33, 0xfd, 0x1a, 0xda, 0x86, 0x39,
		0x1f, 0x3f, 0x6c, 0x34, 0x32, 0x04, 0xb0, 0xd2,
		0x78, 0xd4, 0xaa, 0xec, 0x1c, 0x0b, 0x20, 0xaa,
		0x27, 0xba, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	})

	hashStr := hash.String()
	if hashStr != wantStr {
		t.Errorf("String: wrong hash string - got %v, want %v",
			hashStr, wantStr)
	}
}

// TestTxID tests that TxID values round-trip through their string form and
// stay comparable to their Hash representation.
func TestTxID(t *testing.T) {
	txIDStr := "a436a8a3e0d6c6e147a1e3523d5515fddbcbdbd85cd215a521495546c6a983cb"
	txID, err := NewTxIDFromStr(txIDStr)
	if err != nil {
		t.Fatalf("NewTxIDFromStr: %v", err)
	}
	if txID.String() != txIDStr {
		t.Errorf("String: wrong TxID string - got %v, want %v",
			txID.String(), txIDStr)
	}

	var other TxID
	err = other.SetBytes(txID.CloneBytes())
	if err != nil {
		t.Fatalf("SetBytes: %v", err)
	}
	if !txID.IsEqual(&other) {
		t.Errorf("IsEqual: TxID contents mismatch - got: %v, want: %v",
			other, txID)
	}
	if !(*TxID)(nil).IsEqual(nil) {
		t.Error("IsEqual: nil TxIDs should match")
	}
}

// TestDoubleHashWriter ensures the incremental writer agrees with the one-shot
// double hash.
func TestDoubleHashWriter(t *testing.T) {
	data := []byte("d/example registry payload")
	writer := NewDoubleHashWriter()
	_, err := writer.Write(data)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := writer.Finalize()
	want := DoubleHashH(data)
	if !got.IsEqual(&want) {
		t.Errorf("Finalize: mismatch with DoubleHashH - got %s, want %s",
			got, want)
	}
}
