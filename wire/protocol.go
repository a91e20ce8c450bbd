// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
)

// DomiraNet represents which Domira network a message belongs to.
type DomiraNet uint32

// Constants used to indicate the message's Domira network. They can also be
// used to seek to the next message when a stream's state is unknown, but
// this package does not provide that functionality since it's generally a
// better idea to simply disconnect clients that are misbehaving over TCP.
const (
	// Mainnet represents the main Domira network.
	Mainnet DomiraNet = 0xa7c0d29c

	// Testnet represents the test network.
	Testnet DomiraNet = 0x81d7e2b7

	// Regtest represents the regression test network.
	Regtest DomiraNet = 0xdbb0a9d0

	// Simnet represents the simulation test network.
	Simnet DomiraNet = 0x7e3fe768
)

// dnStrings is a map of Domira networks back to their constant names for
// pretty printing.
var dnStrings = map[DomiraNet]string{
	Mainnet: "Mainnet",
	Testnet: "Testnet",
	Regtest: "Regtest",
	Simnet:  "Simnet",
}

// String returns the DomiraNet in human-readable form.
func (n DomiraNet) String() string {
	if s, ok := dnStrings[n]; ok {
		return s
	}

	return fmt.Sprintf("Unknown DomiraNet (%d)", uint32(n))
}
