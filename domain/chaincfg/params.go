// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"

	"github.com/domiranet/domirad/util/chainhash"
	"github.com/domiranet/domirad/wire"
)

// Domain rule constants. These are the same on every network.
const (
	// MaxDomainLength is the maximum length in bytes of a domain key.
	MaxDomainLength = 255

	// MaxValueLength is the maximum length in bytes of a domain value
	// accepted by consensus rules.
	MaxValueLength = 1023

	// MaxValueLengthUI is the maximum length in bytes of a domain value
	// that interfaces should let users create. Longer values up to
	// MaxValueLength remain valid by consensus.
	MaxValueLengthUI = 520

	// MaxCommitmentRandLength is the maximum length in bytes of the
	// random salt hashed into a registration commitment.
	MaxCommitmentRandLength = 20

	// MinRegistrationDepth is the number of blocks a commitment output
	// must be buried under before the domain it hides can be revealed.
	MinRegistrationDepth = 12
)

// RegistrationLockedAmount is the amount that every domain operation
// output must hold. The coins stay locked in the domain's current
// output for as long as the registration is alive.
const RegistrationLockedAmount = btcutil.Amount(btcutil.SatoshiPerBitcoin / 100)

// Params defines a Domira network by its parameters. These parameters may be
// used by Domira applications to differentiate networks as well as addresses
// and keys for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.DomiraNet

	// RPCPort defines the rpc server port
	RPCPort string

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string

	// GenesisHash is the starting block hash.
	GenesisHash *chainhash.Hash

	// InitialExpirationDepth is the number of blocks a domain registered
	// at the start of the chain stays alive without an update.
	InitialExpirationDepth uint32

	// FinalExpirationDepth is the number of blocks a domain registered
	// after the expiration ramp stays alive without an update.
	FinalExpirationDepth uint32

	// historicBugs registers transactions that broke the domain rules
	// enforced today but are part of the accepted chain. See
	// historicbugs.go for details.
	historicBugs historicBugRegistry
}

// ExpirationDepth returns the number of blocks it takes a domain record
// to expire when the chain is at the given height. The depth ramps up
// linearly from InitialExpirationDepth to FinalExpirationDepth so that
// registrations from the early chain did not all expire at once when
// the final depth activated.
func (p *Params) ExpirationDepth(height uint32) uint32 {
	switch {
	case height < 2*p.InitialExpirationDepth:
		return p.InitialExpirationDepth
	case height < p.InitialExpirationDepth+p.FinalExpirationDepth:
		return height - p.InitialExpirationDepth
	default:
		return p.FinalExpirationDepth
	}
}

// MinRegistrationAmount returns the smallest amount a domain operation
// output may hold at the given height. The schedule is currently flat at
// RegistrationLockedAmount on every network.
func (p *Params) MinRegistrationAmount(height uint32) btcutil.Amount {
	return RegistrationLockedAmount
}

// MainnetParams defines the network parameters for the main Domira network.
var MainnetParams = Params{
	Name:        "mainnet",
	Net:         wire.Mainnet,
	RPCPort:     "10332",
	DefaultPort: "10333",

	GenesisHash: newHashFromStr("0a9e3b5fce3aee6e04f06dfd6ad380a6c0f9d8420f53a4ca97845756ee5d56e7"),

	InitialExpirationDepth: 12000,
	FinalExpirationDepth:   36000,

	historicBugs: mainnetHistoricBugs,
}

// TestnetParams defines the network parameters for the test Domira network.
var TestnetParams = Params{
	Name:        "testnet",
	Net:         wire.Testnet,
	RPCPort:     "14332",
	DefaultPort: "14333",

	GenesisHash: newHashFromStr("e4c23a189582c0a7719569717bfeb59b478a20367c5b36dd6fb18b7df4ecab51"),

	InitialExpirationDepth: 12000,
	FinalExpirationDepth:   36000,
}

// RegtestParams defines the network parameters for the regression test
// Domira network. Domains expire after a constant small number of blocks
// so that registration lifecycles can be driven through in tests.
var RegtestParams = Params{
	Name:        "regtest",
	Net:         wire.Regtest,
	RPCPort:     "11332",
	DefaultPort: "11333",

	GenesisHash: newHashFromStr("e4d3c5acff29b5a4c03a2f78f8f9a5c2f077e886a99205a0c3c1515ff414f529"),

	InitialExpirationDepth: 30,
	FinalExpirationDepth:   30,
}

// SimnetParams defines the network parameters for the simulation test
// Domira network. This network is intended for private use within a
// group of individuals doing simulation testing, so no nodes outside
// those specifically brought up should ever join it.
var SimnetParams = Params{
	Name:        "simnet",
	Net:         wire.Simnet,
	RPCPort:     "12332",
	DefaultPort: "12333",

	GenesisHash: newHashFromStr("68e73f7e97f0823a0874fc0e10a422abc9d4b93173699969f36562dda4192d4b"),

	InitialExpirationDepth: 50,
	FinalExpirationDepth:   50,
}

var (
	// ErrDuplicateNet describes an error where the parameters for a Domira
	// network could not be set due to the network already being a standard
	// network or previously-registered via this package.
	ErrDuplicateNet = errors.New("duplicate Domira network")

	registeredNets = make(map[wire.DomiraNet]struct{})
)

// Register registers the network parameters for a Domira network. This may
// error with ErrDuplicateNet if the network is already registered (either
// due to a previous Register call, or the network being one of the default
// networks).
//
// Network parameters should be registered into this package by a main package
// as early as possible. Then, library packages may lookup networks or network
// parameters based on inputs and work regardless of the network being standard
// or not.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return errors.WithStack(ErrDuplicateNet)
	}
	registeredNets[params.Net] = struct{}{}
	return nil
}

// mustRegister performs the same function as Register except it panics if
// there is an error. This should only be called from package init functions.
func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

// newHashFromStr converts the passed big-endian hex string into a
// chainhash.Hash. It only differs from the one available in chainhash in that
// it panics on an error since it will only (and must only) be called with
// hard-coded, and therefore known good, hashes.
func newHashFromStr(hexStr string) *chainhash.Hash {
	hash, err := chainhash.NewHashFromStr(hexStr)
	if err != nil {
		panic(err)
	}
	return hash
}

func init() {
	// Register all default networks when the package is initialized.
	mustRegister(&MainnetParams)
	mustRegister(&TestnetParams)
	mustRegister(&RegtestParams)
	mustRegister(&SimnetParams)
}
