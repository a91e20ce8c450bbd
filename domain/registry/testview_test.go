package registry

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/domainscript"
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/util/chainhash"
	"github.com/domiranet/domirad/util/chainlock"
	"github.com/domiranet/domirad/wire"
)

// testView is an in-memory View backing the package tests. It mirrors
// the chain-state overlay closely enough for the consensus operations:
// the expiry index follows the records, and histories are pushed and
// popped when tracking is enabled.
type testView struct {
	records      map[string]*Record
	histories    map[string]*History
	expireIndex  map[uint32]map[string]struct{}
	utxos        map[wire.OutPoint]*utxoset.Entry
	trackHistory bool
}

func newTestView(trackHistory bool) *testView {
	return &testView{
		records:      make(map[string]*Record),
		histories:    make(map[string]*History),
		expireIndex:  make(map[uint32]map[string]struct{}),
		utxos:        make(map[wire.OutPoint]*utxoset.Entry),
		trackHistory: trackHistory,
	}
}

func (v *testView) addExpireIndex(domain string, height uint32) {
	atHeight, ok := v.expireIndex[height]
	if !ok {
		atHeight = make(map[string]struct{})
		v.expireIndex[height] = atHeight
	}
	atHeight[domain] = struct{}{}
}

func (v *testView) GetDomain(_ *chainlock.Guard, domain []byte) (*Record, bool, error) {
	record, ok := v.records[string(domain)]
	return record, ok, nil
}

func (v *testView) SetDomain(_ *chainlock.Guard, domain []byte, record *Record,
	undo bool) error {

	old, hadOld := v.records[string(domain)]
	if hadOld {
		delete(v.expireIndex[old.Height()], string(domain))
		if v.trackHistory {
			history, ok := v.histories[string(domain)]
			if !ok {
				history = NewHistory()
			}
			if undo {
				history.Pop(record)
			} else {
				history.Push(old)
			}
			if history.Empty() {
				delete(v.histories, string(domain))
			} else {
				v.histories[string(domain)] = history
			}
		}
	}
	v.records[string(domain)] = record
	v.addExpireIndex(string(domain), record.Height())
	return nil
}

func (v *testView) DeleteDomain(_ *chainlock.Guard, domain []byte) error {
	record, ok := v.records[string(domain)]
	if !ok {
		return errors.Errorf("deleting unknown domain '%s'", domain)
	}
	if history, ok := v.histories[string(domain)]; ok && !history.Empty() {
		return errors.Errorf("deleting domain '%s' with history", domain)
	}
	delete(v.expireIndex[record.Height()], string(domain))
	delete(v.records, string(domain))
	return nil
}

func (v *testView) GetDomainHistory(_ *chainlock.Guard, domain []byte) (*History, bool, error) {
	history, ok := v.histories[string(domain)]
	return history, ok, nil
}

func (v *testView) SetDomainHistory(_ *chainlock.Guard, domain []byte,
	history *History) error {

	if history.Empty() {
		delete(v.histories, string(domain))
		return nil
	}
	v.histories[string(domain)] = history
	return nil
}

func (v *testView) DomainsAtHeight(_ *chainlock.Guard, height uint32) (map[string]struct{}, error) {
	domains := make(map[string]struct{})
	for domain := range v.expireIndex[height] {
		domains[domain] = struct{}{}
	}
	return domains, nil
}

func (v *testView) GetUTXO(_ *chainlock.Guard, outpoint wire.OutPoint) (*utxoset.Entry, bool, error) {
	entry, ok := v.utxos[outpoint]
	return entry, ok, nil
}

func (v *testView) AddUTXO(_ *chainlock.Guard, outpoint wire.OutPoint,
	entry *utxoset.Entry) error {

	if _, ok := v.utxos[outpoint]; ok {
		return errors.Errorf("coin %s already exists", outpoint)
	}
	v.utxos[outpoint] = entry
	return nil
}

func (v *testView) SpendUTXO(_ *chainlock.Guard, outpoint wire.OutPoint) (*utxoset.Entry, bool, error) {
	entry, ok := v.utxos[outpoint]
	if !ok {
		return nil, false, nil
	}
	delete(v.utxos, outpoint)
	return entry, true, nil
}

func (v *testView) RestoreUTXO(_ *chainlock.Guard, outpoint wire.OutPoint,
	entry *utxoset.Entry) error {

	if _, ok := v.utxos[outpoint]; ok {
		return errors.Errorf("restoring unspent coin %s", outpoint)
	}
	v.utxos[outpoint] = entry
	return nil
}

// addCoin adds a coin carrying the given script to the view and returns
// its outpoint. The transaction ID is synthesized from the given filler
// byte so that distinct coins get distinct outpoints.
func (v *testView) addCoin(t *testing.T, filler byte, index uint32,
	height uint32, script []byte) wire.OutPoint {

	var txID chainhash.TxID
	for i := range txID {
		txID[i] = filler
	}
	outpoint := *wire.NewOutPoint(&txID, index)
	entry := utxoset.NewEntry(&wire.TxOut{
		Value:    uint64(chaincfg.RegistrationLockedAmount),
		PkScript: script,
	}, false, height)
	err := v.AddUTXO(nil, outpoint, entry)
	if err != nil {
		t.Fatalf("addCoin: AddUTXO unexpectedly failed: %s", err)
	}
	return outpoint
}

// addDomain installs a current record for the domain, the way a mined
// update would have: the record, its owning coin and the expiry index
// entry. It returns the record.
func (v *testView) addDomain(t *testing.T, domain string, value string,
	height uint32, filler byte) *Record {

	script := domainscript.BuildDomainUpdate(testAddressScript(),
		[]byte(domain), []byte(value))
	outpoint := v.addCoin(t, filler, 0, height, script)

	record := NewRecord([]byte(value), height, outpoint, testAddressScript())
	v.records[domain] = record
	v.addExpireIndex(domain, height)
	return record
}

func testGuard() *chainlock.Guard {
	return chainlock.New().Acquire()
}
