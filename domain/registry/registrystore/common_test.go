package registrystore

import (
	"io/ioutil"
	"testing"

	"github.com/domiranet/domirad/domain/registry"
	"github.com/domiranet/domirad/infrastructure/db/database"
	"github.com/domiranet/domirad/infrastructure/db/database/ldb"
	"github.com/domiranet/domirad/util/chainhash"
	"github.com/domiranet/domirad/wire"
)

func prepareStoreForTest(t *testing.T, testName string) (db database.Database, teardownFunc func()) {
	// Create a temp db
	path, err := ioutil.TempDir("", testName)
	if err != nil {
		t.Fatalf("%s: TempDir unexpectedly "+
			"failed: %s", testName, err)
	}
	db, err = ldb.NewLevelDB(path, 8)
	if err != nil {
		t.Fatalf("%s: NewLevelDB unexpectedly "+
			"failed: %s", testName, err)
	}
	teardownFunc = func() {
		err := db.Close()
		if err != nil {
			t.Fatalf("%s: Close unexpectedly "+
				"failed: %s", testName, err)
		}
	}
	return db, teardownFunc
}

func testAddressScript() []byte {
	script := make([]byte, 0, 25)
	script = append(script, 0x76, 0xa9, 0x14)
	for i := 0; i < 20; i++ {
		script = append(script, 0x05)
	}
	return append(script, 0x88, 0xac)
}

func testOutpoint(filler byte, index uint32) wire.OutPoint {
	var txID chainhash.TxID
	for i := range txID {
		txID[i] = filler
	}
	return *wire.NewOutPoint(&txID, index)
}

func testRecord(value string, height uint32, filler byte) *registry.Record {
	return registry.NewRecord([]byte(value), height,
		testOutpoint(filler, 0), testAddressScript())
}
