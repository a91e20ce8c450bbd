package registrystore

import (
	"bytes"
	"testing"

	"github.com/kaspanet/go-muhash"

	"github.com/domiranet/domirad/domain/registry"
	"github.com/domiranet/domirad/infrastructure/db/database"
)

func TestRecordRoundTrip(t *testing.T) {
	db, teardownFunc := prepareStoreForTest(t, "TestRecordRoundTrip")
	defer teardownFunc()

	domain := []byte("d/roundtrip")
	_, ok, err := GetRecord(db, domain)
	if err != nil {
		t.Fatalf("TestRecordRoundTrip: GetRecord unexpectedly failed: %s", err)
	}
	if ok {
		t.Fatalf("TestRecordRoundTrip: GetRecord found a record in an " +
			"empty store")
	}

	record := testRecord("initial-value", 100, 0x0a)
	err = putRecord(db, domain, record)
	if err != nil {
		t.Fatalf("TestRecordRoundTrip: putRecord unexpectedly failed: %s", err)
	}
	got, ok, err := GetRecord(db, domain)
	if err != nil {
		t.Fatalf("TestRecordRoundTrip: GetRecord unexpectedly failed: %s", err)
	}
	if !ok {
		t.Fatalf("TestRecordRoundTrip: GetRecord did not find the stored " +
			"record")
	}
	if !got.Equal(record) {
		t.Fatalf("TestRecordRoundTrip: read back a record different from "+
			"the stored one. Want: %v, got: %v", record, got)
	}

	replacement := testRecord("replacement-value", 120, 0x0b)
	err = putRecord(db, domain, replacement)
	if err != nil {
		t.Fatalf("TestRecordRoundTrip: putRecord unexpectedly failed: %s", err)
	}
	got, _, err = GetRecord(db, domain)
	if err != nil {
		t.Fatalf("TestRecordRoundTrip: GetRecord unexpectedly failed: %s", err)
	}
	if !got.Equal(replacement) {
		t.Fatalf("TestRecordRoundTrip: read back the old record after " +
			"overwriting it")
	}

	err = deleteRecord(db, domain)
	if err != nil {
		t.Fatalf("TestRecordRoundTrip: deleteRecord unexpectedly failed: %s", err)
	}
	_, ok, err = GetRecord(db, domain)
	if err != nil {
		t.Fatalf("TestRecordRoundTrip: GetRecord unexpectedly failed: %s", err)
	}
	if ok {
		t.Fatalf("TestRecordRoundTrip: GetRecord found a deleted record")
	}

	// Deleting a missing record is not an error.
	err = deleteRecord(db, domain)
	if err != nil {
		t.Fatalf("TestRecordRoundTrip: deleteRecord of a missing record "+
			"unexpectedly failed: %s", err)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	db, teardownFunc := prepareStoreForTest(t, "TestHistoryRoundTrip")
	defer teardownFunc()

	domain := []byte("d/history")
	_, ok, err := GetHistory(db, domain)
	if err != nil {
		t.Fatalf("TestHistoryRoundTrip: GetHistory unexpectedly failed: %s", err)
	}
	if ok {
		t.Fatalf("TestHistoryRoundTrip: GetHistory found a history in an " +
			"empty store")
	}

	history := registry.NewHistory()
	history.Push(testRecord("first-value", 50, 0x0c))
	history.Push(testRecord("second-value", 90, 0x0d))
	err = putHistory(db, domain, history)
	if err != nil {
		t.Fatalf("TestHistoryRoundTrip: putHistory unexpectedly failed: %s", err)
	}
	got, ok, err := GetHistory(db, domain)
	if err != nil {
		t.Fatalf("TestHistoryRoundTrip: GetHistory unexpectedly failed: %s", err)
	}
	if !ok {
		t.Fatalf("TestHistoryRoundTrip: GetHistory did not find the stored " +
			"history")
	}
	if got.Len() != history.Len() {
		t.Fatalf("TestHistoryRoundTrip: read back %d records instead of %d",
			got.Len(), history.Len())
	}
	for i, record := range got.Records() {
		if !record.Equal(history.Records()[i]) {
			t.Fatalf("TestHistoryRoundTrip: record %d differs from the "+
				"stored one", i)
		}
	}

	// Writing an empty history removes the stored one.
	err = putHistory(db, domain, registry.NewHistory())
	if err != nil {
		t.Fatalf("TestHistoryRoundTrip: putHistory unexpectedly failed: %s", err)
	}
	_, ok, err = GetHistory(db, domain)
	if err != nil {
		t.Fatalf("TestHistoryRoundTrip: GetHistory unexpectedly failed: %s", err)
	}
	if ok {
		t.Fatalf("TestHistoryRoundTrip: GetHistory found a history after " +
			"an empty one was written")
	}
}

func TestDomainKeys(t *testing.T) {
	domains := [][]byte{
		[]byte(""),
		[]byte("d/a"),
		bytes.Repeat([]byte{'x'}, 255),
	}
	for _, domain := range domains {
		parsed, err := domainFromKey(domainKey(domain))
		if err != nil {
			t.Fatalf("TestDomainKeys: domainFromKey unexpectedly failed "+
				"for '%s': %s", domain, err)
		}
		if !bytes.Equal(parsed, domain) {
			t.Fatalf("TestDomainKeys: domain '%s' did not survive the key "+
				"round trip, got '%s'", domain, parsed)
		}
	}

	malformed := [][]byte{
		{},
		{0x05, 'a'},
		{0x01, 'a', 'b'},
	}
	for _, key := range malformed {
		_, err := domainFromKey(key)
		if err == nil {
			t.Fatalf("TestDomainKeys: domainFromKey of %x unexpectedly "+
				"succeeded", key)
		}
	}

	// Plain byte order over the keys is the domain order.
	orderTests := []struct {
		a, b []byte
	}{
		{[]byte("a"), []byte("b")},
		{[]byte("z"), []byte("aa")},
		{[]byte("aa"), []byte("ab")},
		{[]byte("d/a"), []byte("d/aa")},
	}
	for _, test := range orderTests {
		if !registry.DomainLess(test.a, test.b) {
			t.Fatalf("TestDomainKeys: expected '%s' to order before '%s'",
				test.a, test.b)
		}
		if bytes.Compare(domainKey(test.a), domainKey(test.b)) >= 0 {
			t.Fatalf("TestDomainKeys: key of '%s' does not order before "+
				"the key of '%s'", test.a, test.b)
		}
	}
}

func TestExpireIndexKeys(t *testing.T) {
	height, domain, err := expireIndexFromKey(
		expireIndexKey(0x01020304, []byte("d/indexed")))
	if err != nil {
		t.Fatalf("TestExpireIndexKeys: expireIndexFromKey unexpectedly "+
			"failed: %s", err)
	}
	if height != 0x01020304 || !bytes.Equal(domain, []byte("d/indexed")) {
		t.Fatalf("TestExpireIndexKeys: round trip returned height %d and "+
			"domain '%s'", height, domain)
	}

	_, _, err = expireIndexFromKey([]byte{0x01, 0x02})
	if err == nil {
		t.Fatalf("TestExpireIndexKeys: expireIndexFromKey of a short key " +
			"unexpectedly succeeded")
	}

	// Keys of lower heights order first regardless of the domain.
	if bytes.Compare(expireIndexKey(100, []byte("z")),
		expireIndexKey(200, []byte("a"))) >= 0 {

		t.Fatalf("TestExpireIndexKeys: key at height 100 does not order " +
			"before a key at height 200")
	}
}

func checkDomainSet(t *testing.T, testName string, got map[string]struct{},
	want ...string) {

	if len(got) != len(want) {
		t.Fatalf("%s: got %d domains instead of %d", testName, len(got),
			len(want))
	}
	for _, domain := range want {
		if _, ok := got[domain]; !ok {
			t.Fatalf("%s: domain '%s' is missing from the set", testName,
				domain)
		}
	}
}

func TestDomainsAtHeight(t *testing.T) {
	db, teardownFunc := prepareStoreForTest(t, "TestDomainsAtHeight")
	defer teardownFunc()

	entries := []struct {
		height uint32
		domain string
	}{
		{100, "d/a"},
		{100, "d/b"},
		{101, "d/c"},
		{200, "d/d"},
	}
	for _, entry := range entries {
		err := db.Put(expireIndexBucket.Key(
			expireIndexKey(entry.height, []byte(entry.domain))), []byte{})
		if err != nil {
			t.Fatalf("TestDomainsAtHeight: Put unexpectedly failed: %s", err)
		}
	}

	tests := []struct {
		height uint32
		want   []string
	}{
		{0, nil},
		{100, []string{"d/a", "d/b"}},
		{101, []string{"d/c"}},
		{150, nil},
		{200, []string{"d/d"}},
		{201, nil},
	}
	for _, test := range tests {
		domains, err := DomainsAtHeight(db, test.height)
		if err != nil {
			t.Fatalf("TestDomainsAtHeight: DomainsAtHeight(%d) unexpectedly "+
				"failed: %s", test.height, err)
		}
		checkDomainSet(t, "TestDomainsAtHeight", domains, test.want...)
	}
}

// writeBatch runs WriteBatch for the cache inside its own database
// transaction and commits it.
func writeBatch(t *testing.T, testName string, db database.Database,
	cache *registry.Cache) {

	dbTx, err := db.Begin()
	if err != nil {
		t.Fatalf("%s: Begin unexpectedly failed: %s", testName, err)
	}
	defer dbTx.RollbackUnlessClosed()

	err = WriteBatch(dbTx, cache)
	if err != nil {
		t.Fatalf("%s: WriteBatch unexpectedly failed: %s", testName, err)
	}
	err = dbTx.Commit()
	if err != nil {
		t.Fatalf("%s: Commit unexpectedly failed: %s", testName, err)
	}
}

func TestWriteBatch(t *testing.T) {
	db, teardownFunc := prepareStoreForTest(t, "TestWriteBatch")
	defer teardownFunc()

	// The store starts out with three domains, one of them carrying a
	// history, and a commitment covering all three records.
	keepRecord := testRecord("keep-value", 90, 0x01)
	oldRecord := testRecord("old-value", 100, 0x02)
	goneRecord := testRecord("gone-value", 105, 0x04)
	goneHistory := registry.NewHistory()
	goneHistory.Push(testRecord("gone-genesis", 80, 0x05))

	preState := map[string]*registry.Record{
		"d/keep": keepRecord,
		"d/old":  oldRecord,
		"d/gone": goneRecord,
	}
	commitment := muhash.NewMuHash()
	for domain, record := range preState {
		err := putRecord(db, []byte(domain), record)
		if err != nil {
			t.Fatalf("TestWriteBatch: putRecord unexpectedly failed: %s", err)
		}
		err = db.Put(expireIndexBucket.Key(
			expireIndexKey(record.Height(), []byte(domain))), []byte{})
		if err != nil {
			t.Fatalf("TestWriteBatch: Put unexpectedly failed: %s", err)
		}
		element, err := commitmentElement([]byte(domain), record)
		if err != nil {
			t.Fatalf("TestWriteBatch: commitmentElement unexpectedly "+
				"failed: %s", err)
		}
		commitment.Add(element)
	}
	err := putCommitment(db, commitment)
	if err != nil {
		t.Fatalf("TestWriteBatch: putCommitment unexpectedly failed: %s", err)
	}
	err = putHistory(db, []byte("d/gone"), goneHistory)
	if err != nil {
		t.Fatalf("TestWriteBatch: putHistory unexpectedly failed: %s", err)
	}
	preHash, err := CommitmentHash(db)
	if err != nil {
		t.Fatalf("TestWriteBatch: CommitmentHash unexpectedly failed: %s", err)
	}

	// One batch registers d/new, updates d/old and drops d/gone.
	newRecord := testRecord("new-value", 120, 0x06)
	updatedRecord := testRecord("updated-value", 120, 0x03)
	oldHistory := registry.NewHistory()
	oldHistory.Push(oldRecord)

	cache := registry.NewCache(true)
	cache.Set([]byte("d/new"), newRecord)
	cache.AddExpireIndex([]byte("d/new"), 120)
	cache.Set([]byte("d/old"), updatedRecord)
	cache.RemoveExpireIndex([]byte("d/old"), 100)
	cache.AddExpireIndex([]byte("d/old"), 120)
	cache.SetHistory([]byte("d/old"), oldHistory)
	cache.Remove([]byte("d/gone"))
	cache.RemoveExpireIndex([]byte("d/gone"), 105)
	cache.SetHistory([]byte("d/gone"), registry.NewHistory())

	writeBatch(t, "TestWriteBatch", db, cache)

	// Records.
	got, ok, err := GetRecord(db, []byte("d/keep"))
	if err != nil || !ok {
		t.Fatalf("TestWriteBatch: GetRecord of d/keep failed: ok=%t err=%s",
			ok, err)
	}
	if !got.Equal(keepRecord) {
		t.Fatalf("TestWriteBatch: the batch disturbed the untouched d/keep")
	}
	got, ok, err = GetRecord(db, []byte("d/new"))
	if err != nil || !ok {
		t.Fatalf("TestWriteBatch: GetRecord of d/new failed: ok=%t err=%s",
			ok, err)
	}
	if !got.Equal(newRecord) {
		t.Fatalf("TestWriteBatch: d/new was not written")
	}
	got, ok, err = GetRecord(db, []byte("d/old"))
	if err != nil || !ok {
		t.Fatalf("TestWriteBatch: GetRecord of d/old failed: ok=%t err=%s",
			ok, err)
	}
	if !got.Equal(updatedRecord) {
		t.Fatalf("TestWriteBatch: d/old was not updated")
	}
	_, ok, err = GetRecord(db, []byte("d/gone"))
	if err != nil {
		t.Fatalf("TestWriteBatch: GetRecord of d/gone unexpectedly "+
			"failed: %s", err)
	}
	if ok {
		t.Fatalf("TestWriteBatch: d/gone was not deleted")
	}

	// Histories.
	gotHistory, ok, err := GetHistory(db, []byte("d/old"))
	if err != nil || !ok {
		t.Fatalf("TestWriteBatch: GetHistory of d/old failed: ok=%t err=%s",
			ok, err)
	}
	if gotHistory.Len() != 1 || !gotHistory.Records()[0].Equal(oldRecord) {
		t.Fatalf("TestWriteBatch: the history of d/old does not hold its " +
			"replaced record")
	}
	_, ok, err = GetHistory(db, []byte("d/gone"))
	if err != nil {
		t.Fatalf("TestWriteBatch: GetHistory of d/gone unexpectedly "+
			"failed: %s", err)
	}
	if ok {
		t.Fatalf("TestWriteBatch: the emptied history of d/gone survived")
	}

	// Expiry index.
	for _, test := range []struct {
		height uint32
		want   []string
	}{
		{90, []string{"d/keep"}},
		{100, nil},
		{105, nil},
		{120, []string{"d/new", "d/old"}},
	} {
		domains, err := DomainsAtHeight(db, test.height)
		if err != nil {
			t.Fatalf("TestWriteBatch: DomainsAtHeight(%d) unexpectedly "+
				"failed: %s", test.height, err)
		}
		checkDomainSet(t, "TestWriteBatch", domains, test.want...)
	}

	// The incrementally maintained commitment must equal a from-scratch
	// recomputation over the surviving records.
	expected := muhash.NewMuHash()
	for domain, record := range map[string]*registry.Record{
		"d/keep": keepRecord,
		"d/new":  newRecord,
		"d/old":  updatedRecord,
	} {
		element, err := commitmentElement([]byte(domain), record)
		if err != nil {
			t.Fatalf("TestWriteBatch: commitmentElement unexpectedly "+
				"failed: %s", err)
		}
		expected.Add(element)
	}
	postHash, err := CommitmentHash(db)
	if err != nil {
		t.Fatalf("TestWriteBatch: CommitmentHash unexpectedly failed: %s", err)
	}
	if postHash != *expected.Finalize() {
		t.Fatalf("TestWriteBatch: the stored commitment %s differs from "+
			"the recomputed %s", postHash.String(), expected.Finalize().String())
	}
	if postHash == preHash {
		t.Fatalf("TestWriteBatch: the commitment did not change")
	}

	// A batch staging the exact inverse restores the original commitment.
	inverse := registry.NewCache(true)
	inverse.Remove([]byte("d/new"))
	inverse.RemoveExpireIndex([]byte("d/new"), 120)
	inverse.Set([]byte("d/old"), oldRecord)
	inverse.RemoveExpireIndex([]byte("d/old"), 120)
	inverse.AddExpireIndex([]byte("d/old"), 100)
	inverse.SetHistory([]byte("d/old"), registry.NewHistory())
	inverse.Set([]byte("d/gone"), goneRecord)
	inverse.AddExpireIndex([]byte("d/gone"), 105)
	inverse.SetHistory([]byte("d/gone"), goneHistory)

	writeBatch(t, "TestWriteBatch", db, inverse)

	restoredHash, err := CommitmentHash(db)
	if err != nil {
		t.Fatalf("TestWriteBatch: CommitmentHash unexpectedly failed: %s", err)
	}
	if restoredHash != preHash {
		t.Fatalf("TestWriteBatch: the inverse batch restored commitment %s "+
			"instead of the original %s", restoredHash, preHash)
	}
	got, ok, err = GetRecord(db, []byte("d/gone"))
	if err != nil || !ok {
		t.Fatalf("TestWriteBatch: GetRecord of the restored d/gone failed: "+
			"ok=%t err=%s", ok, err)
	}
	if !got.Equal(goneRecord) {
		t.Fatalf("TestWriteBatch: d/gone was not restored")
	}
}
