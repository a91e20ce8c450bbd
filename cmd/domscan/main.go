package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/registry"
	"github.com/domiranet/domirad/domain/state"
	"github.com/domiranet/domirad/infrastructure/db/database/ldb"
	"github.com/domiranet/domirad/infrastructure/logger"
	"github.com/domiranet/domirad/util/chainlock"
	"github.com/domiranet/domirad/util/panics"
	"github.com/domiranet/domirad/util/profiling"
	"github.com/domiranet/domirad/version"
)

var log = logger.RegisterSubSystem("DSCN")

func main() {
	defer panics.HandlePanic(log, nil)

	cfg, remainingArgs, err := parseConfig()
	if err != nil {
		printErrorAndExit(fmt.Sprintf("error parsing command-line arguments: %s", err))
	}
	log.Infof("Version %s", version.Version())

	// Enable http profiling server if requested.
	if cfg.Profile != "" {
		profiling.Start(cfg.Profile, log)
	}

	dbPath := filepath.Join(cfg.DataDir, registryDbDirname)
	db, err := ldb.NewLevelDB(dbPath, dbCacheSizeMiB)
	if err != nil {
		printErrorAndExit(fmt.Sprintf("error opening the registry database at %s: %s", dbPath, err))
	}
	defer db.Close()

	view, err := state.NewDBView(db, 0)
	if err != nil {
		printErrorAndExit(fmt.Sprintf("error building the database view: %s", err))
	}

	// The scan is the only user of the database, but the view API still
	// wants proof of the chain lock.
	guard := chainlock.New().Acquire()
	defer guard.Release()

	switch {
	case cfg.CheckDB:
		err = checkDB(guard, view, cfg)
	case cfg.Domain != "":
		err = showDomain(guard, view, cfg, []byte(cfg.Domain))
	default:
		var start []byte
		if len(remainingArgs) == 1 {
			start = []byte(remainingArgs[0])
		}
		err = listDomains(guard, view, cfg, start)
	}
	if err != nil {
		printErrorAndExit(err.Error())
	}
}

// listDomains prints the registry in domain order, one line per domain,
// beginning at the first domain at or after start.
func listDomains(guard *chainlock.Guard, view *state.DBView,
	cfg *configFlags, start []byte) error {

	it, err := view.Iterate(guard)
	if err != nil {
		return err
	}
	defer it.Close()

	if len(start) > 0 {
		err = it.Seek(start)
		if err != nil {
			return err
		}
	}

	listed := 0
	for it.Next() {
		if cfg.Limit != 0 && listed == cfg.Limit {
			break
		}
		domain, record, err := it.Get()
		if err != nil {
			return err
		}
		if cfg.Height != 0 {
			fmt.Printf("%s\t%q\t%s\n", domain, record.Value(),
				expiryNote(record, cfg.NetParams(), cfg.Height))
		} else {
			fmt.Printf("%s\t%q\n", domain, record.Value())
		}
		listed++
	}
	log.Infof("Listed %d domains", listed)
	return nil
}

// showDomain prints every stored detail of one domain, including its
// history when the store tracks one.
func showDomain(guard *chainlock.Guard, view *state.DBView,
	cfg *configFlags, domain []byte) error {

	record, ok, err := view.GetDomain(guard, domain)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("domain '%s' is not registered", domain)
	}

	fmt.Printf("domain:   %s\n", domain)
	fmt.Printf("value:    %q\n", record.Value())
	fmt.Printf("height:   %d\n", record.Height())
	fmt.Printf("outpoint: %s\n", record.UpdateOutpoint())

	// An expired domain has no coin anymore; the expiry sweep spent it.
	coin, ok, err := view.GetUTXO(guard, record.UpdateOutpoint())
	if err != nil {
		return err
	}
	if ok {
		fmt.Printf("amount:   %v DMR\n", btcutil.Amount(coin.Amount()).ToBTC())
	}
	fmt.Printf("address:  %x\n", record.AddressScript())
	if cfg.Height != 0 {
		fmt.Printf("expiry:   %s\n", expiryNote(record, cfg.NetParams(), cfg.Height))
	}

	history, ok, err := view.GetDomainHistory(guard, domain)
	if err != nil {
		return err
	}
	if ok && !history.Empty() {
		fmt.Printf("history:  %d prior records, oldest first\n", history.Len())
		for _, prior := range history.Records() {
			fmt.Printf("  height %-9d %q\n", prior.Height(), prior.Value())
		}
	}
	return nil
}

// checkDB audits the whole store and prints the commitment when it is
// found consistent.
func checkDB(guard *chainlock.Guard, view *state.DBView, cfg *configFlags) error {
	err := view.CheckConsistency(guard, cfg.NetParams(), cfg.Height)
	if err != nil {
		return err
	}
	commitment, err := view.CommitmentHash(guard)
	if err != nil {
		return err
	}
	fmt.Printf("The registry database is consistent at height %d\n", cfg.Height)
	fmt.Printf("commitment: %s\n", commitment.String())
	return nil
}

// expiryNote renders the expiry column of a record as seen from the
// given chain height.
func expiryNote(record *registry.Record, params *chaincfg.Params,
	height uint32) string {

	if record.Expired(height, params) {
		return "expired"
	}
	expiresIn := int64(record.Height()) +
		int64(params.ExpirationDepth(record.Height())) - int64(height)
	return fmt.Sprintf("expires in %d", expiresIn)
}

func printErrorAndExit(message string) {
	fmt.Fprintf(os.Stderr, "%s\n", message)
	os.Exit(1)
}
