package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/btcsuite/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/domiranet/domirad/domain/chaincfg"
	"github.com/domiranet/domirad/domain/utxoset"
	"github.com/domiranet/domirad/infrastructure/logger"
	"github.com/domiranet/domirad/version"
)

const (
	defaultDataDirname = "data"
	defaultDebugLevel  = "warn"

	// registryDbDirname is the directory under the network data
	// directory holding the registry database.
	registryDbDirname = "registry"

	// dbCacheSizeMiB is the cache handed to the database; scans are
	// sequential, so a small cache is enough.
	dbCacheSizeMiB = 8
)

var (
	// Default configuration options
	defaultHomeDir = btcutil.AppDataDir("domirad", false)
	defaultDataDir = filepath.Join(defaultHomeDir, defaultDataDirname)
)

// NetworkFlags holds the network line of the configuration, that is
// which network is selected.
type NetworkFlags struct {
	Testnet bool `long:"testnet" description:"Use the test network"`
	Regtest bool `long:"regtest" description:"Use the regression test network"`
	Simnet  bool `long:"simnet" description:"Use the simulation test network"`

	activeNetParams *chaincfg.Params
}

// ResolveNetwork parses the network flags and sets the active network
// parameters accordingly. It returns an error if more than one network
// was selected.
func (networkFlags *NetworkFlags) ResolveNetwork(parser *flags.Parser) error {
	networkFlags.activeNetParams = &chaincfg.MainnetParams
	// Multiple networks can't be selected simultaneously.
	numNets := 0
	if networkFlags.Testnet {
		numNets++
		networkFlags.activeNetParams = &chaincfg.TestnetParams
	}
	if networkFlags.Regtest {
		numNets++
		networkFlags.activeNetParams = &chaincfg.RegtestParams
	}
	if networkFlags.Simnet {
		numNets++
		networkFlags.activeNetParams = &chaincfg.SimnetParams
	}
	if numNets > 1 {
		message := "Multiple network parameters (--testnet, --regtest, " +
			"--simnet) cannot be used together. Please choose only one network"
		err := errors.Errorf(message)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return err
	}
	return nil
}

// NetParams returns the parameters of the selected network.
func (networkFlags *NetworkFlags) NetParams() *chaincfg.Params {
	return networkFlags.activeNetParams
}

// configFlags defines the configuration options for domscan.
//
// See parseConfig for details on the configuration load process.
type configFlags struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	DataDir     string `short:"b" long:"datadir" description:"Directory containing the domirad data"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	Height      uint32 `long:"height" description:"Chain height used to judge expiry; 0 leaves listings unannotated"`
	Domain      string `long:"domain" description:"Show the full detail of a single domain instead of a listing"`
	Limit       int    `short:"n" long:"limit" description:"Max number of domains to list; 0 lists all of them"`
	CheckDB     bool   `long:"checkdb" description:"Audit the records, the expiry index, the commitment and the owning coins, then exit"`
	Profile     string `long:"profile" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65536"`
	NetworkFlags
}

// parseConfig initializes and parses the config using command line
// options. The remaining arguments hold the optional domain a listing
// starts from.
func parseConfig() (*configFlags, []string, error) {
	cfg := &configFlags{
		DataDir:    defaultDataDir,
		DebugLevel: defaultDebugLevel,
	}
	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	remainingArgs, err := parser.Parse()

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		appName := filepath.Base(os.Args[0])
		appName = strings.TrimSuffix(appName, filepath.Ext(appName))
		fmt.Println(appName, "version", version.Version())
		os.Exit(0)
	}

	if err != nil {
		return nil, nil, err
	}

	err = cfg.ResolveNetwork(parser)
	if err != nil {
		return nil, nil, err
	}

	// Append the network name to the data directory so it is namespaced
	// per network, the same way the node lays its data out.
	cfg.DataDir = filepath.Join(cfg.DataDir, cfg.NetParams().Name)

	level, ok := logger.LevelFromString(cfg.DebugLevel)
	if !ok {
		return nil, nil, errors.Errorf(
			"the debug level '%s' is not known", cfg.DebugLevel)
	}

	if len(remainingArgs) > 1 {
		return nil, nil, errors.Errorf(
			"at most one start domain may be given, got %d arguments",
			len(remainingArgs))
	}
	if len(remainingArgs) == 1 && len(remainingArgs[0]) > chaincfg.MaxDomainLength {
		return nil, nil, errors.Errorf(
			"the start domain is longer than the longest possible "+
				"domain (%d bytes)", chaincfg.MaxDomainLength)
	}
	if len(cfg.Domain) > chaincfg.MaxDomainLength {
		return nil, nil, errors.Errorf(
			"the domain is longer than the longest possible domain "+
				"(%d bytes)", chaincfg.MaxDomainLength)
	}
	if cfg.Domain != "" && len(remainingArgs) > 0 {
		return nil, nil, errors.New(
			"--domain and a start domain cannot be used together")
	}
	if cfg.CheckDB && (cfg.Domain != "" || len(remainingArgs) > 0) {
		return nil, nil, errors.New(
			"--checkdb cannot be combined with --domain or a start domain")
	}
	if cfg.CheckDB && cfg.Height == 0 {
		return nil, nil, errors.New(
			"--checkdb needs --height to judge which records are expired")
	}
	if cfg.Height >= utxoset.MempoolHeight {
		return nil, nil, errors.Errorf(
			"--height must be a real chain height, below %d",
			utxoset.MempoolHeight)
	}
	if cfg.Limit < 0 {
		return nil, nil, errors.Errorf(
			"--limit cannot be negative, got %d", cfg.Limit)
	}
	if cfg.Profile != "" {
		profilePort, err := strconv.Atoi(cfg.Profile)
		if err != nil || profilePort < 1024 || profilePort > 65535 {
			return nil, nil, errors.New(
				"the profile port must be between 1024 and 65535")
		}
	}

	logger.SetLogLevels(level)
	logger.InitLogStdout(level)

	return cfg, remainingArgs, nil
}
