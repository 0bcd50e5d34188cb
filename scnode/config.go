package scnode

import (
	"os"
	"path/filepath"

	"github.com/btcsuite/btcutil"
	flags "github.com/jessevdk/go-flags"
	"github.com/mit-dci/sidechaindb/sidechain"
)

const (
	defaultLogFilename = "scdbd.log"
	defaultDBDirname   = "scdb"
	defaultNet         = "testnet3"
	defaultLogLevel    = "info"
)

// scdbd home directory
var defaultHomeDir = btcutil.AppDataDir("scdbd", false)

// Config holds everything a node needs to run. The struct tags are read by
// go-flags, so it can be handed to a parser directly.
type Config struct {
	HomeDir    string `long:"homedir" description:"Directory for scdbd data and logs"`
	DataDir    string `short:"b" long:"datadir" description:"Directory to store the SCDB in"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	Net        string `long:"net" description:"Main chain network (mainnet, testnet3, regtest)"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	MaxPending int    `long:"maxpending" description:"Most relayed update packages to keep queued (0 uses the network default)"`
	NoLogFile  bool   `long:"nologfile" description:"Only log to stdout"`

	params sidechain.Params
}

// DefaultConfig returns a config with every default filled in.
func DefaultConfig() *Config {
	return &Config{
		HomeDir:    defaultHomeDir,
		Net:        defaultNet,
		DebugLevel: defaultLogLevel,
	}
}

// Parse reads command line arguments into a default config and finishes
// it. Arguments go-flags doesn't know are returned.
func Parse(args []string) (*Config, []string, error) {
	cfg := DefaultConfig()
	rest, err := flags.ParseArgs(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Finish(); err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}

// Finish checks the parsed values, resolves the network params and
// directories, and sets up logging. It must be called once after parsing.
func (cfg *Config) Finish() error {
	params, ok := sidechain.ParamsForNet(cfg.Net)
	if !ok {
		return errInvalidNetwork(cfg.Net)
	}
	cfg.params = *params
	if cfg.MaxPending > 0 {
		cfg.params.MaxPendingPackages = cfg.MaxPending
	}

	if cfg.HomeDir == "" {
		cfg.HomeDir = defaultHomeDir
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(cfg.HomeDir, "data")
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.HomeDir, "logs")
	}
	// keep networks apart
	cfg.DataDir = filepath.Join(cfg.DataDir, cfg.params.Net.Name)
	cfg.LogDir = filepath.Join(cfg.LogDir, cfg.params.Net.Name)

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return err
	}
	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return err
	}
	if !cfg.NoLogFile {
		return initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	}
	return nil
}

// Params returns the sidechain params picked by Net.
func (cfg *Config) Params() *sidechain.Params {
	return &cfg.params
}

// DBPath is where the leveldb SCDB store lives.
func (cfg *Config) DBPath() string {
	return filepath.Join(cfg.DataDir, defaultDBDirname)
}
