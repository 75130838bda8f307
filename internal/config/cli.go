// Package config parses the command line and the topology config file
// into the values internal/simulation.EngineConfig needs, plus an
// optional YAML defaults file for ambient engine tuning. The CLI flag
// set and validation rules are grounded on
// original_source/ArgParser.cpp; Go's flag package already accepts
// both "-x" and "--x", satisfying the original's single/double dash
// acceptance without a third-party CLI framework (see DESIGN.md).
package config

import (
	"flag"
	"fmt"

	"github.com/Tem12/minesim/internal/simerr"
)

// CLI holds every flag original_source/ArgParser.cpp exposes, plus the
// two ambient additions (--defaults, --metrics_addr).
type CLI struct {
	ConfigPath string
	Seed       int64

	MPCapacity    uint
	MaxTxGenCount uint
	MinTxGenCount uint
	MaxTxGenTime  uint
	MinTxGenTime  uint
	BlockSize     uint
	Blocks        uint
	Lambda        uint
	InitTxCount   uint

	HonestRandomRemove bool
	MPPrintData        bool

	DefaultsPath string
	MetricsAddr  string
}

// ParseFlags parses args (typically os.Args[1:]) into a CLI, applying
// the same post-parse validation original_source's ArgParser::createSimulation
// performs after getopt_long_only returns.
func ParseFlags(args []string) (*CLI, error) {
	fs := flag.NewFlagSet("minesim", flag.ContinueOnError)
	c := &CLI{}

	fs.StringVar(&c.ConfigPath, "config", "", "input configuration file")
	fs.Int64Var(&c.Seed, "seed", 0, "seed for random number generator")
	fs.UintVar(&c.MPCapacity, "mp_capacity", 5000, "mempool capacity for each miner")
	fs.UintVar(&c.MaxTxGenCount, "max_tx_gen_count", 150, "max number of transactions in a single generation round")
	fs.UintVar(&c.MinTxGenCount, "min_tx_gen_count", 100, "min number of transactions in a single generation round")
	fs.UintVar(&c.MaxTxGenTime, "max_tx_gen_time", 20, "max seconds of simulation time between generation rounds")
	fs.UintVar(&c.MinTxGenTime, "min_tx_gen_time", 10, "min seconds of simulation time between generation rounds")
	fs.UintVar(&c.BlockSize, "block_size", 100, "number of transactions in a block")
	fs.UintVar(&c.Blocks, "blocks", 1000, "number of blocks to simulate")
	fs.UintVar(&c.Lambda, "lambda", 20, "block creation rate scale, in seconds")
	fs.UintVar(&c.InitTxCount, "init_tx_count", 1000, "initial transaction count to generate on start")
	fs.BoolVar(&c.HonestRandomRemove, "honest_random_remove", false, "honest miners evict transactions randomly instead of by lowest fee")
	fs.BoolVar(&c.MPPrintData, "mp_print_data", false, "record mempool occupancy samples during the run")
	fs.StringVar(&c.DefaultsPath, "defaults", "", "optional YAML file of engine tuning defaults")
	fs.StringVar(&c.MetricsAddr, "metrics_addr", "", "optional host:port to serve Prometheus metrics on")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if c.ConfigPath == "" {
		return nil, fmt.Errorf("%w: --config is required", simerr.ErrInvalidArgument)
	}
	if c.Blocks == 0 {
		return nil, fmt.Errorf("%w: --blocks must be greater than 0", simerr.ErrInvalidArgument)
	}
	if c.BlockSize == 0 {
		return nil, fmt.Errorf("%w: --block_size must be greater than 0", simerr.ErrInvalidArgument)
	}
	if c.MPCapacity == 0 {
		return nil, fmt.Errorf("%w: --mp_capacity must be greater than 0", simerr.ErrInvalidArgument)
	}
	if c.Lambda == 0 {
		return nil, fmt.Errorf("%w: --lambda must be greater than 0", simerr.ErrInvalidArgument)
	}
	if c.MinTxGenCount > c.MaxTxGenCount {
		return nil, fmt.Errorf("%w: --min_tx_gen_count must be <= --max_tx_gen_count", simerr.ErrInvalidArgument)
	}
	if c.MinTxGenTime > c.MaxTxGenTime {
		return nil, fmt.Errorf("%w: --min_tx_gen_time must be <= --max_tx_gen_time", simerr.ErrInvalidArgument)
	}

	return c, nil
}
