package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Tem12/minesim/internal/network"
	"github.com/Tem12/minesim/internal/simerr"
	"github.com/Tem12/minesim/internal/types"
)

// miningPowerEpsilon is the tolerance total mining power is checked
// against, matching original_source/ConfigParser.h's TOTAL_HASHPOWER_EPS.
const miningPowerEpsilon = 0.000001

const (
	minerTokenCount     = 2
	biconnectTokenCount = 3
)

// File is the parsed contents of a topology config file: a
// "description" line plus any number of "miner" and "biconnect"
// directives.
type File struct {
	Description string
	Miners      []network.MinerSpec
	Biconnects  []network.BiconnectSpec
}

// ParseFile reads line-oriented config directives from r:
//
//	description <free text>
//	miner <relative_power> <honest|malicious>
//	biconnect <miner1> <miner2> <propagation_delay>
//
// Blank lines are skipped. Grounded on LarryRuane-minesim's
// bufio.Scanner-based network file parser, generalized to the three
// directive kinds original_source/ArgParser.cpp::printHelp documents.
func ParseFile(r io.Reader) (*File, error) {
	f := &File{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		directive := fields[0]
		args := fields[1:]

		switch directive {
		case "description":
			f.Description = strings.TrimSpace(strings.TrimPrefix(line, directive))
		case "miner":
			if len(args) != minerTokenCount {
				return nil, fmt.Errorf("%w: line %d: miner directive wants %d fields, got %d", simerr.ErrConfigMalformed, lineNo, minerTokenCount, len(args))
			}
			power, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: invalid miner power %q", simerr.ErrConfigMalformed, lineNo, args[0])
			}
			behavior, ok := types.ParseBehavior(args[1])
			if !ok {
				return nil, fmt.Errorf("%w: line %d: invalid miner behavior %q (want honest or malicious)", simerr.ErrConfigMalformed, lineNo, args[1])
			}
			f.Miners = append(f.Miners, network.MinerSpec{Power: power, Behavior: behavior})
		case "biconnect":
			if len(args) != biconnectTokenCount {
				return nil, fmt.Errorf("%w: line %d: biconnect directive wants %d fields, got %d", simerr.ErrConfigMalformed, lineNo, biconnectTokenCount, len(args))
			}
			a, err1 := strconv.Atoi(args[0])
			b, err2 := strconv.Atoi(args[1])
			latency, err3 := strconv.ParseFloat(args[2], 64)
			if err1 != nil || err2 != nil || err3 != nil {
				return nil, fmt.Errorf("%w: line %d: invalid biconnect fields", simerr.ErrConfigMalformed, lineNo)
			}
			f.Biconnects = append(f.Biconnects, network.BiconnectSpec{A: a, B: b, Latency: latency})
		default:
			return nil, fmt.Errorf("%w: line %d: unknown directive %q", simerr.ErrConfigMalformed, lineNo, directive)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", simerr.ErrConfigMalformed, err)
	}
	return f, nil
}

// Validate checks the structural invariants original_source/ConfigParser
// enforces once parsing is complete: at least one miner, every biconnect
// index in range, and total mining power within epsilon of 1.0.
func (f *File) Validate() error {
	if len(f.Miners) == 0 {
		return fmt.Errorf("%w: no miner directives found", simerr.ErrConfigMalformed)
	}
	total := 0.0
	for _, m := range f.Miners {
		total += m.Power
	}
	if diff := total - 1.0; diff < -miningPowerEpsilon || diff > miningPowerEpsilon {
		return fmt.Errorf("%w: total mining power %.6f is not within %g of 1.0", simerr.ErrPowerSumViolation, total, miningPowerEpsilon)
	}
	for i, b := range f.Biconnects {
		if b.A < 0 || b.A >= len(f.Miners) || b.B < 0 || b.B >= len(f.Miners) {
			return fmt.Errorf("%w: biconnect directive %d references an out-of-range miner index", simerr.ErrConfigMalformed, i)
		}
		if b.A == b.B {
			return fmt.Errorf("%w: biconnect directive %d connects a miner to itself", simerr.ErrConfigMalformed, i)
		}
	}
	return nil
}
