// Package sinks owns every byte the engine writes outside of itself: the
// CSV data and mempool-occupancy streams, the human-readable progress
// stream, the metadata key=value file, and a zerolog diagnostics logger.
// The CSV framing and the progress/ETA text formats are grounded on
// original_source/Simulation.cpp (prepareOutput, printSimulationStart,
// logProgress, logTimeInterval); the zerolog logger is grounded on
// DanDo385-go-edu/minis/50-mini-service-all-features/internal/middleware/logging.go.
package sinks

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tem12/minesim/internal/types"
)

// Metadata is the set of key=value lines written once at the start of a
// run, mirroring the original's "name", "cfg_path", "blocks", "seed",
// etc. lines, plus a run_id the original didn't have (it probed output
// filenames for a free numeric suffix instead; this keeps that approach
// for file naming but also stamps a uuid into the metadata for
// unambiguous cross-referencing against metrics and logs).
type Metadata struct {
	Name            string
	RunID           string
	ConfigPath      string
	Blocks          uint
	Seed            int64
	BlockSize       uint
	MempoolCapacity uint
	MaliciousMiners int
	HonestMiners    int
	MaliciousPower  float64
	HonestPower     float64
}

// ProgressLine is one line of the human-readable progress stream.
type ProgressLine struct {
	Time    time.Time
	Percent int
	BlockID types.BlockID
	ETA     string

	HaveHonest     bool
	HonestIndex    types.MinerID
	HonestFullness float64

	HaveMalicious     bool
	MaliciousIndex    types.MinerID
	MaliciousFullness float64
}

// Sinks bundles the writers and the diagnostics logger the engine drives
// output through.
type Sinks struct {
	progress io.Writer
	data     *csv.Writer
	mempool  *csv.Writer
	metadata io.Writer
	mpOn     bool

	Log zerolog.Logger
}

// New wires the four output streams. mempool may be nil when
// mpPrintData is false; New leaves the mempool occupancy stream entirely
// unused in that case.
func New(progress, data, mempool, metadata io.Writer, mpPrintData bool, log zerolog.Logger) (*Sinks, error) {
	s := &Sinks{
		progress: progress,
		metadata: metadata,
		mpOn:     mpPrintData,
		Log:      log,
	}

	s.data = csv.NewWriter(data)
	if err := s.data.Write([]string{"TransactionID", "Fee", "BlockID", "Depth", "MinerID"}); err != nil {
		return nil, fmt.Errorf("writing data header: %w", err)
	}
	s.data.Flush()

	if mpPrintData {
		if mempool == nil {
			return nil, fmt.Errorf("mp_print_data requested but no mempool writer given")
		}
		s.mempool = csv.NewWriter(mempool)
		if err := s.mempool.Write([]string{"MinerID", "Progress", "MempoolSize"}); err != nil {
			return nil, fmt.Errorf("writing mempool header: %w", err)
		}
		s.mempool.Flush()
	}

	return s, nil
}

// MempoolDataEnabled reports whether the mempool occupancy stream is
// active.
func (s *Sinks) MempoolDataEnabled() bool { return s.mpOn }

// WriteData appends one row recording a transaction's inclusion in a
// mined block.
func (s *Sinks) WriteData(txID types.TxID, fee types.Fee, blockID types.BlockID, depth uint32, minerID types.MinerID) error {
	err := s.data.Write([]string{
		strconv.FormatUint(uint64(txID), 10),
		strconv.FormatUint(uint64(fee), 10),
		strconv.FormatUint(uint64(blockID), 10),
		strconv.FormatUint(uint64(depth), 10),
		strconv.FormatUint(uint64(minerID), 10),
	})
	s.data.Flush()
	return err
}

// WriteMempoolRow appends one occupancy sample. A no-op when the
// mempool occupancy stream is disabled.
func (s *Sinks) WriteMempoolRow(minerID types.MinerID, percent int, size int) error {
	if !s.mpOn {
		return nil
	}
	err := s.mempool.Write([]string{
		strconv.FormatUint(uint64(minerID), 10),
		strconv.Itoa(percent),
		strconv.Itoa(size),
	})
	s.mempool.Flush()
	return err
}

// Progress writes one formatted progress line.
func (s *Sinks) Progress(p ProgressLine) {
	fmt.Fprintln(s.progress, FormatProgressLine(p))
}

// FormatProgressLine renders a progress line in the original's
// "[timestamp]  N%  Block B  ETA: duration" shape, with an optional
// trailing honest/malicious mempool-fullness sample.
func FormatProgressLine(p ProgressLine) string {
	line := fmt.Sprintf("[%s]\t%d%%\tBlock %d\tETA: %s",
		p.Time.Format("01/02/2006 15:04:05"), p.Percent, p.BlockID, p.ETA)
	if p.HaveHonest {
		line += fmt.Sprintf("\tHonest miner[%d]: %.2f%%", p.HonestIndex, p.HonestFullness)
	}
	if p.HaveMalicious {
		line += fmt.Sprintf("\tMalicious miner[%d]: %.2f%%", p.MaliciousIndex, p.MaliciousFullness)
	}
	return line
}

// FormatDuration renders a duration the way the original's
// logTimeInterval does: seconds below a minute, then m:s, h:m:s, and
// finally "N days, h:m:s" once a full day has elapsed.
func FormatDuration(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm:%ds", secs/60, secs%60)
	case secs < 86400:
		return fmt.Sprintf("%dh:%dm:%ds", secs/3600, (secs%3600)/60, secs%60)
	default:
		days := secs / 86400
		unit := "days"
		if days == 1 {
			unit = "day"
		}
		rem := secs % 86400
		return fmt.Sprintf("%d %s, %dh:%dm:%ds", days, unit, rem/3600, (rem%3600)/60, rem%60)
	}
}

// WriteMetadata writes the metadata key=value lines in a fixed order.
func (s *Sinks) WriteMetadata(m Metadata) error {
	lines := []string{
		fmt.Sprintf("name=%s", m.Name),
		fmt.Sprintf("run_id=%s", m.RunID),
		fmt.Sprintf("cfg_path=%s", m.ConfigPath),
		fmt.Sprintf("blocks=%d", m.Blocks),
		fmt.Sprintf("seed=%d", m.Seed),
		fmt.Sprintf("block_size=%d", m.BlockSize),
		fmt.Sprintf("mempool_capacity=%d", m.MempoolCapacity),
		fmt.Sprintf("malicious_miners=%d", m.MaliciousMiners),
		fmt.Sprintf("honest_miners=%d", m.HonestMiners),
		fmt.Sprintf("malicious_power=%.5f", m.MaliciousPower),
		fmt.Sprintf("honest_power=%.5f", m.HonestPower),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(s.metadata, line); err != nil {
			return err
		}
	}
	return nil
}
