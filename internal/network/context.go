// Package network implements the miner state machine, the peer
// topology miners broadcast over, and the Context that ties a running
// miner back to the calendar, RNG, sinks, and metrics it shares with
// every other miner in the run. It is grounded on LarryRuane-minesim's
// miner/peer/relay shape, generalized with a mempool per the original
// C++ Miner, and on original_source/Miner.cpp for the mine/broadcast/
// receive state machine itself.
package network

import (
	"fmt"
	"strings"
	"time"

	"github.com/Tem12/minesim/internal/calendar"
	"github.com/Tem12/minesim/internal/metrics"
	"github.com/Tem12/minesim/internal/randsrc"
	"github.com/Tem12/minesim/internal/simerr"
	"github.com/Tem12/minesim/internal/sinks"
	"github.com/Tem12/minesim/internal/types"
)

// Context is the shared state every Miner method needs beyond its own
// fields: the calendar to schedule on, the RNG stream, the output
// sinks, the metrics registry, and the handful of run-wide counters
// (progress, stop-generation, finished-miner count) the original keeps
// on its Simulation object. It's assigned into each Miner once the
// Topology is fully built, mirroring the original's Miner holding a
// `Simulation&` back-reference.
type Context struct {
	Calendar *calendar.Calendar
	RNG      *randsrc.Source
	Sinks    *sinks.Sinks
	Metrics  *metrics.Registry

	BlockCount         uint32
	BlockSize          uint32
	HonestRandomRemove bool

	Topology *Topology

	stopGeneration bool
	finishedMiners int

	progressPercent       int
	firstHonestIdx        int
	haveHonest            bool
	firstMaliciousIdx     int
	haveMalicious         bool
	honestMinersCount     int
	maliciousMinersCount  int
	honestTotalPower      float64
	maliciousTotalPower   float64
	simStart              time.Time
	lastProgress          time.Time

	fatalErr error
}

// NewContext builds a Context for a topology that has already been
// constructed (but not yet bound to it — call BindTopology afterward).
func NewContext(cal *calendar.Calendar, rng *randsrc.Source, sk *sinks.Sinks, mt *metrics.Registry, blockCount, blockSize uint32, honestRandomRemove bool) *Context {
	now := time.Now()
	return &Context{
		Calendar:           cal,
		RNG:                rng,
		Sinks:              sk,
		Metrics:            mt,
		BlockCount:         blockCount,
		BlockSize:          blockSize,
		HonestRandomRemove: honestRandomRemove,
		simStart:           now,
		lastProgress:       now,
	}
}

// BindTopology attaches the topology to the context and assigns the
// context to every miner in it, then computes the honest/malicious
// summary statistics used in progress lines and metadata.
func (c *Context) BindTopology(t *Topology) {
	c.Topology = t
	for _, m := range t.Miners {
		m.ctx = c
	}
	c.haveHonest, c.firstHonestIdx = false, 0
	c.haveMalicious, c.firstMaliciousIdx = false, 0
	for i, m := range t.Miners {
		if m.Behavior == types.Honest {
			c.honestMinersCount++
			c.honestTotalPower += m.Power
			if !c.haveHonest {
				c.haveHonest = true
				c.firstHonestIdx = i
			}
		} else {
			c.maliciousMinersCount++
			c.maliciousTotalPower += m.Power
			if !c.haveMalicious {
				c.haveMalicious = true
				c.firstMaliciousIdx = i
			}
		}
	}
}

// HonestMinerCount, MaliciousMinerCount, HonestPower and MaliciousPower
// summarize the topology for the metadata sink.
func (c *Context) HonestMinerCount() int      { return c.honestMinersCount }
func (c *Context) MaliciousMinerCount() int   { return c.maliciousMinersCount }
func (c *Context) HonestPower() float64       { return c.honestTotalPower }
func (c *Context) MaliciousPower() float64    { return c.maliciousTotalPower }

// ShouldStopGeneration reports whether every miner has received the
// final block, meaning the transaction generator should not schedule
// another round.
func (c *Context) ShouldStopGeneration() bool { return c.stopGeneration }

// Err returns the fatal error that ended the run early, if any.
func (c *Context) Err() error { return c.fatalErr }

// Fail records a fatal error and aborts the calendar so no further
// events are serviced. Only the first failure is kept.
func (c *Context) Fail(err error) {
	if c.fatalErr == nil {
		c.fatalErr = err
		c.Calendar.Abort()
	}
}

func (c *Context) noteMinerFinished() {
	c.finishedMiners++
	if c.finishedMiners == len(c.Topology.Miners) {
		c.stopGeneration = true
	}
}

// NoteBlockMined updates progress tracking after blockID has been
// mined: whenever the integer percentage of blocks mined increases, it
// emits a progress line and, when the mempool data stream is enabled,
// one occupancy sample row per miner.
func (c *Context) NoteBlockMined(blockID types.BlockID) {
	minedSoFar := int(blockID) + 1
	pct := minedSoFar * 100 / int(c.BlockCount)
	if pct > c.progressPercent {
		c.progressPercent = pct
		c.logProgress(blockID)
		if c.Sinks.MempoolDataEnabled() {
			c.logMempoolSnapshot()
		}
	}
}

func (c *Context) logProgress(blockID types.BlockID) {
	now := time.Now()
	elapsed := now.Sub(c.lastProgress)
	var remaining time.Duration
	if c.progressPercent > 0 && c.progressPercent < 100 {
		remaining = time.Duration(elapsed.Seconds() * float64(100-c.progressPercent) * float64(time.Second))
	}

	line := sinks.ProgressLine{
		Time:    now,
		Percent: c.progressPercent,
		BlockID: blockID,
		ETA:     sinks.FormatDuration(remaining),
	}
	if c.haveHonest {
		m := c.Topology.Miners[c.firstHonestIdx]
		line.HaveHonest = true
		line.HonestIndex = m.ID
		line.HonestFullness = fullnessPercent(m)
	}
	if c.haveMalicious {
		m := c.Topology.Miners[c.firstMaliciousIdx]
		line.HaveMalicious = true
		line.MaliciousIndex = m.ID
		line.MaliciousFullness = fullnessPercent(m)
	}
	c.Sinks.Progress(line)
	c.lastProgress = now
}

func fullnessPercent(m *Miner) float64 {
	if m.Pool.Capacity() == 0 {
		return 0
	}
	return float64(m.Pool.Size()) / float64(m.Pool.Capacity()) * 100
}

func (c *Context) logMempoolSnapshot() {
	for _, m := range c.Topology.Miners {
		c.Metrics.SetMempoolOccupancy(m.ID, m.Pool.Size())
		c.Sinks.WriteMempoolRow(m.ID, c.progressPercent, m.Pool.Size())
	}
}

// mempoolSnapshotText renders every miner's current mempool size, used
// in the out-of-transactions fatal error so the operator can see the
// full picture that led to it.
func (c *Context) mempoolSnapshotText() string {
	var sb strings.Builder
	sb.WriteString("mempool snapshot:\nMinerID\tMempoolSize\n")
	for _, m := range c.Topology.Miners {
		fmt.Fprintf(&sb, "%d\t%d\n", m.ID, m.Pool.Size())
	}
	return sb.String()
}

func (c *Context) failOutOfTransactions(m *Miner) {
	err := fmt.Errorf("%w: miner %d (%s, power %.4f) needed %d transactions but had %d\n%s",
		simerr.ErrOutOfTransactions, m.ID, m.Behavior, m.Power, c.BlockSize, m.Pool.Size(), c.mempoolSnapshotText())
	c.Fail(err)
}
