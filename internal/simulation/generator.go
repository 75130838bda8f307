// Package simulation owns the driver: the transaction generator and the
// orchestration sequence that builds a topology, pre-schedules block
// discovery, runs the generator and the calendar to completion, and
// surfaces a typed error on a fatal condition. Grounded on
// original_source/Simulation.cpp (generateInitialTransactions,
// generateTransactions, scheduleBlockGenerations, runSimulation).
package simulation

import (
	"github.com/Tem12/minesim/internal/network"
	"github.com/Tem12/minesim/internal/types"
)

// GeneratorConfig is the set of knobs original_source's ArgParser
// exposes for transaction generation.
type GeneratorConfig struct {
	FeeLambda          float64
	MinCount, MaxCount int
	MinWait, MaxWait   int
	HonestRandomRemove bool
	Capacity           int
}

// Generator produces the initial transaction burst and the recurring
// rounds that follow it, inserting the same (txID, fee) pair into every
// miner's mempool so all miners start from an identical baseline.
type Generator struct {
	ctx      *network.Context
	topo     *network.Topology
	cfg      GeneratorConfig
	nextTxID types.TxID
}

// NewGenerator builds a Generator bound to a context and topology that
// have already been constructed and linked via Context.BindTopology.
func NewGenerator(ctx *network.Context, topo *network.Topology, cfg GeneratorConfig) *Generator {
	return &Generator{ctx: ctx, topo: topo, cfg: cfg}
}

// InitialBurst inserts count transactions, one at a time, into every
// miner's mempool before the calendar starts running.
func (g *Generator) InitialBurst(count int) {
	for i := 0; i < count; i++ {
		fee := types.Fee(g.ctx.RNG.Exponential() * g.cfg.FeeLambda)
		for _, m := range g.topo.Miners {
			m.InsertTransaction(g.nextTxID, fee)
		}
		g.nextTxID++
	}
}

// Generate runs one round of transaction generation: it draws a
// transaction count and a wait time uniformly from the configured
// ranges, inserts that many (fee, txID) pairs into every miner
// (evicting first if the insert would overflow a miner's mempool
// capacity), and — unless every miner has already finished — schedules
// the next round after the drawn wait. The stop flag is checked only
// here, at the end of the round, so a round that was already scheduled
// when the last miner finished still runs in full; only the round after
// it is never scheduled.
func (g *Generator) Generate() {
	txCount := g.cfg.MinCount + g.ctx.RNG.UniformInt(g.cfg.MaxCount-g.cfg.MinCount+1)
	wait := g.cfg.MinWait + g.ctx.RNG.UniformInt(g.cfg.MaxWait-g.cfg.MinWait+1)

	for i := 0; i < txCount; i++ {
		fee := types.Fee(g.ctx.RNG.Exponential() * g.cfg.FeeLambda)
		for _, m := range g.topo.Miners {
			if m.MempoolSize()+txCount > g.cfg.Capacity {
				if g.cfg.HonestRandomRemove && m.Behavior == types.Honest {
					m.EvictRandomly(txCount)
				} else {
					m.EvictRationally(txCount)
				}
			}
			m.InsertTransaction(g.nextTxID, fee)
		}
		g.nextTxID++
	}

	if !g.ctx.ShouldStopGeneration() {
		next := g.ctx.Calendar.SimTime() + float64(wait)
		g.ctx.Calendar.Schedule(next, g.Generate)
	}
}
