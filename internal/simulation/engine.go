package simulation

import (
	"github.com/Tem12/minesim/internal/calendar"
	"github.com/Tem12/minesim/internal/metrics"
	"github.com/Tem12/minesim/internal/network"
	"github.com/Tem12/minesim/internal/randsrc"
	"github.com/Tem12/minesim/internal/sinks"
	"github.com/Tem12/minesim/internal/types"
)

// EngineConfig is everything the driver needs to build a topology,
// schedule block discovery, and run the generator, independent of where
// the values came from (CLI flags, a config file, or a defaults file).
type EngineConfig struct {
	Seed      int64
	Blocks    uint32
	BlockSize uint32
	Lambda    float64

	MinerSpecs []network.MinerSpec
	Biconnects []network.BiconnectSpec

	Generator GeneratorConfig
	InitTxCount int

	JitterFraction float64
}

// Engine runs one simulation from a built configuration to completion.
type Engine struct {
	ctx       *network.Context
	topo      *network.Topology
	generator *Generator
	cfg       EngineConfig
}

// New builds the topology, context, and generator for cfg, wiring them
// to sk and mt for output. The calendar and RNG are constructed here so
// the caller never needs to reach into internal/calendar or
// internal/randsrc directly.
func New(cfg EngineConfig, sk *sinks.Sinks, mt *metrics.Registry) *Engine {
	cal := calendar.New()
	rng := randsrc.NewWithJitter(cfg.Seed, cfg.JitterFraction)

	topo := network.BuildTopology(cfg.MinerSpecs, cfg.Biconnects, cfg.Generator.Capacity, cfg.Blocks)
	ctx := network.NewContext(cal, rng, sk, mt, cfg.Blocks, cfg.BlockSize, cfg.Generator.HonestRandomRemove)
	ctx.BindTopology(topo)

	gen := NewGenerator(ctx, topo, cfg.Generator)

	return &Engine{ctx: ctx, topo: topo, generator: gen, cfg: cfg}
}

// Context exposes the engine's network.Context, e.g. so main can read
// honest/malicious summary statistics for the metadata sink.
func (e *Engine) Context() *network.Context { return e.ctx }

// scheduleBlockDiscovery pre-computes every block's owner and discovery
// time before the calendar starts running: for each of Blocks blocks, an
// owner is drawn with probability proportional to mining power, and an
// exponential inter-arrival time (scaled by Lambda) is added to a
// running clock. Grounded on
// original_source/Simulation.cpp:scheduleBlockGenerations.
func (e *Engine) scheduleBlockDiscovery() {
	weights := make([]float64, len(e.topo.Miners))
	for i, m := range e.topo.Miners {
		weights[i] = m.Power
	}

	t := 0.0
	for i := uint32(0); i < e.cfg.Blocks; i++ {
		ownerIdx := e.ctx.RNG.Discrete(weights)
		dt := e.ctx.RNG.Exponential() * e.cfg.Lambda
		t += dt
		blockID := types.BlockID(i)
		miner := e.topo.Miners[ownerIdx]
		e.ctx.Calendar.Schedule(t, func() {
			miner.MineBlock(blockID)
		})
	}
}

// Run executes the full startup sequence — schedule block discovery,
// seed the initial transaction burst, kick off the recurring generator
// — then drains the calendar. It returns the first fatal error raised
// during the run, if any.
func (e *Engine) Run() error {
	e.scheduleBlockDiscovery()
	e.generator.InitialBurst(e.cfg.InitTxCount)
	e.ctx.Calendar.Schedule(0, e.generator.Generate)
	e.ctx.Calendar.ServiceQueue()
	return e.ctx.Err()
}
