package network

import (
	"github.com/Tem12/minesim/internal/mempool"
	"github.com/Tem12/minesim/internal/types"
)

// Peer is one directed edge in a miner's adjacency list: the index of
// the neighbouring miner in the topology, and the one-way propagation
// latency to it in simulated seconds.
type Peer struct {
	NeighbourIndex int
	Latency        float64
}

// Miner is one node in the network: it mines blocks according to its
// share of the network's hashpower, selects transactions for them
// according to its Behavior, and relays/receives blocks to/from its
// peers. Grounded on original_source/Miner.h/.cpp, restructured as a
// value the Context's Schedule closures can reach without a circular
// import (Context lives in the same package instead of a separate
// simulation package, mirroring the original's direct Miner<->Simulation
// coupling).
type Miner struct {
	ID       types.MinerID
	Power    float64
	Behavior types.Behavior
	Pool     *mempool.Mempool
	Peers    []Peer

	Depth uint32
	seen  []bool

	ctx *Context
}

// NewMiner constructs a miner with an empty, capacity-bounded mempool
// and a seen-blocks bitset sized for blockCount blocks.
func NewMiner(id types.MinerID, power float64, behavior types.Behavior, mempoolCapacity int, blockCount uint32) *Miner {
	return &Miner{
		ID:       id,
		Power:    power,
		Behavior: behavior,
		Pool:     mempool.New(mempoolCapacity),
		seen:     make([]bool, blockCount),
	}
}

// AddPeer records a directed edge to the miner at neighbourIndex with
// the given one-way latency. Topology.Biconnect calls this on both
// ends of an edge.
func (m *Miner) AddPeer(neighbourIndex int, latency float64) {
	m.Peers = append(m.Peers, Peer{NeighbourIndex: neighbourIndex, Latency: latency})
}

// MempoolSize reports the miner's current mempool occupancy.
func (m *Miner) MempoolSize() int { return m.Pool.Size() }

// InsertTransaction adds a transaction to this miner's mempool, keyed
// under this miner's own ID (each miner's mempool is private — no two
// miners share entries).
func (m *Miner) InsertTransaction(txID types.TxID, fee types.Fee) {
	m.Pool.Insert(m.ID, txID, fee)
}

// EvictRationally evicts up to n of this miner's lowest-fee
// transactions.
func (m *Miner) EvictRationally(n int) {
	before := m.Pool.Size()
	m.Pool.EvictLowest(n)
	m.ctx.Metrics.IncEvicted("rational", before-m.Pool.Size())
}

// EvictRandomly evicts up to n transactions chosen by the mempool's
// approximately-uniform random pick.
func (m *Miner) EvictRandomly(n int) {
	before := m.Pool.Size()
	m.Pool.EvictRandom(m.ctx.RNG, n)
	m.ctx.Metrics.IncEvicted("random", before-m.Pool.Size())
}

// MineBlock constructs and broadcasts blockID: it bumps this miner's
// chain depth, selects BlockSize transactions per its Behavior, logs
// and erases each one, then broadcasts the block to its peers; mining
// the final block counts this miner as finished. Fails
// the run (via Context.Fail) if the mempool holds fewer transactions
// than the block needs.
func (m *Miner) MineBlock(blockID types.BlockID) {
	m.Depth++
	m.seen[blockID] = true

	if m.Pool.Size() < int(m.ctx.BlockSize) {
		m.ctx.failOutOfTransactions(m)
		return
	}

	block := types.Block{
		ID:           blockID,
		Depth:        m.Depth,
		Transactions: make([]types.Transaction, 0, m.ctx.BlockSize),
	}

	for i := uint32(0); i < m.ctx.BlockSize; i++ {
		var h mempool.Handle
		if m.Behavior == types.Honest {
			h = m.Pool.RandomPick(m.ctx.RNG)
		} else {
			h = m.Pool.HighestFeePick()
		}
		tx := m.Pool.Transaction(h)
		block.Transactions = append(block.Transactions, tx)
		m.ctx.Sinks.WriteData(tx.TxID, tx.Fee, blockID, m.Depth, m.ID)
		m.Pool.Erase(h)
	}

	m.ctx.Metrics.IncBlocksMined()
	m.ctx.NoteBlockMined(blockID)

	m.Broadcast(m, block)

	if blockID == types.BlockID(m.ctx.BlockCount-1) {
		m.ctx.noteMinerFinished()
	}
}

// Broadcast relays block to every peer other than from, scheduling each
// delivery on the calendar after that peer's latency plus a small
// jitter.
func (m *Miner) Broadcast(from *Miner, block types.Block) {
	for _, p := range m.Peers {
		neighbour := m.ctx.Topology.Miners[p.NeighbourIndex]
		if neighbour == from {
			continue
		}
		jitter := m.ctx.RNG.Jitter(p.Latency)
		delay := p.Latency + jitter
		m.ctx.Metrics.ObservePropagation(delay)
		dispatchAt := m.ctx.Calendar.SimTime() + delay
		blk := block
		m.ctx.Calendar.Schedule(dispatchAt, func() {
			neighbour.ReceiveBlock(blk)
		})
	}
}

// ReceiveBlock handles an incoming block: it adopts the block's depth
// if deeper, deduplicates against blocks already seen, erases any of
// the block's transactions still sitting in this miner's own mempool,
// rebroadcasts, and marks the run finished once every miner has seen
// the final block.
func (m *Miner) ReceiveBlock(block types.Block) {
	if block.Depth > m.Depth {
		m.Depth = block.Depth
	}
	if m.seen[block.ID] {
		return
	}
	m.seen[block.ID] = true

	for _, tx := range block.Transactions {
		h := m.Pool.Find(m.ID, tx.TxID)
		m.Pool.Erase(h)
	}

	m.Broadcast(m, block)

	if block.ID == types.BlockID(m.ctx.BlockCount-1) {
		m.ctx.noteMinerFinished()
	}
}
