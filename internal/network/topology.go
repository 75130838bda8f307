package network

import "github.com/Tem12/minesim/internal/types"

// MinerSpec is one "miner <power> <behavior>" config-file directive.
type MinerSpec struct {
	Power    float64
	Behavior types.Behavior
}

// BiconnectSpec is one "biconnect <a> <b> <latency>" config-file
// directive: an undirected edge with a single one-way latency applied
// in both directions.
type BiconnectSpec struct {
	A, B    int
	Latency float64
}

// Topology is the fixed set of miners and the peer graph between them.
// Miners are addressed by index into Miners, not by pointer, so the
// graph has no ownership cycles and addresses stay stable for the life
// of the run.
type Topology struct {
	Miners []*Miner
}

// BuildTopology constructs every miner described by specs and wires the
// peer edges described by edges. Miner IDs are assigned in specs order,
// matching the original's monotonic construction-order ID assignment.
func BuildTopology(specs []MinerSpec, edges []BiconnectSpec, mempoolCapacity int, blockCount uint32) *Topology {
	miners := make([]*Miner, len(specs))
	for i, s := range specs {
		miners[i] = NewMiner(types.MinerID(i), s.Power, s.Behavior, mempoolCapacity, blockCount)
	}
	for _, e := range edges {
		miners[e.A].AddPeer(e.B, e.Latency)
		miners[e.B].AddPeer(e.A, e.Latency)
	}
	return &Topology{Miners: miners}
}
