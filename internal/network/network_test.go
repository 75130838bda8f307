package network

import (
	"testing"

	"github.com/Tem12/minesim/internal/calendar"
	"github.com/Tem12/minesim/internal/metrics"
	"github.com/Tem12/minesim/internal/randsrc"
	"github.com/Tem12/minesim/internal/sinks"
	"github.com/Tem12/minesim/internal/types"
	"github.com/rs/zerolog"

	"bytes"
	"io"
)

func newTestContext(t *testing.T, blockCount, blockSize uint32) (*Context, *calendar.Calendar) {
	t.Helper()
	cal := calendar.New()
	rng := randsrc.New(1)
	var progress, data, metadata bytes.Buffer
	sk, err := sinks.New(&progress, &data, io.Discard, &metadata, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("sinks.New: %v", err)
	}
	mt := metrics.New()
	ctx := NewContext(cal, rng, sk, mt, blockCount, blockSize, false)
	return ctx, cal
}

func twoMinerLineTopology() []MinerSpec {
	return []MinerSpec{
		{Power: 0.5, Behavior: types.Honest},
		{Power: 0.5, Behavior: types.Honest},
	}
}

func TestMineBlockErasesSelectedTransactions(t *testing.T) {
	ctx, _ := newTestContext(t, 1, 2)
	topo := BuildTopology(twoMinerLineTopology(), nil, 16, 1)
	ctx.BindTopology(topo)

	m := topo.Miners[0]
	m.InsertTransaction(1, 10)
	m.InsertTransaction(2, 20)
	m.InsertTransaction(3, 30)

	m.MineBlock(0)

	if m.Pool.Size() != 1 {
		t.Fatalf("mempool size after mining = %d, want 1", m.Pool.Size())
	}
	if ctx.Err() != nil {
		t.Fatalf("unexpected fatal error: %v", ctx.Err())
	}
}

func TestMineBlockFailsWhenMempoolTooSmall(t *testing.T) {
	ctx, _ := newTestContext(t, 1, 5)
	topo := BuildTopology(twoMinerLineTopology(), nil, 16, 1)
	ctx.BindTopology(topo)

	m := topo.Miners[0]
	m.InsertTransaction(1, 10)

	m.MineBlock(0)

	if ctx.Err() == nil {
		t.Fatal("expected a fatal error when mempool holds fewer transactions than block_size")
	}
}

func TestBroadcastSchedulesDeliveryToPeersOnly(t *testing.T) {
	ctx, cal := newTestContext(t, 1, 1)
	specs := []MinerSpec{
		{Power: 0.34, Behavior: types.Honest},
		{Power: 0.33, Behavior: types.Honest},
		{Power: 0.33, Behavior: types.Honest},
	}
	edges := []BiconnectSpec{{A: 0, B: 1, Latency: 1.0}}
	topo := BuildTopology(specs, edges, 16, 1)
	ctx.BindTopology(topo)

	m0 := topo.Miners[0]
	m0.InsertTransaction(1, 10)

	m0.MineBlock(0)
	cal.ServiceQueue()

	if !topo.Miners[1].seen[0] {
		t.Fatal("expected miner 1 to have received block 0")
	}
	if topo.Miners[2].seen[0] {
		t.Fatal("miner 2 has no edge to miner 0 and should never see the block")
	}
}

func TestReceiveBlockDedupesAndAdoptsDepth(t *testing.T) {
	ctx, _ := newTestContext(t, 2, 1)
	specs := []MinerSpec{
		{Power: 0.5, Behavior: types.Honest},
		{Power: 0.5, Behavior: types.Honest},
	}
	topo := BuildTopology(specs, nil, 16, 2)
	ctx.BindTopology(topo)

	m1 := topo.Miners[1]
	m1.InsertTransaction(99, 5)

	block := types.Block{ID: 0, Depth: 3, Transactions: []types.Transaction{{TxID: 99, Fee: 5}}}
	m1.ReceiveBlock(block)

	if m1.Depth != 3 {
		t.Fatalf("depth after receiving deeper block = %d, want 3", m1.Depth)
	}
	if m1.Pool.Find(m1.ID, 99).Valid() {
		t.Fatal("ReceiveBlock should erase matching transactions from the local mempool")
	}

	// Second delivery of the same block must be a no-op (dedup by seen set).
	m1.Depth = 3
	m1.InsertTransaction(99, 5)
	m1.ReceiveBlock(block)
	if !m1.Pool.Find(m1.ID, 99).Valid() {
		t.Fatal("duplicate ReceiveBlock should not re-process the block")
	}
}

func TestContextBindTopologyCountsBehaviors(t *testing.T) {
	ctx, _ := newTestContext(t, 1, 1)
	specs := []MinerSpec{
		{Power: 0.6, Behavior: types.Honest},
		{Power: 0.3, Behavior: types.Malicious},
		{Power: 0.1, Behavior: types.Honest},
	}
	topo := BuildTopology(specs, nil, 16, 1)
	ctx.BindTopology(topo)

	if ctx.HonestMinerCount() != 2 || ctx.MaliciousMinerCount() != 1 {
		t.Fatalf("honest=%d malicious=%d, want 2 and 1", ctx.HonestMinerCount(), ctx.MaliciousMinerCount())
	}
}
