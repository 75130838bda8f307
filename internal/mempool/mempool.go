// Package mempool implements the bounded, dual-indexed transaction pool
// each miner holds privately. It is grounded on original_source's
// Mempool.h/.cpp (the bucket-hash-table-plus-multimap design) generalized
// into Go idioms borrowed from DanDo385-go-edu's
// minis/44-mempool-in-memory, which builds the same primary/secondary
// index split (a map for point lookup, a container/heap-shaped structure
// for fee order) over plain Transaction values.
//
// The primary index is an array of buckets (container/list.List) keyed
// by a hash of (minerID, txID), giving O(1) point lookup and the
// approximately-uniform bucket-walk random pick the original implements.
// The secondary index is a single doubly linked list kept in ascending
// fee order (newer entries first within a tied fee; see less), giving
// O(1) highest-fee pick and O(1) amortized lowest-fee eviction; Go's
// standard library has no balanced tree to give the original's multimap
// O(log n) insert, so an insert that does not belong at either end
// walks the list from the front — near-linear, which the pool sizes
// this simulator targets make immaterial.
package mempool

import (
	"container/list"
	"fmt"
	"hash/fnv"

	"github.com/Tem12/minesim/internal/randsrc"
	"github.com/Tem12/minesim/internal/types"
)

// Handle is an opaque reference to a live mempool entry, returned by
// Insert and the pick operations and consumed by Erase. The zero Handle
// is Invalid.
type Handle struct {
	e *entry
}

// Valid reports whether h refers to a live entry.
func (h Handle) Valid() bool { return h.e != nil && h.e.bucketElem != nil }

// Invalid is the zero Handle, returned when a pick operation finds
// nothing to return.
var Invalid = Handle{}

type entry struct {
	minerID types.MinerID
	txID    types.TxID
	fee     types.Fee
	seq     uint64

	bucketElem *list.Element
	orderElem  *list.Element
}

// Mempool is a bounded, per-miner transaction pool.
type Mempool struct {
	buckets  []*list.List
	order    *list.List
	capacity int
	size     int
	nextSeq  uint64
}

// New returns an empty mempool with room for capacity buckets. Capacity
// doubles as both the bucket-table width and the eviction ceiling the
// caller enforces before inserting.
func New(capacity int) *Mempool {
	if capacity <= 0 {
		capacity = 1
	}
	m := &Mempool{
		buckets:  make([]*list.List, capacity),
		order:    list.New(),
		capacity: capacity,
	}
	for i := range m.buckets {
		m.buckets[i] = list.New()
	}
	return m
}

// Size returns the number of transactions currently held.
func (m *Mempool) Size() int { return m.size }

// Capacity returns the bucket-table width the pool was built with.
func (m *Mempool) Capacity() int { return m.capacity }

// Clear empties the pool.
func (m *Mempool) Clear() {
	for el := m.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		e.bucketElem = nil
		e.orderElem = nil
	}
	for _, b := range m.buckets {
		b.Init()
	}
	m.order.Init()
	m.size = 0
}

func bucketIndex(minerID types.MinerID, txID types.TxID, capacity int) int {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d.%d", minerID, txID)
	return int(h.Sum64() % uint64(capacity))
}

// less defines the ascending order of the secondary index: fee
// ascending, and within a tied fee, newer insertions sort before older
// ones. That inversion on the tie-break is deliberate — it puts the
// first-inserted entry of the highest-fee group at the tail of the
// whole list, which is exactly the entry HighestFeePick must return.
func less(a, b *entry) bool {
	if a.fee != b.fee {
		return a.fee < b.fee
	}
	return a.seq > b.seq
}

func (m *Mempool) insertOrdered(e *entry) {
	if m.order.Len() == 0 {
		e.orderElem = m.order.PushBack(e)
		return
	}
	front := m.order.Front().Value.(*entry)
	if less(e, front) {
		e.orderElem = m.order.PushFront(e)
		return
	}
	back := m.order.Back().Value.(*entry)
	if !less(e, back) {
		e.orderElem = m.order.PushBack(e)
		return
	}
	for el := m.order.Front(); el != nil; el = el.Next() {
		if less(e, el.Value.(*entry)) {
			e.orderElem = m.order.InsertBefore(e, el)
			return
		}
	}
	e.orderElem = m.order.PushBack(e)
}

// Insert adds a transaction owned by minerID. Callers are expected to
// enforce capacity (via EvictLowest/EvictRandom) before calling Insert;
// the pool itself never refuses an insert.
func (m *Mempool) Insert(minerID types.MinerID, txID types.TxID, fee types.Fee) Handle {
	m.nextSeq++
	e := &entry{minerID: minerID, txID: txID, fee: fee, seq: m.nextSeq}
	idx := bucketIndex(minerID, txID, m.capacity)
	e.bucketElem = m.buckets[idx].PushFront(e)
	m.insertOrdered(e)
	m.size++
	return Handle{e: e}
}

// Find returns the handle for (minerID, txID), or Invalid if absent.
func (m *Mempool) Find(minerID types.MinerID, txID types.TxID) Handle {
	idx := bucketIndex(minerID, txID, m.capacity)
	for el := m.buckets[idx].Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if e.minerID == minerID && e.txID == txID {
			return Handle{e: e}
		}
	}
	return Invalid
}

// Transaction returns the transaction behind a handle. Calling it with
// Invalid returns the zero Transaction.
func (m *Mempool) Transaction(h Handle) types.Transaction {
	if !h.Valid() {
		return types.Transaction{}
	}
	return types.Transaction{TxID: h.e.txID, Fee: h.e.fee}
}

// Erase removes the entry behind h. Erasing Invalid, or a handle already
// erased, is a no-op.
func (m *Mempool) Erase(h Handle) {
	if !h.Valid() {
		return
	}
	e := h.e
	idx := bucketIndex(e.minerID, e.txID, m.capacity)
	m.buckets[idx].Remove(e.bucketElem)
	m.order.Remove(e.orderElem)
	m.size--
	h.e.bucketElem = nil
	h.e.orderElem = nil
}

func (m *Mempool) pickFromBucket(src *randsrc.Source, idx int) Handle {
	bucket := m.buckets[idx]
	n := bucket.Len()
	if n == 1 {
		return Handle{e: bucket.Front().Value.(*entry)}
	}
	target := src.UniformInt(n)
	el := bucket.Front()
	for j := 0; j < target; j++ {
		el = el.Next()
	}
	return Handle{e: el.Value.(*entry)}
}

// RandomPick draws an approximately-uniform random live entry: a random
// bucket index is drawn, then buckets are inspected outward from it
// (i, i+1, i-1, i+2, i-2, ...) until a non-empty one is found, and a
// uniform element of that bucket is returned. Returns Invalid on an
// empty pool.
func (m *Mempool) RandomPick(src *randsrc.Source) Handle {
	if m.size == 0 {
		return Invalid
	}
	b := m.capacity
	down := src.UniformInt(b)
	up := down + 1
	if up == b {
		up = 0
	}
	maxSteps := b/2 + 1
	for step := 0; step < maxSteps; step++ {
		if m.buckets[down].Len() > 0 {
			return m.pickFromBucket(src, down)
		}
		if down == 0 {
			down = b - 1
		} else {
			down--
		}
		if m.buckets[up].Len() > 0 {
			return m.pickFromBucket(src, up)
		}
		up++
		if up == b {
			up = 0
		}
	}
	return Invalid
}

// HighestFeePick returns the live entry with the highest fee. Among
// entries tied for the highest fee, the first inserted is returned.
// Returns Invalid on an empty pool.
func (m *Mempool) HighestFeePick() Handle {
	if m.order.Len() == 0 {
		return Invalid
	}
	return Handle{e: m.order.Back().Value.(*entry)}
}

// EvictLowest removes up to n of the lowest-fee entries. It stops early
// if the pool empties first.
func (m *Mempool) EvictLowest(n int) {
	for i := 0; i < n && m.order.Len() > 0; i++ {
		e := m.order.Front().Value.(*entry)
		m.Erase(Handle{e: e})
	}
}

// EvictRandom removes up to n entries chosen by RandomPick, redrawing
// independently on every iteration. It stops early if the pool empties
// first.
func (m *Mempool) EvictRandom(src *randsrc.Source, n int) {
	for i := 0; i < n; i++ {
		h := m.RandomPick(src)
		if !h.Valid() {
			return
		}
		m.Erase(h)
	}
}
