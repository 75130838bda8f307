// Package metrics exposes a small Prometheus registry for the engine:
// blocks mined, transactions evicted by policy, per-miner mempool
// occupancy, and block-propagation delay. This is a new component (the
// C++ original has no metrics surface); the shape of a struct bundling
// typed collectors behind a registered *prometheus.Registry is grounded
// on DanDo385-go-edu/minis/50-mini-service-all-features/internal/middleware/metrics.go.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tem12/minesim/internal/types"
)

// Registry bundles the collectors the engine updates during a run.
type Registry struct {
	BlocksMined      prometheus.Counter
	TxsEvicted       *prometheus.CounterVec
	MempoolOccupancy *prometheus.GaugeVec
	PropagationDelay prometheus.Histogram

	reg *prometheus.Registry
}

// New builds and registers the engine's metric collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		reg: reg,
		BlocksMined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minesim_blocks_mined_total",
			Help: "Total number of blocks mined across the run.",
		}),
		TxsEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minesim_txs_evicted_total",
			Help: "Total number of transactions evicted from mempools, by eviction policy.",
		}, []string{"policy"}),
		MempoolOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "minesim_mempool_occupancy",
			Help: "Current mempool size for a given miner.",
		}, []string{"miner_id"}),
		PropagationDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "minesim_block_propagation_seconds",
			Help:    "Simulated block propagation delay between peers, including jitter.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.BlocksMined, r.TxsEvicted, r.MempoolOccupancy, r.PropagationDelay)
	return r
}

// Handler returns an http.Handler serving this registry in the
// Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// IncBlocksMined records one more mined block.
func (r *Registry) IncBlocksMined() { r.BlocksMined.Inc() }

// IncEvicted records n transactions evicted under the named policy
// ("rational" or "random").
func (r *Registry) IncEvicted(policy string, n int) {
	if n <= 0 {
		return
	}
	r.TxsEvicted.WithLabelValues(policy).Add(float64(n))
}

// SetMempoolOccupancy records the current mempool size for a miner.
func (r *Registry) SetMempoolOccupancy(minerID types.MinerID, size int) {
	r.MempoolOccupancy.WithLabelValues(strconv.FormatUint(uint64(minerID), 10)).Set(float64(size))
}

// ObservePropagation records one block-propagation delay sample, in
// seconds of simulated time.
func (r *Registry) ObservePropagation(delaySeconds float64) {
	r.PropagationDelay.Observe(delaySeconds)
}
