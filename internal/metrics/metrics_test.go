package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Tem12/minesim/internal/types"
)

func TestCountersAppearInExposition(t *testing.T) {
	r := New()
	r.IncBlocksMined()
	r.IncBlocksMined()
	r.IncEvicted("rational", 3)
	r.SetMempoolOccupancy(types.MinerID(1), 42)
	r.ObservePropagation(0.25)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "minesim_blocks_mined_total 2") {
		t.Fatalf("expected blocks_mined_total 2 in exposition, got:\n%s", body)
	}
	if !strings.Contains(body, `minesim_txs_evicted_total{policy="rational"} 3`) {
		t.Fatalf("expected txs_evicted_total for rational policy, got:\n%s", body)
	}
	if !strings.Contains(body, `minesim_mempool_occupancy{miner_id="1"} 42`) {
		t.Fatalf("expected mempool_occupancy for miner 1, got:\n%s", body)
	}
}

func TestIncEvictedIgnoresNonPositive(t *testing.T) {
	r := New()
	r.IncEvicted("random", 0)
	r.IncEvicted("random", -5)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)
	if strings.Contains(rec.Body.String(), `minesim_txs_evicted_total{policy="random"}`) {
		t.Fatalf("non-positive IncEvicted should not register the label, got:\n%s", rec.Body.String())
	}
}
