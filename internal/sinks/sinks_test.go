package sinks

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tem12/minesim/internal/types"
)

func newTestSinks(t *testing.T, mpOn bool) (*Sinks, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var progress, data, mempool, metadata bytes.Buffer
	var mpWriter *bytes.Buffer
	if mpOn {
		mpWriter = &mempool
	}
	s, err := New(&progress, &data, mpWriterOrNil(mpWriter), &metadata, mpOn, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, &progress, &data, &mempool, &metadata
}

func mpWriterOrNil(b *bytes.Buffer) *bytes.Buffer {
	return b
}

func TestDataHeaderWritten(t *testing.T) {
	_, _, data, _, _ := newTestSinks(t, false)
	if !strings.HasPrefix(data.String(), "TransactionID,Fee,BlockID,Depth,MinerID\r\n") {
		t.Fatalf("unexpected data header: %q", data.String())
	}
}

func TestWriteDataAppendsRow(t *testing.T) {
	s, _, data, _, _ := newTestSinks(t, false)
	if err := s.WriteData(1, 20, 3, 4, 5); err != nil {
		t.Fatalf("WriteData: %v", err)
	}
	if !strings.Contains(data.String(), "1,20,3,4,5") {
		t.Fatalf("data stream missing written row: %q", data.String())
	}
}

func TestMempoolRowNoOpWhenDisabled(t *testing.T) {
	s, _, _, mempool, _ := newTestSinks(t, false)
	if err := s.WriteMempoolRow(1, 50, 10); err != nil {
		t.Fatalf("WriteMempoolRow: %v", err)
	}
	if mempool.Len() != 0 {
		t.Fatalf("mempool stream should stay empty when disabled, got %q", mempool.String())
	}
}

func TestMempoolRowWrittenWhenEnabled(t *testing.T) {
	s, _, _, mempool, _ := newTestSinks(t, true)
	if err := s.WriteMempoolRow(2, 75, 40); err != nil {
		t.Fatalf("WriteMempoolRow: %v", err)
	}
	if !strings.Contains(mempool.String(), "2,75,40") {
		t.Fatalf("mempool stream missing written row: %q", mempool.String())
	}
}

func TestFormatDurationBuckets(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m:30s"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "2h:3m:4s"},
		{25 * time.Hour, "1 day, 1h:0m:0s"},
		{50 * time.Hour, "2 days, 2h:0m:0s"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestFormatProgressLineOptionalFields(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	base := ProgressLine{Time: ts, Percent: 42, BlockID: types.BlockID(7), ETA: "1m:0s"}
	line := FormatProgressLine(base)
	if strings.Contains(line, "Honest") || strings.Contains(line, "Malicious") {
		t.Fatalf("line should omit honest/malicious segments: %q", line)
	}

	withHonest := base
	withHonest.HaveHonest = true
	withHonest.HonestIndex = 3
	withHonest.HonestFullness = 12.5
	line = FormatProgressLine(withHonest)
	if !strings.Contains(line, "Honest miner[3]: 12.50%") {
		t.Fatalf("line missing honest segment: %q", line)
	}
}

func TestWriteMetadataOrderedLines(t *testing.T) {
	s, _, _, _, metadata := newTestSinks(t, false)
	err := s.WriteMetadata(Metadata{
		Name: "run", RunID: "abc", ConfigPath: "net.cfg",
		Blocks: 10, Seed: 1, BlockSize: 2, MempoolCapacity: 100,
		MaliciousMiners: 1, HonestMiners: 2, MaliciousPower: 0.2, HonestPower: 0.8,
	})
	if err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(metadata.String()), "\n")
	if lines[0] != "name=run" || lines[1] != "run_id=abc" {
		t.Fatalf("unexpected metadata ordering: %v", lines)
	}
}
