package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSinceComputesMpps(t *testing.T) {
	old := Counters{RxPackets: 1_000_000, RxBytes: 64_000_000}
	cur := Counters{RxPackets: 2_000_000, RxBytes: 128_000_000}
	r := Since(old, cur, time.Second)

	if r.RxMpps != 1.0 {
		t.Fatalf("RxMpps = %v, want 1.0", r.RxMpps)
	}
	// 64e6 bytes/s * 8 = 512 Mbit/s of payload, plus 1e6 pkts/s * 20 bytes
	// of preamble/IFG * 8 bits = 160 Mbit/s; Counters are cumulative, so
	// cur-old is 64e6 bytes over the 1s window and r.RxMbits adds 20*8 bits
	// per packet.
	wantMbits := 512.0 + 160.0
	if diff := r.RxMbits - wantMbits; diff > 0.01 || diff < -0.01 {
		t.Fatalf("RxMbits = %v, want %v", r.RxMbits, wantMbits)
	}
}

func TestSinceZeroElapsedIsZeroRate(t *testing.T) {
	r := Since(Counters{}, Counters{RxPackets: 100}, 0)
	if r.RxMpps != 0 {
		t.Fatalf("RxMpps = %v, want 0 for zero elapsed time", r.RxMpps)
	}
}

func TestPrintIncludesLabel(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, "eth0", Counters{}, Counters{RxPackets: 10, TxPackets: 5}, time.Second)
	if !strings.Contains(buf.String(), "eth0") {
		t.Fatalf("Print output missing label: %q", buf.String())
	}
}
