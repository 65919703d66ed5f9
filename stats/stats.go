// Package stats computes throughput rates from successive counter samples
// and prints them the way the teacher's interface-statistics reporter does,
// using humanize for byte/count formatting.
package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// Counters is one point-in-time sample of a device's cumulative traffic
// counters.
type Counters struct {
	RxPackets uint64
	TxPackets uint64
	RxBytes   uint64
	TxBytes   uint64
}

// Rates holds the packet and bit rates computed between two Counters
// samples taken a known interval apart.
type Rates struct {
	RxMpps  float64
	TxMpps  float64
	RxMbits float64
	TxMbits float64
}

// onWirePreambleBits accounts for the 20 bytes of preamble, start-of-frame
// delimiter, and inter-frame gap that precede every Ethernet frame on the
// wire but never appear in the byte counters the NIC exposes.
const onWirePreambleBits = 20 * 8

// Since computes Rates from the delta between old and cur, sampled elapsed
// apart. Mbit/s includes the on-wire preamble/IFG overhead so the number
// matches what a link-rate measurement would show, not just payload bytes.
func Since(old, cur Counters, elapsed time.Duration) Rates {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return Rates{}
	}
	rxMpps := float64(cur.RxPackets-old.RxPackets) / 1e6 / secs
	txMpps := float64(cur.TxPackets-old.TxPackets) / 1e6 / secs
	rxMbits := float64(cur.RxBytes-old.RxBytes)/1e6/secs*8 + rxMpps*onWirePreambleBits
	txMbits := float64(cur.TxBytes-old.TxBytes)/1e6/secs*8 + txMpps*onWirePreambleBits
	return Rates{RxMpps: rxMpps, TxMpps: txMpps, RxMbits: rxMbits, TxMbits: txMbits}
}

// Print writes a one-line human-readable summary of cur and its rates
// relative to old, in the style of the teacher's interface stats printer.
func Print(w io.Writer, label string, old, cur Counters, elapsed time.Duration) {
	r := Since(old, cur, elapsed)
	fmt.Fprintf(w, "%s: rx %s pkts (%.2f Mpps, %.1f Mbit/s) / tx %s pkts (%.2f Mpps, %.1f Mbit/s), rx %s tx %s total\n",
		label,
		humanize.Comma(int64(cur.RxPackets)), r.RxMpps, r.RxMbits,
		humanize.Comma(int64(cur.TxPackets)), r.TxMpps, r.TxMbits,
		humanize.Bytes(cur.RxBytes), humanize.Bytes(cur.TxBytes))
}
