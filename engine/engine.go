// Package engine runs the packet-pump loops on top of a configured device:
// a bulk transmit loop that keeps a queue's ring full, and an
// interrupt-or-poll driven receive loop that drains a queue into a pcap
// trace. Both are meant to run one per goroutine, locked to their OS
// thread, the way the teacher's AF_XDP workers do.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/chenxun233/vfionic/ixgbe"
	"github.com/chenxun233/vfionic/pcap"
	"github.com/chenxun233/vfionic/pool"
	"github.com/chenxun233/vfionic/ratelimit"
	"github.com/chenxun233/vfionic/stats"
)

// txCleanBatch mirrors the original driver's fixed clean-ahead batch: clean
// this many descriptors before trying to fill any, so completions never
// pile up behind a full send loop.
const txCleanBatch = 256

// txFillBatch is how many frames RunLoopSend stages before publishing them
// to the hardware in one shot, instead of ringing the doorbell once per
// packet.
const txFillBatch = 32

// LoopSendConfig configures a transmit loop.
type LoopSendConfig struct {
	Dev     *ixgbe.Device
	Queue   int
	Packet  []byte // template frame; a copy is sent every iteration, sequence number stamped in
	SeqOff  int    // byte offset of the 4-byte big-endian sequence counter within Packet
	PPS     uint64 // 0 disables rate limiting
	OnStats func(stats.Counters)
}

// RunLoopSend transmits Packet in a tight loop on Queue until ctx is
// canceled, optionally rate-limited to PPS packets per second. It calls
// OnStats (if set) roughly once a second with the device's cumulative
// counters, the same cadence the original driver used to avoid calling
// into the kernel for a timestamp on every iteration.
func RunLoopSend(ctx context.Context, cfg LoopSendConfig) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	r := cfg.Dev.TxRing(cfg.Queue)
	throttle := ratelimit.New(cfg.PPS)

	var seq uint32
	var iter uint64
	lastPrint := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		r.CleanDescriptorRing(txCleanBatch)

		filled := 0
		for filled < txFillBatch {
			frame := stampSequence(cfg.Packet, cfg.SeqOff, seq)
			seq++
			if !r.FillFrame(frame) {
				seq--
				break
			}
			filled++
		}
		if filled == 0 {
			continue // ring/pool momentarily exhausted, retry
		}
		r.Publish(filled)
		cfg.Dev.PublishTx(cfg.Queue)

		throttle.ThrottleN(uint64(filled))

		iter++
		if cfg.OnStats != nil && iter&0xFFF == 0 {
			now := time.Now()
			if now.Sub(lastPrint) > time.Second {
				hw := cfg.Dev.ReadStats()
				cfg.OnStats(stats.Counters{
					RxPackets: hw.RxPackets, TxPackets: hw.TxPackets,
					RxBytes: hw.RxBytes, TxBytes: hw.TxBytes,
				})
				lastPrint = now
			}
		}
	}
}

func stampSequence(template []byte, off int, seq uint32) []byte {
	out := make([]byte, len(template))
	copy(out, template)
	if off >= 0 && off+4 <= len(out) {
		out[off] = byte(seq >> 24)
		out[off+1] = byte(seq >> 16)
		out[off+2] = byte(seq >> 8)
		out[off+3] = byte(seq)
	}
	return out
}

// CaptureConfig configures a receive loop that writes every captured frame
// to a pcap trace.
type CaptureConfig struct {
	Dev       *ixgbe.Device
	Queue     int
	Writer    *pcap.Writer
	NumFrames int64 // <=0 means unbounded
	BatchSize int
}

// RunCapture drains Queue into Writer until ctx is canceled or NumFrames
// frames have been written, blocking on the queue's interrupt between polls
// when nothing is immediately available.
func RunCapture(ctx context.Context, cfg CaptureConfig) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	r := cfg.Dev.RxRing(cfg.Queue)
	q := cfg.Dev.IRQQueue(cfg.Queue)
	bufs := make([]*pool.Buffer, cfg.BatchSize)

	var captured int64
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := r.ReadDescriptors(bufs)
		if err != nil {
			return fmt.Errorf("engine: capture on queue %d: %w", cfg.Queue, err)
		}
		if n == 0 {
			if q != nil {
				if err := q.Wait(); err != nil {
					return err
				}
			} else {
				time.Sleep(time.Millisecond)
			}
			continue
		}

		now := time.Now()
		for i := 0; i < n; i++ {
			buf := bufs[i]
			if err := cfg.Writer.WriteFrame(now, buf.Data[:buf.Size]); err != nil {
				return err
			}
			r.Pool().Release(buf)
			captured++
		}
		r.FillDescRing()
		cfg.Dev.PublishRx(cfg.Queue)

		if cfg.NumFrames > 0 && captured >= cfg.NumFrames {
			return nil
		}
	}
}
