package ixgbe

import (
	"fmt"

	"github.com/chenxun233/vfionic/dma"
	"github.com/chenxun233/vfionic/pool"
	"github.com/chenxun233/vfionic/ring"
)

// RxRing is one hardware RX queue's descriptor ring plus the buffer pool it
// draws from to refill consumed descriptors.
type RxRing struct {
	ring.Base
	queue int
}

func (r *RxRing) Create(alloc *dma.Allocator, numDesc uint32) error {
	return r.Base.Create(alloc, numDesc, rxDescSize)
}

// FillDescRing tops up descriptor slots from the ring's pool, leaving one
// slot permanently empty (tail can never reach head) the same way the
// original driver's fillDescRing stops one short of full, so a completely
// full ring never reads back as indistinguishable from an empty one.
// Returns the number of slots it was able to fill; a short fill means the
// pool is exhausted and the caller should retry on the next pass.
func (r *RxRing) FillDescRing() int {
	filled := 0
	for {
		next := r.Base.Wrap(r.Base.Tail())
		if next == r.Base.Head() {
			break // ring full
		}
		buf, ok := r.Base.Pool().Pop()
		if !ok {
			break
		}
		desc := r.Base.DescAt(r.Base.Tail())
		rxDescSetPktAddr(desc, buf.IOVA)
		r.Base.SetBufAt(r.Base.Tail(), buf)
		r.Base.SetTail(next)
		filled++
	}
	return filled
}

// ReadDescriptors drains up to len(out) completed descriptors starting at
// head, returning the buffers it collected. A descriptor missing EOP means
// the packet spans more than one descriptor, which this ring does not
// support (buffers are sized to hold a full frame) and is reported as an
// error rather than silently dropped.
func (r *RxRing) ReadDescriptors(out []*pool.Buffer) (int, error) {
	n := 0
	for n < len(out) {
		if r.Base.Head() == r.Base.Tail() {
			break // no descriptors filled by FillDescRing left to check
		}
		desc := r.Base.DescAt(r.Base.Head())
		status := rxDescStatusError(desc)
		if status&rxStatDD == 0 {
			break
		}
		if status&rxStatEOP == 0 {
			return n, fmt.Errorf("ixgbe: rx queue %d: descriptor without EOP, multi-segment packets are unsupported", r.queue)
		}
		buf := r.Base.TakeBufAt(r.Base.Head())
		buf.Size = uint32(rxDescLength(desc))
		out[n] = buf
		n++
		r.Base.SetHead(r.Base.Wrap(r.Base.Head()))
	}
	return n, nil
}

// TxRing is one hardware TX queue's descriptor ring, plus a staging queue
// of filled-but-not-yet-published buffers. Once a buffer is linked to a
// descriptor by Publish, the ring's own slot table (embedded in Base) takes
// over tracking it until the hardware reports that descriptor clean.
type TxRing struct {
	ring.Base
	queue   int
	staging *ring.TxStaging
}

func (r *TxRing) Create(alloc *dma.Allocator, numDesc uint32) error {
	if err := r.Base.Create(alloc, numDesc, txDescSize); err != nil {
		return err
	}
	r.staging = ring.NewTxStaging(int(numDesc))
	return nil
}

// FillFrame pops a fresh buffer from the ring's pool, copies data into it
// (truncating to the buffer's capacity), stamps the IPv4 header checksum at
// its fixed offset, and stages the buffer for Publish. It returns false if
// the pool is exhausted or the staging queue is full, mirroring
// fillPktBuf in the original driver; the caller should Publish what it has
// staged so far and retry.
func (r *TxRing) FillFrame(data []byte) bool {
	buf, ok := r.Base.Pool().Pop()
	if !ok {
		return false
	}
	n := copy(buf.Data, data)
	buf.Size = uint32(n)
	stampIPv4Checksum(buf.Data[:n])

	if !r.staging.Push(buf) {
		r.Base.Pool().Release(buf)
		return false
	}
	return true
}

// Publish links up to batch staged buffers onto free descriptors and
// advances the ring's tail, returning how many it actually linked. If the
// ring fills up mid-batch, every buffer still staged is returned to the
// pool unsent rather than held for a later Publish, matching
// linkPktWithDesc's drain-on-full behavior.
func (r *TxRing) Publish(batch int) int {
	linked := 0
	for linked < batch {
		buf, ok := r.staging.Pop()
		if !ok {
			break
		}
		next := r.Base.Wrap(r.Base.Tail())
		if next == r.Base.Head() {
			r.Base.Pool().Release(buf)
			for {
				leftover, ok := r.staging.Pop()
				if !ok {
					break
				}
				r.Base.Pool().Release(leftover)
			}
			break
		}
		desc := r.Base.DescAt(r.Base.Tail())
		txDescSetBuffer(desc, buf.IOVA, buf.Size)
		r.Base.SetBufAt(r.Base.Tail(), buf)
		r.Base.SetTail(next)
		linked++
	}
	return linked
}

// CleanDescriptorRing releases buffers for every descriptor the hardware
// has reported done, up to minClean slots, probing only the descriptor at
// head+minClean-1 for the done bit the way the original driver does to
// avoid checking every descriptor in a batch individually. It first checks
// that at least minClean descriptors are actually in flight, since probing
// past the tail would read a stale (possibly defensively-0xFF-initialized,
// DD-set) descriptor and reclaim a buffer the hardware hasn't touched yet.
func (r *TxRing) CleanDescriptorRing(minClean uint32) int {
	if minClean == 0 {
		return 0
	}
	cleanable := (r.Base.Tail() - r.Base.Head()) & (r.Base.NumDesc() - 1)
	if cleanable < minClean {
		return 0
	}
	probe := (r.Base.Head() + minClean - 1) & (r.Base.NumDesc() - 1)
	desc := r.Base.DescAt(probe)
	if txDescStatus(desc)&txStatDD == 0 {
		return 0
	}
	cleaned := 0
	for i := uint32(0); i < minClean; i++ {
		buf := r.Base.TakeBufAt(r.Base.Head())
		if buf == nil {
			break
		}
		r.Base.Pool().Release(buf)
		r.Base.SetHead(r.Base.Wrap(r.Base.Head()))
		cleaned++
	}
	return cleaned
}
