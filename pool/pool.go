// Package pool implements the fixed-size packet buffer pool that backs
// every descriptor ring: a DMA region sliced into equal slots, with a
// free-list stack for O(1) allocation and release.
package pool

import (
	"fmt"

	"github.com/chenxun233/vfionic/dma"
)

// HeadroomBytes is reserved at the front of every buffer's data area so
// encapsulation (e.g. a future tunnel header) can be prepended without a
// copy. Nothing in this repository writes into it yet.
const HeadroomBytes = 40

// Buffer is a handle to one pool slot. Idx is the slot's position in the
// pool's backing array and is what Release expects back; Data is the
// buffer's payload region, sized to the pool's BufSize and always a slice
// of the pool's single DMA region.
type Buffer struct {
	IOVA uint64
	Idx  uint32
	Size uint32 // bytes currently in use; caller-managed
	Data []byte
}

// Pool is a fixed-capacity set of equal-size DMA buffers with a free-stack
// allocator. It is not safe for concurrent use by multiple goroutines
// without external synchronization, matching how a single ring owns a
// single pool.
type Pool struct {
	region  *dma.Region
	bufSize uint32
	bufs    []Buffer

	freeStack []uint32
	top       int // index of the next free slot in freeStack; equals the number of free buffers
}

// New allocates numBufs buffers of bufSize payload bytes each (plus
// HeadroomBytes) from alloc and initializes the free-stack with every slot.
func New(alloc *dma.Allocator, numBufs, bufSize uint32) (*Pool, error) {
	if numBufs == 0 {
		return nil, fmt.Errorf("pool: numBufs must be > 0")
	}
	slotSize := uint64(HeadroomBytes) + uint64(bufSize)
	region, err := alloc.Alloc(uint64(numBufs) * slotSize)
	if err != nil {
		return nil, fmt.Errorf("pool: allocating %d buffers of %d bytes: %w", numBufs, bufSize, err)
	}

	p := &Pool{
		region:    region,
		bufSize:   bufSize,
		bufs:      make([]Buffer, numBufs),
		freeStack: make([]uint32, numBufs),
	}

	for i := uint32(0); i < numBufs; i++ {
		off := uint64(i) * slotSize
		p.bufs[i] = Buffer{
			IOVA: region.IOVA + off + HeadroomBytes,
			Idx:  i,
			Data: region.Virt[off+HeadroomBytes : off+slotSize],
		}
		p.freeStack[i] = i
	}
	p.top = int(numBufs)

	return p, nil
}

func (p *Pool) NumBufs() int  { return len(p.bufs) }
func (p *Pool) BufSize() uint32 { return p.bufSize }

// Get returns a pointer to the buffer at the given slot index without
// touching the free-stack, or nil if idx is out of range.
func (p *Pool) Get(idx uint32) *Buffer {
	if idx >= uint32(len(p.bufs)) {
		fmt.Printf("pool: Get(%d) out of range for %d buffers\n", idx, len(p.bufs))
		return nil
	}
	return &p.bufs[idx]
}

// Pop removes one buffer from the top of the free-stack. The second return
// value is false if the pool is exhausted.
func (p *Pool) Pop() (*Buffer, bool) {
	if p.top == 0 {
		return nil, false
	}
	p.top--
	idx := p.freeStack[p.top]
	b := &p.bufs[idx]
	b.Size = 0
	return b, true
}

// PopMany fills out with up to len(out) buffers popped from the free-stack
// and returns how many it actually filled; callers must handle a short
// result the same way they handle Pop returning false.
func (p *Pool) PopMany(out []*Buffer) int {
	n := 0
	for n < len(out) {
		b, ok := p.Pop()
		if !ok {
			break
		}
		out[n] = b
		n++
	}
	return n
}

// Release returns a buffer to the free-stack. A double-release is a bug in
// the caller (a descriptor recycled twice, say); it's logged and dropped
// rather than corrupting the free-stack by growing past capacity.
func (p *Pool) Release(b *Buffer) {
	if p.top >= len(p.bufs) {
		fmt.Printf("pool: double free of buffer %d ignored\n", b.Idx)
		return
	}
	p.freeStack[p.top] = b.Idx
	p.top++
}

// ReleaseMany releases a batch in one call; equivalent to calling Release in
// a loop but is the natural counterpart to PopMany for ring drain paths.
func (p *Pool) ReleaseMany(bufs []*Buffer) {
	for _, b := range bufs {
		p.Release(b)
	}
}
