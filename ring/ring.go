// Package ring provides the hardware-agnostic descriptor ring mechanics
// shared by RX and TX rings: DMA-backed descriptor memory, a power-of-two
// slot count with mask-based wraparound, and the parallel buffer-pointer
// array a ring uses to recycle packet buffers. The actual descriptor field
// layout is hardware-specific and lives in the device package (ixgbe);
// this package only owns the memory and the cursor arithmetic.
package ring

import (
	"fmt"

	"github.com/chenxun233/vfionic/dma"
	"github.com/chenxun233/vfionic/pool"
)

// Ring is implemented by both RX and TX descriptor rings. It exists so
// device bring-up code can treat "link this pool, allocate this many
// descriptors, program these registers" generically across ring kinds.
type Ring interface {
	LinkPool(p *pool.Pool)
	Create(alloc *dma.Allocator, numDesc uint32) error
	DescIOVA() uint64
	DescVirt() []byte
}

// Base holds the descriptor memory and bookkeeping common to every ring.
// Device-specific ring types embed it and add hardware descriptor access on
// top of DescVirt.
type Base struct {
	pool *pool.Pool

	descSize uint32
	numDesc  uint32
	mask     uint32

	region *dma.Region

	// bufs is the slot -> buffer parallel array: bufs[i] is the buffer
	// currently owned by descriptor i, or nil if the slot is empty.
	bufs []*pool.Buffer

	head uint32
	tail uint32
}

func (b *Base) LinkPool(p *pool.Pool) { b.pool = p }

func (b *Base) Pool() *pool.Pool { return b.pool }

// create allocates numDesc descriptors of descSize bytes each. numDesc must
// be a power of two so wrap(n) below can use a bitmask instead of a modulo.
func (b *Base) create(alloc *dma.Allocator, numDesc, descSize uint32) error {
	if numDesc == 0 || numDesc&(numDesc-1) != 0 {
		return fmt.Errorf("ring: numDesc %d must be a power of two", numDesc)
	}
	region, err := alloc.Alloc(uint64(numDesc) * uint64(descSize))
	if err != nil {
		return fmt.Errorf("ring: allocating %d descriptors of %d bytes: %w", numDesc, descSize, err)
	}
	// Defensive init: every descriptor starts as all 0xFF bytes, so a slot
	// that software has not written yet holds an all-ones address rather
	// than zero. Its status bits are all ones too (DD set), so a slot must
	// not be treated as completed unless software has linked it first.
	for i := range region.Virt {
		region.Virt[i] = 0xFF
	}

	b.region = region
	b.descSize = descSize
	b.numDesc = numDesc
	b.mask = numDesc - 1
	b.bufs = make([]*pool.Buffer, numDesc)
	return nil
}

func (b *Base) DescIOVA() uint64  { return b.region.IOVA }
func (b *Base) DescVirt() []byte  { return b.region.Virt }
func (b *Base) NumDesc() uint32   { return b.numDesc }
func (b *Base) DescSize() uint32  { return b.descSize }

// descAt returns the raw descriptor bytes at slot i; the device package
// casts this to its hardware descriptor layout.
func (b *Base) descAt(i uint32) []byte {
	off := uint64(i) * uint64(b.descSize)
	return b.region.Virt[off : off+uint64(b.descSize)]
}

func (b *Base) wrap(i uint32) uint32 { return (i + 1) & b.mask }

// Wrap advances a descriptor index by one slot, wrapping at numDesc.
func (b *Base) Wrap(i uint32) uint32 { return b.wrap(i) }

// DescAt returns the raw descriptor bytes at slot i for hardware-specific
// decoding.
func (b *Base) DescAt(i uint32) []byte { return b.descAt(i) }

func (b *Base) Head() uint32     { return b.head }
func (b *Base) Tail() uint32     { return b.tail }
func (b *Base) SetHead(v uint32) { b.head = v }
func (b *Base) SetTail(v uint32) { b.tail = v }

// BufAt returns the buffer currently linked to slot i, or nil.
func (b *Base) BufAt(i uint32) *pool.Buffer { return b.bufs[i] }

// SetBufAt links buf to slot i.
func (b *Base) SetBufAt(i uint32, buf *pool.Buffer) { b.bufs[i] = buf }

// TakeBufAt returns and unlinks the buffer at slot i.
func (b *Base) TakeBufAt(i uint32) *pool.Buffer {
	buf := b.bufs[i]
	b.bufs[i] = nil
	return buf
}

// Create is the generic entry point device packages call from their own
// Create method after picking a hardware descriptor size.
func (b *Base) Create(alloc *dma.Allocator, numDesc, descSize uint32) error {
	return b.create(alloc, numDesc, descSize)
}
