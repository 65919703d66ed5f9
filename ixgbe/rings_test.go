package ixgbe

import (
	"testing"

	"github.com/chenxun233/vfionic/dma"
	"github.com/chenxun233/vfionic/pool"
)

type fakeMapper struct{}

func (fakeMapper) MapDMA(vaddr, iova, size uint64) error { return nil }

func TestRxRingFillAndReadRoundTrip(t *testing.T) {
	alloc := dma.NewAllocatorForTest(fakeMapper{})
	p, err := pool.New(alloc, 8, 256)
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}

	r := &RxRing{queue: 0}
	r.LinkPool(p)
	if err := r.Create(alloc, 4); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A 4-descriptor ring can only ever hold 3 filled slots: one slot stays
	// empty so a full ring is never indistinguishable from an empty one.
	if n := r.FillDescRing(); n != 3 {
		t.Fatalf("FillDescRing() = %d, want 3", n)
	}

	// Simulate the NIC completing descriptor 0 with a 100-byte frame.
	desc := r.DescAt(r.Head())
	desc[8] = rxStatDD | rxStatEOP
	desc[12], desc[13] = 100, 0

	out := make([]*pool.Buffer, 4)
	n, err := r.ReadDescriptors(out)
	if err != nil {
		t.Fatalf("ReadDescriptors: %v", err)
	}
	if n != 1 {
		t.Fatalf("ReadDescriptors() = %d, want 1", n)
	}
	if out[0].Size != 100 {
		t.Fatalf("buffer size = %d, want 100", out[0].Size)
	}
}

func TestRxRingReadDescriptorsRejectsMissingEOP(t *testing.T) {
	alloc := dma.NewAllocatorForTest(fakeMapper{})
	p, _ := pool.New(alloc, 4, 256)
	r := &RxRing{queue: 0}
	r.LinkPool(p)
	if err := r.Create(alloc, 4); err != nil {
		t.Fatalf("Create: %v", err)
	}
	r.FillDescRing()

	desc := r.DescAt(r.Head())
	desc[8] = rxStatDD // DD set, EOP not set: a multi-segment frame

	out := make([]*pool.Buffer, 4)
	if _, err := r.ReadDescriptors(out); err == nil {
		t.Fatalf("ReadDescriptors succeeded on a descriptor missing EOP")
	}
}

func TestTxRingLinkAndClean(t *testing.T) {
	alloc := dma.NewAllocatorForTest(fakeMapper{})
	p, err := pool.New(alloc, 4, 256)
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	r := &TxRing{queue: 0}
	r.LinkPool(p)
	if err := r.Create(alloc, 4); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !r.FillFrame(make([]byte, 64)) {
		t.Fatalf("FillFrame failed unexpectedly")
	}
	if n := r.Publish(1); n != 1 {
		t.Fatalf("Publish() = %d, want 1", n)
	}

	// Not yet marked done by "hardware": nothing should clean.
	if n := r.CleanDescriptorRing(1); n != 0 {
		t.Fatalf("CleanDescriptorRing() = %d before completion, want 0", n)
	}

	desc := r.DescAt(r.Head())
	desc[12] = txStatDD

	if n := r.CleanDescriptorRing(1); n != 1 {
		t.Fatalf("CleanDescriptorRing() = %d after completion, want 1", n)
	}
}

func TestTxRingPublishReturnsShortWhenRingFull(t *testing.T) {
	alloc := dma.NewAllocatorForTest(fakeMapper{})
	p, _ := pool.New(alloc, 4, 256)
	r := &TxRing{queue: 0}
	r.LinkPool(p)
	if err := r.Create(alloc, 2); err != nil { // numDesc=2 means only 1 usable slot
		t.Fatalf("Create: %v", err)
	}

	if !r.FillFrame(make([]byte, 64)) || !r.FillFrame(make([]byte, 64)) {
		t.Fatalf("FillFrame failed unexpectedly")
	}
	if n := r.Publish(2); n != 1 {
		t.Fatalf("Publish() = %d on a 2-descriptor ring (1 usable slot), want 1", n)
	}
}

func TestFillFrameStampsIPv4Checksum(t *testing.T) {
	alloc := dma.NewAllocatorForTest(fakeMapper{})
	p, _ := pool.New(alloc, 4, 256)
	r := &TxRing{queue: 0}
	r.LinkPool(p)
	if err := r.Create(alloc, 4); err != nil {
		t.Fatalf("Create: %v", err)
	}

	frame := make([]byte, 34)
	frame[14] = 0x45 // minimal IPv4 header so the checksum field isn't all zero input
	if !r.FillFrame(frame) {
		t.Fatalf("FillFrame failed unexpectedly")
	}
	if n := r.Publish(1); n != 1 {
		t.Fatalf("Publish() = %d, want 1", n)
	}

	buf := r.Base.BufAt(0)
	if buf.Data[24] == 0 && buf.Data[25] == 0 {
		t.Fatalf("checksum bytes left at zero, want a computed checksum")
	}
}
