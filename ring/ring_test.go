package ring

import (
	"testing"

	"github.com/chenxun233/vfionic/dma"
	"github.com/chenxun233/vfionic/pool"
)

type fakeMapper struct{}

func (fakeMapper) MapDMA(vaddr, iova, size uint64) error { return nil }

func TestCreateRejectsNonPowerOfTwo(t *testing.T) {
	var b Base
	alloc := dma.NewAllocatorForTest(fakeMapper{})
	if err := b.Create(alloc, 3, 16); err == nil {
		t.Fatalf("Create(3, ...) succeeded, want error for non-power-of-two size")
	}
}

func TestCreateInitializesDescriptorsToAllOnes(t *testing.T) {
	var b Base
	alloc := dma.NewAllocatorForTest(fakeMapper{})
	if err := b.Create(alloc, 4, 16); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := uint32(0); i < 4; i++ {
		for _, byt := range b.DescAt(i) {
			if byt != 0xFF {
				t.Fatalf("descriptor %d not defensively initialized to 0xFF", i)
			}
		}
	}
}

func TestWrapAtBoundary(t *testing.T) {
	var b Base
	alloc := dma.NewAllocatorForTest(fakeMapper{})
	if err := b.Create(alloc, 8, 16); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := b.Wrap(7); got != 0 {
		t.Fatalf("Wrap(7) = %d, want 0", got)
	}
	if got := b.Wrap(3); got != 4 {
		t.Fatalf("Wrap(3) = %d, want 4", got)
	}
}

func TestStagingFIFOOrder(t *testing.T) {
	s := NewTxStaging(4)
	a := &pool.Buffer{Idx: 1}
	b := &pool.Buffer{Idx: 2}
	if !s.Push(a) || !s.Push(b) {
		t.Fatalf("Push failed unexpectedly")
	}
	got1, ok := s.Pop()
	if !ok || got1.Idx != 1 {
		t.Fatalf("Pop() = %+v, want idx 1", got1)
	}
	got2, ok := s.Pop()
	if !ok || got2.Idx != 2 {
		t.Fatalf("Pop() = %+v, want idx 2", got2)
	}
	if !s.Empty() {
		t.Fatalf("Empty() = false after draining every pushed buffer")
	}
}

func TestStagingRejectsPushWhenFull(t *testing.T) {
	s := NewTxStaging(1)
	if !s.Push(&pool.Buffer{Idx: 1}) {
		t.Fatalf("first Push into a capacity-1 staging queue failed")
	}
	if s.Push(&pool.Buffer{Idx: 2}) {
		t.Fatalf("Push succeeded on a full staging queue")
	}
}
