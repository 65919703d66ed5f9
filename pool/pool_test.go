package pool

import (
	"testing"

	"github.com/chenxun233/vfionic/dma"
)

// fakeMapper satisfies dma's mapper interface without touching VFIO.
type fakeMapper struct{}

func (fakeMapper) MapDMA(vaddr, iova, size uint64) error { return nil }

func newTestAllocator() *dma.Allocator {
	return dma.NewAllocatorForTest(fakeMapper{})
}

func TestPopAndRelease(t *testing.T) {
	p, err := New(newTestAllocator(), 4, 256)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.NumBufs() != 4 {
		t.Fatalf("NumBufs() = %d, want 4", p.NumBufs())
	}

	bufs := make([]*Buffer, 0, 4)
	for i := 0; i < 4; i++ {
		b, ok := p.Pop()
		if !ok {
			t.Fatalf("Pop() failed on iteration %d", i)
		}
		bufs = append(bufs, b)
	}

	if _, ok := p.Pop(); ok {
		t.Fatalf("Pop() succeeded on an exhausted pool")
	}

	p.Release(bufs[0])
	if _, ok := p.Pop(); !ok {
		t.Fatalf("Pop() failed after Release")
	}
}

func TestDoubleReleaseIsIgnored(t *testing.T) {
	p, err := New(newTestAllocator(), 2, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, _ := p.Pop()
	p.Release(b)
	// Both buffers are now back on the free stack (1 popped + 1 never
	// touched); releasing b again must not grow past capacity.
	p.Release(b)

	count := 0
	for {
		if _, ok := p.Pop(); !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("got %d buffers after a double release, want exactly 2", count)
	}
}

func TestPopManyShortOnExhaustion(t *testing.T) {
	p, err := New(newTestAllocator(), 3, 64)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out := make([]*Buffer, 5)
	n := p.PopMany(out)
	if n != 3 {
		t.Fatalf("PopMany() = %d, want 3", n)
	}
}
