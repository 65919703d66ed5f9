package dma

import "testing"

type recordingMapper struct {
	calls []struct{ vaddr, iova, size uint64 }
}

func (r *recordingMapper) MapDMA(vaddr, iova, size uint64) error {
	r.calls = append(r.calls, struct{ vaddr, iova, size uint64 }{vaddr, iova, size})
	return nil
}

func TestAllocRoundsUpToPageSize(t *testing.T) {
	a := NewAllocatorForTest(&recordingMapper{})
	region, err := a.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if region.Size != pageSize {
		t.Fatalf("Size = %d, want %d", region.Size, pageSize)
	}
	if uint64(len(region.Virt)) != pageSize {
		t.Fatalf("len(Virt) = %d, want %d", len(region.Virt), pageSize)
	}
}

func TestAllocIOVAIsMonotonicAndNonOverlapping(t *testing.T) {
	a := NewAllocatorForTest(&recordingMapper{})
	r1, err := a.Alloc(pageSize)
	if err != nil {
		t.Fatalf("Alloc 1: %v", err)
	}
	r2, err := a.Alloc(pageSize)
	if err != nil {
		t.Fatalf("Alloc 2: %v", err)
	}
	if r2.IOVA < r1.IOVA+r1.Size {
		t.Fatalf("second region iova %#x overlaps first region [%#x, %#x)", r2.IOVA, r1.IOVA, r1.IOVA+r1.Size)
	}
}

func TestAllocBindsDMAWithMatchingIOVA(t *testing.T) {
	m := &recordingMapper{}
	a := NewAllocatorForTest(m)
	region, err := a.Alloc(pageSize)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if len(m.calls) != 1 {
		t.Fatalf("MapDMA called %d times, want 1", len(m.calls))
	}
	if m.calls[0].iova != region.IOVA || m.calls[0].size != region.Size {
		t.Fatalf("MapDMA(iova=%#x, size=%#x) does not match region iova=%#x size=%#x",
			m.calls[0].iova, m.calls[0].size, region.IOVA, region.Size)
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ v, align, want uint64 }{
		{0, 4096, 0},
		{1, 4096, 4096},
		{4096, 4096, 4096},
		{4097, 4096, 8192},
	}
	for _, c := range cases {
		if got := alignUp(c.v, c.align); got != c.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", c.v, c.align, got, c.want)
		}
	}
}
