// Package dma hands out huge-page-backed, IOMMU-mapped memory regions for a
// single VFIO device. Unlike the allocator this is grounded on, it is a
// plain value constructed by a device factory and passed by reference, not
// a process-wide singleton: nothing here needs to be shared across devices,
// and a singleton would make it impossible to test two devices in the same
// process.
package dma

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/chenxun233/vfionic/vfio"
)

const (
	pageSize     = 2 * 1024 * 1024 // 2 MiB huge pages
	initialIOVA  = 0x10000
)

// Region is a single virt/iova/size triple: size bytes of process memory
// mapped 1:1 onto a contiguous IOVA range usable by the device.
type Region struct {
	Virt []byte
	IOVA uint64
	Size uint64
}

// mapper is the subset of *vfio.Device the allocator needs; defined as an
// interface so tests can fake it without opening a real device.
type mapper interface {
	MapDMA(vaddr, iova, size uint64) error
}

// Allocator hands out Regions for one device. The IOVA cursor is
// monotonically increasing: regions are never reused or freed individually,
// matching how ring buffers and buffer pools are allocated once at startup
// and held for the process lifetime.
type Allocator struct {
	mu         sync.Mutex
	dev        mapper
	nextIOVA   uint64
	hugePages  bool
}

func NewAllocator(dev *vfio.Device) *Allocator {
	return &Allocator{dev: dev, nextIOVA: initialIOVA, hugePages: true}
}

// NewAllocatorForTest builds an Allocator that backs regions with ordinary
// anonymous memory instead of huge pages, so unit tests can exercise the
// IOVA bookkeeping and pool/ring logic on a machine with no huge pages
// reserved. Production code always goes through NewAllocator.
func NewAllocatorForTest(dev mapper) *Allocator {
	return &Allocator{dev: dev, nextIOVA: initialIOVA, hugePages: false}
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// Alloc reserves size bytes (rounded up to a huge page) of anonymous,
// huge-page-backed memory, and binds it into the device's IOMMU at a freshly
// allocated IOVA.
func (a *Allocator) Alloc(size uint64) (*Region, error) {
	size = alignUp(size, pageSize)

	a.mu.Lock()
	iova := alignUp(a.nextIOVA, pageSize)
	if iova+size < iova {
		a.mu.Unlock()
		return nil, fmt.Errorf("dma: iova space exhausted allocating %d bytes", size)
	}
	a.nextIOVA = iova + size
	a.mu.Unlock()

	flags := unix.MAP_SHARED | unix.MAP_ANONYMOUS
	if a.hugePages {
		flags |= unix.MAP_HUGETLB | mapHuge2MB
	}
	mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, flags)
	if err != nil {
		return nil, fmt.Errorf("dma: mmap %d bytes: %w", size, err)
	}

	if err := a.dev.MapDMA(addrOf(mem), iova, size); err != nil {
		unix.Munmap(mem)
		return nil, err
	}

	return &Region{Virt: mem, IOVA: iova, Size: size}, nil
}

// Close is intentionally a no-op: unmapping DMA regions on shutdown risks
// racing descriptor rings that are still being drained by other goroutines
// during teardown, and the process is about to exit and reclaim the mapping
// anyway.
func (a *Allocator) Close() error { return nil }
