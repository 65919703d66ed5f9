// Package vfio provides the hardware-agnostic half of userspace PCIe
// passthrough: opening the VFIO container/group/device fd chain, mapping
// BAR regions, and the IOMMU DMA map call that backs the dma package.
//
// None of this is specific to the ixgbe NIC; a device package (ixgbe, or any
// future one) builds on top of the Device this package returns.
package vfio

import "unsafe"

// VFIO_TYPE is ';' and VFIO_BASE is 100 in <linux/vfio.h>; nearly every
// ioctl below is encoded with the plain _IO(type, nr) macro despite some of
// the kernel doc comments reading as if they carried direction bits.
const vfioBase = 0x3b64

const (
	ioctlGetAPIVersion      = vfioBase + 0
	ioctlCheckExtension     = vfioBase + 1
	ioctlSetIOMMU           = vfioBase + 2
	ioctlGroupGetStatus     = vfioBase + 3
	ioctlGroupSetContainer  = vfioBase + 4
	ioctlGroupUnsetContainer = vfioBase + 5
	ioctlGroupGetDeviceFD   = vfioBase + 6
	ioctlDeviceGetInfo      = vfioBase + 7
	ioctlDeviceGetRegionInfo = vfioBase + 8
	ioctlDeviceGetIRQInfo   = vfioBase + 9
	ioctlDeviceSetIRQs      = vfioBase + 10
	ioctlDeviceReset        = vfioBase + 11

	// The IOMMU driver ioctls restart their +n numbering at the same
	// +12 offset the device-fd ioctls use; they are issued against the
	// container fd, not the device fd, so the codes don't collide.
	ioctlIOMMUGetInfo  = vfioBase + 12
	ioctlIOMMUMapDMA   = vfioBase + 13
	ioctlIOMMUUnmapDMA = vfioBase + 14
	ioctlIOMMUEnable   = vfioBase + 15
	ioctlIOMMUDisable  = vfioBase + 16
)

const (
	typeIOMMU = 1 // VFIO_TYPE1_IOMMU

	groupFlagsViable      = 1 << 0
	groupFlagsContainerSet = 1 << 1

	regionInfoFlagRead  = 1 << 0
	regionInfoFlagWrite = 1 << 1
	regionInfoFlagMmap  = 1 << 2

	irqInfoFlagEventfd = 1 << 0

	irqSetDataEventfd   = 1 << 2
	irqSetActionTrigger = 1 << 5

	dmaMapFlagRead  = 1 << 0
	dmaMapFlagWrite = 1 << 1

	// PCI region/IRQ index constants (vfio-pci specific, but shared by
	// every vfio-pci device regardless of vendor).
	pciBAR0RegionIndex    = 0
	pciConfigRegionIndex  = 7
	pciIntxIRQIndex       = 0
	pciMSIIRQIndex        = 1
	pciMSIxIRQIndex       = 2
)

type ioctlCommon struct {
	Argsz uint32
	Flags uint32
}

type groupStatus struct {
	ioctlCommon
}

type deviceInfo struct {
	ioctlCommon
	NumRegions uint32
	NumIRQs    uint32
	CapOffset  uint32
}

type regionInfo struct {
	ioctlCommon
	Index     uint32
	CapOffset uint32
	Size      uint64
	Offset    uint64
}

type irqInfo struct {
	ioctlCommon
	Index uint32
	Count uint32
}

// irqSetEventfd is vfio_irq_set with exactly one trailing int32 eventfd,
// which is the only shape this package ever sends down VFIO_DEVICE_SET_IRQS.
type irqSetEventfd struct {
	ioctlCommon
	Index uint32
	Start uint32
	Count uint32
	Data  int32
}

type iommuTypeDMAMap struct {
	ioctlCommon
	Vaddr uint64
	Iova  uint64
	Size  uint64
}

func sizeofIRQSetEventfd() uintptr { return unsafe.Sizeof(irqSetEventfd{}) }
