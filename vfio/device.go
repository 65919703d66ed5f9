package vfio

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Device is an open VFIO passthrough handle for one PCI function: the
// container/group/device fd triple plus whichever BARs have been mapped.
// Nothing here is ixgbe-specific; a concrete driver pulls BAR0 off this and
// starts writing registers into it.
type Device struct {
	PCIAddr string

	containerFD int
	groupFD     int
	deviceFD    int

	bars [6][]byte // nil entries are BARs that are absent or zero-sized
}

// Open walks the container -> group -> device fd chain for the PCI function
// at pciAddr (e.g. "0000:04:00.0") and maps BAR0..maxBARIndex.
func Open(pciAddr string, maxBARIndex int) (*Device, error) {
	groupID, err := groupIDFor(pciAddr)
	if err != nil {
		return nil, err
	}

	containerFD, err := unix.Open("/dev/vfio/vfio", unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("vfio: open /dev/vfio/vfio: %w", err)
	}

	// VFIO_API_VERSION is 0; the container must also offer the type-1 IOMMU.
	if v, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(containerFD), ioctlGetAPIVersion, 0); errno != 0 || v != 0 {
		unix.Close(containerFD)
		return nil, fmt.Errorf("vfio: unsupported VFIO API version %d (errno %v)", v, errno)
	}
	if ok, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(containerFD), ioctlCheckExtension, typeIOMMU); errno != 0 || ok == 0 {
		unix.Close(containerFD)
		return nil, fmt.Errorf("vfio: container does not support the type-1 IOMMU (errno %v)", errno)
	}

	groupFD, err := unix.Open(fmt.Sprintf("/dev/vfio/%d", groupID), unix.O_RDWR, 0)
	if err != nil {
		unix.Close(containerFD)
		return nil, fmt.Errorf("vfio: open group %d: %w", groupID, err)
	}

	if err := joinContainer(containerFD, groupFD); err != nil {
		unix.Close(groupFD)
		unix.Close(containerFD)
		return nil, err
	}

	deviceFD, err := groupGetDeviceFD(groupFD, pciAddr)
	if err != nil {
		unix.Close(groupFD)
		unix.Close(containerFD)
		return nil, err
	}

	d := &Device{
		PCIAddr:     pciAddr,
		containerFD: containerFD,
		groupFD:     groupFD,
		deviceFD:    deviceFD,
	}

	for i := 0; i <= maxBARIndex && i < len(d.bars); i++ {
		bar, err := d.mapBAR(i)
		if err != nil {
			return nil, err
		}
		d.bars[i] = bar
	}

	if err := d.enableBusMaster(); err != nil {
		return nil, err
	}

	return d, nil
}

func groupIDFor(pciAddr string) (int, error) {
	link := filepath.Join("/sys/bus/pci/devices", pciAddr, "iommu_group")
	target, err := os.Readlink(link)
	if err != nil {
		return 0, fmt.Errorf("vfio: %s is not bound to an IOMMU group (is vfio-pci loaded?): %w", pciAddr, err)
	}
	var id int
	if _, err := fmt.Sscanf(filepath.Base(target), "%d", &id); err != nil {
		return 0, fmt.Errorf("vfio: parsing iommu group from %q: %w", target, err)
	}
	return id, nil
}

func joinContainer(containerFD, groupFD int) error {
	var status groupStatus
	status.Argsz = uint32(unsafe.Sizeof(status))
	if err := ioctl(uintptr(groupFD), ioctlGroupGetStatus, uintptr(unsafe.Pointer(&status))); err != nil {
		return fmt.Errorf("vfio: VFIO_GROUP_GET_STATUS: %w", err)
	}
	if status.Flags&groupFlagsViable == 0 {
		return fmt.Errorf("vfio: group is not viable, every device in it must be bound to vfio-pci")
	}

	if err := ioctl(uintptr(groupFD), ioctlGroupSetContainer, uintptr(unsafe.Pointer(&containerFD))); err != nil {
		return fmt.Errorf("vfio: VFIO_GROUP_SET_CONTAINER: %w", err)
	}

	if err := ioctl(uintptr(containerFD), ioctlSetIOMMU, uintptr(typeIOMMU)); err != nil {
		// A container that already has this group's IOMMU type set
		// returns EBUSY on a second attach; that's expected when two
		// devices in the same group are opened independently.
		if err != unix.EBUSY {
			return fmt.Errorf("vfio: VFIO_SET_IOMMU: %w", err)
		}
	}
	return nil
}

func groupGetDeviceFD(groupFD int, pciAddr string) (int, error) {
	nameBytes := append([]byte(pciAddr), 0)
	fd, err := ioctlStr(uintptr(groupFD), ioctlGroupGetDeviceFD, nameBytes)
	if err != nil {
		return 0, fmt.Errorf("vfio: VFIO_GROUP_GET_DEVICE_FD(%s): %w", pciAddr, err)
	}
	return fd, nil
}

func (d *Device) mapBAR(index int) ([]byte, error) {
	var info regionInfo
	info.Argsz = uint32(unsafe.Sizeof(info))
	info.Index = uint32(index)
	if err := ioctl(uintptr(d.deviceFD), ioctlDeviceGetRegionInfo, uintptr(unsafe.Pointer(&info))); err != nil {
		return nil, fmt.Errorf("vfio: VFIO_DEVICE_GET_REGION_INFO(bar%d): %w", index, err)
	}
	if info.Size == 0 {
		return nil, nil
	}
	if info.Flags&regionInfoFlagMmap == 0 {
		return nil, nil
	}

	prot := unix.PROT_READ
	if info.Flags&regionInfoFlagWrite != 0 {
		prot |= unix.PROT_WRITE
	}
	mem, err := unix.Mmap(d.deviceFD, int64(info.Offset), int(info.Size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("vfio: mmap bar%d: %w", index, err)
	}
	return mem, nil
}

// enableBusMaster sets bit 2 (bus master enable) of the PCI command
// register, which lives at offset 4 in config space (region index 7 on the
// device fd).
func (d *Device) enableBusMaster() error {
	var info regionInfo
	info.Argsz = uint32(unsafe.Sizeof(info))
	info.Index = pciConfigRegionIndex
	if err := ioctl(uintptr(d.deviceFD), ioctlDeviceGetRegionInfo, uintptr(unsafe.Pointer(&info))); err != nil {
		return fmt.Errorf("vfio: VFIO_DEVICE_GET_REGION_INFO(config): %w", err)
	}

	var cmd [2]byte
	if _, err := unix.Pread(d.deviceFD, cmd[:], int64(info.Offset)+4); err != nil {
		return fmt.Errorf("vfio: reading PCI command register: %w", err)
	}
	val := uint16(cmd[0]) | uint16(cmd[1])<<8
	val |= 1 << 2 // bus master enable
	cmd[0] = byte(val)
	cmd[1] = byte(val >> 8)
	if _, err := unix.Pwrite(d.deviceFD, cmd[:], int64(info.Offset)+4); err != nil {
		return fmt.Errorf("vfio: writing PCI command register: %w", err)
	}
	return nil
}

// BAR returns the mmap'd region for the given BAR index, or nil if that BAR
// was never mapped (absent, zero-sized, or not mmap-capable).
func (d *Device) BAR(index int) []byte {
	if index < 0 || index >= len(d.bars) {
		return nil
	}
	return d.bars[index]
}

// ContainerFD returns the container fd. The container, not the device, owns
// the IOMMU mapping; MapDMA issues VFIO_IOMMU_MAP_DMA against it.
func (d *Device) ContainerFD() int { return d.containerFD }

// DeviceFD returns the raw device fd.
func (d *Device) DeviceFD() int { return d.deviceFD }

// Close unmaps every mapped BAR and closes the fd chain. It does not unmap
// outstanding DMA regions; see the dma package for why.
func (d *Device) Close() error {
	for i, bar := range d.bars {
		if bar != nil {
			unix.Munmap(bar)
			d.bars[i] = nil
		}
	}
	unix.Close(d.deviceFD)
	unix.Close(d.groupFD)
	return unix.Close(d.containerFD)
}
