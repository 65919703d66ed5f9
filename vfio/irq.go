package vfio

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// IRQKind identifies which VFIO IRQ index a set of vectors belongs to.
type IRQKind int

const (
	IRQIntx IRQKind = pciIntxIRQIndex
	IRQMSI  IRQKind = pciMSIIRQIndex
	IRQMSIx IRQKind = pciMSIxIRQIndex
)

// IRQInfo reports how many vectors a given IRQ index supports and whether
// they can be backed by eventfds (the only mode this package drives).
type IRQInfo struct {
	Count         uint32
	EventfdCapable bool
}

func (d *Device) GetIRQInfo(kind IRQKind) (IRQInfo, error) {
	var info irqInfo
	info.Argsz = uint32(unsafe.Sizeof(info))
	info.Index = uint32(kind)
	if err := ioctl(uintptr(d.deviceFD), ioctlDeviceGetIRQInfo, uintptr(unsafe.Pointer(&info))); err != nil {
		return IRQInfo{}, fmt.Errorf("vfio: VFIO_DEVICE_GET_IRQ_INFO(%d): %w", kind, err)
	}
	return IRQInfo{
		Count:          info.Count,
		EventfdCapable: info.Flags&irqInfoFlagEventfd != 0,
	}, nil
}

// NewEventfd creates a fresh close-on-exec eventfd (in blocking mode)
// suitable for use with SetIRQEventfd and an epoll wait loop.
func NewEventfd() (int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC)
	if err != nil {
		return 0, fmt.Errorf("vfio: eventfd: %w", err)
	}
	return fd, nil
}

// SetIRQEventfd binds eventFD to vector `start` of the given IRQ kind, so
// that hardware interrupts on that vector wake anyone blocked on the
// eventfd's read side instead of delivering a signal.
func (d *Device) SetIRQEventfd(kind IRQKind, start uint32, eventFD int) error {
	buf := make([]byte, sizeofIRQSetEventfd())
	set := (*irqSetEventfd)(unsafe.Pointer(&buf[0]))
	set.Argsz = uint32(len(buf))
	set.Flags = irqSetDataEventfd | irqSetActionTrigger
	set.Index = uint32(kind)
	set.Start = start
	set.Count = 1
	set.Data = int32(eventFD)
	if err := ioctl(uintptr(d.deviceFD), ioctlDeviceSetIRQs, uintptr(unsafe.Pointer(&buf[0]))); err != nil {
		return fmt.Errorf("vfio: VFIO_DEVICE_SET_IRQS(%d, vector %d): %w", kind, start, err)
	}
	return nil
}
