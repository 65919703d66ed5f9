package vfio

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func ioctl(fd uintptr, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// ioctlStr issues an ioctl whose argument is a NUL-terminated string (used
// only by VFIO_GROUP_GET_DEVICE_FD) and returns the ioctl's return value,
// which for that call is the newly opened device fd.
func ioctlStr(fd uintptr, req uintptr, s []byte) (int, error) {
	r1, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(unsafe.Pointer(&s[0])))
	if errno != 0 {
		return 0, errno
	}
	return int(r1), nil
}
