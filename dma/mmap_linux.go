package dma

import "unsafe"

// MAP_HUGE_2MB = 21 << MAP_HUGE_SHIFT(26); golang.org/x/sys/unix does not
// export it as of this module's pinned version, so it's defined here the
// same way the kernel UAPI headers do.
const mapHuge2MB = 21 << 26

func addrOf(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(&b[0])))
}
