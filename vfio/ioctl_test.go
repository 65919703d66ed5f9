package vfio

import "testing"

func TestIoctlNumbering(t *testing.T) {
	// Confirmed against <linux/vfio.h>: VFIO_TYPE=';' (0x3b), VFIO_BASE=100
	// (0x64), so VFIO_GET_API_VERSION is 0x3b64 and every ioctl below it
	// is a fixed +n offset from there.
	cases := []struct {
		name string
		got  int
		want int
	}{
		{"GetAPIVersion", ioctlGetAPIVersion, 0x3b64},
		{"CheckExtension", ioctlCheckExtension, 0x3b65},
		{"SetIOMMU", ioctlSetIOMMU, 0x3b66},
		{"GroupGetStatus", ioctlGroupGetStatus, 0x3b67},
		{"GroupGetDeviceFD", ioctlGroupGetDeviceFD, 0x3b6a},
		{"DeviceGetRegionInfo", ioctlDeviceGetRegionInfo, 0x3b6c},
		{"DeviceSetIRQs", ioctlDeviceSetIRQs, 0x3b6e},
		{"IOMMUMapDMA", ioctlIOMMUMapDMA, 0x3b71},
		{"IOMMUUnmapDMA", ioctlIOMMUUnmapDMA, 0x3b72},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s = %#x, want %#x", c.name, c.got, c.want)
		}
	}
}

func TestIRQSetEventfdSize(t *testing.T) {
	// vfio_irq_set header (argsz, flags, index, start, count: 20 bytes)
	// plus one trailing int32 eventfd.
	if got := sizeofIRQSetEventfd(); got != 24 {
		t.Fatalf("sizeofIRQSetEventfd() = %d, want 24", got)
	}
}
