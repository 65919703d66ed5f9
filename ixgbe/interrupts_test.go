package ixgbe

import "testing"

func TestSetIVARPacksQueueAndDirection(t *testing.T) {
	d := &Device{bar: make([]byte, 0x10000)}

	d.setIVAR(0, 0, 3) // rx queue 0 -> vector 3
	d.setIVAR(0, 1, 5) // rx queue 1 -> vector 5, same IVAR register as queue 0

	reg := d.reg32(IVAR(0))
	got0 := byte(reg)
	got1 := byte(reg >> 16)
	if got0 != 3|0x80 {
		t.Fatalf("queue 0 vector byte = %#x, want %#x", got0, 3|0x80)
	}
	if got1 != 5|0x80 {
		t.Fatalf("queue 1 vector byte = %#x, want %#x", got1, 5|0x80)
	}
}

func TestSetIVARDoesNotClobberOtherDirection(t *testing.T) {
	d := &Device{bar: make([]byte, 0x10000)}

	d.setIVAR(0, 0, 3) // rx
	d.setIVAR(1, 0, 7) // tx, same queue, different direction byte

	reg := d.reg32(IVAR(0))
	rxByte := byte(reg)
	txByte := byte(reg >> 8)
	if rxByte != 3|0x80 {
		t.Fatalf("rx vector byte = %#x, want %#x", rxByte, 3|0x80)
	}
	if txByte != 7|0x80 {
		t.Fatalf("tx vector byte clobbered: got %#x, want %#x", txByte, 7|0x80)
	}
}
