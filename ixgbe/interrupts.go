package ixgbe

import (
	"time"

	"github.com/chenxun233/vfionic/irq"
)

const defaultInterruptTimeout = 100 * time.Millisecond

// setIVAR packs queue n's RX (direction 0) or TX (direction 1) completion
// into the IVAR register's correct byte, following the 82599's
// interleaved two-queues-per-register layout.
func (d *Device) setIVAR(direction, queue, vector int) {
	ivarReg := IVAR(queue >> 1)
	shift := 16*(queue&1) + 8*direction
	v := d.reg32(ivarReg)
	v &^= 0xFF << shift
	v |= uint32(vector|0x80) << shift
	d.setReg32(ivarReg, v)
}

// InitInterrupts detects MSI vs MSI-X, allocates one eventfd per RX queue
// (or a single shared one in MSI mode), and programs IVAR so each RX
// queue's completions land on the right vector.
func (d *Device) InitInterrupts() error {
	kind, _, err := irq.Detect(d.vfioDev)
	if err != nil {
		return err
	}

	queues, err := irq.SetupQueues(d.vfioDev, kind, len(d.rxRings), defaultInterruptTimeout)
	if err != nil {
		return err
	}
	d.irqQueues = queues

	for i := range d.rxRings {
		vector := i
		if kind == irq.TypeMSI {
			vector = 0
		}
		d.setIVAR(0, i, vector)
	}

	d.setReg32(regEIAC, 0)
	for i := range d.rxRings {
		d.setReg32(EITR(i), 0x028)
	}
	return nil
}

// EnableInterrupts unmasks every vector this device armed in InitInterrupts.
func (d *Device) EnableInterrupts() {
	var mask uint32
	for i := range d.rxRings {
		mask |= 1 << uint(i)
	}
	d.setReg32(regEIMS, mask)
}

// IRQQueue exposes the interrupt queue for RX queue i, for the engine
// package's capture loop to block on between polls.
func (d *Device) IRQQueue(i int) *irq.Queue {
	if i < 0 || i >= len(d.irqQueues) {
		return nil
	}
	return d.irqQueues[i]
}
