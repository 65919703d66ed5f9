package ixgbe

import (
	"fmt"
	"time"

	"github.com/chenxun233/vfionic/pool"
)

// SetRxRings creates numQueues RX rings of numDesc descriptors each, all
// drawing from a single pool of numBufs buffers of bufSize bytes, and
// programs the corresponding RDBAL/RDBAH/RDLEN/SRRCTL registers.
func (d *Device) SetRxRings(numQueues int, numDesc, numBufs, bufSize uint32) error {
	p, err := pool.New(d.alloc, numBufs, bufSize)
	if err != nil {
		return fmt.Errorf("ixgbe: rx pool: %w", err)
	}

	d.setReg32(RXPBSIZE(0), 128<<10)
	for i := 1; i < 8; i++ {
		d.setReg32(RXPBSIZE(i), 0)
	}
	d.setFlags32(regRDRXCTL, rdrxctlCRCStrip)
	d.setFlags32(regFCTRL, fctrlBAM)
	d.setFlags32(regCTRLEXT, ctrlExtNSDis)

	d.rxRings = make([]*RxRing, numQueues)
	for i := 0; i < numQueues; i++ {
		r := &RxRing{queue: i}
		r.LinkPool(p)
		if err := r.Create(d.alloc, numDesc); err != nil {
			return fmt.Errorf("ixgbe: rx ring %d: %w", i, err)
		}
		d.bindRxRing(i, r)
		d.rxRings[i] = r
	}
	return nil
}

// SetTxRings creates numQueues TX rings of numDesc descriptors each,
// sharing a single pool sized for numBufs concurrently in-flight buffers,
// and programs the corresponding TDBAL/TDBAH/TDLEN registers.
func (d *Device) SetTxRings(numQueues int, numDesc, numBufs, bufSize uint32) error {
	p, err := pool.New(d.alloc, numBufs, bufSize)
	if err != nil {
		return fmt.Errorf("ixgbe: tx pool: %w", err)
	}

	d.setReg32(TXPBSIZE(0), 40<<10)
	for i := 1; i < 8; i++ {
		d.setReg32(TXPBSIZE(i), 0)
	}
	d.setReg32(regDTXMXSZRQ, 0xFFFF)
	d.clearFlags32(regRTTDCSARB, rttdcsArbDis)
	d.setFlags32(regDMATXCTL, dmaTxCtlTE)

	d.txRings = make([]*TxRing, numQueues)
	for i := 0; i < numQueues; i++ {
		r := &TxRing{queue: i}
		r.LinkPool(p)
		if err := r.Create(d.alloc, numDesc); err != nil {
			return fmt.Errorf("ixgbe: tx ring %d: %w", i, err)
		}
		d.bindTxRing(i, r)
		d.txRings[i] = r
	}
	return nil
}

func (d *Device) bindRxRing(i int, r *RxRing) {
	iova := r.DescIOVA()
	d.setReg32(RDBAL(i), uint32(iova))
	d.setReg32(RDBAH(i), uint32(iova>>32))
	d.setReg32(RDLEN(i), r.NumDesc()*rxDescSize)
	d.setReg32(SRRCTL(i), srrctlDescTypeAdvOneBuf|srrctlDropEn)
	d.setReg32(RDH(i), 0)
	d.setReg32(RDT(i), 0)
	d.clearFlags32(DCARXCTRL(i), 1<<12)
}

func (d *Device) bindTxRing(i int, r *TxRing) {
	iova := r.DescIOVA()
	d.setReg32(TDBAL(i), uint32(iova))
	d.setReg32(TDBAH(i), uint32(iova>>32))
	d.setReg32(TDLEN(i), r.NumDesc()*txDescSize)
	d.setReg32(TDH(i), 0)
	d.setReg32(TDT(i), 0)

	txdctl := uint32(txdctlPThresh) | uint32(txdctlHThresh)<<8 | uint32(txdctlWThresh)<<16
	d.setReg32(TXDCTL(i), txdctl)
}

// EnableQueues turns on every configured RX and TX queue and spins until
// the hardware acknowledges each one, then primes every RX ring full so
// the NIC has somewhere to land incoming packets immediately.
func (d *Device) EnableQueues() error {
	for i, r := range d.rxRings {
		d.setFlags32(RXDCTL(i), rxdctlEnable)
		if err := d.waitSet32(RXDCTL(i), rxdctlEnable, 1*time.Second); err != nil {
			return fmt.Errorf("ixgbe: rx queue %d did not enable: %w", i, err)
		}
		r.FillDescRing()
		d.setReg32(RDT(i), r.Tail())
	}
	d.setFlags32(regRXCTRL, rxctrlRXEN)

	for i := range d.txRings {
		d.setFlags32(TXDCTL(i), txdctlEnable)
		if err := d.waitSet32(TXDCTL(i), txdctlEnable, 1*time.Second); err != nil {
			return fmt.Errorf("ixgbe: tx queue %d did not enable: %w", i, err)
		}
	}
	return nil
}

// PublishTx writes queue n's current tail to TDT, making every descriptor
// filled since the last publish visible to the hardware.
func (d *Device) PublishTx(n int) { d.setReg32(TDT(n), d.txRings[n].Tail()) }

// PublishRx writes queue n's current tail to RDT, handing every descriptor
// refilled since the last publish back to the hardware.
func (d *Device) PublishRx(n int) { d.setReg32(RDT(n), d.rxRings[n].Tail()) }

// RxRing and TxRing expose the queue's ring to the engine package for the
// capture/send loops.
func (d *Device) RxRing(i int) *RxRing { return d.rxRings[i] }
func (d *Device) TxRing(i int) *TxRing { return d.txRings[i] }
func (d *Device) NumRxQueues() int     { return len(d.rxRings) }
func (d *Device) NumTxQueues() int     { return len(d.txRings) }

// SendOnQueue fills a fresh buffer from queue n's TX pool with data and
// publishes it immediately. It is meant for occasional control traffic, not
// the bulk TX path (the engine package drives that directly against the
// ring for batching).
func (d *Device) SendOnQueue(data []byte, queueID int) error {
	r := d.txRings[queueID]
	if !r.FillFrame(data) {
		return fmt.Errorf("ixgbe: tx queue %d: pool exhausted", queueID)
	}
	if r.Publish(1) != 1 {
		return fmt.Errorf("ixgbe: tx queue %d: ring full", queueID)
	}
	d.setReg32(TDT(queueID), r.Tail())
	return nil
}
