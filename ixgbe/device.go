package ixgbe

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/chenxun233/vfionic/device"
	"github.com/chenxun233/vfionic/dma"
	"github.com/chenxun233/vfionic/irq"
	"github.com/chenxun233/vfionic/vfio"
)

var _ device.Device = (*Device)(nil)

// MacAddress is the NIC's permanent station address, read out of RAL0/RAH0.
type MacAddress [6]byte

func (m MacAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Stats mirrors the hardware's read-to-clear traffic counters, accumulated
// monotonically across reads since the registers themselves reset to zero
// on every read.
type Stats struct {
	RxPackets uint64
	TxPackets uint64
	RxBytes   uint64
	TxBytes   uint64
}

// Device drives one 82599 function bound to vfio-pci. It satisfies the
// generic device.Device capability interface; the engine package and the
// commands use the concrete *Device type.
type Device struct {
	vfioDev *vfio.Device
	bar     []byte
	alloc   *dma.Allocator

	mac MacAddress

	rxRings []*RxRing
	txRings []*TxRing

	irqQueues []*irq.Queue

	stats Stats
}

func newDevice(vfioDev *vfio.Device) *Device {
	return &Device{
		vfioDev: vfioDev,
		bar:     vfioDev.BAR(0),
		alloc:   dma.NewAllocator(vfioDev),
	}
}

func (d *Device) reg32(off uint32) uint32 {
	return binary.LittleEndian.Uint32(d.bar[off : off+4])
}

func (d *Device) setReg32(off uint32, v uint32) {
	binary.LittleEndian.PutUint32(d.bar[off:off+4], v)
}

func (d *Device) setFlags32(off uint32, flags uint32) {
	d.setReg32(off, d.reg32(off)|flags)
}

func (d *Device) clearFlags32(off uint32, flags uint32) {
	d.setReg32(off, d.reg32(off)&^flags)
}

func (d *Device) waitClear32(off uint32, mask uint32, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for d.reg32(off)&mask != 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("ixgbe: timed out waiting for bits %#x to clear at %#x", mask, off)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func (d *Device) waitSet32(off uint32, mask uint32, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for d.reg32(off)&mask != mask {
		if time.Now().After(deadline) {
			return fmt.Errorf("ixgbe: timed out waiting for bits %#x to set at %#x", mask, off)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

// InitHardware runs the reset/EEPROM/link-negotiation bring-up sequence
// common to every 82599 function, independent of how many queues will
// eventually be used.
func (d *Device) InitHardware() error {
	d.disableInterrupts()

	d.setFlags32(regCTRL, ctrlRST)
	if err := d.waitClear32(regCTRL, ctrlRST, 1*time.Second); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)

	d.disableInterrupts()

	if err := d.waitSet32(regEEC, eecARD, 1*time.Second); err != nil {
		return fmt.Errorf("ixgbe: eeprom auto-read did not complete: %w", err)
	}
	if err := d.waitSet32(regRDRXCTL, rdrxctlDMAIDONE, 1*time.Second); err != nil {
		return fmt.Errorf("ixgbe: dma init did not complete: %w", err)
	}

	d.mac = d.readMacAddress()

	d.initLinkNegotiation()

	// The traffic counters clear on read; read once and drop the totals so
	// ReadStats starts from zero after bring-up.
	d.ReadStats()
	d.stats = Stats{}

	d.setFlags32(regFCTRL, fctrlBAM)

	return nil
}

func (d *Device) disableInterrupts() {
	d.setReg32(regEIMC, 0x7FFFFFFF)
}

func (d *Device) readMacAddress() MacAddress {
	var mac MacAddress
	low := d.reg32(RAL(0))
	high := d.reg32(RAH(0))
	mac[0] = byte(low)
	mac[1] = byte(low >> 8)
	mac[2] = byte(low >> 16)
	mac[3] = byte(low >> 24)
	mac[4] = byte(high)
	mac[5] = byte(high >> 8)
	return mac
}

func (d *Device) initLinkNegotiation() {
	autoc := d.reg32(regAUTOC)
	autoc &^= 0x7 << autocLMSShift
	autoc |= autocLMS10GSerial << autocLMSShift
	d.setReg32(regAUTOC, autoc)

	autoc = d.reg32(regAUTOC)
	autoc &^= autocPMAPMDMask
	autoc |= autoc10GXAUI
	d.setReg32(regAUTOC, autoc)

	d.setFlags32(regAUTOC, autocANRestart)
}

// MACAddress returns the station address read during InitHardware.
func (d *Device) MACAddress() MacAddress { return d.mac }

func (d *Device) getLinkSpeed() bool {
	return d.reg32(regLINKS)&linksUp != 0
}

// WaitForLink polls link status for up to 10 seconds, matching how long the
// 82599 can take to complete autonegotiation against some switches. A link
// that never comes up is logged, not treated as fatal: the caller gets
// control back either way and decides whether to proceed.
func (d *Device) WaitForLink() error {
	deadline := time.Now().Add(10 * time.Second)
	for !d.getLinkSpeed() {
		if time.Now().After(deadline) {
			fmt.Printf("ixgbe: link did not come up within 10s, continuing anyway\n")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

// Promisc enables or disables multicast+unicast promiscuous receive.
func (d *Device) Promisc(enable bool) {
	if enable {
		d.setFlags32(regFCTRL, fctrlMPE|fctrlUPE)
	} else {
		d.clearFlags32(regFCTRL, fctrlMPE|fctrlUPE)
	}
}

// Allocator returns the DMA allocator that SetRxRings/SetTxRings draw
// buffer pool and descriptor memory from.
func (d *Device) Allocator() *dma.Allocator { return d.alloc }
