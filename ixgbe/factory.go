package ixgbe

import (
	"fmt"

	"github.com/chenxun233/vfionic/vfio"
)

// Config bundles the parameters a fully-brought-up Device needs beyond the
// PCI address itself.
type Config struct {
	PCIAddr      string
	MaxBARIndex  int
	NumRxQueues  int
	NumTxQueues  int
	NumDesc      uint32 // per ring, must be a power of two
	NumRxBufs    uint32
	NumTxBufs    uint32
	BufSize      uint32
	Promiscuous  bool
}

// NewDevice opens the PCI function named in cfg, runs it through the full
// bring-up sequence, and returns a Device ready to send and receive on
// every configured queue. It mirrors the original driver's device factory:
// construct, init hardware, configure rings, configure interrupts, enable
// queues and interrupts, set promiscuous mode, wait for link.
func NewDevice(cfg Config) (*Device, error) {
	vfioDev, err := vfio.Open(cfg.PCIAddr, cfg.MaxBARIndex)
	if err != nil {
		return nil, err
	}

	d := newDevice(vfioDev)

	if err := d.InitHardware(); err != nil {
		return nil, fmt.Errorf("ixgbe: init hardware: %w", err)
	}
	if err := d.SetRxRings(cfg.NumRxQueues, cfg.NumDesc, cfg.NumRxBufs, cfg.BufSize); err != nil {
		return nil, err
	}
	if err := d.SetTxRings(cfg.NumTxQueues, cfg.NumDesc, cfg.NumTxBufs, cfg.BufSize); err != nil {
		return nil, err
	}
	if err := d.InitInterrupts(); err != nil {
		return nil, fmt.Errorf("ixgbe: init interrupts: %w", err)
	}
	if err := d.EnableQueues(); err != nil {
		return nil, err
	}
	d.EnableInterrupts()
	d.Promisc(cfg.Promiscuous)
	// A link that never comes up is logged but not fatal; callers may still
	// want a device handle to poll status or retry later.
	d.WaitForLink()

	return d, nil
}

// Close releases the underlying VFIO device. DMA regions are intentionally
// left mapped; see the dma package.
func (d *Device) Close() error {
	return d.vfioDev.Close()
}
