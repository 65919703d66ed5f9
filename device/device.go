// Package device declares the capability interfaces that a network device
// driver implements. The original driver this is modeled on expressed
// "the things any PCIe NIC must support" as a C++ virtual base class; here
// it is a Go interface that a driver satisfies without inheriting from a
// base type. ixgbe.Device implements it; the engine package and the
// commands use *ixgbe.Device directly.
package device

// Device is the control-plane surface every supported NIC driver
// implements: bring-up, ring/queue/interrupt configuration, and the
// small set of operations that don't belong to a specific ring.
type Device interface {
	InitHardware() error
	SetRxRings(numQueues int, numDesc, numBufs, bufSize uint32) error
	SetTxRings(numQueues int, numDesc, numBufs, bufSize uint32) error
	InitInterrupts() error
	EnableQueues() error
	EnableInterrupts()
	Promisc(enable bool)
	WaitForLink() error
	SendOnQueue(data []byte, queueID int) error
}
