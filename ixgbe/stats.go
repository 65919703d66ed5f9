package ixgbe

// ReadStats reads the hardware's read-to-clear traffic counters and folds
// them into the device's running totals. GORC/GOTC are split across a low
// and high 32-bit register pair because the NIC can count more bytes per
// interval than a single register holds.
func (d *Device) ReadStats() Stats {
	d.stats.RxPackets += uint64(d.reg32(regGPRC))
	d.stats.TxPackets += uint64(d.reg32(regGPTC))
	d.stats.RxBytes += uint64(d.reg32(regGORCL)) | uint64(d.reg32(regGORCH))<<32
	d.stats.TxBytes += uint64(d.reg32(regGOTCL)) | uint64(d.reg32(regGOTCH))<<32
	return d.stats
}
