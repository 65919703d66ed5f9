// Package ixgbe implements bring-up and packet I/O for the Intel 82599
// ("ixgbe") 10G NIC family over a vfio.Device. Register offsets and bit
// field names follow the vendor datasheet numbering; accessor functions
// are named after the register they address, in the style long used by
// register-heavy Go NIC drivers.
package ixgbe

// Single, fixed-offset registers.
const (
	regCTRL      = 0x00000
	regSTATUS    = 0x00008
	regCTRLEXT   = 0x00018
	regEEC       = 0x10010
	regRDRXCTL   = 0x02F00
	regFCTRL     = 0x05080
	regAUTOC     = 0x042A0
	regAUTOCRegC = 0x042A0 // same offset as regAUTOC; no code here uses it
	regLINKS     = 0x042A4
	regRXCTRL    = 0x03000
	regRXPBSIZE0 = 0x03C00
	regDTXMXSZRQ = 0x08100
	regRTTDCSARB = 0x04900
	regDMATXCTL  = 0x04A80
	regTXPBSIZE0 = 0x0CC00
	regEIMS      = 0x00880
	regEIMC      = 0x00888
	regEIAC      = 0x00810
	regGPRC      = 0x04074
	regGPTC      = 0x04080
	regGORCL     = 0x04088
	regGORCH     = 0x0408C
	regGOTCL     = 0x04090
	regGOTCH     = 0x04094
)

// Per-queue register families, indexed by queue number n.
func RDBAL(n int) uint32    { return uint32(0x01000 + 0x40*n) }
func RDBAH(n int) uint32    { return uint32(0x01004 + 0x40*n) }
func RDLEN(n int) uint32    { return uint32(0x01008 + 0x40*n) }
func RDH(n int) uint32      { return uint32(0x01010 + 0x40*n) }
func RDT(n int) uint32      { return uint32(0x01018 + 0x40*n) }
func RXDCTL(n int) uint32   { return uint32(0x01028 + 0x40*n) }
func SRRCTL(n int) uint32   { return uint32(0x01014 + 0x40*n) }
func DCARXCTRL(n int) uint32 { return uint32(0x0100C + 0x40*n) }

func TDBAL(n int) uint32  { return uint32(0x06000 + 0x40*n) }
func TDBAH(n int) uint32  { return uint32(0x06004 + 0x40*n) }
func TDLEN(n int) uint32  { return uint32(0x06008 + 0x40*n) }
func TDH(n int) uint32    { return uint32(0x06010 + 0x40*n) }
func TDT(n int) uint32    { return uint32(0x06018 + 0x40*n) }
func TXDCTL(n int) uint32 { return uint32(0x06028 + 0x40*n) }

func RXPBSIZE(n int) uint32 { return uint32(regRXPBSIZE0 + 4*n) }
func TXPBSIZE(n int) uint32 { return uint32(regTXPBSIZE0 + 4*n) }

func RAL(n int) uint32  { return uint32(0x05400 + 8*n) }
func RAH(n int) uint32  { return uint32(0x05404 + 8*n) }
func IVAR(n int) uint32 { return uint32(0x00900 + 4*n) }
func EITR(n int) uint32 { return uint32(0x00820 + 4*n) }

// Bit fields.
const (
	ctrlRST      = 1 << 26
	ctrlLRST     = 1 << 3
	ctrlExtNSDis = 1 << 16

	eecARD = 1 << 9

	rdrxctlDMAIDONE = 1 << 3

	fctrlMPE = 1 << 8
	fctrlUPE = 1 << 9
	fctrlBAM = 1 << 10

	autocLMSShift     = 13
	autocLMS10GSerial = 3
	autocANRestart    = 1 << 12

	autocPMAPMDShift = 7
	autocPMAPMDMask  = 0x3 << autocPMAPMDShift
	autoc10GXAUI     = 0 << autocPMAPMDShift

	linksUp = 1 << 30

	rxctrlRXEN = 1 << 0

	rttdcsArbDis = 1 << 6

	dmaTxCtlTE = 1 << 0

	srrctlDescTypeAdvOneBuf = 1 << 25
	srrctlDropEn            = 1 << 28

	rxdctlEnable = 1 << 25
	txdctlEnable = 1 << 25

	rdrxctlCRCStrip = 1 << 0

	// TXDCTL prefetch/host/writeback thresholds, matched to the
	// original driver's fixed choice rather than computed from queue
	// depth.
	txdctlPThresh = 36
	txdctlHThresh = 8
	txdctlWThresh = 4
)
