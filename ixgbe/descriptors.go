package ixgbe

import "encoding/binary"

// rxDescSize and txDescSize are the 82599 advanced one-buffer descriptor
// sizes; both descriptor kinds are 16 bytes regardless of queue depth.
const (
	rxDescSize = 16
	txDescSize = 16
)

// RX advanced descriptor, read format (what software writes before handing
// a slot to hardware):
//   bytes [0:8]  pkt_addr
//   bytes [8:16] hdr_addr (unused, header split is not enabled)
// writeback format (what hardware writes on completion):
//   bytes [8:12] status_error, low bits: DD(0) EOP(1)
//   bytes [12:14] length

const (
	rxStatDD  = 1 << 0
	rxStatEOP = 1 << 1
)

func rxDescSetPktAddr(desc []byte, addr uint64) {
	binary.LittleEndian.PutUint64(desc[0:8], addr)
	binary.LittleEndian.PutUint64(desc[8:16], 0)
}

func rxDescStatusError(desc []byte) uint32 {
	return binary.LittleEndian.Uint32(desc[8:12])
}

func rxDescLength(desc []byte) uint16 {
	return binary.LittleEndian.Uint16(desc[12:14])
}

// TX advanced descriptor, read format:
//   bytes [0:8]   buffer_addr
//   bytes [8:12]  cmd_type_len: length in low 18 bits, DCMD flags in high byte
//   bytes [12:16] olinfo_status: payload length in high 18 bits
// writeback format reuses bytes [12:16] as a status word; DD is bit 0.

const (
	txCmdEOP  = 1 << 24
	txCmdRS   = 1 << 27
	txCmdIFCS = 1 << 25
	txCmdDEXT = 1 << 29
	txDTypData = 3 << 20

	txStatDD = 1 << 0
)

func txDescSetBuffer(desc []byte, addr uint64, length uint32) {
	binary.LittleEndian.PutUint64(desc[0:8], addr)
	cmdTypeLen := length | txDTypData | txCmdEOP | txCmdRS | txCmdIFCS | txCmdDEXT
	binary.LittleEndian.PutUint32(desc[8:12], cmdTypeLen)
	binary.LittleEndian.PutUint32(desc[12:16], length<<14)
}

func txDescStatus(desc []byte) uint32 {
	return binary.LittleEndian.Uint32(desc[12:16])
}
