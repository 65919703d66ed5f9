package ixgbe

import "encoding/binary"

// ipHeaderOffset and ipChecksumOffset are fixed because the loopback test
// frames this driver sends are always a bare Ethernet+IPv4 header with no
// VLAN tag: 14 bytes of Ethernet header, then a 20-byte IPv4 header whose
// checksum field sits at header bytes 10-11.
const (
	ipHeaderOffset   = 14
	ipHeaderLen      = 20
	ipChecksumOffset = ipHeaderOffset + 10
)

// stampIPv4Checksum computes the standard one's-complement IPv4 header
// checksum over frame[14:34] and writes it at frame[24:26]. It is a no-op
// on anything shorter than a full Ethernet+IP header.
func stampIPv4Checksum(frame []byte) {
	if len(frame) < ipHeaderOffset+ipHeaderLen {
		return
	}
	header := frame[ipHeaderOffset : ipHeaderOffset+ipHeaderLen]
	binary.LittleEndian.PutUint16(frame[ipChecksumOffset:ipChecksumOffset+2], 0)
	binary.LittleEndian.PutUint16(frame[ipChecksumOffset:ipChecksumOffset+2], ipv4HeaderChecksum(header))
}

// ipv4HeaderChecksum folds header (its checksum field assumed zero) into a
// 16-bit one's complement sum, the same running-sum-with-carry-fold the
// original driver's _calcIPChecksum uses.
func ipv4HeaderChecksum(header []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(header); i += 2 {
		sum += uint32(binary.LittleEndian.Uint16(header[i : i+2]))
		if sum > 0xFFFF {
			sum = (sum & 0xFFFF) + 1
		}
	}
	return ^uint16(sum)
}
