// Package pcap writes captured frames in the classic libpcap trace file
// format: a 24-byte global header followed by a 16-byte record header plus
// payload for every frame.
package pcap

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

const (
	magicNumber  = 0xA1B2C3D4
	versionMajor = 2
	versionMinor = 4
	snapLen      = 65535
	linkTypeEthernet = 1
)

// Writer appends frames to an underlying io.Writer in pcap format. It
// writes the global header itself on construction; callers never see it.
type Writer struct {
	w io.Writer
}

// NewWriter writes the global pcap header to w and returns a Writer ready
// to accept frames.
func NewWriter(w io.Writer) (*Writer, error) {
	var hdr [24]byte
	binary.LittleEndian.PutUint32(hdr[0:4], magicNumber)
	binary.LittleEndian.PutUint16(hdr[4:6], versionMajor)
	binary.LittleEndian.PutUint16(hdr[6:8], versionMinor)
	// bytes 8:16 (thiszone, sigfigs) are left zero.
	binary.LittleEndian.PutUint32(hdr[16:20], snapLen)
	binary.LittleEndian.PutUint32(hdr[20:24], linkTypeEthernet)
	if _, err := w.Write(hdr[:]); err != nil {
		return nil, fmt.Errorf("pcap: writing global header: %w", err)
	}
	return &Writer{w: w}, nil
}

// WriteFrame appends one captured frame, truncated to snapLen if it's
// longer, stamped with ts (its capture time).
func (p *Writer) WriteFrame(ts time.Time, data []byte) error {
	incl := data
	if len(incl) > snapLen {
		incl = incl[:snapLen]
	}

	var rec [16]byte
	binary.LittleEndian.PutUint32(rec[0:4], uint32(ts.Unix()))
	binary.LittleEndian.PutUint32(rec[4:8], uint32(ts.Nanosecond()/1000))
	binary.LittleEndian.PutUint32(rec[8:12], uint32(len(incl)))
	binary.LittleEndian.PutUint32(rec[12:16], uint32(len(data)))

	if _, err := p.w.Write(rec[:]); err != nil {
		return fmt.Errorf("pcap: writing record header: %w", err)
	}
	if _, err := p.w.Write(incl); err != nil {
		return fmt.Errorf("pcap: writing frame payload: %w", err)
	}
	return nil
}
