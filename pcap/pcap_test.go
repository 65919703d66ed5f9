package pcap

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func TestNewWriterEmitsGlobalHeader(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewWriter(&buf); err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if buf.Len() != 24 {
		t.Fatalf("global header is %d bytes, want 24", buf.Len())
	}
	if magic := binary.LittleEndian.Uint32(buf.Bytes()[0:4]); magic != magicNumber {
		t.Fatalf("magic = %#x, want %#x", magic, magicNumber)
	}
	if network := binary.LittleEndian.Uint32(buf.Bytes()[20:24]); network != linkTypeEthernet {
		t.Fatalf("network = %d, want %d (ethernet)", network, linkTypeEthernet)
	}
}

func TestWriteFrameAppendsRecordHeaderAndPayload(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	payload := []byte{1, 2, 3, 4, 5}
	ts := time.Unix(1000, 500000)
	if err := w.WriteFrame(ts, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	rec := buf.Bytes()[24:]
	if len(rec) != 16+len(payload) {
		t.Fatalf("record length = %d, want %d", len(rec), 16+len(payload))
	}
	if sec := binary.LittleEndian.Uint32(rec[0:4]); sec != 1000 {
		t.Fatalf("ts_sec = %d, want 1000", sec)
	}
	if usec := binary.LittleEndian.Uint32(rec[4:8]); usec != 500 {
		t.Fatalf("ts_usec = %d, want 500", usec)
	}
	if inclLen := binary.LittleEndian.Uint32(rec[8:12]); inclLen != uint32(len(payload)) {
		t.Fatalf("incl_len = %d, want %d", inclLen, len(payload))
	}
	if !bytes.Equal(rec[16:], payload) {
		t.Fatalf("payload = %v, want %v", rec[16:], payload)
	}
}

func TestWriteFrameTruncatesAtSnapLen(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	big := make([]byte, snapLen+100)
	if err := w.WriteFrame(time.Now(), big); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	rec := buf.Bytes()[24:]
	inclLen := binary.LittleEndian.Uint32(rec[8:12])
	origLen := binary.LittleEndian.Uint32(rec[12:16])
	if inclLen != snapLen {
		t.Fatalf("incl_len = %d, want %d", inclLen, snapLen)
	}
	if origLen != uint32(len(big)) {
		t.Fatalf("orig_len = %d, want %d", origLen, len(big))
	}
}
