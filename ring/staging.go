package ring

import "github.com/chenxun233/vfionic/pool"

// TxStaging is a small FIFO of buffers that have been filled by higher-level
// code (a payload copied in, checksum stamped) but not yet linked to a
// descriptor. It exists because filling a packet and publishing it to the
// hardware are two different moments: a caller can fill a whole batch of
// buffers and only then walk the ring once to hand descriptors out,
// matching fillPktBuf/linkPktWithDesc in the original driver.
type TxStaging struct {
	bufs []*pool.Buffer
	head int
	tail int
}

// NewTxStaging allocates a staging queue sized to the TX ring it backs.
func NewTxStaging(capacity int) *TxStaging {
	return &TxStaging{bufs: make([]*pool.Buffer, capacity+1)}
}

func (s *TxStaging) wrap(i int) int { return (i + 1) % len(s.bufs) }

// Push enqueues a filled buffer that is not yet linked to a descriptor. It
// returns false if the staging queue is full.
func (s *TxStaging) Push(b *pool.Buffer) bool {
	next := s.wrap(s.tail)
	if next == s.head {
		return false // staging queue full, caller must drain first
	}
	s.bufs[s.tail] = b
	s.tail = next
	return true
}

// Pop removes and returns the oldest staged buffer, in the order Push saw
// them, which is the order Publish links them to descriptors.
func (s *TxStaging) Pop() (*pool.Buffer, bool) {
	if s.head == s.tail {
		return nil, false
	}
	b := s.bufs[s.head]
	s.bufs[s.head] = nil
	s.head = s.wrap(s.head)
	return b, true
}

func (s *TxStaging) Empty() bool { return s.head == s.tail }
