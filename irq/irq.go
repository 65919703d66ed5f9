// Package irq sets up eventfd-backed interrupt delivery for a VFIO device
// and provides an epoll-based wait primitive for the RX capture loop to
// block on instead of busy-polling when hardware interrupts are enabled.
package irq

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/chenxun233/vfionic/vfio"
)

// Type says whether vectors are MSI or MSI-X; interrupt-x (MSI) has one
// shared vector for every queue, where MSI-X gives each queue its own.
type Type int

const (
	TypeMSI Type = iota
	TypeMSIx
)

// Queue is one interrupt vector's worth of epoll-wait state. In MSI-X mode
// every RX queue gets its own Queue; in MSI mode every RX queue shares the
// single Queue at index 0, since the hardware and VFIO offer only one
// vector between them.
type Queue struct {
	EventFD int
	EpollFD int
	Timeout time.Duration

	lastRxPkts uint64
}

// Detect picks MSI-X if the device advertises eventfd-capable MSI-X
// vectors, falling back to MSI.
func Detect(dev *vfio.Device) (Type, int, error) {
	if info, err := dev.GetIRQInfo(vfio.IRQMSIx); err == nil && info.EventfdCapable && info.Count > 0 {
		return TypeMSIx, int(info.Count), nil
	}
	info, err := dev.GetIRQInfo(vfio.IRQMSI)
	if err != nil {
		return 0, 0, fmt.Errorf("irq: neither MSI-X nor MSI available: %w", err)
	}
	if !info.EventfdCapable || info.Count == 0 {
		return 0, 0, fmt.Errorf("irq: device has no eventfd-capable interrupt vectors")
	}
	return TypeMSI, int(info.Count), nil
}

// SetupQueues wires one Queue per RX queue in MSI-X mode, or a single
// shared Queue for all RX queues in MSI mode, matching the original
// driver's fan-out rather than redesigning it to give MSI queues distinct
// softirq demultiplexing.
func SetupQueues(dev *vfio.Device, kind Type, numRxQueues int, timeout time.Duration) ([]*Queue, error) {
	if kind == TypeMSI {
		q, err := newQueue(timeout)
		if err != nil {
			return nil, err
		}
		if err := dev.SetIRQEventfd(vfio.IRQMSI, 0, q.EventFD); err != nil {
			return nil, err
		}
		queues := make([]*Queue, numRxQueues)
		for i := range queues {
			queues[i] = q
		}
		return queues, nil
	}

	queues := make([]*Queue, numRxQueues)
	for i := 0; i < numRxQueues; i++ {
		q, err := newQueue(timeout)
		if err != nil {
			return nil, err
		}
		if err := dev.SetIRQEventfd(vfio.IRQMSIx, uint32(i), q.EventFD); err != nil {
			return nil, err
		}
		queues[i] = q
	}
	return queues, nil
}

func newQueue(timeout time.Duration) (*Queue, error) {
	fd, err := vfio.NewEventfd()
	if err != nil {
		return nil, err
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("irq: epoll_create1: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		unix.Close(epfd)
		unix.Close(fd)
		return nil, fmt.Errorf("irq: epoll_ctl: %w", err)
	}
	return &Queue{EventFD: fd, EpollFD: epfd, Timeout: timeout}, nil
}

// Wait blocks until the queue's eventfd fires or the timeout elapses,
// draining the eventfd's counter on a successful wake so the next wait
// doesn't immediately return.
func (q *Queue) Wait() error {
	var events [1]unix.EpollEvent
	timeoutMs := int(q.Timeout / time.Millisecond)
	for {
		n, err := unix.EpollWait(q.EpollFD, events[:], timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("irq: epoll_wait: %w", err)
		}
		if n == 0 {
			return nil // timeout, caller should poll anyway
		}
		break
	}
	var buf [8]byte
	unix.Read(q.EventFD, buf[:])
	return nil
}

func (q *Queue) Close() error {
	unix.Close(q.EpollFD)
	return unix.Close(q.EventFD)
}
