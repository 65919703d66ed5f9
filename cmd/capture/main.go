// Command capture opens one ixgbe device over VFIO and writes every frame
// received on a single queue to a pcap trace file until interrupted or a
// requested packet count is reached.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/chenxun233/vfionic/engine"
	"github.com/chenxun233/vfionic/ixgbe"
	"github.com/chenxun233/vfionic/pcap"
)

const (
	pktBufSize = 2048
	numDesc    = 2048
	batchSize  = 64
)

func main() {
	pciAddr := flag.String("d", "", "PCI address of the device (e.g. 0000:05:00.0)")
	queue := flag.Int("q", 0, "RX queue index")
	out := flag.String("o", "", "output pcap file")
	count := flag.Int64("n", -1, "number of packets to capture, -1 = unbounded")
	flag.Parse()

	if *pciAddr == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "capture: -d <pci address> and -o <output file> are required")
		os.Exit(1)
	}

	f, err := os.Create(*out)
	fatalIf(err, "creating %s", *out)
	defer f.Close()

	writer, err := pcap.NewWriter(f)
	fatalIf(err, "writing pcap header")

	dev, err := ixgbe.NewDevice(ixgbe.Config{
		PCIAddr:     *pciAddr,
		MaxBARIndex: 0,
		NumRxQueues: 1,
		NumTxQueues: 1,
		NumDesc:     numDesc,
		NumRxBufs:   numDesc,
		NumTxBufs:   numDesc,
		BufSize:     pktBufSize,
		Promiscuous: true,
	})
	fatalIf(err, "opening device %s", *pciAddr)
	defer dev.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	err = engine.RunCapture(ctx, engine.CaptureConfig{
		Dev:       dev,
		Queue:     *queue,
		Writer:    writer,
		NumFrames: *count,
		BatchSize: batchSize,
	})
	fatalIf(err, "running capture loop")

	final := dev.ReadStats()
	fmt.Printf("capture: device counted %s received packets; trace written to %s\n", humanize.Comma(int64(final.RxPackets)), *out)
}

func fatalIf(err error, msgf string, args ...any) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "capture: "+msgf+": %v\n", append(args, err)...)
		os.Exit(1)
	}
}
