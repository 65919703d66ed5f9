// Command loopsend opens one ixgbe device over VFIO and transmits a
// template frame in a tight loop on a single queue, reporting throughput
// once a second.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/chenxun233/vfionic/engine"
	"github.com/chenxun233/vfionic/ixgbe"
	"github.com/chenxun233/vfionic/stats"
)

// Config is the YAML-loadable form of this command's settings; flags
// passed on the command line override whatever the file sets, the same
// precedence the teacher's benchmark command uses.
type Config struct {
	PCIAddr string `yaml:"pciAddr"`
	Queue   int    `yaml:"queue"`
	PPS     uint64 `yaml:"pps"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

const (
	pktBufSize = 2048
	pktSize    = 60
	numDesc    = 2048
)

// packetTemplate is the canonical test frame: broadcast-ish dest MAC,
// IPv4/UDP, 3-byte "ixy" payload, with a 4-byte sequence number stamped at
// seqOffset on every send.
var packetTemplate = func() []byte {
	p := make([]byte, pktSize)
	copy(p[0:6], []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})   // dst mac
	copy(p[6:12], []byte{0x10, 0x10, 0x10, 0x10, 0x10, 0x10})  // src mac
	p[12], p[13] = 0x08, 0x00                                  // ethertype IPv4
	p[14] = 0x45                                                // version/ihl
	p[23] = 17                                                  // proto udp
	copy(p[26:30], []byte{10, 0, 0, 1}) // src ip
	copy(p[30:34], []byte{10, 0, 0, 2}) // dst ip
	p[34], p[35] = 0, 42                // src port 42
	p[36], p[37] = 5, 57                // dst port 1337
	copy(p[42:45], []byte("ixy"))
	return p
}()

const seqOffset = 45

func main() {
	configPath := flag.String("c", "", "optional YAML config file")
	pciAddr := flag.String("d", "", "PCI address of the device (e.g. 0000:04:00.0)")
	queue := flag.Int("q", -1, "TX queue index")
	pps := flag.Int64("r", -1, "rate limit in packets/sec, 0 = unlimited")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	fatalIf(err, "loading config")
	if *pciAddr != "" {
		cfg.PCIAddr = *pciAddr
	}
	if *queue >= 0 {
		cfg.Queue = *queue
	}
	if *pps >= 0 {
		cfg.PPS = uint64(*pps)
	}

	if cfg.PCIAddr == "" {
		fmt.Fprintln(os.Stderr, "loopsend: -d <pci address> (or pciAddr in config) is required")
		os.Exit(1)
	}

	dev, err := ixgbe.NewDevice(ixgbe.Config{
		PCIAddr:     cfg.PCIAddr,
		MaxBARIndex: 0,
		NumRxQueues: 1,
		NumTxQueues: 1,
		NumDesc:     numDesc,
		NumRxBufs:   numDesc,
		NumTxBufs:   numDesc,
		BufSize:     pktBufSize,
		Promiscuous: true,
	})
	fatalIf(err, "opening device %s", cfg.PCIAddr)
	defer dev.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	var last stats.Counters
	lastAt := time.Now()

	err = engine.RunLoopSend(ctx, engine.LoopSendConfig{
		Dev:    dev,
		Queue:  cfg.Queue,
		Packet: packetTemplate,
		SeqOff: seqOffset,
		PPS:    cfg.PPS,
		OnStats: func(cur stats.Counters) {
			now := time.Now()
			stats.Print(os.Stdout, "loopsend", last, cur, now.Sub(lastAt))
			last, lastAt = cur, now
		},
	})
	fatalIf(err, "running send loop")

	printer := message.NewPrinter(language.English)
	printer.Printf("loopsend: sent %d packets total\n", last.TxPackets)
}

func fatalIf(err error, msgf string, args ...any) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "loopsend: "+msgf+": %v\n", append(args, err)...)
		os.Exit(1)
	}
}
