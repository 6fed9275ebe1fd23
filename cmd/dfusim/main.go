package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/usbarmory/dfucore/bootloader"
)

// tickClock is a bootloader.Clock advanced by the simulator's own process
// loop rather than by an interrupt-driven hardware timer.
type tickClock struct {
	ms uint32
}

func (c *tickClock) Now() uint32 { return c.ms }

func (c *tickClock) advance(d time.Duration) { c.ms += uint32(d.Milliseconds()) }

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file (optional; defaults apply if omitted)")
	flag.Parse()

	var cfg *Config
	var err error
	if *configPath != "" {
		cfg, err = ParseFile(*configPath)
	} else {
		cfg = &Config{}
		applyDefaults(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "dfusim: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.Int("tick_interval_ms", cfg.TickIntervalMs),
		slog.Duration("flash_write_latency", cfg.Flash.WriteLatency),
		slog.Bool("debug_enabled", cfg.Debug.Enabled),
	)

	clock := &tickClock{}
	flash := newFakeFlash(cfg.Flash.WriteLatency, cfg.Flash.FailAfterWrites)
	transport := newFakeTransport(logger)

	b := bootloader.New(clock, flash, flash, transport)

	if cfg.Debug.Enabled {
		startDebugServer(cfg.Debug.Address, b, logger)
	}

	ctx, stop := notifyShutdown(logger)
	defer stop()

	runDemoSession(b, transport, logger)

	tick := time.Duration(cfg.TickIntervalMs) * time.Millisecond
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("dfusim exiting", slog.String("final_stats", b.StatsSnapshot().String()))
			return
		case <-ticker.C:
			clock.advance(tick)
			b.ProcessCycle()
		}
	}
}

// runDemoSession feeds a scripted happy-path transfer so the simulator has
// something to observe immediately on startup: a single-packet application
// image announced, transferred, and handed to END_SESSION.
func runDemoSession(b *bootloader.Bootloader, t *fakeTransport, logger *slog.Logger) {
	// The whole frame (two header bytes plus the image) must fit one ring slot.
	image := make([]byte, bootloader.MaxPacketSize-2)
	for i := range image {
		image[i] = byte(i)
	}

	crc := bootloader.CRC16(image)

	payload := make([]byte, 6)
	payload[0], payload[1], payload[2], payload[3] = byte(len(image)>>24), byte(len(image)>>16), byte(len(image)>>8), byte(len(image))
	payload[4], payload[5] = byte(crc>>8), byte(crc)

	t.send(b, bootloader.PacketStartSession, payload)
	t.send(b, bootloader.PacketData, image)
	t.send(b, bootloader.PacketEndSession, nil)

	logger.Info("demo session enqueued", slog.Int("image_bytes", len(image)))
}
