// Command rapid-headless runs the lap timing engine with no UI: it wires
// a GNSS position source, track detection, lap/sector timing, session
// accumulation, and the session/track store together over a shared event
// bus, then blocks until interrupted.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rapid-timing/rapid/internal/activesession"
	"github.com/rapid-timing/rapid/internal/config"
	"github.com/rapid-timing/rapid/internal/eventbus"
	"github.com/rapid-timing/rapid/internal/gnss"
	"github.com/rapid-timing/rapid/internal/laptimer"
	"github.com/rapid-timing/rapid/internal/store"
	"github.com/rapid-timing/rapid/internal/store/index"
	"github.com/rapid-timing/rapid/internal/trackdetect"
)

var (
	configFile   = flag.String("config", "", "path to JSON engine configuration file (defaults built in if omitted)")
	storeRoot    = flag.String("store-root", "", "filesystem root for session and track storage (overrides config)")
	indexPath    = flag.String("index-path", "", "path to the sqlite session/track catalog (overrides config)")
	noIndex      = flag.Bool("no-index", false, "disable the sqlite session/track catalog")
	gnssSource   = flag.String("gnss-source", "", "gnss source: fake, serial, pcap, or gpsd (overrides config)")
	serialPort   = flag.String("serial-port", "/dev/ttyUSB0", "serial device path, for -gnss-source=serial")
	serialBaud   = flag.Int("serial-baud", gnss.DefaultBaudRate, "serial baud rate, for -gnss-source=serial")
	pcapFile     = flag.String("pcap-file", "", "pcap file to replay, for -gnss-source=pcap")
	gpsdAddress  = flag.String("gpsd-address", "localhost:2947", "gpsd daemon address, for -gnss-source=gpsd")
	fakeTrackCSV = flag.String("gps-source-file", "", "longitude,latitude polyline csv to replay, for -gnss-source=fake")
	fakeVelocity = flag.Float64("gps-velocity", 30.0, "replay velocity in meters per second, for -gnss-source=fake")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("rapid-headless: %v", err)
	}
	if *storeRoot != "" {
		cfg.StoreRoot = storeRoot
	}
	if *indexPath != "" {
		cfg.IndexPath = indexPath
	}
	if *gnssSource != "" {
		cfg.GNSSSource = gnssSource
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("rapid-headless: invalid configuration: %v", err)
	}
	cfg = cfg.WithDefaults()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := eventbus.New()

	sessionStore, err := store.New(cfg.GetStoreRoot())
	if err != nil {
		log.Fatalf("rapid-headless: open store at %s: %v", cfg.GetStoreRoot(), err)
	}

	if !*noIndex {
		idx, err := index.Open(cfg.GetIndexPath())
		if err != nil {
			log.Fatalf("rapid-headless: open index at %s: %v", cfg.GetIndexPath(), err)
		}
		defer idx.Close()
		sessionStore.SetIndexer(idx)
	}

	runSource, err := buildGNSSSource(cfg)
	if err != nil {
		log.Fatalf("rapid-headless: %v", err)
	}

	var wg sync.WaitGroup

	run := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("rapid-headless: %s started", name)
			fn()
			log.Printf("rapid-headless: %s stopped", name)
		}()
	}

	run("laptimer", func() { laptimer.New(bus.Context()).Run(ctx) })
	run("trackdetect", func() { trackdetect.NewWithRadius(bus.Context(), cfg.GetDetectionRadiusMeters()).Run(ctx) })
	run("activesession", func() { activesession.New(bus.Context()).Run(ctx) })
	run("store", func() { sessionStore.Run(ctx, bus.Context()) })
	run("gnss", func() { runSource(ctx, bus.Context()) })

	<-ctx.Done()
	log.Print("rapid-headless: shutting down")
	bus.Publish(eventbus.Quit())
	wg.Wait()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.EmptyConfig(), nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// gnssRunner adapts every source's Run method, whatever its exact
// signature, to a single shape the caller can launch uniformly.
type gnssRunner func(ctx context.Context, mctx *eventbus.ModuleCtx)

// buildGNSSSource constructs the configured GNSS source and a uniform
// runner for it, closing over whatever state the source itself needs
// for its lifetime (an open port, an open file).
func buildGNSSSource(cfg *config.Config) (gnssRunner, error) {
	switch cfg.GetGNSSSource() {
	case config.GNSSSourceFake:
		if *fakeTrackCSV == "" {
			return nil, fmt.Errorf("-gps-source-file is required for -gnss-source=fake")
		}
		points, err := gnss.LoadPolylineCSV(*fakeTrackCSV)
		if err != nil {
			return nil, err
		}
		src, err := gnss.NewConstantSource(points, *fakeVelocity)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, mctx *eventbus.ModuleCtx) { src.Run(ctx, mctx) }, nil

	case config.GNSSSourceSerial:
		port, err := gnss.OpenSerialPort(*serialPort, *serialBaud)
		if err != nil {
			return nil, fmt.Errorf("open serial port %s: %w", *serialPort, err)
		}
		src := gnss.NewSerialSource(port)
		return func(ctx context.Context, mctx *eventbus.ModuleCtx) {
			go func() {
				<-ctx.Done()
				port.Close()
			}()
			src.Run(mctx)
		}, nil

	case config.GNSSSourcePCAP:
		if *pcapFile == "" {
			return nil, fmt.Errorf("-pcap-file is required for -gnss-source=pcap")
		}
		f, err := os.Open(*pcapFile)
		if err != nil {
			return nil, fmt.Errorf("open pcap file %s: %w", *pcapFile, err)
		}
		src, err := gnss.NewPCAPSource(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, err
		}
		return func(ctx context.Context, mctx *eventbus.ModuleCtx) {
			defer f.Close()
			if err := src.Run(ctx, mctx); err != nil && ctx.Err() == nil {
				log.Printf("rapid-headless: pcap replay ended: %v", err)
			}
		}, nil

	case config.GNSSSourceGPSD:
		src := gnss.NewGPSDSource(*gpsdAddress)
		return func(ctx context.Context, mctx *eventbus.ModuleCtx) {
			if err := src.Run(ctx, mctx); err != nil && ctx.Err() == nil {
				log.Printf("rapid-headless: gpsd connection ended: %v", err)
			}
		}, nil

	default:
		return nil, fmt.Errorf("unknown gnss source %q", cfg.GetGNSSSource())
	}
}
