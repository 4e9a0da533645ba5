// ABOUTME: Entry point for the LiveVoice client
// ABOUTME: Parses CLI flags, wires the session to the TUI and serves metrics
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/livevoice/livevoice-go/internal/config"
	"github.com/livevoice/livevoice-go/internal/discovery"
	"github.com/livevoice/livevoice-go/internal/metrics"
	"github.com/livevoice/livevoice-go/internal/ui"
	"github.com/livevoice/livevoice-go/internal/version"
	"github.com/livevoice/livevoice-go/pkg/livevoice"
	"github.com/livevoice/livevoice-go/pkg/visualize"
)

const fallbackServer = "localhost:3000"

var (
	configPath  = flag.String("config", "", "YAML config file")
	serverAddr  = flag.String("server", "", "Endpoint address host:port (skip mDNS)")
	name        = flag.String("name", "", "Client friendly name (default: hostname)")
	logFile     = flag.String("log-file", "", "Log file path (default: livevoice.log)")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, record immediately and stream logs")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	fps         = flag.Int("fps", 0, "Waveform refresh rate (default: 60)")
	frameSize   = flag.Int("frame-size", 0, "Capture frame size in samples (default: 256)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		io.WriteString(os.Stdout, version.String()+"\n")
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	useTUI := !cfg.NoTUI
	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s: %s", version.String(), cfg.Name)

	address := resolveServer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if useTUI {
		err = runTUI(ctx, cfg, address)
	} else {
		err = runHeadless(ctx, cfg, address)
	}
	if err != nil {
		log.Fatalf("Session error: %v", err)
	}
	log.Printf("Client stopped")
}

// loadConfig reads the optional config file, then applies flags that were
// set explicitly on the command line
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "server":
			cfg.Server = *serverAddr
		case "name":
			cfg.Name = *name
		case "log-file":
			cfg.LogFile = *logFile
		case "no-tui":
			cfg.NoTUI = *noTUI
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "fps":
			cfg.FPS = *fps
		case "frame-size":
			cfg.FrameSize = *frameSize
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// resolveServer returns the configured endpoint or browses mDNS for one
func resolveServer(cfg config.Config) string {
	if cfg.Server != "" {
		return cfg.Server
	}

	log.Printf("Starting endpoint discovery...")
	disc := discovery.NewManager(discovery.Config{ServiceName: cfg.Name})
	defer disc.Stop()

	info, err := disc.Find(cfg.DiscoveryTimeout)
	if err != nil {
		log.Printf("Discovery failed (%v), using %s", err, fallbackServer)
		return fallbackServer
	}
	log.Printf("Discovered endpoint %s at %s", info.Name, info.Addr())
	return info.Addr()
}

func sessionConfig(cfg config.Config, address string) livevoice.Config {
	return livevoice.Config{
		ServerAddr:   address,
		InputRate:    cfg.InputRate,
		OutputRate:   cfg.OutputRate,
		FrameSize:    cfg.FrameSize,
		AnalysisSize: cfg.AnalysisSize,
		FPS:          cfg.FPS,
		OnError: func(err error) {
			log.Printf("Session error: %v", err)
		},
	}
}

// serveMetrics starts the metrics endpoint when an address is configured.
// The returned func shuts it down.
func serveMetrics(addr string, m *metrics.Metrics) func() {
	if addr == "" {
		return func() {}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("Serving metrics on %s", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// canvasSize tracks the waveform cell size requested by the TUI
type canvasSize struct {
	mu         sync.Mutex
	cols, rows int
}

func (c *canvasSize) set(cols, rows int) {
	c.mu.Lock()
	c.cols, c.rows = cols, rows
	c.mu.Unlock()
}

func (c *canvasSize) newSurface(pixelRatio float64) visualize.Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return visualize.NewCanvas(c.cols, c.rows)
}

func runTUI(ctx context.Context, cfg config.Config, address string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	control := ui.NewControl()
	program := ui.Run(control, address)
	size := &canvasSize{cols: 60, rows: 10}

	var m *metrics.Metrics
	var lastFrame time.Time

	sc := sessionConfig(cfg, address)
	sc.NewSurface = size.newSurface
	sc.OnFrame = func(surface visualize.Surface) {
		now := time.Now()
		if !lastFrame.IsZero() && m != nil {
			m.RefreshLag.Observe(now.Sub(lastFrame).Seconds())
		}
		lastFrame = now

		if canvas, ok := surface.(*visualize.Canvas); ok {
			program.Send(ui.FrameMsg(canvas.String()))
		}
	}
	sc.OnStateChange = func(state livevoice.SessionState) {
		program.Send(ui.StateMsg(state))
	}

	session, err := livevoice.New(sc)
	if err != nil {
		return err
	}
	m = metrics.NewMetrics(session)
	shutdownMetrics := serveMetrics(cfg.MetricsAddr, m)
	defer shutdownMetrics()

	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx) }()

	go statsUpdateLoop(ctx, session, func(stats livevoice.Stats) {
		program.Send(ui.StatsMsg(stats))
	})
	go handleControl(ctx, cancel, session, control, size)

	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		log.Printf("TUI error: %v", err)
	}
	cancel()

	return ignoreCanceled(<-runErr)
}

func runHeadless(ctx context.Context, cfg config.Config, address string) error {
	sc := sessionConfig(cfg, address)
	sc.OnStateChange = func(state livevoice.SessionState) {
		if state.Error != "" {
			log.Printf("Status: %s (error: %s)", state.Status, state.Error)
			return
		}
		log.Printf("Status: %s", state.Status)
	}

	session, err := livevoice.New(sc)
	if err != nil {
		return err
	}
	m := metrics.NewMetrics(session)
	shutdownMetrics := serveMetrics(cfg.MetricsAddr, m)
	defer shutdownMetrics()

	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(ctx) }()

	if err := session.StartRecording(ctx); err != nil {
		log.Printf("Failed to start recording: %v", err)
	}

	go statsUpdateLoop(ctx, session, func(stats livevoice.Stats) {
		log.Printf("Stats: captured=%d sent=%d dropped=%d received=%d active=%d",
			stats.FramesCaptured, stats.FramesSent, stats.FramesDropped,
			stats.ChunksReceived, stats.ActiveSources)
	})

	err = <-runErr
	session.StopRecording()
	return ignoreCanceled(err)
}

// handleControl maps TUI input onto the session
func handleControl(ctx context.Context, cancel context.CancelFunc, session *livevoice.Session, control *ui.Control, size *canvasSize) {
	for {
		select {
		case cmd := <-control.Commands:
			log.Printf("Command: %v", cmd)
			switch cmd {
			case ui.CommandStart:
				if err := session.StartRecording(ctx); err != nil {
					log.Printf("Failed to start recording: %v", err)
				}
			case ui.CommandStop:
				session.StopRecording()
			case ui.CommandReset:
				if err := session.Reset(); err != nil {
					log.Printf("Reset rejected: %v", err)
				}
			}
		case vol := <-control.Volume:
			session.Mixer().SetVolume(vol.Volume)
			session.Mixer().SetMuted(vol.Muted)
		case rs := <-control.Resize:
			size.set(rs.Cols, rs.Rows)
			session.Resize(size.newSurface)
		case <-control.Quit:
			log.Printf("Received quit signal from TUI")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// statsUpdateLoop periodically publishes session statistics
func statsUpdateLoop(ctx context.Context, session *livevoice.Session, publish func(livevoice.Stats)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			publish(session.Stats())
		case <-ctx.Done():
			return
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
