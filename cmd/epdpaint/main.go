// Command epdpaint drives the ACeP 5.65" 7-color e-paper panel: it
// quantizes an input image (file, URL screenshot, or the embedded
// default) to the panel palette with Floyd–Steinberg dithering and
// pushes it through the panel's init/draw sequence over SPI.
//
// Usage:
//
//	epdpaint [flags] [clean]
//
// The single optional positional argument "clean" scrubs the panel
// with the blank pseudo-color instead of rendering an image.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"periph.io/x/conn/v3/physic"

	"epdpaint/internal/capture"
	"epdpaint/internal/config"
	"epdpaint/internal/dither"
	"epdpaint/internal/epd"
	"epdpaint/internal/imageio"
	appLog "epdpaint/internal/log"
	"epdpaint/internal/palette"
	"epdpaint/internal/source"
)

//go:embed assets/default.png
var defaultImage []byte

// flagConfig holds CLI flag values; config file values fill the gaps.
type flagConfig struct {
	configPath  string
	imagePath   string
	captureURL  string
	refreshCron string
	testPattern bool
	logLevel    string
}

func main() {
	flags := parseFlags()
	if flags.logLevel != "" {
		appLog.SetLevel(flags.logLevel)
	}

	appLog.Info("epdpaint starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.logLevel == "" {
		appLog.SetLevel(conf.LogLevel)
	}

	// CLI flags override config file values.
	if flags.imagePath != "" {
		conf.Image = flags.imagePath
	}
	if flags.captureURL != "" {
		conf.CaptureURL = flags.captureURL
	}
	if flags.refreshCron != "" {
		conf.RefreshCron = flags.refreshCron
	}

	clean := flag.Arg(0) == "clean"

	appLog.Info("effective config",
		"spi_port", conf.SPIPort,
		"spi_hz", conf.SPIHz,
		"busy_timeout_sec", conf.BusyTimeoutSec,
		"image", conf.Image,
		"capture_url", conf.CaptureURL,
		"refresh", conf.RefreshCron,
		"clean", clean,
		"test_pattern", flags.testPattern,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags, clean); err != nil {
		appLog.Error("draw failed", err)
		os.Exit(1)
	}

	appLog.Info("epdpaint exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/epdpaint/config.yaml", "Path to config file")
	flag.StringVar(&cfg.imagePath, "image", "", "600x448 BMP/PNG to render (overrides config)")
	flag.StringVar(&cfg.captureURL, "url", "", "URL to screenshot and render (overrides config)")
	flag.StringVar(&cfg.refreshCron, "cron", "", "Cron schedule for periodic redraw (overrides config)")
	flag.BoolVar(&cfg.testPattern, "test-pattern", false, "Draw the palette stripe test pattern")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	flag.Parse()

	return cfg
}

func run(ctx context.Context, conf *config.Config, flags flagConfig, clean bool) error {
	tr, err := epd.Open(conf.SPIPort, conf.PinDC, conf.PinBusy, conf.PinReset, &epd.SPIOpts{
		Speed:        physic.Frequency(conf.SPIHz) * physic.Hertz,
		PollInterval: time.Duration(conf.PollMs) * time.Millisecond,
		BusyTimeout:  time.Duration(conf.BusyTimeoutSec) * time.Second,
	})
	if err != nil {
		return err
	}
	defer tr.Close()

	appLog.Info("resetting panel")
	if err := tr.Reset(); err != nil {
		return err
	}
	if err := tr.WaitBusyHigh(ctx); err != nil {
		return err
	}

	panel := epd.New(tr)
	appLog.Info("initializing panel")
	if err := panel.Initialize(ctx); err != nil {
		return err
	}

	if err := drawOnce(ctx, panel, conf, flags, clean); err != nil {
		return err
	}

	// One-shot unless a refresh schedule is configured.
	if conf.RefreshCron == "" || clean || flags.testPattern {
		return nil
	}

	c := cron.New()
	job := &redrawJob{draw: func() {
		if err := drawOnce(ctx, panel, conf, flags, false); err != nil {
			appLog.Error("scheduled draw failed", err)
		}
	}}
	_, err = c.AddJob(conf.RefreshCron, job)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", conf.RefreshCron, err)
	}
	appLog.Info("entering scheduled redraw loop", "schedule", conf.RefreshCron)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// redrawJob serializes scheduled draws on the single panel handle. The
// panel is a strictly serial device and a full refresh cycle can
// outlast a tight schedule, so an activation that fires while the
// previous draw is still in flight is skipped rather than run
// concurrently against the shared bus.
type redrawJob struct {
	mu   sync.Mutex
	draw func()
}

func (j *redrawJob) Run() {
	if !j.mu.TryLock() {
		appLog.Warn("previous draw still in flight, skipping this activation")
		return
	}
	defer j.mu.Unlock()
	j.draw()
}

func drawOnce(ctx context.Context, panel *epd.Panel, conf *config.Config, flags flagConfig, clean bool) error {
	start := time.Now()

	var src source.Source
	switch {
	case clean:
		appLog.Info("clearing panel")
		src = source.Solid(palette.Clean)
	case flags.testPattern:
		appLog.Info("drawing test pattern")
		src = source.Stripes{}
	default:
		img, err := pickImage(ctx, conf)
		if err != nil {
			return err
		}
		appLog.Info("dithering image")
		src = dither.Dither(imageio.NewSampler(img), epd.Width, epd.Height)
	}

	appLog.Info("drawing frame")
	if err := panel.Draw(ctx, src); err != nil {
		return err
	}
	appLog.Info("draw complete", "elapsed", time.Since(start).String())
	return nil
}

func pickImage(ctx context.Context, conf *config.Config) (image.Image, error) {
	switch {
	case conf.CaptureURL != "":
		appLog.Info("capturing url", "url", conf.CaptureURL)
		return capture.Screenshot(ctx, capture.Options{URL: conf.CaptureURL})
	case conf.Image != "":
		appLog.Info("loading image", "path", conf.Image)
		return imageio.Load(conf.Image, epd.Width, epd.Height)
	default:
		appLog.Info("using embedded image")
		return imageio.Decode(bytes.NewReader(defaultImage), epd.Width, epd.Height)
	}
}
