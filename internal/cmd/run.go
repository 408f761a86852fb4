package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/hyperxmason/rlm2cedit/busclient"
	"github.com/hyperxmason/rlm2cedit/device/xbox360"
	"github.com/hyperxmason/rlm2cedit/internal/alert"
	"github.com/hyperxmason/rlm2cedit/internal/capture"
	"github.com/hyperxmason/rlm2cedit/internal/config"
	"github.com/hyperxmason/rlm2cedit/internal/log"
	"github.com/hyperxmason/rlm2cedit/internal/remap"
)

// Run is the main command: capture input, translate, stream reports to the
// virtual controller bus.
type Run struct {
	Profile string `arg:"" help:"Path to the remapping profile (.yaml/.toml/.json)" type:"existingfile"`

	Server   string `help:"Virtual controller bus server address" default:"localhost:3242" env:"RLM2C_SERVER"`
	Password string `help:"Bus server password, if the server requires one" env:"RLM2C_PASSWORD"`
	Bus      uint32 `help:"Bus number to use; created if it does not exist" default:"1" env:"RLM2C_BUS"`

	Device []string `help:"Input device nodes to capture (e.g. /dev/input/event3)" env:"RLM2C_DEVICE"`
	Grab   bool     `help:"Grab input devices exclusively while running" env:"RLM2C_GRAB"`
}

// Run is called by kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, elog log.EventLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile, err := config.Load(r.Profile)
	if err != nil {
		return err
	}
	cfg, err := profile.Compile()
	if err != nil {
		return fmt.Errorf("invalid profile %s: %w", r.Profile, err)
	}

	logger.Info("profile loaded",
		"path", r.Profile,
		"binds", len(cfg.Binds),
		"sensitivity", cfg.Sensitivity,
		"sample_window", cfg.SampleWindow,
		"dodge_lock_duration", cfg.DodgeLockDuration)

	var alerter alert.Alerter = alert.Noop{}
	if profile.OversteerAlert.Enabled {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			alerter = alert.NewBell(os.Stdout)
		} else {
			logger.Warn("oversteer alert enabled but stdout is not a terminal; alert disabled")
		}
	}

	source := capture.NewEvdev(r.Device, r.Grab, logger)
	if err := source.Start(); err != nil {
		return fmt.Errorf("start input capture: %w", err)
	}
	defer source.Close()

	stream, cleanup, err := r.connectPad(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// Merge captured events with reset requests (SIGHUP) into the engine's
	// queue.
	events := make(chan capture.Event, 1024)
	go forwardEvents(ctx, source.Events(), events)

	handler := remap.New(cfg, events, &padSink{stream: stream}, alerter, elog, logger)
	if err := handler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}

// connectPad ensures the bus exists, creates the virtual pad and opens its
// input stream. The returned cleanup removes the device again.
func (r *Run) connectPad(ctx context.Context, logger *slog.Logger) (*busclient.DeviceStream, func(), error) {
	cfg := busclient.Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Password:     r.Password,
	}
	api := busclient.NewWithConfig(r.Server, &cfg)

	buses, err := api.BusListCtx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to bus server %s: %w", r.Server, err)
	}

	busID := r.Bus
	exists := false
	for _, b := range buses.Buses {
		if b == busID {
			exists = true
			break
		}
	}
	createdBus := false
	if !exists {
		if _, err := api.BusCreateCtx(ctx, busID); err != nil {
			return nil, nil, fmt.Errorf("create bus %d: %w", busID, err)
		}
		createdBus = true
	}

	stream, err := api.AddDeviceAndConnect(ctx, busID, "xbox360")
	if err != nil {
		if createdBus {
			_, _ = api.BusRemoveCtx(ctx, busID)
		}
		return nil, nil, fmt.Errorf("create virtual pad: %w", err)
	}

	logger.Info("virtual pad connected", "server", r.Server, "bus", stream.BusID, "device", stream.DevID)

	cleanup := func() {
		_ = stream.Close()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := api.DeviceRemoveCtx(cleanupCtx, stream.BusID, stream.DevID); err != nil {
			logger.Warn("failed to remove virtual pad", "error", err)
		}
		if createdBus {
			if _, err := api.BusRemoveCtx(cleanupCtx, busID); err != nil {
				logger.Warn("failed to remove bus", "error", err)
			}
		}
	}
	return stream, cleanup, nil
}

// forwardEvents relays source events into the engine queue and injects a
// Reset event on SIGHUP.
func forwardEvents(ctx context.Context, src <-chan capture.Event, dst chan<- capture.Event) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			select {
			case dst <- capture.Event{Kind: capture.KindReset}:
			default:
			}
		case ev := <-src:
			select {
			case dst <- ev:
			default:
				// Engine is behind; dropping is preferable to blocking capture.
			}
		}
	}
}

// padSink pushes assembled reports onto the device stream.
type padSink struct {
	stream *busclient.DeviceStream
}

func (s *padSink) Update(state *xbox360.InputState) error {
	return s.stream.WriteBinary(state)
}
