// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"visualiser/cmd"
	"visualiser/internal/audio"
	"visualiser/internal/config"
	"visualiser/internal/log"
	"visualiser/internal/render/glwindow"
	"visualiser/internal/scene"
	"visualiser/internal/transport"
	"visualiser/internal/transport/udp"
	"visualiser/internal/tui"
	"visualiser/internal/visualiser"
	"visualiser/pkg/build"
)

// The native window must be driven from the main OS thread.
func init() {
	runtime.LockOSThread()
}

// main is the entry point for the visualiser.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start renderers (browser viewer, UDP, logging, native window)
//   - Load the first track and start the tick loop
//   - Listen for keyboard control
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Retire the session, finalising any recording
//   - Close renderers and transports
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds run without ldflags.
	if err := build.Initialize(); err != nil {
		log.Debugf("Build: %v, using defaults", err)
	}

	inv, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if inv.Config == nil {
		return // --help or --version
	}
	cfg := inv.Config
	configureLogging(cfg)
	defer log.Sync()

	if inv.Command != "" {
		if err := executeCommand(inv.Command); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderers := scene.NewMultiRenderer()
	v := visualiser.New(cfg, renderers)

	closers, window, err := startRenderers(cfg, v, renderers, stop)
	if err == nil {
		err = loadInitial(cfg, v)
	}
	if err != nil {
		shutdown(v, closers)
		log.Fatalf("%v", err)
	}

	visualiser.ListenKeys(ctx, v, stop)
	fmt.Printf("%s: space play/pause, q quit.\n", build.GetBuildFlags().Name)

	if window != nil {
		// Blocks until the window is closed or a signal arrives.
		if err := window.Run(ctx); err != nil {
			log.Errorf("Window: %v", err)
		}
		stop()
	}

	// Block until termination signal is received
	<-ctx.Done()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	shutdown(v, closers)
}

// configureLogging applies the configured level; debug mode forces debug.
func configureLogging(cfg *config.Config) {
	level, _ := log.ParseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = log.LevelDebug
	}
	log.SetLevel(level)
}

// startRenderers registers the configured renderers with rs. The returned
// closers own resources the renderers do not close themselves.
func startRenderers(cfg *config.Config, v *visualiser.Visualiser, rs *scene.MultiRenderer, quit func()) ([]func() error, *glwindow.Window, error) {
	var closers []func() error

	if cfg.Transport.WebSocketEnabled {
		wst, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, v)
		if err != nil {
			return closers, nil, err
		}
		rs.Add(transport.NewTransportRenderer(wst))
		fmt.Printf("Viewer: http://%s/\n", wst.Addr())
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return closers, nil, err
		}
		closers = append(closers, sender.Close)
		pub, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender)
		if err != nil {
			return closers, nil, err
		}
		pub.Start()
		rs.Add(pub)
	}

	if cfg.Render.LogEvery > 0 {
		rs.Add(transport.NewLoggingRenderer(cfg.Render.LogEvery))
	}

	var window *glwindow.Window
	if cfg.Render.Window {
		if !glwindow.Available {
			log.Warnf("Window: %v", glwindow.ErrUnavailable)
		} else {
			window = glwindow.New(glwindow.Options{
				Width:   cfg.Render.Width,
				Height:  cfg.Render.Height,
				Title:   build.GetBuildFlags().Name,
				Toggler: v,
				OnClose: quit,
			})
			rs.Add(window)
		}
	}

	if rs.Len() == 0 {
		log.Warnf("No renderer enabled; frames are computed but not shown")
	}
	return closers, window, nil
}

// loadInitial plays the configured file, or the synthetic track when none
// is given.
func loadInitial(cfg *config.Config, v *visualiser.Visualiser) error {
	if cfg.Audio.File != "" {
		return v.Load(cfg.Audio.File)
	}
	track := audio.Synthetic(int(cfg.Audio.SampleRate), cfg.Audio.SyntheticSeconds)
	log.Infof("No file given, playing %s", track)
	return v.LoadTrack(track)
}

func shutdown(v *visualiser.Visualiser, closers []func() error) {
	if err := v.Close(); err != nil {
		log.Errorf("Error closing visualiser: %v", err)
	}
	for _, c := range closers {
		if err := c(); err != nil {
			log.Errorf("Error during shutdown: %v", err)
		}
	}
}

// executeCommand handles one-off commands that don't start the visualiser,
// such as listing output devices.
func executeCommand(command string) error {
	switch command {
	case cmd.CommandList:
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		return audio.ListDevices(os.Stdout)

	case cmd.CommandDevices:
		sel, err := tui.StartDeviceListUI()
		if err != nil {
			return err
		}
		if sel != nil {
			fmt.Printf("%s %s\n", build.GetBuildFlags().Name, sel.Args())
		}
		return nil

	default:
		return errors.New("unknown command " + command)
	}
}
