// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"visualiser/internal/config"
	"visualiser/pkg/build"
)

// Commands that run instead of the visualiser.
const (
	CommandList    = "list"
	CommandDevices = "devices"
)

// Invocation is the parsed command line.
type Invocation struct {
	Command string         // Empty to run the visualiser.
	Config  *config.Config // Loaded configuration with flag overrides applied.
}

// flagValues holds raw flag values; only flags the user set are applied.
type flagValues struct {
	configPath      string
	sink            string
	deviceID        int
	framesPerBuffer int
	lowLatency      bool
	loop            bool
	sampleRate      float64
	fps             int
	splitPolicy     string
	seed            int64
	window          bool
	wsAddress       string
	noWebSocket     bool
	udp             bool
	udpTarget       string
	logEvery        int
	record          bool
	outputDir       string
	verbose         bool
}

// ParseArgs parses os.Args.
func ParseArgs() (*Invocation, error) {
	return parse(os.Args[1:])
}

func parse(args []string) (*Invocation, error) {
	buildInfo := build.GetBuildFlags()
	inv := &Invocation{}
	var fv flagValues

	load := func(cmd *cobra.Command) error {
		cfg, err := config.LoadConfig(fv.configPath)
		if err != nil {
			return err
		}
		if err := fv.apply(cmd, cfg); err != nil {
			return err
		}
		inv.Config = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [file]",
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := load(cmd); err != nil {
				return err
			}
			if len(args) == 1 {
				inv.Config.Audio.File = args[0]
			}
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   CommandList,
		Short: "List available audio output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandList
			return load(cmd)
		},
	}
	devicesCmd := &cobra.Command{
		Use:   CommandDevices,
		Short: "Browse audio output devices interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandDevices
			return load(cmd)
		},
	}
	rootCmd.AddCommand(listCmd, devicesCmd)

	pf := rootCmd.PersistentFlags()

	// Configuration
	pf.StringVarP(&fv.configPath, "config", "c", "",
		"Path to a YAML configuration file (default ./"+config.DefaultConfigFile+" when present)")

	// Audio output
	pf.StringVar(&fv.sink, "sink", config.DefaultSink,
		"Audio output: portaudio, oto or null")
	pf.IntVarP(&fv.deviceID, "device", "d", config.DefaultDeviceID,
		"Output device ID for the portaudio sink. Use 'list' command to see available devices.")
	pf.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&fv.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time playback")
	pf.BoolVar(&fv.loop, "loop", config.DefaultLoop,
		"Restart the track when it ends")
	pf.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate of the synthetic track played when no file is given, in Hertz (Hz)")

	// Analysis and geometry
	pf.StringVar(&fv.splitPolicy, "split-policy", config.DefaultSplitPolicy,
		"Band split between bass and treble: legacy or clean")
	pf.Int64Var(&fv.seed, "seed", config.DefaultNoiseSeed,
		"Noise seed, 0 picks one at startup")

	// Rendering and transport
	pf.IntVar(&fv.fps, "fps", config.DefaultFPS,
		"Frames per second")
	pf.BoolVarP(&fv.window, "window", "w", false,
		"Open a native OpenGL window (binaries built with -tags gl)")
	pf.StringVar(&fv.wsAddress, "ws-addr", config.DefaultWebSocketAddress,
		"Listen address of the browser viewer")
	pf.BoolVar(&fv.noWebSocket, "no-ws", false,
		"Do not serve the browser viewer")
	pf.BoolVar(&fv.udp, "udp", config.DefaultUDPEnabled,
		"Send vertex packets over UDP")
	pf.StringVar(&fv.udpTarget, "udp-target", config.DefaultUDPTargetAddress,
		"Destination of UDP vertex packets")
	pf.IntVar(&fv.logEvery, "log-every", config.DefaultLogEvery,
		"Log amplitudes every N frames, 0 disables")

	// Recording Configuration
	pf.BoolVarP(&fv.record, "record", "r", config.DefaultRecordingEnabled,
		"Record the played audio to WAV")
	pf.StringVarP(&fv.outputDir, "output-dir", "o", config.DefaultRecordingDir,
		"Directory for recordings")

	// Debug Configuration
	pf.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return inv, nil
}

// apply copies every flag the user set onto cfg, then validates it again.
func (fv *flagValues) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("sink") {
		cfg.Audio.Sink = fv.sink
	}
	if changed("device") {
		cfg.Audio.OutputDevice = fv.deviceID
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = fv.framesPerBuffer
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = fv.lowLatency
	}
	if changed("loop") {
		cfg.Audio.Loop = fv.loop
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = fv.sampleRate
	}
	if changed("split-policy") {
		cfg.Analysis.SplitPolicy = fv.splitPolicy
	}
	if changed("seed") {
		cfg.Deform.Seed = fv.seed
	}
	if changed("fps") {
		cfg.Render.FPS = fv.fps
	}
	if changed("window") {
		cfg.Render.Window = fv.window
	}
	if changed("ws-addr") {
		cfg.Transport.WebSocketAddress = fv.wsAddress
	}
	if changed("no-ws") {
		cfg.Transport.WebSocketEnabled = !fv.noWebSocket
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = fv.udp
	}
	if changed("udp-target") {
		cfg.Transport.UDPTargetAddress = fv.udpTarget
	}
	if changed("log-every") {
		cfg.Render.LogEvery = fv.logEvery
	}
	if changed("record") {
		cfg.Recording.Enabled = fv.record
	}
	if changed("output-dir") {
		cfg.Recording.OutputDir = fv.outputDir
	}
	if changed("verbose") && fv.verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}
