// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"visualiser/internal/analysis"
	"visualiser/internal/deform"
	"visualiser/internal/log"
	"visualiser/internal/modulate"
	"visualiser/pkg/bitint"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug      bool             `yaml:"debug"`      // Enable debug mode (verbose logging).
	LogLevel   string           `yaml:"log_level"`  // Logging level (e.g., "debug", "info", "warn", "error").
	Audio      AudioConfig      `yaml:"audio"`      // Audio source and playback settings.
	Analysis   AnalysisConfig   `yaml:"analysis"`   // Spectrum analyser and band split.
	Modulation ModulationConfig `yaml:"modulation"` // Band feature to amplitude mapping.
	Deform     DeformConfig     `yaml:"deform"`     // Geometry and deformation constants.
	Render     RenderConfig     `yaml:"render"`     // Frame rate and renderers.
	Transport  TransportConfig  `yaml:"transport"`  // WebSocket and UDP output.
	Recording  RecordingConfig  `yaml:"recording"`  // Recording of played audio.
}

// AudioConfig holds settings related to the audio source and output.
type AudioConfig struct {
	File             string  `yaml:"file"`              // Audio file to play (.wav or .mp3). Empty plays a synthetic track.
	Sink             string  `yaml:"sink"`              // Output backend: "portaudio", "oto" or "null".
	OutputDevice     int     `yaml:"output_device"`     // PortAudio device index for output (-1 for default).
	FramesPerBuffer  int     `yaml:"frames_per_buffer"` // Frames per output callback.
	LowLatency       bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	SampleRate       float64 `yaml:"sample_rate"`       // Sample rate of the synthetic track in Hz.
	SyntheticSeconds float64 `yaml:"synthetic_seconds"` // Length of the synthetic track.
	Loop             bool    `yaml:"loop"`              // Restart the track when it ends.
}

// AnalysisConfig mirrors the settings of a browser AnalyserNode.
type AnalysisConfig struct {
	FFTSize     int     `yaml:"fft_size"`     // Transform size, power of two. Frames are half as long.
	Smoothing   float64 `yaml:"smoothing"`    // Smoothing time constant in [0, 1).
	MinDecibels float64 `yaml:"min_decibels"` // Level mapped to byte 0.
	MaxDecibels float64 `yaml:"max_decibels"` // Level mapped to byte 255.
	Window      string  `yaml:"window"`       // Window function name (e.g., "blackman", "hann").
	SplitPolicy string  `yaml:"split_policy"` // "legacy" or "clean".
}

// ModulationConfig holds the band to amplitude mapping.
type ModulationConfig struct {
	Bass   BandConfig `yaml:"bass"`
	Treble BandConfig `yaml:"treble"`
}

// BandConfig maps value^Exponent from In onto Out.
type BandConfig struct {
	Exponent float64        `yaml:"exponent"`
	In       modulate.Range `yaml:"in"`
	Out      modulate.Range `yaml:"out"`
}

// DeformConfig holds the geometry and the deformation constants.
type DeformConfig struct {
	Seed          int64   `yaml:"seed"`          // Noise seed, 0 picks one at startup.
	SphereRadius  float64 `yaml:"sphere_radius"` // Rest radius of the sphere.
	SphereDetail  int     `yaml:"sphere_detail"` // Icosphere subdivision level.
	LinePoints    int     `yaml:"line_points"`   // Number of points on the line.
	deform.Params `yaml:",inline"`
}

// RenderConfig holds the tick rate and which renderers run.
type RenderConfig struct {
	FPS      int  `yaml:"fps"`       // Ticks per second.
	Window   bool `yaml:"window"`    // Open a native OpenGL window (binaries built with -tags gl).
	Width    int  `yaml:"width"`     // Window width in pixels.
	Height   int  `yaml:"height"`    // Window height in pixels.
	LogEvery int  `yaml:"log_every"` // Log amplitudes every N frames, 0 disables.
}

// TransportConfig holds settings related to sending frames over the network.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve the browser viewer and /ws.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address, e.g. ":8080".
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending vertex packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Minimum interval between UDP packets.
}

// RecordingConfig holds settings related to recording what is played.
type RecordingConfig struct {
	Enabled     bool   `yaml:"enabled"`              // Record played audio to file.
	OutputDir   string `yaml:"output_dir"`           // Directory to save recorded audio files.
	Format      string `yaml:"format"`               // File format for recordings (wav only).
	BitDepth    int    `yaml:"bit_depth"`            // Bit depth for recorded audio (16, 24 or 32).
	MaxDuration int    `yaml:"max_duration_seconds"` // Maximum duration of a recording in seconds (0 for unlimited).
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			Sink:             DefaultSink,
			OutputDevice:     DefaultDeviceID,
			FramesPerBuffer:  DefaultFramesPerBuffer,
			LowLatency:       DefaultLowLatency,
			SampleRate:       DefaultSampleRate,
			SyntheticSeconds: DefaultSyntheticSeconds,
			Loop:             DefaultLoop,
		},
		Analysis: AnalysisConfig{
			FFTSize:     DefaultFFTSize,
			Smoothing:   DefaultSmoothing,
			MinDecibels: DefaultMinDecibels,
			MaxDecibels: DefaultMaxDecibels,
			Window:      DefaultWindow,
			SplitPolicy: DefaultSplitPolicy,
		},
		Modulation: ModulationConfig{
			Bass: BandConfig{
				Exponent: DefaultBassExponent,
				In:       modulate.Range{Min: 0, Max: 1},
				Out:      modulate.Range{Min: 0, Max: DefaultBassOutMax},
			},
			Treble: BandConfig{
				Exponent: DefaultTrebleExponent,
				In:       modulate.Range{Min: 0, Max: 1},
				Out:      modulate.Range{Min: 0, Max: DefaultTrebleOutMax},
			},
		},
		Deform: DeformConfig{
			Seed:         DefaultNoiseSeed,
			SphereRadius: DefaultSphereRadius,
			SphereDetail: DefaultSphereDetail,
			LinePoints:   DefaultLinePoints,
			Params: deform.Params{
				RateFactor:  DefaultRateFactor,
				RateX:       DefaultRateX,
				RateY:       DefaultRateY,
				RateZ:       DefaultRateZ,
				FixedAmp:    DefaultFixedAmp,
				SphereBoost: DefaultSphereBoost,
			},
		},
		Render: RenderConfig{
			FPS:      DefaultFPS,
			Width:    DefaultWindowWidth,
			Height:   DefaultWindowHeight,
			LogEvery: DefaultLogEvery,
		},
		Transport: TransportConfig{
			WebSocketEnabled: DefaultWebSocketEnabled,
			WebSocketAddress: DefaultWebSocketAddress,
			UDPEnabled:       DefaultUDPEnabled,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
		Recording: RecordingConfig{
			Enabled:   DefaultRecordingEnabled,
			OutputDir: DefaultRecordingDir,
			Format:    DefaultRecordingFormat,
			BitDepth:  DefaultRecordingDepth,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches the working directory for DefaultConfigFile and falls back to built-in
// defaults when none is found. A .env file, when present, is loaded into the process
// environment first; ENV_* overrides are then applied and the result validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DefaultEnvFile, err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("Config: Loaded %s", path)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every section and reports the first problem found.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not a known level", c.LogLevel)
	}

	switch c.Audio.Sink {
	case SinkPortAudio, SinkOto, SinkNull:
	default:
		return fmt.Errorf("audio.sink %q must be one of %s, %s, %s", c.Audio.Sink, SinkPortAudio, SinkOto, SinkNull)
	}
	if c.Audio.OutputDevice < MinDeviceID {
		return fmt.Errorf("audio.output_device must be >= %d, got %d", MinDeviceID, c.Audio.OutputDevice)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in [%d, %d], got %v", MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be a power of 2 <= %d, got %d", MaxBufferFrames, c.Audio.FramesPerBuffer)
	}
	if c.Audio.File == "" && c.Audio.SyntheticSeconds <= 0 {
		return fmt.Errorf("audio.synthetic_seconds must be positive, got %v", c.Audio.SyntheticSeconds)
	}

	if _, err := c.AnalyserConfig(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if _, err := analysis.ParseSplitPolicy(c.Analysis.SplitPolicy); err != nil {
		return fmt.Errorf("analysis.split_policy: %w", err)
	}

	if err := c.ModulationConfig().Validate(); err != nil {
		return fmt.Errorf("modulation: %w", err)
	}

	if c.Deform.SphereRadius <= 0 {
		return fmt.Errorf("deform.sphere_radius must be positive, got %v", c.Deform.SphereRadius)
	}
	if c.Deform.SphereDetail < 0 || c.Deform.SphereDetail > MaxSphereDetail {
		return fmt.Errorf("deform.sphere_detail must be in [0, %d], got %d", MaxSphereDetail, c.Deform.SphereDetail)
	}
	if c.Deform.LinePoints < 2 {
		return fmt.Errorf("deform.line_points must be >= 2, got %d", c.Deform.LinePoints)
	}
	if err := c.Deform.Params.Validate(); err != nil {
		return err
	}

	if c.Render.FPS < MinFPS || c.Render.FPS > MaxFPS {
		return fmt.Errorf("render.fps must be in [%d, %d], got %d", MinFPS, MaxFPS, c.Render.FPS)
	}
	if c.Render.Window && (c.Render.Width <= 0 || c.Render.Height <= 0) {
		return fmt.Errorf("render window size must be positive, got %dx%d", c.Render.Width, c.Render.Height)
	}
	if c.Render.LogEvery < 0 {
		return fmt.Errorf("render.log_every must be >= 0, got %d", c.Render.LogEvery)
	}

	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		return fmt.Errorf("transport.websocket_address must be set when the WebSocket server is enabled")
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval < 0 {
			return fmt.Errorf("transport.udp_send_interval must not be negative")
		}
	}

	if c.Recording.Enabled {
		if !strings.EqualFold(c.Recording.Format, DefaultRecordingFormat) {
			return fmt.Errorf("recording.format %q is not supported (wav only)", c.Recording.Format)
		}
		switch c.Recording.BitDepth {
		case 16, 24, 32:
		default:
			return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
		}
		if c.Recording.MaxDuration < 0 {
			return fmt.Errorf("recording.max_duration_seconds must be >= 0, got %d", c.Recording.MaxDuration)
		}
	}

	return nil
}

// AnalyserConfig converts the analysis section into analyser settings.
func (c *Config) AnalyserConfig() (analysis.AnalyserConfig, error) {
	window, err := analysis.ParseWindowFunc(c.Analysis.Window)
	if err != nil {
		return analysis.AnalyserConfig{}, err
	}
	ac := analysis.AnalyserConfig{
		FFTSize:     c.Analysis.FFTSize,
		Smoothing:   c.Analysis.Smoothing,
		MinDecibels: c.Analysis.MinDecibels,
		MaxDecibels: c.Analysis.MaxDecibels,
		Window:      window,
	}
	return ac, ac.Validate()
}

// SplitPolicy returns the configured band split, falling back to legacy.
func (c *Config) SplitPolicy() analysis.SplitPolicy {
	p, _ := analysis.ParseSplitPolicy(c.Analysis.SplitPolicy)
	return p
}

// ModulationConfig converts the modulation section into mapper settings.
func (c *Config) ModulationConfig() modulate.Config {
	return modulate.Config{
		Bass:   modulate.Band(c.Modulation.Bass),
		Treble: modulate.Band(c.Modulation.Treble),
	}
}

// applyEnvOverrides reads ENV_* variables, which take precedence over the
// YAML file. Malformed values are logged and ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			log.Debugf("Config: Overriding debug from env: %v", bVal)
		} else {
			log.Warnf("Config: Ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Debugf("Config: Overriding log_level from env: %s", val)
	}

	// ENV_AUDIO_{...}
	// These are specific to playback.

	// ENV_AUDIO_FILE
	if val, ok := os.LookupEnv("ENV_AUDIO_FILE"); ok {
		c.Audio.File = val
		log.Debugf("Config: Overriding audio.file from env: %s", val)
	}
	// ENV_AUDIO_SINK
	if val, ok := os.LookupEnv("ENV_AUDIO_SINK"); ok {
		c.Audio.Sink = strings.ToLower(val)
		log.Debugf("Config: Overriding audio.sink from env: %s", val)
	}

	// ENV_NOISE_SEED
	if val, ok := os.LookupEnv("ENV_NOISE_SEED"); ok {
		if seed, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Deform.Seed = seed
			log.Debugf("Config: Overriding deform.seed from env: %d", seed)
		} else {
			log.Warnf("Config: Ignoring ENV_NOISE_SEED=%q: %v", val, err)
		}
	}
	// ENV_RENDER_FPS
	if val, ok := os.LookupEnv("ENV_RENDER_FPS"); ok {
		if fps, err := strconv.Atoi(val); err == nil {
			c.Render.FPS = fps
			log.Debugf("Config: Overriding render.fps from env: %d", fps)
		} else {
			log.Warnf("Config: Ignoring ENV_RENDER_FPS=%q: %v", val, err)
		}
	}

	// ENV_WS_{...} and ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		log.Debugf("Config: Overriding transport.websocket_address from env: %s", val)
	}
	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
			log.Debugf("Config: Overriding transport.udp_enabled from env: %v", bVal)
		} else {
			log.Warnf("Config: Ignoring ENV_UDP_ENABLED=%q: %v", val, err)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		log.Debugf("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
			log.Debugf("Config: Overriding transport.udp_send_interval from env: %s", dur)
		} else {
			log.Warnf("Config: Ignoring ENV_UDP_SEND_INTERVAL=%q: %v", val, err)
		}
	}
}
