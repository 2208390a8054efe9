package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the visualiser.
const (
	// Default file locations
	DefaultConfigFile = "visualiser.yaml" // Searched in the working directory
	DefaultEnvFile    = ".env"            // Optional KEY=value overrides
	DefaultLogLevel   = "info"

	// Audio playback
	DefaultSink             = SinkPortAudio
	DefaultDeviceID         = MinDeviceID // Default to system default device
	DefaultFramesPerBuffer  = 512         // Balanced latency/performance
	DefaultLowLatency       = false       // Standard latency mode
	DefaultSampleRate       = 44100       // Sample rate of the synthetic track
	DefaultSyntheticSeconds = 30.0        // Length of the synthetic track
	DefaultLoop             = false       // Stop at the end of the track

	// Spectrum analysis, matching a browser AnalyserNode with fftSize 512
	DefaultFFTSize     = 512
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
	DefaultWindow      = "blackman"
	DefaultSplitPolicy = "legacy"

	// Band to amplitude mapping
	DefaultBassExponent   = 0.8
	DefaultBassOutMax     = 8.0
	DefaultTrebleExponent = 1.0
	DefaultTrebleOutMax   = 4.0

	// Geometry and deformation
	DefaultNoiseSeed    = 0 // 0 picks a seed at startup
	DefaultSphereRadius = 20.0
	DefaultSphereDetail = 3
	DefaultLinePoints   = 100
	DefaultRateFactor   = 1e-5
	DefaultRateX        = 4.0
	DefaultRateY        = 6.0
	DefaultRateZ        = 7.0
	DefaultFixedAmp     = 5.0
	DefaultSphereBoost  = 2.0

	// Rendering
	DefaultFPS          = 60
	DefaultWindowWidth  = 1280
	DefaultWindowHeight = 720
	DefaultLogEvery     = 0 // Frames between logging renderer lines, 0 disables it

	// Transport
	DefaultWebSocketEnabled = true
	DefaultWebSocketAddress = ":8080"
	DefaultUDPEnabled       = false
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz

	// Recording
	DefaultRecordingEnabled = false
	DefaultRecordingDir     = "./recordings"
	DefaultRecordingFormat  = "wav"
	DefaultRecordingDepth   = 16

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer (power of 2)
	MinFPS          = 1
	MaxFPS          = 240
	MaxSphereDetail = 6 // 10*49+2 vertices at most per frame
)

// Audio sink names accepted in audio.sink.
const (
	SinkPortAudio = "portaudio"
	SinkOto       = "oto"
	SinkNull      = "null"
)
