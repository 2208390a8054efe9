package audio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

// fakeDevices stubs the PortAudio device list for the duration of a test.
func fakeDevices(t *testing.T, devices []*portaudio.DeviceInfo, err error) {
	t.Helper()
	orig := paLibDevicesFunc
	t.Cleanup(func() { paLibDevicesFunc = orig })
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return devices, err
	}
}

var testDevices = []*portaudio.DeviceInfo{
	{Name: "Microphone", MaxInputChannels: 2, DefaultSampleRate: 48000},
	{Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 44100,
		DefaultLowOutputLatency: 5 * time.Millisecond, DefaultHighOutputLatency: 20 * time.Millisecond,
		HostApi: &portaudio.HostApiInfo{Name: "ALSA"}},
	{Name: "Headset", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultSampleRate: 48000},
}

func TestHostDevices(t *testing.T) {
	fakeDevices(t, testDevices, nil)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != len(testDevices) {
		t.Fatalf("got %d devices, want %d", len(devices), len(testDevices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Name == "" {
			t.Errorf("Device %d has empty name", i)
		}
		if d.DefaultSampleRate <= 0 {
			t.Errorf("Device %d has invalid sample rate: %f", i, d.DefaultSampleRate)
		}
	}
	if devices[1].HostAPI != "ALSA" {
		t.Errorf("HostAPI = %q, want ALSA", devices[1].HostAPI)
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	fakeDevices(t, nil, fmt.Errorf("mock error"))

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestOutputDevice(t *testing.T) {
	fakeDevices(t, testDevices, nil)

	t.Run("Valid output device", func(t *testing.T) {
		dev, err := OutputDevice(1)
		if err != nil {
			t.Fatalf("OutputDevice(1) error: %v", err)
		}
		if dev.Name != "Speakers" {
			t.Errorf("OutputDevice(1) = %q, want Speakers", dev.Name)
		}
	})

	t.Run("Default device", func(t *testing.T) {
		orig := paLibDefaultOutputDeviceFunc
		defer func() { paLibDefaultOutputDeviceFunc = orig }()
		paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
			return testDevices[2], nil
		}

		dev, err := OutputDevice(-1)
		if err != nil || dev.Name != "Headset" {
			t.Errorf("OutputDevice(-1) = (%v, %v), want Headset", dev, err)
		}
	})

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", len(testDevices) + 10, "invalid device ID"},
		{"Non-output device", 0, "does not support output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OutputDevice(tt.id)
			if err == nil {
				t.Errorf("Expected error for ID %d", tt.id)
			} else if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestOutputDevice_paDevicesError(t *testing.T) {
	fakeDevices(t, nil, fmt.Errorf("mock error"))

	_, err := OutputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestOutputDevice_paDefaultOutputDeviceError(t *testing.T) {
	fakeDevices(t, testDevices, nil)

	orig := paLibDefaultOutputDeviceFunc
	defer func() { paLibDefaultOutputDeviceFunc = orig }()
	paLibDefaultOutputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock default output error")
	}

	_, err := OutputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "mock default output error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestListDevices(t *testing.T) {
	fakeDevices(t, testDevices, nil)

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "Microphone") {
		t.Error("input-only device should not be listed")
	}
	for _, want := range []string{"[1] Speakers (ALSA)", "[2] Headset", "Low=5.00ms, High=20.00ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestNilDevices(t *testing.T) {
	fakeDevices(t, nil, nil)

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil {
		t.Errorf("expected empty slice, got nil")
	}
	if len(devices) != 0 {
		t.Errorf("expected length 0, got %d", len(devices))
	}
}

func TestPortAudioNotInitialized(t *testing.T) {
	fakeDevices(t, nil, fmt.Errorf("PortAudio not initialized"))

	devices, err := paDevices()
	if err == nil || !strings.Contains(err.Error(), "PortAudio not initialized") {
		t.Errorf("expected 'PortAudio not initialized' error, got %v", err)
	}
	if devices != nil {
		t.Errorf("expected devices to be nil on error, got %v", devices)
	}
}

func TestOutputDevicesFiltersInputs(t *testing.T) {
	fakeDevices(t, testDevices, nil)
	origInit, origTerm := paLibInitialize, paLibTerminate
	defer func() { paLibInitialize, paLibTerminate = origInit, origTerm }()
	paLibInitialize = func() error { return nil }
	paLibTerminate = func() error { return nil }

	devices, err := OutputDevices()
	if err != nil {
		t.Fatalf("OutputDevices: %v", err)
	}
	if len(devices) != 2 || devices[0].ID != 1 || devices[1].ID != 2 {
		t.Errorf("OutputDevices() = %+v, want Speakers and Headset", devices)
	}
}
