package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"visualiser/internal/audio"
)

var testDevices = []audio.Device{
	{ID: 1, Name: "Speakers", HostAPI: "Core Audio", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{ID: 4, Name: "Headphones", HostAPI: "Core Audio", MaxOutputChannels: 2, DefaultSampleRate: 96000},
}

func update(t *testing.T, m DeviceListModel, msgs ...tea.Msg) (DeviceListModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(DeviceListModel)
	}
	return m, cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitFetchesDevices(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return testDevices, nil })
	msg := m.Init()()
	dm, ok := msg.(devicesMsg)
	if !ok || len(dm.devices) != 2 {
		t.Fatalf("Init produced %T %v", msg, msg)
	}

	m = NewDeviceListModel(func() ([]audio.Device, error) { return nil, errors.New("no host") })
	if _, ok := m.Init()().(errMsg); !ok {
		t.Error("fetch failure should produce errMsg")
	}
}

func TestSelectDeviceAndRate(t *testing.T) {
	m := NewDeviceListModel(nil)
	m, _ = update(t, m,
		tea.WindowSizeMsg{Width: 80, Height: 24},
		devicesMsg{testDevices},
		keyMsg("down"),
		keyMsg("enter"),
	)
	if m.activeScreen != ConfigScreen {
		t.Fatal("enter should open the configuration screen")
	}
	if SampleRates[m.sampleRateIndex] != 96000 {
		t.Errorf("preselected rate = %v, want the device default 96000", SampleRates[m.sampleRateIndex])
	}
	if !strings.Contains(m.View(), "Headphones") {
		t.Error("configuration screen should name the device")
	}

	m, cmd := update(t, m, keyMsg("up"), keyMsg("enter"))
	sel := m.Selection()
	if sel == nil || sel.Device.ID != 4 || sel.SampleRate != 88200 {
		t.Fatalf("selection = %+v", sel)
	}
	if got, want := sel.Args(), "--sink portaudio --device 4 --sample-rate 88200"; got != want {
		t.Errorf("Args() = %q, want %q", got, want)
	}
	if cmd == nil {
		t.Fatal("confirming should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("confirming should return tea.Quit")
	}
}

func TestEscapeReturnsToList(t *testing.T) {
	m := NewDeviceListModel(nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24}, devicesMsg{testDevices},
		keyMsg("enter"), keyMsg("esc"))
	if m.activeScreen != ListScreen || m.Selection() != nil {
		t.Errorf("screen %v selection %v, want list and no selection", m.activeScreen, m.Selection())
	}
}

func TestNavigationStaysInBounds(t *testing.T) {
	m := NewDeviceListModel(nil)
	m, _ = update(t, m, devicesMsg{testDevices}, keyMsg("up"), keyMsg("down"), keyMsg("down"), keyMsg("down"))
	if m.selectedIndex != 1 {
		t.Errorf("selectedIndex = %d, want 1", m.selectedIndex)
	}
}

func TestViewStates(t *testing.T) {
	m := NewDeviceListModel(nil)
	if m.View() != "Initializing..." {
		t.Errorf("View before size = %q", m.View())
	}
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	if !strings.Contains(m.View(), "No audio output devices") {
		t.Errorf("empty view = %q", m.View())
	}
	m, _ = update(t, m, errMsg{errors.New("no host")})
	if !strings.Contains(m.View(), "no host") {
		t.Errorf("error view = %q", m.View())
	}
}
