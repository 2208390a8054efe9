// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"testing"

	"visualiser/internal/config"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, inv *Invocation)
	}{
		{
			name: "defaults",
			args: nil,
			check: func(t *testing.T, inv *Invocation) {
				if inv.Command != "" || inv.Config.Audio.File != "" {
					t.Errorf("got command %q file %q, want a synthetic run", inv.Command, inv.Config.Audio.File)
				}
				if inv.Config.Audio.Sink != config.DefaultSink || inv.Config.Render.FPS != config.DefaultFPS {
					t.Errorf("defaults changed: sink %q fps %d", inv.Config.Audio.Sink, inv.Config.Render.FPS)
				}
			},
		},
		{
			name: "file and overrides",
			args: []string{"song.mp3", "--sink", "null", "--fps", "30", "--split-policy", "clean", "--no-ws", "-r", "-o", "out"},
			check: func(t *testing.T, inv *Invocation) {
				c := inv.Config
				if c.Audio.File != "song.mp3" || c.Audio.Sink != config.SinkNull || c.Render.FPS != 30 {
					t.Errorf("audio/render = %+v %+v", c.Audio, c.Render)
				}
				if c.Analysis.SplitPolicy != "clean" || c.Transport.WebSocketEnabled {
					t.Errorf("split %q websocket %t", c.Analysis.SplitPolicy, c.Transport.WebSocketEnabled)
				}
				if !c.Recording.Enabled || c.Recording.OutputDir != "out" {
					t.Errorf("recording = %+v", c.Recording)
				}
			},
		},
		{
			name: "verbose",
			args: []string{"-v"},
			check: func(t *testing.T, inv *Invocation) {
				if !inv.Config.Debug || inv.Config.LogLevel != "debug" {
					t.Errorf("debug %t level %q", inv.Config.Debug, inv.Config.LogLevel)
				}
			},
		},
		{
			name: "list",
			args: []string{"list"},
			check: func(t *testing.T, inv *Invocation) {
				if inv.Command != CommandList || inv.Config == nil {
					t.Errorf("command %q config %v", inv.Command, inv.Config)
				}
			},
		},
		{
			name: "devices with inherited flag",
			args: []string{"devices", "--sink", "oto"},
			check: func(t *testing.T, inv *Invocation) {
				if inv.Command != CommandDevices || inv.Config.Audio.Sink != config.SinkOto {
					t.Errorf("command %q sink %q", inv.Command, inv.Config.Audio.Sink)
				}
			},
		},
		{name: "two files", args: []string{"a.wav", "b.wav"}, wantErr: true},
		{name: "fps out of range", args: []string{"--fps", "0"}, wantErr: true},
		{name: "unknown sink", args: []string{"--sink", "alsa"}, wantErr: true},
		{name: "unknown flag", args: []string{"--nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			inv, err := parse(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parse(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, inv)
			}
		})
	}
}

func TestParseKeepsConfigFileUnlessFlagSet(t *testing.T) {
	t.Chdir(t.TempDir())
	yaml := "render:\n  fps: 24\naudio:\n  sink: \"null\"\n"
	if err := os.WriteFile(config.DefaultConfigFile, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	inv, err := parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if inv.Config.Render.FPS != 24 || inv.Config.Audio.Sink != config.SinkNull {
		t.Errorf("config file values lost: fps %d sink %q", inv.Config.Render.FPS, inv.Config.Audio.Sink)
	}

	inv, err = parse([]string{"--fps", "48"})
	if err != nil {
		t.Fatal(err)
	}
	if inv.Config.Render.FPS != 48 || inv.Config.Audio.Sink != config.SinkNull {
		t.Errorf("flag override: fps %d sink %q", inv.Config.Render.FPS, inv.Config.Audio.Sink)
	}
}

func TestParseVersion(t *testing.T) {
	t.Chdir(t.TempDir())
	inv, err := parse([]string{"--version"})
	if err != nil {
		t.Fatal(err)
	}
	if inv.Config != nil {
		t.Error("--version should not load a configuration")
	}
}
