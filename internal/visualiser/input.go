// SPDX-License-Identifier: MIT
package visualiser

import (
	"context"
	"os"
	"sync"

	"github.com/eiannone/keyboard"
	"golang.org/x/term"

	"visualiser/internal/log"
)

// Toggler is the playback control driven by the keyboard.
type Toggler interface {
	TogglePause() bool
}

// ListenKeys reads single key presses from the terminal until ctx is done:
// space toggles playback, q, Esc and Ctrl+C call quit. It does nothing when
// stdin is not a terminal.
func ListenKeys(ctx context.Context, t Toggler, quit func()) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		log.Debugf("Input: stdin is not a terminal, keyboard control disabled")
		return
	}
	if err := keyboard.Open(); err != nil {
		log.Warnf("Input: Keyboard control disabled: %v", err)
		return
	}

	var closeOnce sync.Once
	closeKeyboard := func() {
		closeOnce.Do(func() { _ = keyboard.Close() })
	}
	go func() {
		<-ctx.Done()
		closeKeyboard()
	}()

	go func() {
		defer closeKeyboard()
		for {
			char, key, err := keyboard.GetKey()
			if err != nil || ctx.Err() != nil {
				return
			}
			if handleKey(t, char, key) {
				quit()
				return
			}
		}
	}()
	log.Infof("Input: space play/pause, q quit")
}

// handleKey applies one key press and reports whether it asks to quit.
func handleKey(t Toggler, char rune, key keyboard.Key) bool {
	switch {
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
		return true
	case char == 'q' || char == 'Q':
		return true
	case key == keyboard.KeySpace || char == ' ':
		t.TogglePause()
	}
	return false
}
