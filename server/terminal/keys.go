package terminal

import (
	"os"

	"github.com/eiannone/keyboard"
	"github.com/mattn/go-isatty"
)

type Command int

const (
	CommandPause Command = iota
	CommandResume
	CommandStop
	CommandQuit
)

var bindings = map[rune]Command{
	'p': CommandPause,
	'r': CommandResume,
	's': CommandStop,
	'q': CommandQuit,
	'P': CommandPause,
	'R': CommandResume,
	'S': CommandStop,
	'Q': CommandQuit,
}

// IsInteractive reports whether both ends of the terminal are a TTY.
func IsInteractive() bool {
	for _, f := range []*os.File{os.Stdin, os.Stdout} {
		fd := f.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			return false
		}
	}
	return true
}

// OpenKeyboard puts the terminal in raw mode and translates key presses to
// commands. The returned func restores the terminal.
func OpenKeyboard() (<-chan Command, func(), error) {
	events, err := keyboard.GetKeys(10)
	if err != nil {
		return nil, nil, err
	}

	commands := make(chan Command, 1)

	go func() {
		defer close(commands)
		for ev := range events {
			if ev.Err != nil {
				return
			}
			cmd, ok := bindings[ev.Rune]
			if ev.Key == keyboard.KeyCtrlC || ev.Key == keyboard.KeyEsc {
				cmd, ok = CommandQuit, true
			}
			if ok {
				commands <- cmd
			}
		}
	}()

	return commands, func() { keyboard.Close() }, nil
}
