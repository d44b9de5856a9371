// Package control defines the commands external sources send to the timer
// and the queue that hands them to the control goroutine. Keybinds, the UI
// and the socket server all go through the same Channel so that commands are
// applied in arrival order on one goroutine.
package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownCommand is returned when a command name cannot be parsed.
var ErrUnknownCommand = errors.New("unknown command")

// CommandType enumerates supported command operations.
type CommandType int

const (
	CmdStartSplit CommandType = iota
	CmdStopReset
	CmdCancel
	CmdUnsplit
	CmdSkip
	CmdExit
)

var commandNames = [...]string{
	CmdStartSplit: "start_split",
	CmdStopReset:  "stop_reset",
	CmdCancel:     "cancel",
	CmdUnsplit:    "unsplit",
	CmdSkip:       "skip",
	CmdExit:       "exit",
}

func (c CommandType) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return fmt.Sprintf("command(%d)", int(c))
	}
	return commandNames[c]
}

// Valid reports whether c is one of the known commands.
func (c CommandType) Valid() bool {
	return c >= 0 && int(c) < len(commandNames)
}

// ParseCommand accepts a command name (start_split, stop-reset, ...) or its
// numeric code.
func ParseCommand(s string) (CommandType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")
	if n, err := strconv.Atoi(name); err == nil {
		if c := CommandType(n); c.Valid() {
			return c, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	for i, n := range commandNames {
		if n == name {
			return CommandType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Command is the message sent to the control goroutine. The optional Reply
// channel is written once the command has been applied (useful for keeping
// UI state or a socket client in sync). It should be buffered.
type Command struct {
	Type  CommandType
	Reply chan error
}

// Done reports the outcome to the sender, if it asked for one.
func (c Command) Done(err error) {
	if c.Reply == nil {
		return
	}
	select {
	case c.Reply <- err:
	default:
	}
}
