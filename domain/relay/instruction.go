// Package relay defines the text protocol the control process uses to
// direct a worker through the guild's relay channel.
package relay

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Command is a worker-side action
type Command string

const (
	CommandPlay   Command = "play"
	CommandJoin   Command = "join"
	CommandLeave  Command = "leave"
	CommandPause  Command = "pause"
	CommandResume Command = "resume"
	CommandSkip   Command = "skip"
	CommandStop   Command = "stop"
)

var knownCommands = map[Command]struct{}{
	CommandPlay:   {},
	CommandJoin:   {},
	CommandLeave:  {},
	CommandPause:  {},
	CommandResume: {},
	CommandSkip:   {},
	CommandStop:   {},
}

// IsKnown reports whether c is one of the relay commands
func (c Command) IsKnown() bool {
	_, ok := knownCommands[c]
	return ok
}

// TakesArgument reports whether the command carries an argument on the wire
func (c Command) TakesArgument() bool {
	return c == CommandPlay || c == CommandJoin || c == CommandLeave
}

var (
	ErrEmptyInstruction = errors.New("empty relay instruction")
	ErrUnknownCommand   = errors.New("unknown relay command")
	ErrMissingArgument  = errors.New("relay command requires an argument")
)

// Instruction is one relay message addressed to a single worker
type Instruction struct {
	Prefix   string
	Command  Command
	Argument string
}

// String renders the wire form: "<prefix> <command>[ <argument>]"
func (i Instruction) String() string {
	if i.Argument == "" {
		return i.Prefix + " " + string(i.Command)
	}
	return i.Prefix + " " + string(i.Command) + " " + i.Argument
}

// FirstToken returns the leading whitespace-delimited token of text
func FirstToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Parse is the inverse of Instruction.String. The argument is everything after
// the command with surrounding whitespace trimmed, so free-text queries keep
// their inner spacing.
func Parse(text string) (Instruction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Instruction{}, ErrEmptyInstruction
	}

	prefix, rest := cut(text)
	if rest == "" {
		return Instruction{}, fmt.Errorf("%w: no command after prefix %q", ErrEmptyInstruction, prefix)
	}

	name, argument := cut(rest)
	cmd := Command(name)
	if !cmd.IsKnown() {
		return Instruction{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	if cmd.TakesArgument() && argument == "" {
		return Instruction{}, fmt.Errorf("%w: %s", ErrMissingArgument, cmd)
	}

	return Instruction{Prefix: prefix, Command: cmd, Argument: argument}, nil
}

func cut(s string) (head, tail string) {
	i := strings.IndexFunc(s, isSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// OrderKind distinguishes direct media locators from search queries
type OrderKind int

const (
	OrderQuery OrderKind = iota
	OrderLocator
)

func (k OrderKind) String() string {
	if k == OrderLocator {
		return "locator"
	}
	return "query"
}

// ClassifyOrder returns OrderLocator when order is an absolute http(s) URL
// with a host, and OrderQuery for anything else.
func ClassifyOrder(order string) OrderKind {
	order = strings.TrimSpace(order)
	if strings.ContainsAny(order, " \t\n") {
		return OrderQuery
	}
	u, err := url.Parse(order)
	if err != nil {
		return OrderQuery
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return OrderLocator
	}
	return OrderQuery
}
