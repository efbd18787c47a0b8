package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

// Commands understood by the pistigreen binary.
const (
	CommandServe         = "serve"
	CommandMigrate       = "migrate"
	CommandActivate      = "activate"
	CommandSendTestEmail = "sendtestemail"
	CommandQueueStats    = "queuestats"
)

// ErrUnknownCommand is returned for unsupported sub-commands.
var ErrUnknownCommand = errors.New("cli: unknown command")

// Invocation is a parsed command line.
type Invocation struct {
	Command string
	Email   string
	ID      string
	To      string
}

// Parse reads the sub-command and its flags. An empty argument list means serve.
func Parse(args []string, output io.Writer) (Invocation, error) {
	if len(args) == 0 {
		return Invocation{Command: CommandServe}, nil
	}
	if output == nil {
		output = io.Discard
	}

	inv := Invocation{Command: args[0]}
	fs := flag.NewFlagSet(inv.Command, flag.ContinueOnError)
	fs.SetOutput(output)

	switch inv.Command {
	case CommandServe, CommandMigrate, CommandQueueStats:
	case CommandActivate:
		fs.StringVar(&inv.Email, "email", "", "account email")
		fs.StringVar(&inv.ID, "id", "", "account id")
	case CommandSendTestEmail:
		fs.StringVar(&inv.To, "to", "", "recipient address")
	default:
		return Invocation{}, fmt.Errorf("%w %q", ErrUnknownCommand, inv.Command)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return Invocation{}, err
	}
	if fs.NArg() > 0 {
		return Invocation{}, fmt.Errorf("cli: unexpected arguments %v", fs.Args())
	}
	if inv.Command == CommandSendTestEmail && inv.To == "" {
		return Invocation{}, errors.New("cli: -to is required")
	}
	return inv, nil
}
