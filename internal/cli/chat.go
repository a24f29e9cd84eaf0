package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/relay/pkg/domain"
)

// Chat commands understood by the interactive loop.
const (
	CommandExit  = "/exit"
	CommandReset = "/reset"
	CommandState = "/state"
)

// ChatController is the subset of the router the chat loop drives.
type ChatController interface {
	HandleTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnOutcome, error)
	State(ctx context.Context, sessionID string) (*domain.ControlState, error)
	Reset(ctx context.Context, sessionID string) error
}

// ChatOptions configures a chat session on a terminal or pipe.
type ChatOptions struct {
	SessionID string
	In        io.Reader
	Out       io.Writer
	// Render formats replies, e.g. as markdown. Nil prints them verbatim.
	Render func(string) (string, error)
	// Verbose adds the committed state after each reply.
	Verbose bool
}

// Chat reads one utterance per line and prints the reply until EOF, /exit or
// ctx cancellation. Turn errors are printed and the loop continues; the
// session state is left as it was before the failed turn.
func Chat(ctx context.Context, ctrl ChatController, opts ChatOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := opts.Out
	scanner := bufio.NewScanner(opts.In)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case CommandExit, "exit", "quit":
			printSystemMessage(out, "Bye!")
			return nil
		case CommandReset:
			if err := ctrl.Reset(ctx, opts.SessionID); err != nil {
				printSystemMessage(out, "Reset failed: %v", err)
				continue
			}
			printSystemMessage(out, "Session '%s' reset.", opts.SessionID)
			continue
		case CommandState:
			state, err := ctrl.State(ctx, opts.SessionID)
			if err != nil {
				printSystemMessage(out, "State unavailable: %v", err)
				continue
			}
			printSystemMessage(out, "%s after %d turn(s)", state, state.Turns)
			continue
		}

		outcome, err := ctrl.HandleTurn(ctx, domain.TurnRequest{SessionID: opts.SessionID, Utterance: line})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			printSystemMessage(out, "Error: %v", err)
			continue
		}

		reply := outcome.Reply
		if opts.Render != nil {
			if rendered, err := opts.Render(reply); err == nil {
				reply = strings.TrimRight(rendered, "\n")
			}
		}
		fmt.Fprintln(out, reply)

		if opts.Verbose {
			printSystemMessage(out, "%s via %s (%s)", outcome.State, outcome.Responder, outcome.Transition)
		}
	}
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
