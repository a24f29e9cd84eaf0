package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/relay"
	"github.com/aretw0/relay/internal/cli"
	"github.com/aretw0/relay/internal/config"
	"github.com/aretw0/relay/internal/presentation/tui"
	"github.com/aretw0/relay/pkg/observability"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to relay from the terminal",
	Long: `Starts an interactive conversation. Each line is one utterance.
Type /state to see who owns the conversation, /reset to start over and /exit to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = "cli-" + uuid.NewString()
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		verbose, _ := cmd.Flags().GetBool("verbose")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		router, err := config.Build(ctx, cfg, logger, relay.WithLifecycleHooks(observability.LogHooks(logger)))
		if err != nil {
			return err
		}
		defer router.Close()

		opts := cli.ChatOptions{
			SessionID: sessionID,
			In:        os.Stdin,
			Out:       cmd.OutOrStdout(),
			Verbose:   verbose,
		}

		fd := int(os.Stdout.Fd())
		if term.IsTerminal(fd) {
			width, _, err := term.GetSize(fd)
			if err != nil {
				width = 0
			}
			render, err := tui.NewRenderer(width)
			if err == nil {
				opts.Render = render
			}
			if !quiet {
				tui.PrintBanner(opts.Out, relay.Version)
			}
		}
		if !quiet {
			fmt.Fprintf(opts.Out, ">>> Session '%s' active.\n", sessionID)
		}

		return cli.Chat(ctx, router, opts)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session id to use (default: a new random id)")
	chatCmd.Flags().BoolP("quiet", "q", false, "Suppress the banner and system messages")
	chatCmd.Flags().BoolP("verbose", "v", false, "Print the control state after every reply")
}
