package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/relay/internal/presentation/graph"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/aretw0/relay/pkg/ports"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the handoff graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the trigger table: which intents hand
control to which component, and the done edges back to the classifier.
With --session, the current owner of that session is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		triggers := domain.TriggerTable(cfg.Triggers)

		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(triggers, nil))
			return nil
		}

		return withStore(cmd, func(store ports.StateStore) error {
			overlay := &graph.Overlay{}
			state, err := store.Load(cmd.Context(), sessionID)
			switch {
			case err == nil:
				overlay.Owner = state.Owner
			case errors.Is(err, domain.ErrSessionNotFound):
			default:
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(triggers, overlay))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("session", "s", "", "Highlight the current owner of this session")
}
