package main

import (
	"github.com/spf13/cobra"

	"claudewatch/internal/config"
)

// Command builds the root command. Flag defaults come from the saved
// settings, so persisted state is loaded here before flags are bound.
func (a *App) Command() (*cobra.Command, error) {
	// Step 1: Load persisted state (settings, session labels)
	if err := a.loadPersistedState(); err != nil {
		return nil, err
	}

	cmd := &cobra.Command{
		Use:   "claudewatch",
		Short: "Follow Claude Code session logs as they are written",
		Long: `Follow the newest Claude Code session logs and show them live.

Slot i follows the i-th most recently modified session file. New lines are
parsed as they are appended and streamed message fragments are merged
before display.

Surfaces:
  dashboard          terminal view of every slot (default)
  --headless         log events instead of drawing
  --ws-port N        websocket stream at ws://host:N/ws, state at /slots
  --mcp-port N       MCP tools over SSE at http://localhost:N/sse
  --journal PATH     SQLite journal of everything emitted
  --usage-cmd CMD    poll a usage command for token and cost totals

Options given with --save become the defaults for later runs.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}

	flags := config.BindFlags(cmd.Flags(), a.settings.GetSettings())
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := flags.Resolve()
		if err != nil {
			return err
		}
		return a.Run(cmd.Context(), cfg)
	}
	return cmd, nil
}
