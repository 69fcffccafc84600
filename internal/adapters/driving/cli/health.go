package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the server is reachable",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if healthMonitor == nil {
		return errors.New("health monitor not configured: set a server with 'docsync auth login'")
	}

	status := healthMonitor.CheckServerHealth(cmd.Context())
	switch status.Kind {
	case domain.StatusOnline:
		cmd.Printf("Server is online (checked %s).\n", formatTime(status.At))
	case domain.StatusOffline:
		cmd.Printf("Server is offline: %s.\n", status.Reason.Description())
	case domain.StatusUnknown:
		cmd.Println("Server status is unknown.")
	}
	return nil
}
