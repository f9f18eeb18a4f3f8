// Command textsync runs the collaborative text synchronization server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "textsync",
		Short: "Real-time collaborative plain-text server",
		Long: `textsync serves a shared plain-text buffer over WebSocket.

Every edit is broadcast to all connected clients together with the
online user count and content statistics. In notebooks mode several
named buffers are kept and one of them is active for everyone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
