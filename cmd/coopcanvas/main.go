// Command coopcanvas runs and inspects collaborative canvas servers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coopcanvas",
		Short: "Shared multi-layer drawing canvas server",
		Long: `coopcanvas hosts shared canvases. Clients log into a room over a
reliable control channel and stream paint and cursor events over UDP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		exportCmd(),
		inspectCmd(),
		discoverCmd(),
		probeCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("coopcanvas %s (%s)\n", version, commit)
		},
	}
}
