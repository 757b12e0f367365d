package commands

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pumptool/tcppump/internal/control"
)

var (
	// client is the Connect-RPC client for the Compile RPC, initialized
	// in PersistentPreRunE.
	client *control.CompileClient

	// serverAddr is the pumpd daemon address (host:port) for the
	// Connect-RPC connection.
	serverAddr string
)

// rootCmd is the top-level cobra command for pumpctl.
var rootCmd = &cobra.Command{
	Use:   "pumpctl",
	Short: "CLI client for the pumpd packet compiler daemon",
	Long:  "pumpctl submits scripts to a running pumpd daemon via Connect-RPC, or replays a capture file directly.",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// replay does not talk to a daemon at all.
		if cmd.Name() == "replay" {
			return nil
		}
		client = control.NewClient(http.DefaultClient, "http://"+serverAddr)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:50051",
		"pumpd daemon address (host:port)")

	rootCmd.AddCommand(compileCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
