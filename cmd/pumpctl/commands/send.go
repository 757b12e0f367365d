package commands

import (
	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send [file]",
		Short: "Compile a script on the daemon and forward it to its sink",
		Long:  "Submits a script (from file, or stdin if omitted or \"-\") to the daemon's Compile RPC with Send=true, so the daemon also forwards every frame to its configured sink.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			text, err := readScriptSource(args)
			if err != nil {
				return err
			}

			frames, err := compileFrames(text, true)
			if err != nil {
				return err
			}

			printFrames(frames)
			return nil
		},
	}
}
