package commands

import (
	"github.com/spf13/cobra"
)

func compileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a script on the daemon and print the resulting frames",
		Long:  "Submits a script (from file, or stdin if omitted or \"-\") to the daemon's Compile RPC without sending it, and prints a hex dump of each resulting frame.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			text, err := readScriptSource(args)
			if err != nil {
				return err
			}

			frames, err := compileFrames(text, false)
			if err != nil {
				return err
			}

			printFrames(frames)
			return nil
		},
	}
}
