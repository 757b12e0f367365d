package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pumptool/tcppump/internal/pcapio"
	"github.com/pumptool/tcppump/internal/sink/rawsock"
)

// errInterfaceRequired indicates replay was run without --interface.
var errInterfaceRequired = errors.New("--interface flag is required")

func replayCmd() *cobra.Command {
	var (
		ifaceName string
		realtime  bool
	)

	cmd := &cobra.Command{
		Use:   "replay <pcap-file>",
		Short: "Replay a pcap capture out a network interface",
		Long:  "Reads frames from a libpcap savefile and retransmits them verbatim on the given interface, pacing by each record's recorded timestamp when --realtime is set. This bypasses the daemon entirely.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if ifaceName == "" {
				return errInterfaceRequired
			}

			r, err := pcapio.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer r.Close()

			var opts []rawsock.Option
			if realtime {
				opts = append(opts, rawsock.WithRealTimePacing())
			}
			sk, err := rawsock.Open(ifaceName, opts...)
			if err != nil {
				return fmt.Errorf("open interface %s: %w", ifaceName, err)
			}
			defer sk.Close()

			ctx := context.Background()
			var first time.Time
			n := 0
			for {
				ts, frame, err := r.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return fmt.Errorf("read record %d: %w", n, err)
				}
				if n == 0 {
					first = ts
				}
				if err := sk.Send(ctx, frame, ts.Sub(first)); err != nil {
					return fmt.Errorf("send record %d: %w", n, err)
				}
				n++
			}

			fmt.Printf("replayed %d frame(s) on %s\n", n, ifaceName)
			return nil
		},
	}

	cmd.Flags().StringVar(&ifaceName, "interface", "", "network interface to replay on (required)")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "pace frames by their recorded timestamps")

	return cmd
}
