package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andre-c-andersen/sigmsg/internal/logging"
	"github.com/andre-c-andersen/sigmsg/internal/observability"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sigmsg",
		Short: "Reliable messaging between processes over signal pulses",
		Long: `sigmsg carries framed, checksummed, acknowledged messages between
two processes using nothing but POSIX signals as the physical layer.

Bits travel as precisely timed SIGUSR1 pulses, frames are HDLC-style
delimited with a CRC32 trailer, and a stop-and-wait ARQ retransmits
until each message is acknowledged with SIGUSR2.

Start a receiver, note the PID it prints, then point a sender at it:

  sigmsg recv
  sigmsg send <pid> "Hello World"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.ConfigureRuntime()
			observability.InitLogger("sigmsg")
		},
	}

	rootCmd.AddCommand(
		recvCmd(),
		sendCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sigmsg: %v\n", err)
		os.Exit(1)
	}
}
