package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/andre-c-andersen/sigmsg/internal/link/arq"
	"github.com/andre-c-andersen/sigmsg/internal/link/pulse"
	"github.com/andre-c-andersen/sigmsg/internal/observability"
)

// eventBuffer holds a full frame's worth of pulses with headroom.
const eventBuffer = 4096

func recvCmd() *cobra.Command {
	var (
		configPath string
		senderPID  int
	)

	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Print this process's PID and deliver incoming messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProfile(configPath)
			if err != nil {
				return err
			}

			// The PID line is the whole bootstrap: the operator pastes
			// it into the sender's invocation.
			fmt.Printf("Receiver PID: %d\n", pulse.SelfPID())

			if cfg.MetricsAddr != "" {
				go func() {
					if err := observability.ServeMetrics(cfg.MetricsAddr, "sigmsg-recv"); err != nil {
						log.Error().Err(err).Msg("metrics endpoint failed")
					}
				}()
			}

			listener := pulse.ListenSignals(eventBuffer)
			defer listener.Close()

			receiver, err := arq.NewReceiver(
				cfg.ReceiverConfig(senderPID),
				listener.Events(),
				pulse.Signals{},
				printMessage,
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().
				Dur("slot", cfg.Slot).
				Dur("idle_window", cfg.IdleWindow).
				Msg("listening for pulses")
			err = receiver.Run(ctx)
			if ctx.Err() != nil {
				log.Info().Msg("stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a link profile (TOML)")
	cmd.Flags().IntVar(&senderPID, "from", 0, "expected sender PID (otherwise learned from the first message)")
	return cmd
}

func printMessage(msg []byte) {
	if utf8.Valid(msg) {
		fmt.Printf("RECEIVED: %s\n", msg)
		return
	}
	fmt.Printf("RECEIVED: %x\n", msg)
}
