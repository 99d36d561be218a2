package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/andre-c-andersen/sigmsg/internal/link/arq"
	"github.com/andre-c-andersen/sigmsg/internal/link/pulse"
	"github.com/andre-c-andersen/sigmsg/internal/link/timing"
	"github.com/andre-c-andersen/sigmsg/internal/observability"
)

func sendCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "send <pid> [message]",
		Short: "Send messages to a receiver by PID",
		Long: `Send transmits one message and exits, or, when no message argument
is given, reads lines from stdin and sends each as one message.

The target PID is the one printed by 'sigmsg recv'.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[0])
			if err != nil || target <= 0 {
				return fmt.Errorf("invalid target pid %q", args[0])
			}

			cfg, err := loadProfile(configPath)
			if err != nil {
				return err
			}
			if cfg.MetricsAddr != "" {
				go func() {
					if err := observability.ServeMetrics(cfg.MetricsAddr, "sigmsg-send"); err != nil {
						log.Error().Err(err).Msg("metrics endpoint failed")
					}
				}()
			}

			listener := pulse.ListenSignals(eventBuffer)
			defer listener.Close()

			sender, err := arq.NewSender(
				cfg.SenderConfig(),
				timing.Transmitter{Cfg: cfg.TimingConfig(), Raiser: pulse.Signals{}},
				listener.Events(),
				target,
				pulse.SelfPID(),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if len(args) == 2 {
				return sendOne(ctx, sender, []byte(args[1]))
			}
			return sendInteractive(ctx, sender, target)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a link profile (TOML)")
	return cmd
}

func sendOne(ctx context.Context, sender *arq.Sender, msg []byte) error {
	if err := sender.Send(ctx, msg); err != nil {
		return err
	}
	fmt.Println("Sent")
	return nil
}

func sendInteractive(ctx context.Context, sender *arq.Sender, target int) error {
	fmt.Printf("Sending to PID %d\n", target)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := sender.Send(ctx, []byte(line)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Delivery failure is fatal for this message only.
			fmt.Println("Failed")
			log.Warn().Err(err).Msg("message not delivered")
			continue
		}
		fmt.Println("Sent")
	}
	return scanner.Err()
}
