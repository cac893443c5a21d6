// Command pandasim runs the PandABlocks hardware simulator: block
// models ticked at a fixed cadence, register state served over the
// hardware's control-port protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	pandasim "github.com/EmilioPeJu/panda-cocotb-based-simulation"
	_ "github.com/EmilioPeJu/panda-cocotb-based-simulation/blocks"
	"github.com/EmilioPeJu/panda-cocotb-based-simulation/config"
	"github.com/EmilioPeJu/panda-cocotb-based-simulation/server"
)

var (
	flagAddr    string
	flagConfig  string
	flagTick    time.Duration
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pandasim",
	Short: "PandABlocks hardware simulator",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the control port",
	Long: `Serve ticks the simulated blocks at the configured cadence and
answers control-port commands (register read/write, table write, data
fetch) on the listening address, byte compatible with real hardware.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		level := pandasim.SeverityInfo
		if flagVerbose {
			level = pandasim.SeverityDebug
		}
		log := pandasim.NewStdLogger(level)

		cfg := config.Default()
		if flagConfig != "" {
			var err error
			if cfg, err = config.ParseFile(flagConfig); err != nil {
				return err
			}
		}
		cfg.TickPeriod = flagTick

		sim, err := pandasim.New(cfg, log)
		if err != nil {
			return err
		}
		srv := server.New(sim, flagAddr, log)
		if err := srv.Listen(); err != nil {
			return err
		}
		log.Logf(pandasim.SeverityInfo, "serving control port on %s", srv.Addr())

		ctx, stop := signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.Serve(ctx); err != context.Canceled {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":9999", "control port listen address")
	serveCmd.Flags().StringVar(&flagConfig, "config", "", "block configuration file")
	serveCmd.Flags().DurationVar(&flagTick, "tick", pandasim.DefaultTickPeriod, "simulation tick period")
	serveCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "log per-connection activity")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
