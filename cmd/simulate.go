package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ecofleet/app"
	"github.com/kilianp07/ecofleet/core/sim"
	"github.com/kilianp07/ecofleet/infra/logger"
)

var simulateFlags struct {
	strategy string
	ticks    int
	seed     int64
	csv      string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the fleet simulation and print its report",
	RunE:  simulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVarP(&simulateFlags.strategy, "strategy", "s", "", "planner: bfs, dfs, astar or greedy")
	f.IntVar(&simulateFlags.ticks, "ticks", 0, "stop after this many simulated minutes")
	f.Int64Var(&simulateFlags.seed, "seed", 0, "random seed for requests and congestion")
	f.StringVar(&simulateFlags.csv, "csv", "", "write per-request outcomes to this CSV file")
	rootCmd.AddCommand(simulateCmd)
}

func simulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if simulateFlags.strategy != "" {
		cfg.Search.Strategy = simulateFlags.strategy
	}
	if simulateFlags.ticks > 0 {
		cfg.Simulation.MaxTicks = simulateFlags.ticks
	}
	if cmd.Flags().Changed("seed") {
		cfg.Simulation.Seed = simulateFlags.seed
		cfg.City.Seed = simulateFlags.seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	st, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	if err := sim.WriteReport(cmd.OutOrStdout(), st); err != nil {
		return err
	}
	if simulateFlags.csv == "" {
		return nil
	}
	f, err := os.Create(simulateFlags.csv)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()
	return sim.WriteCSV(f, svc.Sim.Outcomes())
}
