package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ecofleet/core/cost"
	"github.com/kilianp07/ecofleet/core/search"
	"github.com/kilianp07/ecofleet/core/state"
	"github.com/kilianp07/ecofleet/qa/scenarios"
)

var solveFlags struct {
	scenario string
	strategy string
	timeout  time.Duration
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Plan a scenario file offline and print the actions",
	RunE:  solve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVar(&solveFlags.scenario, "scenario", "", "scenario YAML file")
	f.StringVarP(&solveFlags.strategy, "strategy", "s", "astar", "planner: bfs, dfs, astar or greedy")
	f.DurationVar(&solveFlags.timeout, "timeout", 10*time.Second, "search time budget")
	_ = solveCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(solveCmd)
}

func solve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, solveFlags.timeout)
	defer cancel()

	sc, err := scenarios.Load(solveFlags.scenario)
	if err != nil {
		return err
	}
	g, fleet, reqs, err := sc.Build()
	if err != nil {
		return err
	}
	strategy, err := search.New(solveFlags.strategy)
	if err != nil {
		return err
	}
	costCfg := cost.DefaultConfig()
	if cfgPath != "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		costCfg = cfg.Cost
	}
	p := search.Problem{Graph: g, Cost: cost.NewModel(costCfg), BucketKm: sc.BucketKm}
	res, err := strategy.Search(ctx, state.New(fleet, reqs, 0), p)
	if err != nil {
		return fmt.Errorf("%s on %s: %w", strategy.Name(), sc.Name, err)
	}
	out := cmd.OutOrStdout()
	for i, a := range res.Actions() {
		fmt.Fprintf(out, "%3d  %s\n", i+1, a)
	}
	fmt.Fprintf(out, "cost %.3f  money %.2f  co2 %.0f g  minutes %.1f  expanded %d\n",
		res.Cost, res.Goal.Money, res.Goal.CO2, res.Goal.Time, res.Expanded)
	return nil
}
