package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hiveworks/swarmkernel/internal/colony"
	"github.com/hiveworks/swarmkernel/pkg/kernel"
	"github.com/hiveworks/swarmkernel/pkg/logging"
	"github.com/hiveworks/swarmkernel/pkg/store"
	"github.com/hiveworks/swarmkernel/pkg/world"
)

var (
	scenarioPath string
	simTicks     uint64
	simStorePath string
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scenario against the simulated world",
	Long:  `Load a YAML scenario, run its processes for the configured number of ticks under the simulated CPU accessor, and print one summary row per tick.`,
	RunE:  runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario file (required)")
	simulateCmd.Flags().Uint64Var(&simTicks, "ticks", 0, "override the scenario's tick count")
	simulateCmd.Flags().StringVar(&simStorePath, "store", "", "persist the store tree to this sqlite database between ticks")
	simulateCmd.MarkFlagRequired("scenario")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	scenario, err := colony.LoadScenario(scenarioPath)
	if err != nil {
		return err
	}

	ticks := scenario.Ticks
	if simTicks > 0 {
		ticks = simTicks
	}

	log := newLogger()
	k := kernel.New(
		kernel.WithConfig(kernelConfig()),
		kernel.WithLogger(logging.NewCapability(log)),
	)
	if err := scenario.Register(k); err != nil {
		return err
	}

	tree := store.NewTree()
	startTick := uint64(0)

	var snapshots *store.SnapshotStore
	if simStorePath != "" {
		snapshots, err = store.NewSnapshotStore(simStorePath)
		if err != nil {
			return err
		}
		defer snapshots.Close()

		tree, startTick, err = snapshots.LoadLatest()
		if err != nil {
			return err
		}
		if startTick > 0 {
			log.Info("resuming from persisted store", map[string]interface{}{"tick": startTick})
		}
	}

	entities := scenario.EntityMap()
	bucket := scenario.Bucket
	if bucket == 0 {
		bucket = 10000
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Tick", "Executed", "Skipped", "Failed", "CPU", "Aborted")

	for tick := startTick + 1; tick <= startTick+ticks; tick++ {
		cpu := world.NewSimCPU(scenario.CPULimit, bucket)
		snap := world.NewSnapshot(tick, cpu, entities)

		summary, err := k.Run(snap, tree)
		if err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}

		table.Append(
			fmt.Sprintf("%d", summary.Tick),
			strings.Join(summary.Executed, ","),
			formatSkipped(summary.Skipped),
			formatFailed(summary.Failed),
			fmt.Sprintf("%.2f", summary.TotalCPU),
			fmt.Sprintf("%v", summary.Aborted),
		)

		if snapshots != nil {
			if err := snapshots.Save(tick, tree); err != nil {
				return fmt.Errorf("tick %d: %w", tick, err)
			}
		}
	}

	table.Render()
	return nil
}

func formatSkipped(skipped []kernel.SkippedProcess) string {
	if len(skipped) == 0 {
		return "-"
	}
	names := make([]string, len(skipped))
	for i, s := range skipped {
		names[i] = s.Name
	}
	return strings.Join(names, ",")
}

func formatFailed(failed []kernel.FailedProcess) string {
	if len(failed) == 0 {
		return "-"
	}
	names := make([]string, len(failed))
	for i, f := range failed {
		names[i] = f.Name
	}
	return strings.Join(names, ",")
}
