package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hiveworks/swarmkernel/internal/colony"
	"github.com/hiveworks/swarmkernel/pkg/api"
	"github.com/hiveworks/swarmkernel/pkg/kernel"
	"github.com/hiveworks/swarmkernel/pkg/logging"
	"github.com/hiveworks/swarmkernel/pkg/metrics"
	"github.com/hiveworks/swarmkernel/pkg/ratelimit"
	"github.com/hiveworks/swarmkernel/pkg/shutdown"
	"github.com/hiveworks/swarmkernel/pkg/store"
	"github.com/hiveworks/swarmkernel/pkg/tracing"
	"github.com/hiveworks/swarmkernel/pkg/world"
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the tick loop continuously",
	Long:  `Run the demo colony against the host CPU accessor, serve the status API, and persist the store tree between ticks. Stops cleanly on SIGTERM or SIGINT.`,
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().String("listen", "", "status API listen address (default from config, :8484)")
	daemonCmd.Flags().String("db", "", "sqlite database for store persistence (default swarmkernel.db)")
	daemonCmd.Flags().Duration("interval", 0, "tick interval (default from config, 1s)")
	viper.BindPFlag("listen_addr", daemonCmd.Flags().Lookup("listen"))
	viper.BindPFlag("store_path", daemonCmd.Flags().Lookup("db"))
	viper.BindPFlag("tick_interval", daemonCmd.Flags().Lookup("interval"))
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log := newLogger()

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	k := kernel.New(
		kernel.WithConfig(kernelConfig()),
		kernel.WithLogger(logging.NewCapability(log)),
		kernel.WithMetrics(recorder),
	)
	if err := colony.RegisterDemo(k); err != nil {
		return err
	}

	dbPath := viper.GetString("store_path")
	if dbPath == "" {
		dbPath = "swarmkernel.db"
	}
	snapshots, err := store.NewSnapshotStore(dbPath)
	if err != nil {
		return err
	}

	tree, lastTick, err := snapshots.LoadLatest()
	if err != nil {
		snapshots.Close()
		return err
	}
	if lastTick > 0 {
		log.Info("resuming from persisted store", map[string]interface{}{"tick": lastTick})
	}

	tracer, err := tracing.InitTracer(tracing.Config{
		ServiceName:    "swarmkernel",
		ServiceVersion: "dev",
		Endpoint:       viper.GetString("otlp_endpoint"),
		Enabled:        viper.GetBool("tracing_enabled"),
	})
	if err != nil {
		snapshots.Close()
		return err
	}

	limiter := ratelimit.NewLimiter(
		viper.GetFloat64("rate_limit_rps"),
		viper.GetInt("rate_limit_burst"),
	)

	server := api.NewServer(viper.GetString("listen_addr"), k, prometheus.DefaultGatherer, log,
		api.WithTracing(tracer),
		api.WithRateLimit(limiter),
	)

	mgr := shutdown.New(30*time.Second, log)
	mgr.Register("snapshot store", shutdown.CloseResource(snapshots))
	mgr.Register("trace provider", tracer.Shutdown)
	mgr.Register("api server", shutdown.StopServer(server))

	go func() {
		if err := server.Start(); err != nil {
			log.Error("API server failed", map[string]interface{}{"error": err.Error()})
			mgr.Trigger()
		}
	}()

	interval := viper.GetDuration("tick_interval")
	if interval <= 0 {
		interval = time.Second
	}
	// Per-tick CPU budget in milliseconds: the whole interval.
	cpu := world.NewHostCPU(float64(interval) / float64(time.Millisecond))

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		tick := lastTick
		for {
			select {
			case <-mgr.Done():
				return
			case <-ticker.C:
			}

			tick++
			cpu.Reset()
			snap := world.NewSnapshot(tick, cpu, nil)

			_, span := tracer.StartTick(context.Background(), tick)
			summary, err := k.Run(snap, tree)
			if err != nil {
				span.End()
				log.Error("invocation failed", map[string]interface{}{
					"tick":  tick,
					"error": err.Error(),
				})
				mgr.Trigger()
				return
			}
			tracing.EndTick(span, summary.TotalCPU, len(summary.Failed), summary.Aborted)
			server.RecordSummary(summary)

			if summary.Aborted {
				log.Warn("tick aborted on budget", map[string]interface{}{
					"tick":    tick,
					"skipped": len(summary.Skipped),
				})
			}
			for _, f := range summary.Failed {
				log.Error("process failed", map[string]interface{}{
					"tick":    tick,
					"process": f.Name,
					"error":   f.Error,
				})
			}

			if err := snapshots.Save(tick, tree); err != nil {
				log.Error("failed to persist store", map[string]interface{}{
					"tick":  tick,
					"error": err.Error(),
				})
			}
		}
	}()

	// The tick loop must be fully stopped before the store closes.
	mgr.Register("tick loop", func(ctx context.Context) error {
		select {
		case <-loopDone:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("tick loop did not stop in time: %w", ctx.Err())
		}
	})

	log.Info("daemon started", map[string]interface{}{
		"interval": interval.String(),
		"listen":   viper.GetString("listen_addr"),
		"db":       dbPath,
	})
	mgr.Wait()
	return nil
}
