package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hiveworks/swarmkernel/pkg/kernel"
	"github.com/hiveworks/swarmkernel/pkg/logging"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "swarmctl",
	Short: "CLI for the swarm kernel",
	Long:  `swarmctl drives the tick-bounded cooperative kernel: simulate scenarios, run the daemon tick loop, and inspect a running daemon.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.swarmctl/config)")
	rootCmd.PersistentFlags().Float64("emergency-threshold", 0.9, "hard budget threshold as a fraction of the CPU limit")
	rootCmd.PersistentFlags().Float64("soft-margin", 0.8, "advisory budget margin as a fraction of the CPU limit")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit JSON log entries")

	viper.BindPFlag("emergency_threshold", rootCmd.PersistentFlags().Lookup("emergency-threshold"))
	viper.BindPFlag("soft_margin", rootCmd.PersistentFlags().Lookup("soft-margin"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".swarmctl"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SWARMCTL")
	viper.AutomaticEnv()

	viper.SetDefault("emergency_threshold", 0.9)
	viper.SetDefault("soft_margin", 0.8)
	viper.SetDefault("cpu_limit", 10.0)
	viper.SetDefault("tick_interval", "1s")
	viper.SetDefault("store_path", "")
	viper.SetDefault("listen_addr", ":8484")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
	viper.SetDefault("tracing_enabled", false)
	viper.SetDefault("otlp_endpoint", "localhost:4318")
	viper.SetDefault("rate_limit_rps", 50.0)
	viper.SetDefault("rate_limit_burst", 100)

	// Missing config file is fine; defaults and env carry the daemon.
	_ = viper.ReadInConfig()
}

func kernelConfig() kernel.Config {
	return kernel.Config{
		EmergencyThreshold: viper.GetFloat64("emergency_threshold"),
		SoftMargin:         viper.GetFloat64("soft_margin"),
	}
}

func newLogger() *logging.Logger {
	return logging.New(logging.ParseLevel(viper.GetString("log_level")), viper.GetBool("log_json"))
}
