package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/hiveworks/swarmkernel/pkg/kernel"
)

var daemonURL string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Inspect a running daemon",
	Long:  `Fetch the latest run summary and kernel metrics from a running daemon and print them as tables.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&daemonURL, "url", "http://localhost:8484", "daemon base URL")
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := strings.TrimRight(daemonURL, "/")
	client := &http.Client{Timeout: 10 * time.Second}

	if err := printSummary(client, base); err != nil {
		return err
	}
	return printMetrics(client, base)
}

func printSummary(client *http.Client, base string) error {
	resp, err := client.Get(base + "/summary")
	if err != nil {
		return fmt.Errorf("failed to reach daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		fmt.Println("No invocation has completed yet.")
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	var sum kernel.RunSummary
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil {
		return fmt.Errorf("failed to parse summary: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")
	table.Append("Tick", fmt.Sprintf("%d", sum.Tick))
	table.Append("Executed", strings.Join(sum.Executed, ","))
	table.Append("Skipped", formatSkipped(sum.Skipped))
	table.Append("Failed", formatFailed(sum.Failed))
	table.Append("Total CPU", fmt.Sprintf("%.2f", sum.TotalCPU))
	table.Append("Aborted", fmt.Sprintf("%v", sum.Aborted))
	table.Render()
	return nil
}

func printMetrics(client *http.Client, base string) error {
	resp, err := client.Get(base + "/metrics")
	if err != nil {
		return fmt.Errorf("failed to scrape metrics: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("metrics endpoint returned status %d", resp.StatusCode)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse metrics: %w", err)
	}

	values, ok := families["swarm_kernel_value"]
	if !ok {
		fmt.Println("\nNo kernel metrics recorded yet.")
		return nil
	}

	rows := make([][2]string, 0, len(values.GetMetric()))
	for _, m := range values.GetMetric() {
		rows = append(rows, [2]string{metricName(m), fmt.Sprintf("%.3f", m.GetGauge().GetValue())})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })

	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	for _, row := range rows {
		table.Append(row[0], row[1])
	}
	table.Render()
	return nil
}

func metricName(m *dto.Metric) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == "name" {
			return l.GetValue()
		}
	}
	return "?"
}
