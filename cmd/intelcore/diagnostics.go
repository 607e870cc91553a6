package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coderisk-labs/intelcore/internal/output"
)

var (
	diagnosticsHotspots         bool
	diagnosticsFanoutThreshold  int
	diagnosticsComplexThreshold int
)

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics <project-id>",
	Short: "Report graph size, type histograms, and complexity buckets",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiagnostics,
}

func init() {
	diagnosticsCmd.Flags().BoolVar(&diagnosticsHotspots, "hotspots", false, "report hotspot nodes instead of aggregate diagnostics")
	diagnosticsCmd.Flags().IntVar(&diagnosticsFanoutThreshold, "fanout-threshold", 10, "minimum fanout for a node to be reported as a hotspot")
	diagnosticsCmd.Flags().IntVar(&diagnosticsComplexThreshold, "complexity-threshold", 10, "minimum complexity for a node to be reported as a hotspot")
	diagnosticsCmd.Flags().Bool("quiet", false, "one-line summary")
	diagnosticsCmd.Flags().Bool("explain", false, "include rejected candidates and reasons")
	diagnosticsCmd.Flags().Bool("ai-mode", false, "machine-readable JSON output")
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	projectID := args[0]
	ctx := context.Background()

	c, err := openCore(ctx, cfg, projectID)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Load(ctx); err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	formatter := output.NewFormatter(output.VerbosityFromFlags(cmd))

	if diagnosticsHotspots {
		hotspots, err := c.Hotspots(ctx, diagnosticsFanoutThreshold, diagnosticsComplexThreshold)
		if err != nil {
			return fmt.Errorf("hotspots: %w", err)
		}
		return formatter.Format(output.Result{ProjectID: projectID, Hotspots: hotspots}, os.Stdout)
	}

	diag, err := c.Diagnostics(ctx)
	if err != nil {
		return fmt.Errorf("diagnostics: %w", err)
	}
	return formatter.Format(output.Result{ProjectID: projectID, Diagnostics: &diag}, os.Stdout)
}
