package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coderisk-labs/intelcore/internal/output"
)

var contextBudget int

var contextCmd = &cobra.Command{
	Use:   "context <project-id> <node-id>",
	Short: "Expand a gravity-based context window seeded from a single node",
	Args:  cobra.ExactArgs(2),
	RunE:  runContext,
}

func init() {
	contextCmd.Flags().IntVar(&contextBudget, "budget", 0, "token budget (default: config token_budget_default)")
	contextCmd.Flags().Bool("quiet", false, "one-line summary")
	contextCmd.Flags().Bool("explain", false, "include rejected candidates and reasons")
	contextCmd.Flags().Bool("ai-mode", false, "machine-readable JSON output")
}

func runContext(cmd *cobra.Command, args []string) error {
	projectID, nodeID := args[0], args[1]
	ctx := context.Background()

	c, err := openCore(ctx, cfg, projectID)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Load(ctx); err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	budget := contextBudget
	if budget <= 0 {
		budget = cfg.TokenBudgetDefault
	}

	result, err := c.Context(ctx, nodeID, budget)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	formatter := output.NewFormatter(output.VerbosityFromFlags(cmd))
	return formatter.Format(output.Result{ProjectID: projectID, Expansion: &result}, os.Stdout)
}
