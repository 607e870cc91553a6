package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coderisk-labs/intelcore/internal/output"
)

var analyzeBudget int

var analyzeCmd = &cobra.Command{
	Use:   "analyze <project-id> <query>",
	Short: "Seed a gravity-based context expansion from the query's nearest neighbors",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&analyzeBudget, "budget", 0, "token budget (default: config token_budget_default)")
	analyzeCmd.Flags().Bool("quiet", false, "one-line summary")
	analyzeCmd.Flags().Bool("explain", false, "include rejected candidates and reasons")
	analyzeCmd.Flags().Bool("ai-mode", false, "machine-readable JSON output")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	projectID, query := args[0], args[1]
	ctx := context.Background()

	c, err := openCore(ctx, cfg, projectID)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Load(ctx); err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	embedder, err := openEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open embedder: %w", err)
	}
	vecs, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	budget := analyzeBudget
	if budget <= 0 {
		budget = cfg.TokenBudgetDefault
	}

	result, err := c.Analyze(ctx, vecs[0], budget)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	formatter := output.NewFormatter(output.VerbosityFromFlags(cmd))
	return formatter.Format(output.Result{ProjectID: projectID, Expansion: &result}, os.Stdout)
}
