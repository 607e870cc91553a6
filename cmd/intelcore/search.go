package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coderisk-labs/intelcore/internal/output"
)

var searchK int

var searchCmd = &cobra.Command{
	Use:   "search <project-id> <query>",
	Short: "Search the project's cached embeddings for the k most similar nodes",
	Args:  cobra.ExactArgs(2),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 10, "number of results to return")
	searchCmd.Flags().Bool("quiet", false, "one-line summary")
	searchCmd.Flags().Bool("explain", false, "include rejected candidates and reasons")
	searchCmd.Flags().Bool("ai-mode", false, "machine-readable JSON output")
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	results, err := c.Search(ctx, vecs[0], searchK)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	formatter := output.NewFormatter(output.VerbosityFromFlags(cmd))
	return formatter.Format(output.Result{ProjectID: projectID, SearchHits: results}, os.Stdout)
}
