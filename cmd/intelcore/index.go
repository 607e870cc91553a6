package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/coderisk-labs/intelcore/internal/extractor"
	"github.com/coderisk-labs/intelcore/internal/models"
	"github.com/spf13/cobra"
)

var (
	indexSignaturesPath string
	indexStrict         bool
)

var indexCmd = &cobra.Command{
	Use:   "index <project-id>",
	Short: "Index a batch of signatures into the project graph and store",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexSignaturesPath, "signatures", "", "path to a JSON array of SignatureInfo records (required)")
	indexCmd.Flags().BoolVar(&indexStrict, "strict", false, "require AST-level inheritance evidence (currently unsupported, returns an error)")
	indexCmd.MarkFlagRequired("signatures")
}

func runIndex(cmd *cobra.Command, args []string) error {
	projectID := args[0]
	ctx := context.Background()

	data, err := os.ReadFile(indexSignaturesPath)
	if err != nil {
		return fmt.Errorf("read signatures file: %w", err)
	}

	var signatures []models.SignatureInfo
	if err := json.Unmarshal(data, &signatures); err != nil {
		return fmt.Errorf("parse signatures file: %w", err)
	}

	c, err := openCore(ctx, cfg, projectID)
	if err != nil {
		return err
	}
	defer c.Close()

	opts := extractor.DefaultOptions()
	opts.Strict = indexStrict

	diags, err := c.IndexProject(ctx, signatures, nil, opts)
	if err != nil {
		return fmt.Errorf("index project: %w", err)
	}

	fmt.Printf("Indexed %d nodes, %d edges into %q\n", c.Graph().NodeCount(), c.Graph().EdgeCount(), projectID)
	if diags.Count() > 0 {
		fmt.Printf("%d signatures failed extraction:\n", diags.Count())
		for _, f := range diags.Failures() {
			fmt.Printf("  %s: %v\n", f.FilePath, f.Err)
		}
	}
	return nil
}
