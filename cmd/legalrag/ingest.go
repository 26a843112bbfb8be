package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ingestCategory string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest documents into the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCategory, "category", "general",
		"case category to index the documents under")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}

		doc, err := a.pipeline.Ingest(ctx, f, filepath.Base(path), ingestCategory)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		cmd.Printf("%s  %s  (%d chunks)\n", doc.ID, path, len(doc.ChunkIDs))
	}
	return nil
}
