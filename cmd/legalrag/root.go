package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aqua777/go-legalrag/config"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "legalrag",
	Short: "Legal document retrieval and question answering",
	Long: `legalrag indexes legal documents (PDF, DOCX) into a vector store and
answers questions about them, grounding every answer in the retrieved text.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml",
		"path to the configuration file")
}
