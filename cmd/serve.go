package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/api"
)

var flagDocsDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

On startup, any course documents found in the docs directory that are not
yet in the catalog are ingested before the server begins listening.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagDocsDir, "docs", "", "course documents directory (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	a, err := setupApp(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	docsDir := flagDocsDir
	if docsDir == "" {
		docsDir = a.Config.DocsDir
	}
	if docsDir != "" {
		if _, statErr := os.Stat(docsDir); statErr == nil {
			courses, chunks, ingestErr := a.RAG.AddCourseFolder(ctx, docsDir)
			if ingestErr != nil {
				return fmt.Errorf("ingesting %s: %w", docsDir, ingestErr)
			}
			logger.Info("startup ingestion complete",
				"dir", docsDir, "courses", courses, "chunks", chunks)
		} else {
			logger.Warn("docs directory not found, skipping startup ingestion", "dir", docsDir)
		}
	}

	server := api.NewServer(a.RAG, logger)
	return server.Run(ctx, a.Config.ListenAddr)
}
