package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest course documents",
	Long: `Ingest course documents into the catalog.

Each path may be a single .txt course document or a directory of them.
Directories skip courses whose titles are already in the catalog; single
files re-ingest unconditionally, overwriting the catalog record.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	totalCourses, totalChunks := 0, 0
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		if info.IsDir() {
			courses, chunks, err := a.RAG.AddCourseFolder(ctx, path)
			if err != nil {
				return err
			}
			totalCourses += courses
			totalChunks += chunks
			continue
		}

		course, chunks, err := a.RAG.AddCourseDocument(ctx, path)
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %q (%d chunks)\n", course.Title, chunks)
		totalCourses++
		totalChunks += chunks
	}

	fmt.Printf("Done: %d courses, %d chunks\n", totalCourses, totalChunks)
	return nil
}
