package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/prasadk/complyscan/internal/pipeline"
	"github.com/prasadk/complyscan/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest> <framework>",
	Short: "Validate multiple documents from a manifest file in parallel",
	Long: `Batch validates multiple ingested documents concurrently:
- Read document ids from the manifest (one per line, # comments skipped)
- Validate documents in parallel with a configurable worker count
- Write one JSON and Markdown report per document

Example:
  complyscan batch documents.txt ind_as
  complyscan batch documents.txt sebi --concurrency 4 --output-dir ./reports`,
	Args: cobra.ExactArgs(2),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent document validations")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./complyscan-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest, framework := args[0], args[1]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	p, err := pipeline.New(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	defer p.Close()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Batch validation: %s against %s (%d workers)\n", manifest, framework, concurrency)

	processor := worker.NewBatchProcessor(p, concurrency)
	results, err := processor.ProcessFile(ctx, manifest, framework)
	if err != nil {
		return err
	}

	var failed int
	for _, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.DocumentID, result.Error)
			continue
		}

		base := filepath.Join(outputDir, result.DocumentID+"_"+framework)
		if err := p.RenderReport(result.Run, base+".json", base+".md", verbose); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: render failed: %v\n", result.DocumentID, err)
			failed++
		}
	}

	fmt.Fprintf(os.Stderr, "\nBatch complete: %d succeeded, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}
