package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/prasadk/complyscan/internal/pipeline"
)

var (
	ingestID      string
	ingestTimeout time.Duration
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Extract and register a document for validation",
	Long: `Ingest extracts text from a PDF, text or Markdown file, segments it by
detected section headers and registers the document for validation.

Re-ingesting with the same --id replaces the document's segments; cached
verdicts for the old content are not reused.

Example:
  complyscan ingest annual_report.pdf
  complyscan ingest annual_report.pdf --id acme-fy26`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document id (generated when empty)")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 5*time.Minute, "ingestion timeout (includes vector indexing)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
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

	doc, err := p.Ingest(ctx, args[0], ingestID)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("✓ Ingested %s (%d segments)\n", doc.Name, doc.SegmentCount)
	fmt.Printf("  Document id: %s\n", doc.ID)
	return nil
}
