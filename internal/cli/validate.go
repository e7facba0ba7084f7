package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/prasadk/complyscan/internal/pipeline"
)

var (
	outJSON         string
	outMD           string
	validateTimeout time.Duration
	noCache         bool
	noFooter        bool
	workers         int
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <document-id> <framework>",
	Short: "Validate an ingested document against a rule framework",
	Long: `Validate runs every rule of the framework against the document:
- Select the document sections relevant to each rule
- Judge each rule independently with the configured LLM
- Aggregate verdicts into a 0-100 score and a gap list

A rule whose evaluation fails is reported as needing review; the run
still completes. Results are persisted and rendered.

Example:
  complyscan validate acme-fy26 ind_as
  complyscan validate acme-fy26 sebi --json report.json --md report.md`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	validateCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	validateCmd.Flags().DurationVar(&validateTimeout, "timeout", 10*time.Minute, "overall validation timeout")
	validateCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable verdict cache (force fresh evaluation)")
	validateCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	validateCmd.Flags().IntVar(&workers, "workers", 0, "concurrent rule evaluations (0 = config default)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	documentID, framework := args[0], args[1]
	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Cache.Enabled = cfg.Cache.Enabled && !noCache
	cfg.Output.IncludeFooter = cfg.Output.IncludeFooter && !noFooter
	if workers > 0 {
		cfg.Validation.Workers = workers
	}

	p, err := pipeline.New(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	defer p.Close()

	run, err := p.Validate(ctx, documentID, framework)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := p.RenderReport(run, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
