package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prasadk/complyscan/internal/model"
)

// DocumentValidator defines the interface for validating one document
type DocumentValidator interface {
	Validate(ctx context.Context, documentID, framework string) (*model.ValidationRun, error)
}

// ValidateJob represents one document validation job
type ValidateJob struct {
	DocumentID string
	Framework  string
	Validator  DocumentValidator
}

// Execute executes the validation job
func (j *ValidateJob) Execute(ctx context.Context) Result {
	run, err := j.Validator.Validate(ctx, j.DocumentID, j.Framework)
	return &ValidateResult{
		DocumentID: j.DocumentID,
		Framework:  j.Framework,
		Run:        run,
		Error:      err,
	}
}

// ValidateResult represents the result of a validation job
type ValidateResult struct {
	DocumentID string
	Framework  string
	Run        *model.ValidationRun
	Error      error
}

// GetError returns the error from the validation result
func (r *ValidateResult) GetError() error {
	return r.Error
}

// BatchProcessor validates multiple documents concurrently
type BatchProcessor struct {
	validator   DocumentValidator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(validator DocumentValidator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		validator:   validator,
		concurrency: concurrency,
	}
}

// Process validates the listed documents concurrently against one framework
func (b *BatchProcessor) Process(ctx context.Context, documentIDs []string, framework string) []*ValidateResult {
	if len(documentIDs) == 0 {
		return []*ValidateResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, id := range documentIDs {
		pool.Submit(&ValidateJob{
			DocumentID: id,
			Framework:  framework,
			Validator:  b.validator,
		})
	}

	results := pool.Wait()

	validateResults := make([]*ValidateResult, len(results))
	for i, result := range results {
		validateResults[i] = result.(*ValidateResult)
	}

	return validateResults
}

// ProcessFile reads document ids from a manifest file and validates them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath, framework string) ([]*ValidateResult, error) {
	ids, err := ReadDocumentIDsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return b.Process(ctx, ids, framework), nil
}

// ReadDocumentIDsFromFile reads document ids from a file (one per line,
// # comments and blank lines skipped, duplicates dropped)
func ReadDocumentIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
