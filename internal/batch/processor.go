package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Default batch processing configuration.
const (
	// DefaultBatchSize is the chunk size used by the group scanner.
	DefaultBatchSize = 10

	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size.
	MaxBatchSize = 1000
)

// Common batch processing errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be between 1 and 1000")
	ErrNilCallback      = errors.New("batch callback cannot be nil")
)

// BatchCallback is a function that processes a single batch of items.
// It receives the batch items, batch index (0-based), and should return an error if processing fails.
//
//nolint:revive // BatchCallback is the canonical name for this exported type.
type BatchCallback[T any] func(ctx context.Context, batch []T, batchIndex int) error

// Action processes one item and produces its result.
type Action[T, R any] func(ctx context.Context, item T) (R, error)

// ProgressCallback is an optional callback invoked after each batch is processed.
type ProgressCallback func(progress *Progress)

// Processor splits data into fixed-size batches and processes them sequentially.
type Processor[T any] struct {
	batchSize  int
	onProgress ProgressCallback
}

// NewProcessor creates a new batch processor with the given batch size.
func NewProcessor[T any](batchSize int) (*Processor[T], error) {
	if batchSize < MinBatchSize || batchSize > MaxBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}

	return &Processor[T]{
		batchSize: batchSize,
	}, nil
}

// WithProgressCallback sets a progress callback for the processor.
func (p *Processor[T]) WithProgressCallback(callback ProgressCallback) *Processor[T] {
	p.onProgress = callback
	return p
}

// Process processes items in batches using the provided callback.
// Processing is sequential and stops on the first error. An empty item list
// processes zero batches and returns nil.
func (p *Processor[T]) Process(ctx context.Context, items []T, callback BatchCallback[T]) error {
	if callback == nil {
		return ErrNilCallback
	}

	bounds := p.CalculateBatches(len(items))
	progress := NewProgress(len(items), len(bounds))

	for batchIndex, b := range bounds {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch := items[b[0]:b[1]]

		if err := callback(ctx, batch, batchIndex); err != nil {
			return fmt.Errorf("batch %d failed: %w", batchIndex, err)
		}

		progress.AddProcessed(len(batch))

		if p.onProgress != nil {
			p.onProgress(progress)
		}
	}

	return nil
}

// Map runs action over every item and returns the results in input order.
//
// Items of one batch run concurrently; batch k+1 starts only after every
// action of batch k returned. When an action fails the rest of its batch is
// still awaited, then the first error is returned and no later batch starts.
func Map[T, R any](ctx context.Context, p *Processor[T], items []T, action Action[T, R]) ([]R, error) {
	if action == nil {
		return nil, ErrNilCallback
	}

	results := make([]R, len(items))
	offset := 0
	err := p.Process(ctx, items, func(ctx context.Context, batch []T, _ int) error {
		base := offset
		offset += len(batch)

		var g errgroup.Group
		for i, item := range batch {
			i, item := i, item
			g.Go(func() error {
				r, err := action(ctx, item)
				results[base+i] = r
				return err
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// CalculateBatches returns the batch boundaries for the given items.
// Returns a slice of [start, end) index pairs.
func (p *Processor[T]) CalculateBatches(totalItems int) [][2]int {
	totalBatches := p.calculateTotalBatches(totalItems)
	batches := make([][2]int, totalBatches)

	for i := 0; i < totalBatches; i++ {
		start := i * p.batchSize
		end := min(start+p.batchSize, totalItems)
		batches[i] = [2]int{start, end}
	}

	return batches
}

// calculateTotalBatches calculates the number of batches needed for the given item count.
func (p *Processor[T]) calculateTotalBatches(totalItems int) int {
	batches := totalItems / p.batchSize
	if totalItems%p.batchSize > 0 {
		batches++
	}
	return batches
}
