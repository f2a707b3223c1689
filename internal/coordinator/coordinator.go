// Package coordinator drives concurrent file scans under a bounded
// concurrency ceiling.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/had-nu/credsweep/internal/logger"
	"github.com/had-nu/credsweep/internal/scanner"
	"github.com/had-nu/credsweep/internal/types"
)

// Scanner is the per-file scanning behavior the coordinator drives.
type Scanner interface {
	ScanFile(ctx context.Context, path string) ([]types.Match, error)
}

// RetryPolicy bounds re-attempts after transient resource exhaustion.
// Only resource-exhaustion failures are retried; decode and permission
// failures are permanent.
type RetryPolicy struct {
	// Attempts is the total number of attempts per file, the first
	// included.
	Attempts int
	// Backoff is how long to wait between attempts.
	Backoff time.Duration
}

// DefaultRetry allows a single retry after a fixed delay.
var DefaultRetry = RetryPolicy{Attempts: 2, Backoff: 5 * time.Second}

// DefaultBatchSize caps concurrent scans so a large tree cannot exhaust the
// process's file-descriptor limit.
const DefaultBatchSize = 100

// Coordinator fans a scanner out over candidate files in fixed-size
// concurrent batches.
type Coordinator struct {
	scanner   Scanner
	batchSize int
	retry     RetryPolicy
	log       *logger.Logger
}

// New creates a Coordinator. A non-positive batchSize falls back to
// DefaultBatchSize, a zero-attempt retry policy to DefaultRetry.
func New(s Scanner, batchSize int, retry RetryPolicy, log *logger.Logger) *Coordinator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if retry.Attempts <= 0 {
		retry = DefaultRetry
	}
	return &Coordinator{scanner: s, batchSize: batchSize, retry: retry, log: log}
}

// ScanTree runs the scanner over every path and returns the flattened
// result. Each batch runs concurrently and drains completely before the
// next batch starts, so no more than batchSize scans are ever in flight.
// Files that fail with a classified error are recorded in Result.Skipped
// and contribute zero matches; a failed file never cancels its batch
// siblings. Matches within one file keep increasing line order; no order is
// guaranteed across files.
func (c *Coordinator) ScanTree(ctx context.Context, paths []string) (types.Result, error) {
	var (
		result types.Result
		mu     sync.Mutex
	)

	for start := 0; start < len(paths); start += c.batchSize {
		end := min(start+c.batchSize, len(paths))

		g, gctx := errgroup.WithContext(ctx)
		for _, path := range paths[start:end] {
			path := path
			g.Go(func() error {
				matches, err := c.scanWithRetry(gctx, path)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return err
					}
					kind := scanner.Classify(err)
					c.log.Debugf("skipping %s: %s", path, kind)
					mu.Lock()
					result.Skipped = append(result.Skipped, types.SkippedFile{Path: path, Kind: kind, Err: err})
					mu.Unlock()
					return nil
				}
				if len(matches) > 0 {
					mu.Lock()
					result.Matches = append(result.Matches, matches...)
					mu.Unlock()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return types.Result{}, fmt.Errorf("scan batch: %w", err)
		}
	}

	return result, nil
}

// scanWithRetry retries resource-exhaustion failures up to the policy's
// attempt budget, waiting out the backoff without blocking sibling scans.
// All other failures return immediately.
func (c *Coordinator) scanWithRetry(ctx context.Context, path string) ([]types.Match, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		matches, err := c.scanner.ScanFile(ctx, path)
		if err == nil {
			return matches, nil
		}
		lastErr = err
		if scanner.Classify(err) != types.FailureResource || attempt == c.retry.Attempts {
			return nil, err
		}

		c.log.Warnf("resource limit hit scanning %s, retrying in %s", path, c.retry.Backoff)
		t := time.NewTimer(c.retry.Backoff)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
