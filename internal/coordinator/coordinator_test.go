package coordinator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/had-nu/credsweep/internal/logger"
	"github.com/had-nu/credsweep/internal/scanner"
	"github.com/had-nu/credsweep/internal/types"
)

// fakeScanner returns canned per-file outcomes.
type fakeScanner struct {
	mu       sync.Mutex
	attempts map[string]int
	scanFunc func(path string, attempt int) ([]types.Match, error)
}

func newFakeScanner(f func(path string, attempt int) ([]types.Match, error)) *fakeScanner {
	return &fakeScanner{attempts: make(map[string]int), scanFunc: f}
}

func (f *fakeScanner) ScanFile(_ context.Context, path string) ([]types.Match, error) {
	f.mu.Lock()
	f.attempts[path]++
	attempt := f.attempts[path]
	f.mu.Unlock()
	return f.scanFunc(path, attempt)
}

func (f *fakeScanner) attemptCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[path]
}

func quietLogger() *logger.Logger {
	return logger.New(io.Discard, "error")
}

func matchFor(path string) types.Match {
	return types.Match{Secret: "s", File: path, Line: 1, LineContent: "s"}
}

func pathList(n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("file%03d.txt", i)
	}
	return paths
}

func resourceErr() error {
	return fmt.Errorf("open: %w", syscall.EMFILE)
}

func TestScanTreeAggregatesAllMatches(t *testing.T) {
	fake := newFakeScanner(func(path string, _ int) ([]types.Match, error) {
		return []types.Match{matchFor(path)}, nil
	})
	c := New(fake, 10, RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, quietLogger())

	paths := pathList(37)
	result, err := c.ScanTree(context.Background(), paths)
	require.NoError(t, err)
	assert.Empty(t, result.Skipped)

	want := make([]types.Match, len(paths))
	for i, p := range paths {
		want[i] = matchFor(p)
	}
	// set equality: every file contributes exactly once, order across
	// files is not guaranteed
	assert.ElementsMatch(t, want, result.Matches)
}

func TestScanTreeConcurrencyCeiling(t *testing.T) {
	const batch = 5

	var inFlight, peak atomic.Int64
	fake := newFakeScanner(func(path string, _ int) ([]types.Match, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return nil, nil
	})
	c := New(fake, batch, RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, quietLogger())

	_, err := c.ScanTree(context.Background(), pathList(23))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(batch))
}

func TestScanTreeRetriesResourceExhaustion(t *testing.T) {
	const flaky = "file007.txt"

	fake := newFakeScanner(func(path string, attempt int) ([]types.Match, error) {
		if path == flaky && attempt == 1 {
			return nil, resourceErr()
		}
		return []types.Match{matchFor(path)}, nil
	})
	c := New(fake, 10, RetryPolicy{Attempts: 2, Backoff: 5 * time.Millisecond}, quietLogger())

	paths := pathList(12)
	result, err := c.ScanTree(context.Background(), paths)
	require.NoError(t, err)
	require.Empty(t, result.Skipped)

	// same outcome as if the file had succeeded immediately, no duplicates
	want := make([]types.Match, len(paths))
	for i, p := range paths {
		want[i] = matchFor(p)
	}
	assert.ElementsMatch(t, want, result.Matches)
	assert.Equal(t, 2, fake.attemptCount(flaky))
}

func TestScanTreeSecondExhaustionSkips(t *testing.T) {
	const doomed = "file002.txt"

	fake := newFakeScanner(func(path string, _ int) ([]types.Match, error) {
		if path == doomed {
			return nil, resourceErr()
		}
		return []types.Match{matchFor(path)}, nil
	})
	c := New(fake, 10, RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, quietLogger())

	result, err := c.ScanTree(context.Background(), pathList(5))
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, doomed, result.Skipped[0].Path)
	assert.Equal(t, types.FailureResource, result.Skipped[0].Kind)
	assert.Equal(t, 2, fake.attemptCount(doomed), "exactly one retry")
	assert.Len(t, result.Matches, 4, "siblings are unaffected")
}

func TestScanTreePermanentFailuresNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.FailureKind
	}{
		{
			name: "decode failure",
			err:  fmt.Errorf("blob: %w", scanner.ErrNotText),
			want: types.FailureDecode,
		},
		{
			name: "permission failure",
			err:  fmt.Errorf("open: %w", syscall.EACCES),
			want: types.FailurePermission,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const bad = "file000.txt"
			fake := newFakeScanner(func(path string, _ int) ([]types.Match, error) {
				if path == bad {
					return nil, tt.err
				}
				return []types.Match{matchFor(path)}, nil
			})
			c := New(fake, 10, RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, quietLogger())

			result, err := c.ScanTree(context.Background(), pathList(3))
			require.NoError(t, err)

			require.Len(t, result.Skipped, 1)
			assert.Equal(t, tt.want, result.Skipped[0].Kind)
			assert.Equal(t, 1, fake.attemptCount(bad), "no retry for permanent failures")
			assert.Len(t, result.Matches, 2)
		})
	}
}

func TestScanTreeEmptyInput(t *testing.T) {
	fake := newFakeScanner(func(path string, _ int) ([]types.Match, error) {
		t.Fatal("scanner must not be called")
		return nil, nil
	})
	c := New(fake, 10, RetryPolicy{}, quietLogger())

	result, err := c.ScanTree(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Empty(t, result.Skipped)
}

func TestScanTreeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := newFakeScanner(func(path string, _ int) ([]types.Match, error) {
		return nil, ctx.Err()
	})
	c := New(fake, 10, RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, quietLogger())

	_, err := c.ScanTree(ctx, pathList(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanTreeBackoffDoesNotBlockSiblings(t *testing.T) {
	// one file backs off for 80ms while the rest of its batch finishes
	const flaky = "file000.txt"
	var finished atomic.Int64

	fake := newFakeScanner(func(path string, attempt int) ([]types.Match, error) {
		if path == flaky && attempt == 1 {
			return nil, resourceErr()
		}
		if path != flaky {
			finished.Add(1)
		}
		return nil, nil
	})
	c := New(fake, 10, RetryPolicy{Attempts: 2, Backoff: 80 * time.Millisecond}, quietLogger())

	done := make(chan struct{})
	go func() {
		_, _ = c.ScanTree(context.Background(), pathList(10))
		close(done)
	}()

	// well before the backoff expires, every sibling should be done
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int64(9), finished.Load())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not finish")
	}
}

func TestDefaultsApplied(t *testing.T) {
	c := New(newFakeScanner(nil), 0, RetryPolicy{}, quietLogger())
	assert.Equal(t, DefaultBatchSize, c.batchSize)
	assert.Equal(t, DefaultRetry, c.retry)
}
