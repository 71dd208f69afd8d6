package dumper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"vkdump/pkg/logger"
)

// fakeDumper counts processed jobs and fails the peers listed in failPeers
type fakeDumper struct {
	processed int32
	failPeers map[int64]bool
	mu        sync.Mutex
	seen      []int64
}

func (f *fakeDumper) DumpDialog(_ context.Context, job DumpJob) (int, []string, error) {
	atomic.AddInt32(&f.processed, 1)

	f.mu.Lock()
	f.seen = append(f.seen, job.PeerID)
	f.mu.Unlock()

	if f.failPeers[job.PeerID] {
		return 0, nil, fmt.Errorf("simulated failure for peer %d", job.PeerID)
	}
	return 10, []string{"dialog.json"}, nil
}

// collectResults drains the result channel into a slice
func collectResults(pool *WorkerPool) <-chan []DumpResult {
	done := make(chan []DumpResult, 1)
	go func() {
		var results []DumpResult
		for result := range pool.Results() {
			results = append(results, result)
		}
		done <- results
	}()
	return done
}

func TestWorkerPoolProcessesAllJobs(t *testing.T) {
	const numJobs = 25

	dumper := &fakeDumper{}
	pool := NewWorkerPool(4, dumper, logger.GetLogger())
	pool.Start()

	done := collectResults(pool)

	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(DumpJob{PeerID: int64(i + 1), Title: "dialog"}); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
	}
	pool.Stop()

	results := <-done
	if len(results) != numJobs {
		t.Errorf("got %d results, want %d", len(results), numJobs)
	}
	if got := atomic.LoadInt32(&dumper.processed); got != numJobs {
		t.Errorf("dumper processed %d jobs, want %d", got, numJobs)
	}

	for _, result := range results {
		if !result.Success {
			t.Errorf("job for peer %d failed: %v", result.Job.PeerID, result.Error)
		}
		if result.Messages != 10 {
			t.Errorf("job for peer %d reported %d messages, want 10", result.Job.PeerID, result.Messages)
		}
	}
}

func TestWorkerPoolReportsFailures(t *testing.T) {
	dumper := &fakeDumper{failPeers: map[int64]bool{2: true}}
	pool := NewWorkerPool(2, dumper, logger.GetLogger())
	pool.Start()

	done := collectResults(pool)

	for _, peer := range []int64{1, 2, 3} {
		if err := pool.Submit(DumpJob{PeerID: peer}); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
	}
	pool.Stop()

	results := <-done
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	failures := 0
	for _, result := range results {
		if !result.Success {
			failures++
			if result.Job.PeerID != 2 {
				t.Errorf("unexpected failure for peer %d", result.Job.PeerID)
			}
			if result.Error == nil {
				t.Error("failed result carries no error")
			}
		}
	}
	if failures != 1 {
		t.Errorf("got %d failures, want 1", failures)
	}
}

func TestWorkerPoolNoJobs(t *testing.T) {
	pool := NewWorkerPool(3, &fakeDumper{}, logger.GetLogger())
	pool.Start()

	done := collectResults(pool)
	pool.Stop()

	if results := <-done; len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestWorkerPoolSingleWorker(t *testing.T) {
	const numJobs = 5

	dumper := &fakeDumper{}
	pool := NewWorkerPool(1, dumper, logger.GetLogger())
	pool.Start()

	done := collectResults(pool)

	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(DumpJob{PeerID: int64(i + 1)}); err != nil {
			t.Fatalf("Submit() error: %v", err)
		}
	}
	pool.Stop()

	results := <-done
	if len(results) != numJobs {
		t.Errorf("got %d results, want %d", len(results), numJobs)
	}
}
