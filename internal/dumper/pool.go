package dumper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vkdump/pkg/logger"
)

// DumpJob represents a single dialog to archive
type DumpJob struct {
	PeerID int64
	Title  string
	Type   string
}

// DumpResult represents the outcome of a dump job
type DumpResult struct {
	Job      DumpJob
	Success  bool
	Error    error
	Duration time.Duration
	Messages int
	Paths    []string
}

// DialogDumper archives a single dialog and reports what was written
type DialogDumper interface {
	DumpDialog(ctx context.Context, job DumpJob) (messages int, paths []string, err error)
}

// WorkerPool manages concurrent dialog dump workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan DumpJob
	resultQueue chan DumpResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	dumper      DialogDumper
	logger      logger.Logger
}

// NewWorkerPool creates a new dump worker pool
func NewWorkerPool(numWorkers int, dumper DialogDumper, log logger.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan DumpJob, numWorkers*2),
		resultQueue: make(chan DumpResult, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		dumper:      dumper,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop gracefully shuts down the worker pool. It returns once every
// submitted job has been processed and its result delivered.
func (wp *WorkerPool) Stop() {
	wp.logger.Info("Stopping worker pool...")

	// Close job queue to signal no more jobs will be added
	close(wp.jobQueue)

	// Wait for all workers to finish processing remaining jobs
	wp.wg.Wait()

	// Close result queue
	close(wp.resultQueue)

	// Cancel context
	wp.cancel()

	wp.logger.Info("Worker pool stopped")
}

// Submit adds a new dump job to the queue
func (wp *WorkerPool) Submit(job DumpJob) error {
	select {
	case wp.jobQueue <- job:
		wp.logger.DebugWithFields("Job submitted to queue", map[string]interface{}{
			"peer_id": job.PeerID,
			"title":   job.Title,
		})
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the result channel for consuming dump results
func (wp *WorkerPool) Results() <-chan DumpResult {
	return wp.resultQueue
}

// worker is the main worker routine
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.DebugWithFields("Worker started", map[string]interface{}{
		"worker_id": id,
	})

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			wp.logger.DebugWithFields("Worker stopping - context cancelled while sending result", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}

	wp.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

// processJob archives a single dialog
func (wp *WorkerPool) processJob(job DumpJob, workerID int) DumpResult {
	start := time.Now()
	result := DumpResult{
		Job:     job,
		Success: false,
	}

	wp.logger.DebugWithFields("Worker processing dialog", map[string]interface{}{
		"worker_id": workerID,
		"peer_id":   job.PeerID,
		"title":     job.Title,
	})

	messages, paths, err := wp.dumper.DumpDialog(wp.ctx, job)
	result.Duration = time.Since(start)
	result.Messages = messages
	result.Paths = paths

	if err != nil {
		result.Error = fmt.Errorf("dump failed: %w", err)

		wp.logger.ErrorWithFields("Worker failed to dump dialog", map[string]interface{}{
			"worker_id": workerID,
			"peer_id":   job.PeerID,
			"title":     job.Title,
			"error":     err.Error(),
			"duration":  result.Duration,
		})

		return result
	}

	result.Success = true

	wp.logger.DebugWithFields("Worker completed dialog", map[string]interface{}{
		"worker_id": workerID,
		"peer_id":   job.PeerID,
		"messages":  messages,
		"duration":  result.Duration,
	})

	return result
}

// GetQueueSize returns the current number of jobs in the queue
func (wp *WorkerPool) GetQueueSize() int {
	return len(wp.jobQueue)
}

// GetActiveWorkers returns the number of active workers
func (wp *WorkerPool) GetActiveWorkers() int {
	return wp.numWorkers
}
