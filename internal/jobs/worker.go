package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sjperalta/fintera-financing/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

// Worker runs queued jobs on a fixed pool and owns the scheduled jobs of the
// process (cron expressions and fixed intervals).
type Worker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	queue         chan namedJob
	queueMu       sync.RWMutex
	closed        bool
	maxConcurrent int
	cron          *cron.Cron
	stats         WorkerStats
	statsMu       sync.RWMutex
	closeOnce     sync.Once
}

type namedJob struct {
	name string
	run  Job
}

// WorkerStats holds statistics about the worker
type WorkerStats struct {
	ActiveJobs    int       `json:"active_jobs"`
	CompletedJobs int64     `json:"completed_jobs"` // finished, failed ones included
	FailedJobs    int64     `json:"failed_jobs"`
	QueueLength   int       `json:"queue_length"`
	MaxConcurrent int       `json:"max_concurrent"`
	ScheduledJobs int       `json:"scheduled_jobs"`
	LastRun       time.Time `json:"last_run,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// NewWorker creates a worker with N concurrent processors
func NewWorker(numWorkers int) *Worker {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		ctx:           ctx,
		cancel:        cancel,
		queue:         make(chan namedJob, 100),
		maxConcurrent: numWorkers,
		cron:          cron.New(),
	}

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}
	w.cron.Start()

	return w
}

// Enqueue adds a job to the pool queue and reports whether it was accepted.
// When the queue is full the job runs on the caller's goroutine; after
// Shutdown it is dropped.
func (w *Worker) Enqueue(name string, job Job) bool {
	w.queueMu.RLock()
	defer w.queueMu.RUnlock()
	if w.closed {
		logger.Log.Warn("worker stopped, dropping job", "job", name)
		return false
	}

	select {
	case w.queue <- namedJob{name: name, run: job}:
	default:
		logger.Log.Warn("worker queue full, running job inline", "job", name)
		w.run("inline", namedJob{name: name, run: job})
	}
	return true
}

func (w *Worker) process(workerID int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case job, ok := <-w.queue:
			if !ok {
				return
			}
			w.run(fmt.Sprintf("pool-%d", workerID), job)
		}
	}
}

// ScheduleCron registers job under a standard five-field cron expression
func (w *Worker) ScheduleCron(spec, name string, job Job) error {
	_, err := w.cron.AddFunc(spec, func() {
		w.run("cron", namedJob{name: name, run: job})
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", spec, name, err)
	}

	w.statsMu.Lock()
	w.stats.ScheduledJobs++
	w.statsMu.Unlock()

	logger.Log.Info("job scheduled", "job", name, "cron", spec)
	return nil
}

// ScheduleEvery runs a job at fixed intervals. The first run happens after the interval (not at startup).
func (w *Worker) ScheduleEvery(interval time.Duration, name string, job Job) {
	w.statsMu.Lock()
	w.stats.ScheduledJobs++
	w.statsMu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.run("ticker", namedJob{name: name, run: job})
			}
		}
	}()
}

func (w *Worker) run(runner string, job namedJob) {
	w.trackJobStart()
	start := time.Now()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			logger.Log.Error("job failed", "job", job.name, "runner", runner, "error", err)
		} else {
			logger.Log.Info("job completed", "job", job.name, "runner", runner, "elapsed", time.Since(start))
		}
		w.trackJobEnd(err)
	}()

	err = job.run(w.ctx)
}

// Shutdown stops the scheduler and waits for running jobs to finish
func (w *Worker) Shutdown() {
	w.closeOnce.Do(func() {
		<-w.cron.Stop().Done()
		w.cancel()

		w.queueMu.Lock()
		w.closed = true
		close(w.queue)
		w.queueMu.Unlock()

		w.wg.Wait()
	})
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.QueueLength = len(w.queue)
	stats.MaxConcurrent = w.maxConcurrent
	return stats
}

func (w *Worker) trackJobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

func (w *Worker) trackJobEnd(err error) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++
	w.stats.LastRun = time.Now()
	if err != nil {
		w.stats.FailedJobs++
		w.stats.LastError = err.Error()
	}
}
