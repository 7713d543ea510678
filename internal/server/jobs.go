package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/lens/internal/indexer"
	"github.com/hyperjump/lens/internal/models"
)

// ErrQueueFull is returned when too many index jobs are waiting.
var ErrQueueFull = errors.New("index job queue is full")

// JobStatus is the lifecycle state of an index job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IndexRunner runs one indexing pass. indexer.Indexer implements it.
type IndexRunner interface {
	Run(ctx context.Context, opts indexer.Options) (*models.IndexReport, error)
}

// Job is an index run submitted over the API.
type Job struct {
	ID         string              `json:"id"`
	Status     JobStatus           `json:"status"`
	Collection string              `json:"collection"`
	Append     bool                `json:"append"`
	Report     *models.IndexReport `json:"report,omitempty"`
	Error      string              `json:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`

	opts indexer.Options
}

// Jobs runs index jobs one at a time in submission order. Runs never overlap, so two
// jobs cannot publish the same collection concurrently.
type Jobs struct {
	runner IndexRunner
	queue  chan *Job
	logger *zap.Logger

	mu   sync.Mutex
	jobs map[string]*Job

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobs creates a dispatcher holding at most depth waiting jobs.
func NewJobs(runner IndexRunner, depth int, logger *zap.Logger) *Jobs {
	if depth <= 0 {
		depth = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Jobs{
		runner: runner,
		queue:  make(chan *Job, depth),
		jobs:   make(map[string]*Job),
		logger: logger,
	}
}

// Start launches the worker. Jobs still queued when ctx ends are marked cancelled.
func (j *Jobs) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for {
			select {
			case <-ctx.Done():
				j.drain()
				return
			case job := <-j.queue:
				j.run(ctx, job)
			}
		}
	}()
}

// Stop cancels the running job and waits for the worker to exit.
func (j *Jobs) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

// Submit queues an index run with opts.
func (j *Jobs) Submit(opts indexer.Options) (*Job, error) {
	job := &Job{
		ID:         uuid.New().String(),
		Status:     JobQueued,
		Collection: opts.Collection,
		Append:     opts.Append,
		CreatedAt:  time.Now(),
		opts:       opts,
	}
	j.mu.Lock()
	j.jobs[job.ID] = job
	j.mu.Unlock()
	select {
	case j.queue <- job:
		return job.snapshot(&j.mu), nil
	default:
		j.mu.Lock()
		delete(j.jobs, job.ID)
		j.mu.Unlock()
		return nil, ErrQueueFull
	}
}

// Get returns a copy of the job with id.
func (j *Jobs) Get(id string) (*Job, bool) {
	j.mu.Lock()
	job, ok := j.jobs[id]
	j.mu.Unlock()
	if !ok {
		return nil, false
	}
	return job.snapshot(&j.mu), true
}

func (job *Job) snapshot(mu *sync.Mutex) *Job {
	mu.Lock()
	defer mu.Unlock()
	cp := *job
	return &cp
}

func (j *Jobs) run(ctx context.Context, job *Job) {
	now := time.Now()
	j.mu.Lock()
	job.Status = JobRunning
	job.StartedAt = &now
	j.mu.Unlock()
	j.logger.Info("Index job started", zap.String("job_id", job.ID), zap.String("collection", job.Collection))

	report, err := j.runner.Run(ctx, job.opts)

	done := time.Now()
	j.mu.Lock()
	job.Report = report
	job.FinishedAt = &done
	switch {
	case errors.Is(err, context.Canceled):
		job.Status = JobCancelled
		job.Error = err.Error()
	case err != nil:
		job.Status = JobFailed
		job.Error = err.Error()
	default:
		job.Status = JobSucceeded
	}
	status := job.Status
	j.mu.Unlock()

	if err != nil || report == nil {
		j.logger.Warn("Index job ended", zap.String("job_id", job.ID), zap.String("status", string(status)), zap.Error(err))
		return
	}
	j.logger.Info("Index job finished", zap.String("job_id", job.ID),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))
}

func (j *Jobs) drain() {
	for {
		select {
		case job := <-j.queue:
			now := time.Now()
			j.mu.Lock()
			job.Status = JobCancelled
			job.FinishedAt = &now
			j.mu.Unlock()
		default:
			return
		}
	}
}
