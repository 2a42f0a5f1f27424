package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/large-farva/fieldline-engine/internal/observability"
	"github.com/large-farva/fieldline-engine/internal/orbit"
	"github.com/large-farva/fieldline-engine/internal/ws"
)

// JobState tracks a batch job through its lifecycle.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobDone      JobState = "done"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Job is one batch classification request: an input orbit file, an output
// path, and a worker count. Jobs run one at a time in submission order.
type Job struct {
	ID       int            `json:"id"`
	Input    string         `json:"input"`
	Output   string         `json:"output"`
	Workers  int            `json:"workers"`
	State    JobState       `json:"state"`
	Summary  *orbit.Summary `json:"summary,omitempty"`
	Error    string         `json:"error,omitempty"`
	Queued   string         `json:"queued_at"`
	Started  string         `json:"started_at,omitempty"`
	Finished string         `json:"finished_at,omitempty"`

	runCtx context.Context `json:"-"`
}

// JobRunner owns the batch work loop: it drains the job queue, runs each
// job with a cancellable child context, and mirrors job progress to the
// WebSocket hub.
type JobRunner struct {
	hub     *ws.Hub
	log     *log.Logger
	batch   *orbit.Batch
	metrics *observability.Collector

	queue chan *Job

	mu            sync.Mutex
	jobs          []*Job
	nextID        int
	currentID     int
	cancelCurrent context.CancelFunc

	// jobCallback is invoked after every finished job, for app-level stats.
	jobCallback func(*Job)
}

// NewJobRunner creates a runner with a bounded queue; submissions beyond the
// bound are rejected rather than buffered without limit.
func NewJobRunner(batch *orbit.Batch, hub *ws.Hub, logger *log.Logger, metrics *observability.Collector) *JobRunner {
	return &JobRunner{
		hub:     hub,
		log:     logger,
		batch:   batch,
		metrics: metrics,
		queue:   make(chan *Job, 16),
		nextID:  1,
	}
}

// SetJobCallback registers a function called when a job finishes.
func (r *JobRunner) SetJobCallback(fn func(*Job)) {
	r.jobCallback = fn
}

// Submit enqueues a batch job. It never blocks; a full queue is an error.
func (r *JobRunner) Submit(input, output string, workers int) (Job, error) {
	r.mu.Lock()
	job := &Job{
		ID:      r.nextID,
		Input:   input,
		Output:  output,
		Workers: workers,
		State:   JobQueued,
		Queued:  time.Now().UTC().Format(time.RFC3339),
	}
	r.nextID++
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()

	select {
	case r.queue <- job:
	default:
		r.mu.Lock()
		job.State = JobFailed
		job.Error = "job queue full"
		r.mu.Unlock()
		return *job, fmt.Errorf("job queue full")
	}

	r.broadcastJob(job)
	return r.snapshot(job), nil
}

// Jobs returns a snapshot of all jobs, newest first.
func (r *JobRunner) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, 0, len(r.jobs))
	for i := len(r.jobs) - 1; i >= 0; i-- {
		out = append(out, *r.jobs[i])
	}
	return out
}

// Cancel aborts a job: a queued job is marked cancelled and skipped when it
// surfaces; the running job has its context cancelled.
func (r *JobRunner) Cancel(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, job := range r.jobs {
		if job.ID != id {
			continue
		}
		switch job.State {
		case JobQueued:
			job.State = JobCancelled
			job.Finished = time.Now().UTC().Format(time.RFC3339)
			return nil
		case JobRunning:
			if r.cancelCurrent != nil {
				r.cancelCurrent()
			}
			return nil
		default:
			return fmt.Errorf("job %d already %s", id, job.State)
		}
	}
	return fmt.Errorf("no such job: %d", id)
}

// Run is the job loop. It blocks until ctx is cancelled.
func (r *JobRunner) Run(ctx context.Context, setState func(string)) {
	r.broadcast(map[string]any{
		"type":    "log",
		"level":   "info",
		"message": "batch job runner started",
	})

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-r.queue:
			if r.claimJob(ctx, job) {
				r.runJob(ctx, job, setState)
			}
		}
	}
}

// claimJob transitions a queued job to running, skipping jobs cancelled
// while they waited.
func (r *JobRunner) claimJob(ctx context.Context, job *Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.State != JobQueued {
		return false
	}
	jobCtx, cancel := context.WithCancel(ctx)
	job.State = JobRunning
	job.Started = time.Now().UTC().Format(time.RFC3339)
	r.currentID = job.ID
	r.cancelCurrent = cancel
	job.runCtx = jobCtx
	return true
}

func (r *JobRunner) runJob(ctx context.Context, job *Job, setState func(string)) {
	defer func() {
		r.mu.Lock()
		r.currentID = 0
		if r.cancelCurrent != nil {
			r.cancelCurrent()
			r.cancelCurrent = nil
		}
		r.mu.Unlock()
		setState("IDLE")
	}()

	r.broadcastJob(job)
	r.log.Printf("jobs: starting job %d: %s -> %s (%d workers)", job.ID, job.Input, job.Output, job.Workers)

	setState("CLASSIFYING")
	table, err := orbit.ReadFile(job.Input)
	if err != nil {
		r.finishJob(job, nil, err)
		return
	}

	summary, err := r.batch.Run(job.runCtx, table, job.Workers)
	if err != nil {
		r.finishJob(job, nil, err)
		return
	}

	setState("WRITING")
	if err := table.WriteFile(job.Output); err != nil {
		r.finishJob(job, nil, err)
		return
	}

	r.finishJob(job, &summary, nil)
}

func (r *JobRunner) finishJob(job *Job, summary *orbit.Summary, err error) {
	r.mu.Lock()
	job.Finished = time.Now().UTC().Format(time.RFC3339)
	switch {
	case err == nil:
		job.State = JobDone
		job.Summary = summary
	case job.runCtx != nil && job.runCtx.Err() != nil:
		job.State = JobCancelled
		job.Error = err.Error()
	default:
		job.State = JobFailed
		job.Error = err.Error()
	}
	snapshot := *job
	r.mu.Unlock()

	result := map[JobState]string{JobDone: "ok", JobFailed: "error", JobCancelled: "cancelled"}[snapshot.State]
	r.metrics.ObserveBatchJob(result)

	if err != nil {
		r.log.Printf("jobs: job %d %s: %v", snapshot.ID, snapshot.State, err)
	} else {
		r.log.Printf("jobs: job %d done: %d rows (closed=%d open=%d IMF=%d)",
			snapshot.ID, summary.Rows, summary.Closed, summary.Open, summary.IMF)
	}
	r.broadcastJob(&snapshot)

	if r.jobCallback != nil {
		r.jobCallback(&snapshot)
	}
}

func (r *JobRunner) snapshot(job *Job) Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *job
}

func (r *JobRunner) broadcastJob(job *Job) {
	r.mu.Lock()
	snapshot := *job
	r.mu.Unlock()
	r.broadcast(map[string]any{
		"type":    "job",
		"id":      snapshot.ID,
		"state":   string(snapshot.State),
		"input":   snapshot.Input,
		"output":  snapshot.Output,
		"error":   snapshot.Error,
		"summary": snapshot.Summary,
	})
}

func (r *JobRunner) broadcast(v map[string]any) {
	v["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	v["component"] = "jobs"
	r.hub.BroadcastJSON(v)
}
