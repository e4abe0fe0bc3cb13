// Package ingest turns uploaded catalog files into indexed vector points,
// tracking each upload as a job with externally visible status.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/catalogd/internal/cache"
)

// ErrJobNotFound indicates an unknown or expired upload job.
var ErrJobNotFound = errors.New("upload job not found")

// Job statuses. Done, failed and cancelled are terminal and never
// overwritten by later progress updates.
const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// LogEntry is one append-only progress line in a job record.
type LogEntry struct {
	Message  string `json:"msg"`
	Progress int    `json:"progress"`
}

// Job is the status record of one catalog upload. Progress runs 0-100.
type Job struct {
	ID       string     `json:"id"`
	Status   string     `json:"status"`
	Step     string     `json:"step"`
	Progress int        `json:"progress"`
	Log      []LogEntry `json:"log"`
	Indexed  int        `json:"indexed"`
	Skipped  int        `json:"skipped"`
	// ReportURL points at the skipped-rows report, when one was written.
	ReportURL string    `json:"report_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j Job) terminal() bool {
	return j.Status == StatusDone || j.Status == StatusFailed || j.Status == StatusCancelled
}

// Jobs stores job records in the cache so status survives process restarts
// as long as the record TTL.
type Jobs struct {
	cache     cache.Cache
	logger    *zap.Logger
	jobTTL    time.Duration
	cancelTTL time.Duration
	now       func() time.Time
}

// NewJobs creates a job store.
func NewJobs(c cache.Cache, jobTTL, cancelTTL time.Duration, logger *zap.Logger) *Jobs {
	if jobTTL == 0 {
		jobTTL = time.Hour
	}
	if cancelTTL == 0 {
		cancelTTL = 10 * time.Minute
	}
	return &Jobs{cache: c, logger: logger, jobTTL: jobTTL, cancelTTL: cancelTTL, now: time.Now}
}

// Get returns the job record for id.
func (s *Jobs) Get(ctx context.Context, id string) (Job, error) {
	raw, ok := s.cache.Get(ctx, cache.JobKey(id))
	if !ok {
		return Job{}, ErrJobNotFound
	}
	var j Job
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		s.logger.Warn("corrupt job record", zap.String("job_id", id), zap.Error(err))
		return Job{}, ErrJobNotFound
	}
	return j, nil
}

// Start records a fresh processing job.
func (s *Jobs) Start(ctx context.Context, id string) Job {
	j := Job{
		ID:        id,
		Status:    StatusProcessing,
		Step:      "received",
		Log:       []LogEntry{{Message: "upload received"}},
		UpdatedAt: s.now(),
	}
	s.save(ctx, j)
	return j
}

// Update advances a processing job's step and progress. Updates to terminal
// jobs are dropped.
func (s *Jobs) Update(ctx context.Context, id, step string, progress int, message string) {
	j, err := s.Get(ctx, id)
	if err != nil || j.terminal() {
		return
	}
	j.Step = step
	j.Progress = progress
	if message != "" {
		j.Log = append(j.Log, LogEntry{Message: message, Progress: progress})
	}
	j.UpdatedAt = s.now()
	s.save(ctx, j)
}

// Finish marks a job done with its final counts.
func (s *Jobs) Finish(ctx context.Context, id string, indexed, skipped int, reportURL string) {
	j, err := s.Get(ctx, id)
	if err != nil {
		j = Job{ID: id}
	}
	if j.terminal() {
		return
	}
	j.Status = StatusDone
	j.Step = "done"
	j.Progress = 100
	j.Indexed = indexed
	j.Skipped = skipped
	j.ReportURL = reportURL
	j.Log = append(j.Log, LogEntry{Message: "indexing complete", Progress: 100})
	j.UpdatedAt = s.now()
	s.save(ctx, j)
}

// Fail marks a job failed with a reason.
func (s *Jobs) Fail(ctx context.Context, id, reason string) {
	j, err := s.Get(ctx, id)
	if err != nil {
		j = Job{ID: id}
	}
	if j.terminal() {
		return
	}
	j.Status = StatusFailed
	j.Error = reason
	j.Log = append(j.Log, LogEntry{Message: "failed: " + reason, Progress: j.Progress})
	j.UpdatedAt = s.now()
	s.save(ctx, j)
}

// RequestCancel cancels a job. The status record flips to cancelled right
// away so polls reflect it even if the worker is gone; the flag tells a live
// worker to stop at the next batch boundary.
func (s *Jobs) RequestCancel(ctx context.Context, id string) error {
	j, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.cache.Set(ctx, cache.CancelKey(id), "1", s.cancelTTL)
	s.MarkCancelled(ctx, id, j.Indexed)
	return nil
}

// CancelRequested reports whether a cancel flag is set for the job.
func (s *Jobs) CancelRequested(ctx context.Context, id string) bool {
	_, ok := s.cache.Get(ctx, cache.CancelKey(id))
	return ok
}

// MarkCancelled records that the worker honored a cancel request.
func (s *Jobs) MarkCancelled(ctx context.Context, id string, indexed int) {
	j, err := s.Get(ctx, id)
	if err != nil {
		j = Job{ID: id}
	}
	if j.terminal() {
		return
	}
	j.Status = StatusCancelled
	j.Indexed = indexed
	j.Log = append(j.Log, LogEntry{Message: "cancelled", Progress: j.Progress})
	j.UpdatedAt = s.now()
	s.save(ctx, j)
}

func (s *Jobs) save(ctx context.Context, j Job) {
	raw, err := json.Marshal(j)
	if err != nil {
		s.logger.Error("marshaling job record", zap.String("job_id", j.ID), zap.Error(err))
		return
	}
	s.cache.Set(ctx, cache.JobKey(j.ID), string(raw), s.jobTTL)
}
