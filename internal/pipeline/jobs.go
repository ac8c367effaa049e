package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/pageflow/internal/session"
)

// ErrNotReady is returned when a job's PDF is requested before the job
// has completed.
var ErrNotReady = errors.New("export not ready")

// JobStatus represents the state of an export job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRendering JobStatus = "rendering"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single PDF export.
type Job struct {
	mu sync.Mutex

	ID        string
	SessionID string

	Status JobStatus
	Phase  string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Internal: not serialized.
	input  session.Snapshot
	pdf    []byte
	errors []string
}

// NewJob creates a queued export of snap. The snapshot is frozen at this
// point; later session edits do not affect the job.
func NewJob(snap session.Snapshot) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		SessionID: snap.ID,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		input:     snap,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs and returns how many were dropped.
func (s *JobStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for id, job := range s.jobs {
		if now.Sub(job.updated()) > s.ttl {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Fail records err and marks the job failed.
func (j *Job) Fail(phase string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err.Error())
	j.Status = StatusFailed
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Complete stores the rendered PDF and marks the job completed.
func (j *Job) Complete(pdf []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pdf = pdf
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Input returns the session snapshot the job renders.
func (j *Job) Input() session.Snapshot {
	return j.input
}

// PDF returns the rendered document, or ErrNotReady while the job is
// queued, rendering or failed.
func (j *Job) PDF() ([]byte, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusCompleted {
		return nil, ErrNotReady
	}
	return j.pdf, nil
}

func (j *Job) updated() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	SessionID string    `json:"session_id"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Title     string    `json:"title"`
	Pages     int       `json:"pages"`
	Bytes     int       `json:"bytes"`
	Errors    []string  `json:"errors"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	return JobSnapshot{
		ID:        j.ID,
		SessionID: j.SessionID,
		Status:    j.Status,
		Phase:     j.Phase,
		Title:     j.input.Title,
		Pages:     j.input.Pages,
		Bytes:     len(j.pdf),
		Errors:    errs,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
