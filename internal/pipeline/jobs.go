package pipeline

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgallion1/xml2rst/internal/convert"
)

// JobStatus represents the state of a conversion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusConverting JobStatus = "converting"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single asynchronous conversion.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Format   string    `json:"format,omitempty"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	opts     convert.Options
	key      string
	fileData []byte
	output   []byte
	err      error
	errors   []string
}

// Progress describes what a job has consumed and produced.
type Progress struct {
	InputBytes  int      `json:"input_bytes"`
	OutputBytes int      `json:"output_bytes"`
	Lines       int      `json:"lines"`
	Errors      []string `json:"errors"`
}

// NewJob creates a queued job for data. Jobs with identical input bytes
// and identical rendering options share a result key.
func NewJob(filename string, data []byte, opts convert.Options) *Job {
	now := time.Now()
	hash := ContentHashHex(data)
	return &Job{
		ID:          generateULID(),
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		Format:      opts.Format,
		Progress:    Progress{InputBytes: len(data)},
		ContentHash: hash,
		CreatedAt:   now,
		UpdatedAt:   now,
		opts:        opts,
		key:         resultKey(hash, opts),
		fileData:    data,
	}
}

func resultKey(hash string, opts convert.Options) string {
	return hash + "|" + opts.Format + "|" + opts.Adornment.String() + "|" + strconv.Itoa(opts.Fold)
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

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// FindCompleted returns another completed job with the same result key as
// job, or nil.
func (s *JobStore) FindCompleted(job *Job) *Job {
	s.mu.Lock()
	candidates := make([]*Job, 0, len(s.jobs))
	for id, other := range s.jobs {
		if id != job.ID && other.key == job.key {
			candidates = append(candidates, other)
		}
	}
	s.mu.Unlock()

	for _, other := range candidates {
		if _, ok := other.Output(); ok {
			return other
		}
	}
	return nil
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
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
	j.err = err
	j.errors = append(j.errors, err.Error())
	j.Progress.Errors = j.errors
	j.Status = StatusFailed
	j.Phase = phase
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// Err returns the error that failed the job, if any.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Complete stores the rendered output and releases the input bytes.
func (j *Job) Complete(phase string, out []byte, lines int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.output = out
	j.Progress.OutputBytes = len(out)
	j.Progress.Lines = lines
	j.Status = StatusCompleted
	j.Phase = phase
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// Output returns the rendered reStructuredText once the job has completed.
func (j *Job) Output() ([]byte, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusCompleted {
		return nil, false
	}
	return j.output, true
}

// FileData returns the raw input bytes, nil once the job has finished.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// Options returns the conversion options the job was submitted with.
func (j *Job) Options() convert.Options {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.opts
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Format      string    `json:"format,omitempty"`
	ContentHash string    `json:"content_hash"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Format:      j.Format,
		ContentHash: j.ContentHash,
		Progress: Progress{
			InputBytes:  j.Progress.InputBytes,
			OutputBytes: j.Progress.OutputBytes,
			Lines:       j.Progress.Lines,
			Errors:      errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
