package pipeline

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/dgallion1/xml2rst/internal/convert"
)

// Worker converts queued jobs one at a time.
type Worker struct {
	jobs *JobStore
	log  *slog.Logger
}

func NewWorker(jobs *JobStore, log *slog.Logger) *Worker {
	return &Worker{jobs: jobs, log: log}
}

// Process converts job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Identical input and options render identically, so a finished job's
	// output can be reused.
	if prev := w.jobs.FindCompleted(job); prev != nil {
		out, _ := prev.Output()
		lines := prev.Snapshot().Progress.Lines
		log.Info("reusing earlier result", "previous_job_id", prev.ID)
		job.Complete("reused", out, lines)
		return
	}

	job.SetStatus(StatusConverting, "converting")
	opts := job.Options()
	opts.Logger = log

	out, err := convert.Reader(ctx, bytes.NewReader(job.FileData()), job.Filename, opts)
	if err != nil {
		log.Error("conversion failed", "error", err)
		job.Fail("converting", err)
		return
	}

	lines := bytes.Count(out, []byte("\n"))
	log.Info("conversion completed", "bytes", len(out), "lines", lines)
	job.Complete("done", out, lines)
}
