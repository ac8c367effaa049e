package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/pageflow/internal/render"
)

// Worker renders export jobs.
type Worker struct {
	renderer *render.Renderer
	log      *slog.Logger
}

func NewWorker(renderer *render.Renderer, log *slog.Logger) *Worker {
	return &Worker{renderer: renderer, log: log}
}

// Process renders the job's snapshot to PDF.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "session_id", job.SessionID)

	if err := ctx.Err(); err != nil {
		job.Fail("queued", fmt.Errorf("cancelled before rendering: %w", err))
		return
	}

	job.SetStatus(StatusRendering, "rendering")
	start := time.Now()
	snap := job.Input()

	var buf bytes.Buffer
	if err := w.renderer.Render(&buf, snap.Doc, snap.Breaks(), snap.Config); err != nil {
		log.Error("render failed", "error", err)
		job.Fail("rendering", fmt.Errorf("render: %w", err))
		return
	}

	job.Complete(buf.Bytes())
	log.Info("export complete",
		"pages", snap.Pages,
		"bytes", buf.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
