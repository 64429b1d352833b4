package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	serrors "github.com/Aman-CERP/sitesearch/internal/errors"
	"github.com/Aman-CERP/sitesearch/internal/store"
)

// DefaultJobName is the checkpoint key of the reindex job.
const DefaultJobName = "reindex"

// Locker is a cross-process lock that serializes reindex jobs.
type Locker interface {
	TryLock() (bool, error)
	Unlock() error
}

// JobConfig configures one reindex run.
type JobConfig struct {
	// Name keys the checkpoint. Defaults to DefaultJobName.
	Name string

	// Full wipes the index before the first step.
	Full bool

	// Resume continues from a saved checkpoint when one exists.
	Resume bool

	// MaxSteps stops the run after this many steps, leaving a checkpoint.
	// Zero runs to completion.
	MaxSteps int

	// Progress is called after every step.
	Progress func(Cursor)
}

// JobResult contains the outcome of a reindex run.
type JobResult struct {
	// Total is the number of records enumerated.
	Total int

	// Processed is the number of records handled so far, across resumes.
	Processed int

	// Steps is the number of steps run by this call.
	Steps int

	// Failures lists every record that could not be indexed.
	Failures []StepFailure

	// Resumed indicates the run continued from a checkpoint.
	Resumed bool

	// Done indicates every record was processed and the checkpoint cleared.
	Done bool

	Duration time.Duration
}

// JobDependencies contains the injected dependencies for Job.
type JobDependencies struct {
	// Coordinator runs the steps (required).
	Coordinator *Coordinator

	// Store persists the cursor between steps (required).
	Store store.JobStore

	// Lock keeps a second job off the same index. Optional.
	Lock Locker

	Logger *slog.Logger
}

// Job runs a reindex to completion or until stopped, checkpointing after
// every step so an interrupted run can resume.
type Job struct {
	coordinator *Coordinator
	store       store.JobStore
	lock        Locker
	logger      *slog.Logger
}

// NewJob creates a Job with injected dependencies.
func NewJob(deps JobDependencies) (*Job, error) {
	if deps.Coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("job store is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Job{
		coordinator: deps.Coordinator,
		store:       deps.Store,
		lock:        deps.Lock,
		logger:      deps.Logger,
	}, nil
}

// Run executes the job. Step failures are reported in the result, not as
// an error. Cancelling ctx stops between steps and returns the context
// error along with the partial result.
func (j *Job) Run(ctx context.Context, cfg JobConfig) (*JobResult, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultJobName
	}

	if j.lock != nil {
		ok, err := j.lock.TryLock()
		if err != nil {
			return nil, serrors.New(serrors.ErrCodeIndexLocked, "failed to acquire reindex lock", err)
		}
		if !ok {
			return nil, serrors.New(serrors.ErrCodeIndexLocked, "another reindex job is running", nil).
				WithSuggestion("Wait for it to finish, then run again with --resume")
		}
		defer func() {
			if err := j.lock.Unlock(); err != nil {
				j.logger.Warn("failed to release reindex lock", slog.String("error", err.Error()))
			}
		}()
	}

	start := time.Now()
	result := &JobResult{}

	cur, resumed, err := j.cursor(ctx, cfg)
	if err != nil {
		return nil, err
	}
	result.Resumed = resumed
	j.save(ctx, cfg.Name, cur)

	for !cur.Done() {
		if cfg.MaxSteps > 0 && result.Steps >= cfg.MaxSteps {
			break
		}
		if err := ctx.Err(); err != nil {
			j.fill(result, cur, start)
			j.logger.Info("reindex_interrupted",
				slog.Int("processed", cur.Step),
				slog.Int("total", cur.Total))
			return result, err
		}

		before := cur.Step
		cur, _ = j.coordinator.RunStep(ctx, cur)
		if cur.Step == before {
			continue
		}
		result.Steps++
		j.save(ctx, cfg.Name, cur)
		if cfg.Progress != nil {
			cfg.Progress(cur)
		}
	}

	j.fill(result, cur, start)
	if !cur.Done() {
		j.logger.Info("reindex_paused",
			slog.Int("processed", cur.Step),
			slog.Int("total", cur.Total))
		return result, nil
	}

	result.Done = true
	if err := j.store.ClearCheckpoint(ctx, cfg.Name); err != nil {
		j.logger.Warn("failed to clear checkpoint", slog.String("error", err.Error()))
	}
	if cur.Full {
		j.recordCompletion(ctx, cur, result.Duration)
	}

	j.logger.Info("reindex_complete",
		slog.Int("records", cur.Total),
		slog.Int("failures", len(cur.Failures)),
		slog.Bool("resumed", resumed),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// cursor returns the saved cursor when resuming, otherwise a fresh one.
func (j *Job) cursor(ctx context.Context, cfg JobConfig) (Cursor, bool, error) {
	if cfg.Resume {
		cp, err := j.store.LoadCheckpoint(ctx, cfg.Name)
		if err != nil {
			return Cursor{}, false, err
		}
		if cp != nil {
			j.logger.Info("reindex_resume",
				slog.Int("processed", cp.Step),
				slog.Int("remaining", len(cp.Remaining)))
			return fromCheckpoint(cp), true, nil
		}
	}
	cur, err := j.coordinator.Start(ctx, cfg.Full)
	return cur, false, err
}

// save persists cur even after ctx is cancelled so an interrupted run can
// resume.
func (j *Job) save(ctx context.Context, name string, cur Cursor) {
	if err := j.store.SaveCheckpoint(context.WithoutCancel(ctx), toCheckpoint(name, cur)); err != nil {
		j.logger.Warn("failed to save checkpoint", slog.String("error", err.Error()))
	}
}

func (j *Job) fill(result *JobResult, cur Cursor, start time.Time) {
	result.Total = cur.Total
	result.Processed = cur.Step
	result.Failures = cur.Failures
	result.Duration = time.Since(start)
}

func (j *Job) recordCompletion(ctx context.Context, cur Cursor, took time.Duration) {
	state := map[string]string{
		store.StateKeyLastReindexAt:      time.Now().UTC().Format(time.RFC3339),
		store.StateKeyLastReindexSeconds: strconv.FormatFloat(took.Seconds(), 'f', 3, 64),
		store.StateKeyLastReindexCount:   strconv.Itoa(cur.Total),
	}
	for key, value := range state {
		if err := j.store.SetState(ctx, key, value); err != nil {
			j.logger.Warn("failed to save reindex state",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}
}

func toCheckpoint(name string, cur Cursor) *store.Checkpoint {
	cp := &store.Checkpoint{
		Job:       name,
		Full:      cur.Full,
		Total:     cur.Total,
		Step:      cur.Step,
		Remaining: cur.Remaining,
		UpdatedAt: time.Now(),
	}
	for _, f := range cur.Failures {
		cp.Failures = append(cp.Failures, store.FailedStep{Ref: f.Ref, Error: f.Err.Error()})
	}
	return cp
}

func fromCheckpoint(cp *store.Checkpoint) Cursor {
	cur := Cursor{
		Full:      cp.Full,
		Total:     cp.Total,
		Step:      cp.Step,
		Remaining: cp.Remaining,
	}
	for _, f := range cp.Failures {
		cur.Failures = append(cur.Failures, StepFailure{Ref: f.Ref, Err: errors.New(f.Error)})
	}
	return cur
}
