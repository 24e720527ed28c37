// Package runner drives one export run: load the mapping, fetch a reading,
// map it and publish the envelope, all under a single deadline.
package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JorritSalverda/jarvis-homewizard-exporter/common/logging"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/common/messaging"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/config"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/device"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/failure"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/mapper"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/mapping"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/models"
	"github.com/JorritSalverda/jarvis-homewizard-exporter/exporter/internal/publisher"
)

// ErrAlreadyStarted is returned when a Runner is used for a second run.
var ErrAlreadyStarted = errors.New("runner already started")

// Fetcher reads one snapshot from the device.
type Fetcher interface {
	Fetch(ctx context.Context, timeout time.Duration) (*models.RawReading, error)
}

// Sender publishes one envelope and waits for the broker's acknowledgment.
type Sender interface {
	Publish(ctx context.Context, env *models.Envelope) (*messaging.Ack, error)
}

// Stages are the collaborators of a run.
type Stages struct {
	LoadMapping func() (*models.Mapping, error)
	Fetcher     Fetcher
	Mapper      *mapper.Mapper
	Sender      Sender
}

// StagesFromConfig wires the production collaborators.
func StagesFromConfig(cfg *config.Config) Stages {
	return Stages{
		LoadMapping: func() (*models.Mapping, error) {
			return mapping.Load(cfg.Mapping.Path)
		},
		Fetcher: device.New(cfg.Device.DataURL()),
		Mapper:  mapper.New(cfg.Source),
		Sender:  publisher.New(publisher.NATSDialer(cfg.NATS), cfg.NATS.Subject),
	}
}

// State is the lifecycle position of a Runner.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "not started"
	}
}

// Result describes a successful run.
type Result struct {
	RunID    string
	Envelope *models.Envelope
	Ack      *messaging.Ack
	Duration time.Duration
}

// Runner executes the pipeline exactly once.
type Runner struct {
	stages Stages
	logger *logging.Logger
	now    func() time.Time

	state atomic.Int32
	stage atomic.Value
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock replaces the clock used for the budget and durations.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a Runner.
func New(stages Stages, logger *logging.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Runner{
		stages: stages,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.stage.Store("")
	return r
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Run executes the pipeline and converts the outcome into a process exit status.
// A failure is logged as a single ERROR record.
func (r *Runner) Run(ctx context.Context, deadline time.Duration) int {
	ctx = logging.WithRunID(ctx, uuid.NewString())

	result, err := r.Execute(ctx, deadline)
	if err != nil {
		r.logFailure(ctx, err)
		return failure.ExitCode(err)
	}

	attrs := []any{
		logging.Count(len(result.Envelope.Measurements)),
		logging.Duration(result.Duration),
	}
	if result.Ack != nil {
		attrs = append(attrs, logging.Subject(result.Ack.Subject))
		if result.Ack.Stream != "" {
			attrs = append(attrs, "stream", result.Ack.Stream, "sequence", result.Ack.Sequence)
		}
	}
	r.logger.InfoContext(ctx, "Measurements published", attrs...)
	return failure.ExitOK
}

// Execute runs all four stages and returns once the broker has acknowledged
// the envelope, a stage has failed, or the deadline has passed.
func (r *Runner) Execute(ctx context.Context, deadline time.Duration) (*Result, error) {
	return r.execute(ctx, deadline, true)
}

// Collect runs every stage except publishing and returns the envelope that
// would have been sent.
func (r *Runner) Collect(ctx context.Context, deadline time.Duration) (*models.Envelope, error) {
	result, err := r.execute(ctx, deadline, false)
	if err != nil {
		return nil, err
	}
	return result.Envelope, nil
}

type outcome struct {
	result *Result
	err    error
}

func (r *Runner) execute(ctx context.Context, deadline time.Duration, publish bool) (*Result, error) {
	if !r.state.CompareAndSwap(int32(StateNotStarted), int32(StateRunning)) {
		return nil, ErrAlreadyStarted
	}
	defer r.state.Store(int32(StateCompleted))

	if deadline <= 0 {
		return nil, failure.Config("start", errors.New("deadline must be positive"))
	}

	start := r.now()
	b := newBudget(start.Add(deadline), r.now)

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		result, err := r.pipeline(ctx, b, publish)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		if o.result != nil {
			o.result.RunID = logging.GetRunID(ctx)
			o.result.Duration = r.now().Sub(start)
		}
		return o.result, o.err
	case <-ctx.Done():
		// A pipeline that finished in the same instant still wins
		select {
		case o := <-done:
			if o.err == nil {
				o.result.RunID = logging.GetRunID(ctx)
				o.result.Duration = r.now().Sub(start)
			}
			return o.result, o.err
		default:
		}
		return nil, failure.Classify(ctx, failure.KindUnknown, r.currentStage(), ctx.Err())
	}
}

func (r *Runner) pipeline(ctx context.Context, b *budget, publish bool) (*Result, error) {
	r.enter(ctx, mapping.Stage)
	m, err := r.stages.LoadMapping()
	if err != nil {
		return nil, failure.Classify(ctx, failure.KindConfig, mapping.Stage, err)
	}

	if err := r.checkpoint(ctx, device.Stage, b); err != nil {
		return nil, err
	}
	reading, err := r.stages.Fetcher.Fetch(ctx, b.Remaining())
	if err != nil {
		return nil, failure.Classify(ctx, failure.KindDeviceUnreachable, device.Stage, err)
	}

	if err := r.checkpoint(ctx, mapper.Stage, b); err != nil {
		return nil, err
	}
	env, err := r.stages.Mapper.Apply(m, reading)
	if err != nil {
		return nil, failure.Classify(ctx, failure.KindMapping, mapper.Stage, err)
	}

	if !publish {
		return &Result{Envelope: env}, nil
	}

	if err := r.checkpoint(ctx, publisher.Stage, b); err != nil {
		return nil, err
	}
	pubCtx, cancel := context.WithTimeout(ctx, b.Remaining())
	defer cancel()

	ack, err := r.stages.Sender.Publish(pubCtx, env)
	if err != nil {
		return nil, failure.Classify(pubCtx, failure.KindPublish, publisher.Stage, err)
	}

	return &Result{Envelope: env, Ack: ack}, nil
}

// checkpoint enters the next stage unless the run has been cancelled or the
// budget is spent.
func (r *Runner) checkpoint(ctx context.Context, stage string, b *budget) error {
	if err := ctx.Err(); err != nil {
		return failure.Classify(ctx, failure.KindUnknown, stage, err)
	}
	if b.Expired() {
		return failure.Timeout(stage, nil)
	}
	r.enter(ctx, stage)
	return nil
}

func (r *Runner) enter(ctx context.Context, stage string) {
	r.stage.Store(stage)
	r.logger.DebugContext(ctx, "Stage started", logging.Stage(stage))
}

func (r *Runner) currentStage() string {
	s, _ := r.stage.Load().(string)
	return s
}

func (r *Runner) logFailure(ctx context.Context, err error) {
	stage := r.currentStage()
	var fe *failure.Error
	if errors.As(err, &fe) && fe.Stage != "" {
		stage = fe.Stage
	}

	r.logger.ErrorContext(ctx, "Run failed",
		logging.ErrorKind(failure.KindOf(err).String()),
		logging.Stage(stage),
		logging.Error(err),
	)
}
