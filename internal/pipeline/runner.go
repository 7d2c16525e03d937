package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GriffinCanCode/arch3d/internal/artifact"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/logging"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/arch3d/internal/process"
	"github.com/GriffinCanCode/arch3d/internal/shared/id"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config configures a Runner. Only Target is required.
type Config struct {
	Target       process.Target
	StageTimeout time.Duration
	Store        *artifact.Store
	Logger       *logging.Logger
	Metrics      *monitoring.Metrics
	Dialer       *websocket.Dialer
	Tracer       *tracing.Tracer
	// OnProgress is called for every progress update of every stage.
	OnProgress func(stage Stage, progress int)
}

// Runner drives the stages through one process.Channel each.
type Runner struct {
	channels map[Stage]*process.Channel
	timeout  time.Duration
	store    *artifact.Store
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
}

// Result collects the artifacts of one Run, in stage order.
type Result struct {
	RunID     id.RunID
	Artifacts []artifact.Artifact
	// Paths maps each stage to its saved file when a Store is configured.
	Paths map[Stage]string
}

// Final returns the artifact of the last stage that ran.
func (r *Result) Final() (artifact.Artifact, bool) {
	if len(r.Artifacts) == 0 {
		return artifact.Artifact{}, false
	}
	return r.Artifacts[len(r.Artifacts)-1], true
}

// Artifact returns the artifact produced by stage.
func (r *Result) Artifact(stage Stage) (artifact.Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Stage == string(stage) {
			return a, true
		}
	}
	return artifact.Artifact{}, false
}

// NewRunner creates a Runner. No connection is made until a stage runs.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics(nil)
	}

	obs := &stageObserver{metrics: metrics, onProgress: cfg.OnProgress}
	r := &Runner{
		channels: make(map[Stage]*process.Channel, len(Stages)),
		timeout:  cfg.StageTimeout,
		store:    cfg.Store,
		logger:   logger.Named("pipeline"),
		metrics:  metrics,
		tracer:   cfg.Tracer,
	}
	for _, s := range Stages {
		r.channels[s] = process.NewChannel(cfg.Target, string(s),
			process.WithLogger(logger),
			process.WithDialer(cfg.Dialer),
			process.WithObserver(obs),
		)
	}
	return r
}

// Channel returns the channel serving stage, or nil.
func (r *Runner) Channel(stage Stage) *process.Channel {
	return r.channels[stage]
}

// Status returns loading and progress for every stage, in pipeline order.
func (r *Runner) Status() []process.State {
	states := make([]process.State, 0, len(Stages))
	for _, s := range Stages {
		states = append(states, r.channels[s].Snapshot())
	}
	return states
}

// Cancel abandons whatever stage is in flight.
func (r *Runner) Cancel() {
	for _, ch := range r.channels {
		ch.Cancel()
	}
}

// Stage runs a single stage. input is required for every stage except
// generate-image, which sends the prompt instead.
func (r *Runner) Stage(ctx context.Context, stage Stage, req Request, input []byte) (a artifact.Artifact, err error) {
	ctx, end := r.startSpan(ctx, "stage."+string(stage))
	defer func() { end(err) }()

	ch, ok := r.channels[stage]
	if !ok {
		return artifact.Artifact{}, &StageError{Stage: stage, Err: fmt.Errorf("unknown stage %q", stage)}
	}
	send, err := payload(stage, req, input)
	if err != nil {
		return artifact.Artifact{}, &StageError{Stage: stage, Err: err}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	timer := monitoring.NewTimer(r.metrics, string(stage))
	res, err := ch.Run(ctx, send)
	if err != nil {
		timer.Stop(stageStatus(err))
		return artifact.Artifact{}, &StageError{Stage: stage, Err: err}
	}
	if res.Payload == nil {
		timer.Stop("text")
		r.logger.Warn("Stage answered with text", zap.String("stage", string(stage)), zap.String("text", res.Text))
		return artifact.Artifact{}, &StageError{Stage: stage, Err: fmt.Errorf("%w: %s", ErrUnexpectedText, res.Text)}
	}

	a, err = artifact.New(string(stage), stage.Type(), res.Payload)
	if err != nil {
		timer.Stop("empty")
		return artifact.Artifact{}, &StageError{Stage: stage, Err: err}
	}
	timer.Stop("ok")
	return a, nil
}

// Run chains the stages for req: remove-background when an image is given,
// generate-image otherwise, then generate-3d-view and generate-3d-model,
// stopping after req.Until. Each stage receives the previous artifact.
func (r *Runner) Run(ctx context.Context, req Request) (_ *Result, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &Result{RunID: id.NewRunID(), Paths: make(map[Stage]string)}
	ctx, end := r.startSpan(ctx, "pipeline.run")
	defer func() { end(err) }()
	log := r.logger.With(zap.String("run_id", result.RunID.String()))
	log.Info("Run started", zap.Bool("from_image", req.FromImage()), zap.String("until", string(req.Until)))

	input := req.Image
	for _, stage := range req.plan() {
		start := time.Now()
		a, err := r.Stage(ctx, stage, req, input)
		if err != nil {
			log.Error("Stage failed", zap.String("stage", string(stage)), zap.Error(err))
			return result, err
		}
		result.Artifacts = append(result.Artifacts, a)

		fields := []zap.Field{
			zap.String("stage", string(stage)),
			zap.String("mime", a.Type.MIME),
			zap.Int("bytes", a.Size()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if r.store != nil {
			path, err := r.store.Save(result.RunID.String(), a)
			if err != nil {
				return result, &StageError{Stage: stage, Err: err}
			}
			result.Paths[stage] = path
			fields = append(fields, zap.String("path", path))
		}
		log.Info("Stage complete", fields...)
		input = a.Data
	}
	return result, nil
}

// startSpan returns a finisher that records err on the span.
func (r *Runner) startSpan(ctx context.Context, name string) (context.Context, func(error)) {
	if r.tracer == nil {
		return ctx, func(error) {}
	}
	span, ctx := r.tracer.StartSpan(ctx, name)
	return ctx, func(err error) {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
		r.tracer.Submit(span)
	}
}

func payload(stage Stage, req Request, input []byte) (func(process.Sender) error, error) {
	if stage == StageGenerateImage {
		body := req.imageRequest()
		if body.Prompt == "" {
			return nil, ErrEmptyRequest
		}
		return func(s process.Sender) error { return s.SendJSON(body) }, nil
	}
	if len(input) == 0 {
		return nil, ErrMissingInput
	}
	return func(s process.Sender) error { return s.SendBinary(input) }, nil
}

func stageStatus(err error) string {
	var remote *process.RemoteError
	switch {
	case errors.As(err, &remote):
		return "remote_error"
	case errors.Is(err, process.ErrIncomplete):
		return "incomplete"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, process.ErrCanceled):
		return "canceled"
	default:
		return "error"
	}
}

// stageObserver forwards channel events to metrics and the progress hook.
type stageObserver struct {
	metrics    *monitoring.Metrics
	onProgress func(Stage, int)
}

func (o *stageObserver) ChannelStarted(endpoint string) {
	o.metrics.ChannelStarted(endpoint)
}

func (o *stageObserver) ChannelProgress(endpoint string, progress int) {
	o.metrics.ChannelProgress(endpoint, progress)
	if o.onProgress != nil {
		o.onProgress(Stage(endpoint), progress)
	}
}

func (o *stageObserver) ChannelFinished(endpoint string, outcome process.Outcome, elapsed time.Duration, size int) {
	o.metrics.ChannelFinished(endpoint, outcome, elapsed, size)
}
