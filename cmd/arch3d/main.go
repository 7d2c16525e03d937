package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/arch3d/internal/artifact"
	"github.com/GriffinCanCode/arch3d/internal/export"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/config"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/logging"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/server"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/arch3d/internal/pipeline"
	"github.com/GriffinCanCode/arch3d/internal/process"
	"github.com/GriffinCanCode/arch3d/internal/shared/id"
)

type job struct {
	label string
	req   pipeline.Request
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	prompt := flag.String("prompt", "", "Text prompt to generate from")
	image := flag.String("image", "", "Image file to generate from")
	model := flag.String("model", cfg.Pipeline.ImageModel, "Image model (dalle3, sana)")
	until := flag.String("until", "", "Last stage to run (image, view, model)")
	batch := flag.String("batch", "", "YAML or TOML manifest of jobs")
	out := flag.String("out", cfg.Pipeline.OutputDir, "Output directory")
	backend := flag.String("backend", "", "Backend URL, e.g. wss://host:443 (overrides BACKEND_*)")
	blender := flag.Bool("blender", false, "Send the final mesh to the Blender add-on")
	blenderURL := flag.String("blender-url", cfg.Blender.URL, "Blender add-on URL")
	statusAddr := flag.String("status-addr", cfg.Status.Addr, "Serve status and metrics on this address")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	cfg.Pipeline.OutputDir = *out
	cfg.Blender.URL = *blenderURL
	cfg.Status.Addr = *statusAddr
	cfg.Logging.Development = *dev

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{
		prompt:  *prompt,
		image:   *image,
		model:   *model,
		until:   *until,
		batch:   *batch,
		backend: *backend,
		blender: *blender,
	}
	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.Error("arch3d failed", zap.Error(err))
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

type options struct {
	prompt, image, model, until, batch, backend string
	blender                                     bool
}

func newLogger(cfg config.LogConfig) (*logging.Logger, error) {
	lc := logging.DefaultConfig()
	if cfg.Development {
		lc = logging.DevelopmentConfig()
	}
	if cfg.Level != "" {
		lc.Level = cfg.Level
	}
	return logging.New(lc)
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *logging.Logger) error {
	target := process.Target{Host: cfg.Backend.Host, Port: cfg.Backend.Port, Secure: cfg.Backend.Secure}
	if opts.backend != "" {
		t, err := process.ParseTarget(opts.backend)
		if err != nil {
			return err
		}
		target = t
	}

	model, err := pipeline.ParseImageModel(opts.model)
	if err != nil {
		return err
	}

	jobs, err := loadJobs(opts, model)
	if err != nil {
		return err
	}

	metrics := monitoring.NewMetrics(nil)
	tracer := tracing.New("arch3d", logger)
	defer tracer.Close()

	runner := pipeline.NewRunner(pipeline.Config{
		Target:       target,
		StageTimeout: cfg.Pipeline.StageTimeout,
		Store:        artifact.NewStore(cfg.Pipeline.OutputDir),
		Logger:       logger,
		Metrics:      metrics,
		Tracer:       tracer,
		OnProgress: func(stage pipeline.Stage, progress int) {
			fmt.Fprintf(os.Stderr, "\r%-18s %3d%%", stage, progress)
		},
	})

	if cfg.Status.Addr != "" {
		srv := server.New(cfg.Status, runner, metrics, tracer, logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("Status server stopped", zap.Error(err))
			}
		}()
	}

	var blender *export.BlenderClient
	if opts.blender {
		blender = export.NewBlenderClient(export.BlenderConfig{
			URL:     cfg.Blender.URL,
			Timeout: cfg.Blender.Timeout,
			Retries: cfg.Blender.Retries,
		}, logger, metrics)
	}

	logger.Info("Starting",
		zap.String("backend_host", target.Host),
		zap.Int("backend_port", target.Port),
		zap.Int("jobs", len(jobs)),
		zap.String("out", cfg.Pipeline.OutputDir),
	)

	var failed int
	for _, j := range jobs {
		jobID := id.NewJobID()
		log := logger.With(zap.String("job_id", jobID.String()), zap.String("job", j.label))

		span, jobCtx := tracer.StartSpan(ctx, "job")
		span.SetTag("job_id", jobID.String())
		err := runJob(jobCtx, runner, blender, j, log)
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
		tracer.Submit(span)

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
	}
	return nil
}

func runJob(ctx context.Context, runner *pipeline.Runner, blender *export.BlenderClient, j job, log *logging.Logger) error {
	res, err := runner.Run(ctx, j.req)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Error("Job failed", zap.Error(err))
		return err
	}
	for _, a := range res.Artifacts {
		fmt.Println(res.Paths[pipeline.Stage(a.Stage)])
	}

	final, ok := res.Artifact(pipeline.StageGenerate3DModel)
	if blender == nil || !ok {
		return nil
	}
	if err := blender.Send(ctx, final.Data); err != nil {
		log.Error("Blender export failed", zap.Error(err))
		return err
	}
	log.Info("Sent mesh to Blender", zap.Int("bytes", final.Size()))
	return nil
}

func loadJobs(opts options, model pipeline.ImageModel) ([]job, error) {
	if opts.batch != "" {
		m, err := pipeline.LoadManifest(opts.batch)
		if err != nil {
			return nil, err
		}
		jobs := make([]job, 0, len(m.Jobs))
		for i, j := range m.Jobs {
			req, err := m.Request(i, model)
			if err != nil {
				return nil, fmt.Errorf("job %s: %w", j.Label(i), err)
			}
			jobs = append(jobs, job{label: j.Label(i), req: req})
		}
		return jobs, nil
	}

	req := pipeline.NewPromptRequest(opts.prompt, model)
	label := "prompt"
	if opts.image != "" {
		data, err := os.ReadFile(opts.image)
		if err != nil {
			return nil, err
		}
		req = pipeline.NewImageRequest(data)
		req.ImageModel = model
		label = opts.image
	}
	if opts.until != "" {
		stage, err := pipeline.ParseStage(opts.until)
		if err != nil {
			return nil, err
		}
		req = req.WithUntil(stage)
	}
	if err := req.Validate(); err != nil {
		flag.Usage()
		return nil, err
	}
	return []job{{label: label, req: req}}, nil
}
