package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GriffinCanCode/arch3d/internal/infrastructure/logging"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/arch3d/internal/infrastructure/tracing"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const blenderTarget = "blender"

var (
	// ErrUnavailable means recent uploads failed and the client is backing off.
	ErrUnavailable = errors.New("export: blender add-on unavailable")
	// ErrEmptyModel is returned for a zero-length mesh.
	ErrEmptyModel = errors.New("export: empty model")
)

// ImportError is a non-204 answer from the add-on.
type ImportError struct {
	StatusCode int
	Body       string
}

func (e *ImportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("blender import failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("blender import failed: status %d: %s", e.StatusCode, e.Body)
}

// Recorder receives export outcomes; monitoring.Metrics satisfies it.
type Recorder interface {
	RecordExport(target, status string)
}

// BlenderConfig configures BlenderClient.
type BlenderConfig struct {
	URL     string
	Timeout time.Duration
	Retries int
	// UploadsPerSecond caps upload rate; zero means unlimited.
	UploadsPerSecond float64
}

// BlenderClient uploads GLB meshes to the Blender add-on.
type BlenderClient struct {
	resty    *resty.Client
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	logger   *logging.Logger
	recorder Recorder
}

// NewBlenderClient creates a client. logger and recorder may be nil.
func NewBlenderClient(cfg BlenderConfig, logger *logging.Logger, recorder Recorder) *BlenderClient {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:5666"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("export").With(zap.String("target", blenderTarget))

	// Pooled transport from retryablehttp; resty retries transport errors
	// only, so a failed import (500) is reported at once.
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	restyClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", "arch3d/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	limit := rate.Inf
	if cfg.UploadsPerSecond > 0 {
		limit = rate.Limit(cfg.UploadsPerSecond)
	}

	breaker := resilience.New(blenderTarget, resilience.Settings{
		Threshold: 3,
		Cooldown:  30 * time.Second,
		IsFailure: func(err error) bool {
			var importErr *ImportError
			// A failed import means the add-on is up.
			return err != nil && !errors.As(err, &importErr) &&
				!errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Info("Breaker state changed", zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})

	return &BlenderClient{
		resty:    restyClient,
		limiter:  rate.NewLimiter(limit, 1),
		breaker:  breaker,
		logger:   logger,
		recorder: recorder,
	}
}

// Send uploads a GLB mesh to the add-on.
func (c *BlenderClient) Send(ctx context.Context, model []byte) error {
	if len(model) == 0 {
		return ErrEmptyModel
	}

	err := c.breaker.Execute(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.upload(ctx, model)
	})

	switch {
	case errors.Is(err, resilience.ErrOpen), errors.Is(err, resilience.ErrProbeInFlight):
		c.record("unavailable")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case err != nil:
		c.record("error")
		return err
	}

	c.record("success")
	c.logger.Info("Model sent to Blender", zap.Int("bytes", len(model)))
	return nil
}

func (c *BlenderClient) upload(ctx context.Context, model []byte) error {
	req := c.resty.R()
	tracing.Inject(ctx, req.Header)
	resp, err := req.
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(model).
		Post("/upload")
	if err != nil {
		return fmt.Errorf("upload to blender: %w", err)
	}
	if resp.StatusCode() != http.StatusNoContent {
		return &ImportError{
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(resp.String()),
		}
	}
	return nil
}

func (c *BlenderClient) record(status string) {
	if c.recorder != nil {
		c.recorder.RecordExport(blenderTarget, status)
	}
}
