package process

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/arch3d/internal/infrastructure/logging"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options carries the callbacks for one Start. All are optional and are
// invoked from the Channel's connection goroutine, in arrival order.
type Options struct {
	// OnOpen runs once the connection is ready; send the request here.
	OnOpen func(s Sender)
	// OnMessageText receives a text frame that is neither progress nor error.
	OnMessageText func(text string)
	// OnMessagePayload receives a binary frame.
	OnMessagePayload func(payload []byte)
	// OnError receives transport failures and *RemoteError.
	OnError func(err error)
	// OnClose runs when the connection closes, after success or failure.
	OnClose func()
	// OnProgress receives every accepted progress update.
	OnProgress func(progress int)
}

// State is a point-in-time view of a Channel.
type State struct {
	Endpoint string `json:"stage"`
	Loading  bool   `json:"loading"`
	Progress int    `json:"progress"`
}

// Channel wraps one WebSocket connection per request for a single endpoint.
type Channel struct {
	endpoint string
	url      string
	dialer   *websocket.Dialer
	logger   *logging.Logger
	observer Observer
	progLog  rate.Sometimes

	mu       sync.Mutex
	active   *session
	loading  bool
	progress int
}

type session struct {
	id      string
	opts    Options
	done    <-chan struct{}
	cancel  context.CancelFunc
	conn    *websocket.Conn
	started time.Time
	outcome Outcome
	// silenced is set when the session is detached by Start, Cancel or
	// release; callbacks check it immediately before running.
	silenced atomic.Bool
}

// call runs fn unless the session has been silenced.
func (s *session) call(fn func()) {
	if !s.silenced.Load() {
		fn()
	}
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDialer overrides websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Channel) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithObserver registers a lifecycle observer, typically metrics.
func WithObserver(o Observer) Option {
	return func(c *Channel) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewChannel creates a Channel for endpoint. No connection is made.
func NewChannel(target Target, endpoint string, opts ...Option) *Channel {
	endpoint = normalizeEndpoint(endpoint)
	c := &Channel{
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
		logger:   logging.NewNop(),
		observer: nopObserver{},
		progLog:  rate.Sometimes{Interval: time.Second},
	}
	if endpoint != "" {
		c.url = target.URL(endpoint)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("process").With(zap.String("endpoint", endpoint))
	return c
}

// Endpoint returns the operation this Channel talks to.
func (c *Channel) Endpoint() string {
	return c.endpoint
}

// URL returns the resolved connection target.
func (c *Channel) URL() string {
	return c.url
}

// Loading reports whether a request is between Start and its terminal outcome.
func (c *Channel) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Progress returns the last progress value, in [0,100].
func (c *Channel) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// SetProgress overrides the progress value, clamped to [0,100].
func (c *Channel) SetProgress(p int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = Clamp(p)
}

// Snapshot returns endpoint, loading and progress read together.
func (c *Channel) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Endpoint: c.endpoint, Loading: c.loading, Progress: c.progress}
}

// Start closes any connection this Channel owns, resets progress, marks the
// Channel loading and dials in the background. It returns immediately.
// Cancelling ctx abandons the request like Cancel. Start is a no-op when the
// Channel has no endpoint.
func (c *Channel) Start(ctx context.Context, opts Options) {
	c.start(ctx, opts)
}

func (c *Channel) start(ctx context.Context, opts Options) *session {
	if c.endpoint == "" {
		c.logger.Debug("Start ignored: no endpoint")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &session{
		id:      uuid.NewString(),
		opts:    opts,
		done:    runCtx.Done(),
		cancel:  cancel,
		started: time.Now(),
	}

	c.mu.Lock()
	prev, prevConn, reportPrev := c.detachLocked(OutcomeCanceled)
	c.active = s
	c.loading = true
	c.progress = 0
	c.mu.Unlock()

	c.shutdown(prev, prevConn, reportPrev)
	c.observer.ChannelStarted(c.endpoint)

	go c.run(runCtx, s)
	return s
}

// Cancel closes the active connection and clears loading. No callback fires
// for the abandoned request.
func (c *Channel) Cancel() {
	c.mu.Lock()
	prev, conn, report := c.detachLocked(OutcomeCanceled)
	c.mu.Unlock()

	c.shutdown(prev, conn, report)
}

// release retires s if it is still active, recording outcome if none was.
func (c *Channel) release(s *session, outcome Outcome) {
	c.mu.Lock()
	if c.active != s {
		c.mu.Unlock()
		return
	}
	prev, conn, report := c.detachLocked(outcome)
	c.mu.Unlock()

	c.shutdown(prev, conn, report)
}

// detachLocked unlinks the active session. The caller must hold c.mu.
func (c *Channel) detachLocked(outcome Outcome) (*session, *websocket.Conn, bool) {
	s := c.active
	c.active = nil
	c.loading = false
	if s == nil {
		return nil, nil, false
	}
	s.silenced.Store(true)
	first := s.outcome == ""
	if first {
		s.outcome = outcome
	}
	return s, s.conn, first
}

func (c *Channel) shutdown(s *session, conn *websocket.Conn, report bool) {
	if s == nil {
		return
	}
	s.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	if report {
		c.logger.Debug("Connection abandoned", zap.String("conn_id", s.id), zap.String("outcome", string(s.outcome)))
		c.observer.ChannelFinished(c.endpoint, s.outcome, time.Since(s.started), 0)
	}
}

func (c *Channel) run(ctx context.Context, s *session) {
	defer s.cancel()
	log := c.logger.With(zap.String("conn_id", s.id))

	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			c.release(s, OutcomeCanceled)
			return
		}
		log.Warn("Dial failed", zap.String("url", c.url), zap.Error(err))
		c.fail(s, &TransportError{Endpoint: c.endpoint, Op: "dial", Err: err})
		c.closed(s, log)
		return
	}
	defer conn.Close()

	c.mu.Lock()
	if c.active != s {
		c.mu.Unlock()
		return
	}
	s.conn = conn
	c.loading = true
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	log.Debug("Connection open", zap.String("url", c.url))
	if s.opts.OnOpen != nil {
		s.call(func() { s.opts.OnOpen(&wsSender{conn: conn}) })
	}

	for {
		frameType, data, err := conn.ReadMessage()
		if err != nil {
			c.terminate(ctx, s, log, err)
			return
		}
		c.dispatch(s, log, Classify(frameType, data))
	}
}

func (c *Channel) terminate(ctx context.Context, s *session, log *logging.Logger, err error) {
	if !c.isActive(s) {
		return
	}
	if ctx.Err() != nil {
		c.release(s, OutcomeCanceled)
		return
	}

	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		log.Warn("Read failed", zap.Error(err))
		c.fail(s, &TransportError{Endpoint: c.endpoint, Op: "read", Err: err})
	} else {
		log.Debug("Connection closed", zap.Int("code", closeErr.Code), zap.String("reason", closeErr.Text))
	}
	c.closed(s, log)
}

func (c *Channel) dispatch(s *session, log *logging.Logger, in Inbound) {
	switch in.Kind {
	case KindProgress:
		if !c.update(s, func() { c.progress = in.Progress }) {
			return
		}
		c.progLog.Do(func() {
			log.Info("Progress", zap.Int("progress", in.Progress))
		})
		c.observer.ChannelProgress(c.endpoint, in.Progress)
		if s.opts.OnProgress != nil {
			s.call(func() { s.opts.OnProgress(in.Progress) })
		}

	case KindRemoteError:
		if !c.finish(s, OutcomeRemoteError, 0) {
			return
		}
		log.Error("Remote error", zap.String("message", in.Message))
		if s.opts.OnError != nil {
			s.call(func() { s.opts.OnError(&RemoteError{Endpoint: c.endpoint, Message: in.Message}) })
		}

	case KindText:
		if !c.finish(s, OutcomeText, len(in.Data)) {
			return
		}
		if s.opts.OnMessageText != nil {
			s.call(func() { s.opts.OnMessageText(string(in.Data)) })
		}

	case KindBinary:
		if !c.finish(s, OutcomePayload, len(in.Data)) {
			log.Debug("Dropping late payload", zap.Int("bytes", len(in.Data)))
			return
		}
		log.Info("Payload received", zap.Int("bytes", len(in.Data)))
		if s.opts.OnMessagePayload != nil {
			s.call(func() { s.opts.OnMessagePayload(in.Data) })
		}

	case KindMalformed:
		log.Warn("Dropping malformed message", zap.Error(in.Err), zap.Int("bytes", len(in.Data)))

	case KindIgnored:
		log.Debug("Ignoring empty progress record")

	default:
		log.Warn("Unknown message type", zap.Int("bytes", len(in.Data)))
	}
}

// fail reports a transport error if s is still active.
func (c *Channel) fail(s *session, err error) {
	if !c.finish(s, OutcomeTransportError, 0) {
		return
	}
	if s.opts.OnError != nil {
		s.call(func() { s.opts.OnError(err) })
	}
}

func (c *Channel) closed(s *session, log *logging.Logger) {
	c.mu.Lock()
	if c.active != s {
		c.mu.Unlock()
		return
	}
	c.active = nil
	c.loading = false
	first := s.outcome == ""
	if first {
		s.outcome = OutcomeClosed
	}
	c.mu.Unlock()

	if first {
		log.Warn("Connection closed before a result arrived")
		c.observer.ChannelFinished(c.endpoint, OutcomeClosed, time.Since(s.started), 0)
	}
	if s.opts.OnClose != nil {
		s.call(s.opts.OnClose)
	}
}

// finish records the terminal outcome of s and clears loading. It reports
// whether the caller should fire its callback: only the first terminal
// outcome of the active session does. Later frames are dropped.
func (c *Channel) finish(s *session, outcome Outcome, size int) bool {
	c.mu.Lock()
	if c.active != s || s.outcome != "" {
		c.mu.Unlock()
		return false
	}
	c.loading = false
	s.outcome = outcome
	c.mu.Unlock()

	c.observer.ChannelFinished(c.endpoint, outcome, time.Since(s.started), size)
	return true
}

func (c *Channel) update(s *session, mutate func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != s || s.outcome != "" {
		return false
	}
	mutate()
	return true
}

func (c *Channel) isActive(s *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active == s
}
