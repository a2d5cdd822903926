package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Gingaoyuzhan/Ging-IDE/internal/events"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/monitoring"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/tracing"
	"go.uber.org/zap"
)

// RelayOptions configures a Relay.
type RelayOptions struct {
	Config    *ConfigStore
	Client    Streamer
	Publisher events.Publisher
	Metrics   *monitoring.Metrics
	Tracer    *tracing.Tracer
	Logger    *zap.Logger
}

type stream struct {
	token  string
	cancel context.CancelFunc
}

// Relay turns chat requests into token delta events.
//
// Each accepted request gets one goroutine that publishes a chat.delta event
// per non-empty delta and exactly one chat.end event however the stream
// ends. Streams outlive the caller's context; they end on completion,
// Cancel, or Shutdown.
type Relay struct {
	config    *ConfigStore
	client    Streamer
	publisher events.Publisher
	metrics   *monitoring.Metrics
	tracer    *tracing.Tracer
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	streams map[string]*stream
}

// NewRelay creates a chat relay. A nil Client uses NewClient with defaults.
func NewRelay(opts RelayOptions) *Relay {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	client := opts.Client
	if client == nil {
		client = NewClient(ClientConfig{}, log)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = NewConfigStore(ProviderConfig{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Relay{
		config:    cfg,
		client:    client,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		streams:   make(map[string]*stream),
	}
}

// Config returns the relay's configuration cell.
func (r *Relay) Config() *ConfigStore {
	return r.config
}

// Chat starts a stream using the current configuration snapshot.
func (r *Relay) Chat(ctx context.Context, messages []Message, token string) error {
	return r.ChatWith(ctx, r.config.Get(), messages, token)
}

// ChatWith starts a stream using cfg. It returns once the provider has
// answered with a 2xx status; an error means no events will be published for
// token. ctx bounds only the wait for the provider's response headers.
func (r *Relay) ChatWith(ctx context.Context, cfg ProviderConfig, messages []Message, token string) error {
	family := cfg.Family()
	provider := family.String()
	log := r.log.With(zap.String("request_token", token), zap.String("provider", provider))

	if cfg.APIKey == "" {
		r.metrics.RecordChatRequest(provider, "missing_credential")
		return ErrMissingCredential
	}

	req, err := BuildRequest(cfg, messages)
	if err != nil {
		r.metrics.RecordChatRequest(provider, "error")
		return err
	}

	streamCtx, cancel := context.WithCancel(r.ctx)
	st, err := r.register(token, cancel)
	if err != nil {
		cancel()
		return err
	}

	stop := context.AfterFunc(ctx, cancel)
	body, err := r.client.Stream(streamCtx, family, req)
	callerGone := !stop()

	if err == nil && callerGone {
		_ = body.Close()
		err = ctx.Err()
	}
	if err != nil {
		r.unregister(st)
		cancel()
		r.wg.Done()
		r.metrics.RecordChatRequest(provider, outcome(err))
		log.Warn("Chat request failed", zap.Error(err))
		return err
	}

	r.metrics.RecordChatRequest(provider, "started")
	r.metrics.ChatStreamStarted()
	log.Debug("Chat stream started", zap.String("url", req.URL))

	go r.run(streamCtx, st, family, body, log)
	return nil
}

// Cancel stops the in-flight stream for token. The stream still publishes
// its end event. It reports whether a stream was found.
func (r *Relay) Cancel(token string) bool {
	r.mu.Lock()
	st, ok := r.streams[token]
	r.mu.Unlock()

	if ok {
		st.cancel()
	}
	return ok
}

// Active returns the number of in-flight streams.
func (r *Relay) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}

// Shutdown cancels every stream, rejects new requests and waits for stream
// goroutines to publish their end events or for ctx to expire.
func (r *Relay) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Relay) run(ctx context.Context, st *stream, family Family, body io.ReadCloser, log *zap.Logger) {
	provider := family.String()
	start := time.Now()
	parser := NewStreamParser(family)

	var span *tracing.Span
	if r.tracer != nil {
		span, _ = r.tracer.StartSpan(ctx, "chat.stream")
		span.SetTag("provider", provider)
		span.SetTag("request_token", st.token)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("Recovered panic in chat stream", zap.Any("panic", p))
		}

		_ = body.Close()
		st.cancel()
		r.unregister(st)

		r.metrics.AddSkippedFrames(provider, parser.Skipped())
		r.metrics.ChatStreamEnded(provider, time.Since(start))
		r.publish(events.ChatEnd(st.token))

		if span != nil {
			span.Finish()
			r.tracer.Submit(span)
		}
		r.wg.Done()
	}()

	deltas := 0
	err := Consume(body, parser, func(delta string) {
		deltas++
		r.metrics.IncChatDelta(provider)
		r.publish(events.ChatDelta(st.token, delta))
	})

	fields := []zap.Field{
		zap.Int("deltas", deltas),
		zap.Int("skipped_frames", parser.Skipped()),
		zap.Duration("duration", time.Since(start)),
	}
	switch {
	case err == nil:
		log.Debug("Chat stream finished", fields...)
	case ctx.Err() != nil:
		log.Info("Chat stream cancelled", fields...)
	default:
		if span != nil {
			span.SetError(err)
		}
		log.Warn("Chat stream read failed", append(fields, zap.Error(err))...)
	}
}

// register reserves a slot for token and adds to the wait group so Shutdown
// cannot miss a stream that is still connecting.
func (r *Relay) register(token string, cancel context.CancelFunc) (*stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRelayClosed
	}
	st := &stream{token: token, cancel: cancel}
	r.streams[token] = st
	r.wg.Add(1)
	return st, nil
}

func (r *Relay) unregister(st *stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.streams[st.token] == st {
		delete(r.streams, st.token)
	}
}

func (r *Relay) publish(ev events.Event) {
	if r.publisher != nil {
		r.publisher.Publish(ev)
	}
}

func outcome(err error) string {
	var httpErr *ProviderHTTPError
	switch {
	case errors.As(err, &httpErr):
		return "http_error"
	case errors.Is(err, ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
