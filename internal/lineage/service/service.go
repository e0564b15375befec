// Package service is the lineage persistence adapter. Reads go straight to
// the store behind a circuit breaker; every write is serialized through one
// writer goroutine.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	catalog "labelforge/internal/catalog/models"
	"labelforge/internal/catalog/normalize"
	"labelforge/internal/lineage/metrics"
	"labelforge/internal/lineage/models"
	"labelforge/internal/lineage/ports"
	dErrors "labelforge/pkg/domain-errors"
	"labelforge/pkg/platform/circuit"
	"labelforge/pkg/platform/sentinel"
)

var (
	errClosed    = errors.New("lineage service closed")
	errQueueFull = errors.New("lineage write queue full")
)

// Drop reasons for learned batches.
const (
	dropQueueFull   = "queue_full"
	dropClosed      = "closed"
	dropBreakerOpen = "breaker_open"
	dropStoreError  = "store_error"
)

// Service wraps a ports.Store for the normalization pipeline and the admin
// API. Lookup and Learn are best effort and never surface store failures.
type Service struct {
	store     ports.Store
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
	queueSize int
	clock     func() time.Time
	outage    func(error) bool

	mu     sync.RWMutex
	closed bool
	writes chan writeRequest
	done   chan struct{}
}

type writeRequest struct {
	ctx    context.Context
	learn  bool
	run    func(ctx context.Context) (int, error)
	result chan error
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		if b != nil {
			s.breaker = b
		}
	}
}

// WithTimeout bounds each store call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithQueueSize bounds the learned batches waiting for the writer.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithOutageClassifier narrows which store errors count against the
// breaker. Timeouts always count; other errors count only when isOutage
// reports true, so a bad query does not disable overrides.
func WithOutageClassifier(isOutage func(error) bool) Option {
	return func(s *Service) {
		s.outage = isOutage
	}
}

// New starts the writer goroutine. Call Close to stop it.
func New(store ports.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "lineage store is required")
	}
	s := &Service{
		store:     store,
		breaker:   circuit.New("lineage-store"),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:   2 * time.Second,
		queueSize: 64,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writes = make(chan writeRequest, s.queueSize)
	s.done = make(chan struct{})
	go s.runWriter()
	return s, nil
}

// Lookup returns the overrides found for strains. A failing or tripped
// store yields no overrides.
func (s *Service) Lookup(ctx context.Context, strains []string) map[string]models.Override {
	if len(strains) == 0 {
		return nil
	}
	if !s.breaker.Allow() {
		s.metrics.IncrementLookup(dropBreakerOpen, 0)
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	found, err := s.store.GetMany(callCtx, strains)
	if err != nil {
		s.metrics.IncrementLookup("error", 0)
		s.recordFailure(ctx, err)
		s.logger.DebugContext(ctx, "lineage lookup failed; continuing without overrides",
			"strains", len(strains),
			"error", err,
		)
		return nil
	}
	s.recordSuccess(ctx)
	s.metrics.IncrementLookup("ok", len(found))
	return found
}

// Learn queues learned overrides for the writer without blocking. A full
// queue or a closed service drops the batch.
func (s *Service) Learn(ctx context.Context, overrides []models.Override) {
	if len(overrides) == 0 {
		return
	}
	batch := slices.Clone(overrides)
	req := writeRequest{
		ctx:   context.WithoutCancel(ctx),
		learn: true,
		run: func(ctx context.Context) (int, error) {
			return s.store.BatchPut(ctx, batch)
		},
	}
	if err := s.enqueue(ctx, req, false); err != nil {
		reason := dropQueueFull
		if errors.Is(err, errClosed) {
			reason = dropClosed
		}
		s.metrics.IncrementDropped(reason)
		s.logger.WarnContext(ctx, "learned lineage batch dropped",
			"overrides", len(batch),
			"reason", reason,
		)
	}
}

// Confirm records a user-confirmed lineage for strain. It waits for the
// write and reports store failures.
func (s *Service) Confirm(ctx context.Context, strain string, lineage catalog.Lineage) (models.Override, error) {
	o, err := models.NewOverride(normalize.NormalizeStrainKey(strain), lineage, 1, true, s.clock())
	if err != nil {
		return models.Override{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid lineage override")
	}
	err = s.write(ctx, func(ctx context.Context) (int, error) {
		if err := s.store.Put(ctx, o); err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		return models.Override{}, s.translate(err, "confirm lineage override")
	}
	s.logger.InfoContext(ctx, "lineage override confirmed",
		"strain", o.Strain,
		"lineage", o.Lineage,
	)
	return o, nil
}

// Delete removes the override for strain through the writer.
func (s *Service) Delete(ctx context.Context, strain string) error {
	key := normalize.NormalizeStrainKey(strain)
	err := s.write(ctx, func(ctx context.Context) (int, error) {
		if err := s.store.Delete(ctx, key); err != nil {
			return 0, err
		}
		return 1, nil
	})
	if err != nil {
		return s.translate(err, "delete lineage override")
	}
	return nil
}

// Get reads one override.
func (s *Service) Get(ctx context.Context, strain string) (models.Override, error) {
	if !s.breaker.Allow() {
		return models.Override{}, dErrors.New(dErrors.CodeUnavailable, "lineage store unavailable")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	o, err := s.store.Get(callCtx, normalize.NormalizeStrainKey(strain))
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.recordFailure(ctx, err)
		}
		return models.Override{}, s.translate(err, "get lineage override")
	}
	s.recordSuccess(ctx)
	return o, nil
}

// List reads every override, ordered by strain.
func (s *Service) List(ctx context.Context) ([]models.Override, error) {
	if !s.breaker.Allow() {
		return nil, dErrors.New(dErrors.CodeUnavailable, "lineage store unavailable")
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	list, err := s.store.List(callCtx)
	if err != nil {
		s.recordFailure(ctx, err)
		return nil, s.translate(err, "list lineage overrides")
	}
	s.recordSuccess(ctx)
	return list, nil
}

// Flush waits until every write queued before the call has been applied.
func (s *Service) Flush(ctx context.Context) error {
	return s.write(ctx, nil)
}

// Close stops accepting writes, drains the queue and stops the writer.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.writes)
	}
	s.mu.Unlock()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// write runs fn on the writer goroutine and waits for its result. A nil fn
// is a flush marker.
func (s *Service) write(ctx context.Context, fn func(ctx context.Context) (int, error)) error {
	req := writeRequest{ctx: context.WithoutCancel(ctx), run: fn, result: make(chan error, 1)}
	if err := s.enqueue(ctx, req, true); err != nil {
		return err
	}
	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) enqueue(ctx context.Context, req writeRequest, block bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	if !block {
		select {
		case s.writes <- req:
			s.metrics.SetQueueDepth(len(s.writes))
			return nil
		default:
			return errQueueFull
		}
	}
	select {
	case s.writes <- req:
		s.metrics.SetQueueDepth(len(s.writes))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) runWriter() {
	defer close(s.done)
	for req := range s.writes {
		s.metrics.SetQueueDepth(len(s.writes))
		err := s.apply(req)
		if req.result != nil {
			req.result <- err
		}
	}
}

func (s *Service) apply(req writeRequest) error {
	if req.run == nil {
		return nil
	}
	if req.learn && !s.breaker.Allow() {
		s.metrics.IncrementDropped(dropBreakerOpen)
		return nil
	}
	ctx, cancel := context.WithTimeout(req.ctx, s.timeout)
	defer cancel()
	start := time.Now()
	n, err := req.run(ctx)
	if err != nil {
		if storeFailure(err) {
			s.recordFailure(req.ctx, err)
		}
		if req.learn {
			s.metrics.IncrementDropped(dropStoreError)
			s.logger.WarnContext(req.ctx, "learned lineage batch not written", "error", err)
		}
		return err
	}
	s.recordSuccess(req.ctx)
	s.metrics.ObserveWrite(start, n)
	return nil
}

func storeFailure(err error) bool {
	return !errors.Is(err, sentinel.ErrNotFound) && !errors.Is(err, sentinel.ErrConflict)
}

func (s *Service) trips(err error) bool {
	if !storeFailure(err) {
		return false
	}
	if s.outage == nil || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return s.outage(err)
}

func (s *Service) translate(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "lineage override not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "a confirmed lineage override already exists")
	case errors.Is(err, errClosed):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "lineage service closed")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
}

func (s *Service) recordFailure(ctx context.Context, err error) {
	if !s.trips(err) {
		return
	}
	_, change := s.breaker.RecordFailure()
	if change.Opened {
		s.metrics.SetBreakerOpen(true)
		s.logger.WarnContext(ctx, "lineage store circuit opened; overrides disabled",
			"breaker", s.breaker.Name(),
			"error", err,
		)
	}
}

func (s *Service) recordSuccess(ctx context.Context) {
	_, change := s.breaker.RecordSuccess()
	if change.Closed {
		s.metrics.SetBreakerOpen(false)
		s.logger.InfoContext(ctx, "lineage store circuit closed", "breaker", s.breaker.Name())
	}
}
