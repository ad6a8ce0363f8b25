package recommend

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/remote"
)

// DefaultTopK bounds the number of candidates whose details are fetched.
const DefaultTopK = 20

// Result is a committed load.
type Result struct {
	Generation int64               `json:"generation"`
	Items      []model.CatalogItem `json:"items"`
	Report     Report              `json:"report"`
}

// Loader fetches and ranks recommendations and holds the committed pool.
//
// Thread-safety: Load may be called concurrently. Only the newest completed
// generation is committed.
type Loader struct {
	client remote.Client
	topK   int
	logger *slog.Logger
	tracer trace.Tracer
	gens   Generations

	mu        sync.RWMutex
	committed int64
	pool      []model.CatalogItem
	lastErr   string
}

// Option configures a Loader.
type Option func(*Loader)

// WithTopK overrides DefaultTopK. Values below 1 are ignored.
func WithTopK(k int) Option {
	return func(l *Loader) {
		if k > 0 {
			l.topK = k
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a Loader backed by client.
func New(client remote.Client, opts ...Option) *Loader {
	l := &Loader{
		client: client,
		topK:   DefaultTopK,
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/roach88/scentbox/internal/recommend"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load runs one recommendation load for filters.
//
// Steps: fetch candidates, rank by score, keep the top K, batch-fetch their
// catalog records by external id, join and rank by match percentage. On
// success the pool is replaced wholesale. Failures set LastError and leave
// the previous pool in place. A load that completes after a newer one has
// committed returns ErrStaleLoad and changes nothing.
func (l *Loader) Load(ctx context.Context, filters model.Filters) (Result, error) {
	gen := l.gens.Next()
	ctx, span := l.tracer.Start(ctx, "recommend.load",
		trace.WithAttributes(attribute.Int64("recommend.generation", gen)))
	defer span.End()

	report, err := l.fetch(ctx, gen, filters, span)
	if err != nil {
		if !l.commitError(gen, err) {
			err = &LoadError{Stage: StageCommit, Generation: gen, Err: ErrStaleLoad}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		l.logger.Warn("recommendation load failed", "generation", gen, "error", err)
		return Result{Generation: gen}, err
	}

	if !l.commitPool(gen, report.Resolved) {
		err := &LoadError{Stage: StageCommit, Generation: gen, Err: ErrStaleLoad}
		span.SetStatus(codes.Error, "stale")
		l.logger.Info("discarding stale recommendation load", "generation", gen)
		return Result{Generation: gen}, err
	}

	span.SetAttributes(
		attribute.Int("recommend.resolved", len(report.Resolved)),
		attribute.Int("recommend.dropped", len(report.Dropped)),
	)
	l.logger.Info("recommendations loaded",
		"generation", gen,
		"resolved", len(report.Resolved),
		"dropped", len(report.Dropped))
	return Result{
		Generation: gen,
		Items:      slices.Clone(report.Resolved),
		Report:     report,
	}, nil
}

func (l *Loader) fetch(ctx context.Context, gen int64, filters model.Filters, span trace.Span) (Report, error) {
	candidates, err := l.client.FetchRecommendations(ctx, filters)
	if err != nil {
		return Report{}, &LoadError{Stage: StageCandidates, Generation: gen, Err: err}
	}
	span.SetAttributes(attribute.Int("recommend.candidates", len(candidates)))
	if len(candidates) == 0 {
		return Report{}, &LoadError{Stage: StageCandidates, Generation: gen, Err: ErrNoCandidates}
	}

	top := rankCandidates(candidates, l.topK)
	ids, missing := externalIDs(top)
	for _, d := range missing {
		l.logger.Debug("candidate dropped", "reason", d.Reason, "internal_id", d.InternalID)
	}
	if len(ids) == 0 {
		return Report{}, &LoadError{Stage: StageCandidates, Generation: gen, Err: ErrNoCandidates}
	}

	items, err := l.client.FetchCatalogItemsByExternalIDs(ctx, ids)
	if err != nil {
		return Report{}, &LoadError{Stage: StageCatalog, Generation: gen, Err: err}
	}

	report := Join(top, items)
	for _, d := range report.Dropped {
		l.logger.Debug("catalog item dropped", "reason", d.Reason, "internal_id", d.InternalID, "external_id", d.ExternalID)
	}
	report.Dropped = append(missing, report.Dropped...)
	if len(report.Resolved) == 0 {
		return report, &LoadError{Stage: StageJoin, Generation: gen, Err: ErrNoCandidates}
	}
	return report, nil
}

func (l *Loader) commitPool(gen int64, items []model.CatalogItem) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen < l.committed {
		return false
	}
	l.committed = gen
	l.pool = slices.Clone(items)
	l.lastErr = ""
	return true
}

func (l *Loader) commitError(gen int64, err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen < l.committed {
		return false
	}
	l.committed = gen
	l.lastErr = err.Error()
	return true
}

// LastError returns the error of the newest committed load, or "" if it
// succeeded.
func (l *Loader) LastError() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// Generation returns the generation of the newest committed load.
func (l *Loader) Generation() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.committed
}

// Pool returns a copy of the committed ranked items.
func (l *Loader) Pool() []model.CatalogItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.pool)
}

// FindItemByID looks id up in the committed pool, by internal id first and
// external id second.
func (l *Loader) FindItemByID(id string) (model.CatalogItem, bool) {
	id = normalizeID(id)
	if id == "" {
		return model.CatalogItem{}, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, item := range l.pool {
		if item.ID == id {
			return item, true
		}
	}
	for _, item := range l.pool {
		if item.ExternalID == id {
			return item, true
		}
	}
	return model.CatalogItem{}, false
}
