package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/roach88/scentbox/internal/model"
	"github.com/roach88/scentbox/internal/store"
)

// Box sizes.
const (
	SmallBox = 4
	LargeBox = 8
)

// ValidTargetCount reports whether n is a supported box size.
func ValidTargetCount(n int) bool {
	return n == SmallBox || n == LargeBox
}

// State is the persisted selection.
type State struct {
	TargetCount int              `json:"target_count"`
	UnitSize    model.UnitSize   `json:"unit_size"`
	PriceRange  model.PriceRange `json:"price_range"`
	SelectedIDs []string         `json:"selected_ids"`
	ExcludedIDs []string         `json:"excluded_ids"`
}

// Engine is the selection engine.
//
// Operations never return errors: invalid requests are rejected with false,
// and persistence failures are logged.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Engine struct {
	kv     store.KV
	logger *slog.Logger

	mu       sync.Mutex
	applied  int64 // newest load generation passed to ApplyLoad
	ranked   []model.CatalogItem
	target   int
	unit     model.UnitSize
	price    model.PriceRange
	selected []string
	excluded map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithTargetCount sets the initial box size. Unsupported sizes are ignored.
func WithTargetCount(n int) Option {
	return func(e *Engine) {
		if ValidTargetCount(n) {
			e.target = n
		}
	}
}

// WithUnitSize sets the initial sample size. Unsupported sizes are ignored.
func WithUnitSize(u model.UnitSize) Option {
	return func(e *Engine) {
		if u.Valid() {
			e.unit = u
		}
	}
}

// WithPriceRange sets the initial per-unit price range.
func WithPriceRange(r model.PriceRange) Option {
	return func(e *Engine) { e.price = r }
}

// WithStore persists the state under store.KeySelectionState after every
// change.
func WithStore(kv store.KV) Option {
	return func(e *Engine) { e.kv = kv }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine for a small box of 5ml samples with no price bound.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.Default(),
		target:   SmallBox,
		unit:     model.Unit5ML,
		price:    model.Unbounded(),
		excluded: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetPool replaces the ranked pool and reseeds. Items are ranked by match
// percentage; repeated ids keep their first occurrence. Exclusions carry over.
func (e *Engine) SetPool(ctx context.Context, items []model.CatalogItem) {
	pool := dedupe(items)

	e.mu.Lock()
	e.ranked = rank(pool)
	e.reseedLocked()
	st := e.stateLocked()
	e.mu.Unlock()

	e.persist(ctx, st)
}

// ApplyLoad is SetPool for the result of recommendation load gen. A
// generation older than one already applied is ignored and reported with
// false, so overlapping loads that finish out of order cannot reseed from a
// superseded pool.
func (e *Engine) ApplyLoad(ctx context.Context, gen int64, items []model.CatalogItem) bool {
	pool := dedupe(items)

	e.mu.Lock()
	if gen < e.applied {
		e.mu.Unlock()
		e.logger.Debug("ignoring superseded pool", "generation", gen, "applied", e.applied)
		return false
	}
	e.applied = gen
	e.ranked = rank(pool)
	e.reseedLocked()
	st := e.stateLocked()
	e.mu.Unlock()

	e.persist(ctx, st)
	return true
}

// SetTargetCount changes the box size and reseeds. Only 4 and 8 are
// accepted.
func (e *Engine) SetTargetCount(ctx context.Context, n int) bool {
	if !ValidTargetCount(n) {
		return false
	}
	e.mu.Lock()
	e.target = n
	e.reseedLocked()
	st := e.stateLocked()
	e.mu.Unlock()

	e.persist(ctx, st)
	return true
}

// SetPriceRange changes the per-unit price range and reseeds. Rejects
// negative bounds and a Max below Min.
func (e *Engine) SetPriceRange(ctx context.Context, r model.PriceRange) bool {
	if r.Min < 0 || r.Max < 0 || (r.Max > 0 && r.Max < r.Min) {
		return false
	}
	e.mu.Lock()
	e.price = r
	e.reseedLocked()
	st := e.stateLocked()
	e.mu.Unlock()

	e.persist(ctx, st)
	return true
}

// SetUnitSize changes the sample size. The selection is kept; only the
// total price changes.
func (e *Engine) SetUnitSize(ctx context.Context, u model.UnitSize) bool {
	if !u.Valid() {
		return false
	}
	e.mu.Lock()
	e.unit = u
	st := e.stateLocked()
	e.mu.Unlock()

	e.persist(ctx, st)
	return true
}

// Remove drops id from the selection, excludes it for the session and
// backfills from the ranked pool. If the pool is exhausted the selection
// stays short. Returns false if id is not selected.
func (e *Engine) Remove(ctx context.Context, id string) bool {
	e.mu.Lock()
	i := slices.Index(e.selected, id)
	if i < 0 {
		e.mu.Unlock()
		return false
	}
	e.selected = slices.Delete(e.selected, i, i+1)
	e.excluded[id] = true
	if len(e.selected) < e.target {
		if next, ok := backfill(e.ranked, e.selected, e.excluded); ok {
			e.selected = append(e.selected, next)
		}
	}
	st := e.stateLocked()
	e.mu.Unlock()

	e.logger.Debug("selection remove", "id", id, "selected", len(st.SelectedIDs))
	e.persist(ctx, st)
	return true
}

// Swap puts newID in the position oldID held. oldID is not excluded.
// newID must be in the pool and not already selected. An explicit swap
// lifts a previous exclusion of newID; if that reopens room in a short
// selection, it is topped up from the ranked pool without oldID.
func (e *Engine) Swap(ctx context.Context, oldID, newID string) bool {
	e.mu.Lock()
	i := slices.Index(e.selected, oldID)
	if i < 0 || oldID == newID || slices.Contains(e.selected, newID) || e.indexLocked(newID) < 0 {
		e.mu.Unlock()
		return false
	}
	e.selected[i] = newID
	if e.excluded[newID] {
		delete(e.excluded, newID)
		// oldID sits out this top-up; only later backfills may bring it back.
		skip := map[string]bool{oldID: true}
		for id := range e.excluded {
			skip[id] = true
		}
		for len(e.selected) < e.target {
			next, ok := backfill(e.ranked, e.selected, skip)
			if !ok {
				break
			}
			e.selected = append(e.selected, next)
		}
	}
	st := e.stateLocked()
	e.mu.Unlock()

	e.logger.Debug("selection swap", "old", oldID, "new", newID, "position", i)
	e.persist(ctx, st)
	return true
}

// TotalPrice returns round(sum(price per ml * unit ml)) over the selection.
// Ids missing from the pool contribute nothing.
func (e *Engine) TotalPrice() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	ml := float64(e.unit.Millilitres())
	var total float64
	for _, id := range e.selected {
		if i := e.indexLocked(id); i >= 0 {
			total += e.ranked[i].PricePerUnit * ml
		}
	}
	return int(math.Round(total))
}

// Selected returns the selected ids in order.
func (e *Engine) Selected() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.selected)
}

// SelectedItems returns the catalog records of the selection in order,
// skipping ids missing from the pool.
func (e *Engine) SelectedItems() []model.CatalogItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.CatalogItem, 0, len(e.selected))
	for _, id := range e.selected {
		if i := e.indexLocked(id); i >= 0 {
			out = append(out, e.ranked[i])
		}
	}
	return out
}

// Excluded returns the excluded ids, sorted.
func (e *Engine) Excluded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.excludedLocked()
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Restore loads the persisted state. Selected and excluded ids are kept
// even if the current pool does not contain them. A missing key is not an
// error; a corrupt value is.
func (e *Engine) Restore(ctx context.Context) error {
	if e.kv == nil {
		return nil
	}
	raw, ok, err := e.kv.Get(ctx, store.KeySelectionState)
	if err != nil {
		return fmt.Errorf("restore selection: %w", err)
	}
	if !ok {
		return nil
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return fmt.Errorf("restore selection: decode: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if ValidTargetCount(st.TargetCount) {
		e.target = st.TargetCount
	}
	if st.UnitSize.Valid() {
		e.unit = st.UnitSize
	}
	e.price = st.PriceRange
	e.excluded = make(map[string]bool, len(st.ExcludedIDs))
	for _, id := range st.ExcludedIDs {
		e.excluded[id] = true
	}
	e.selected = e.selected[:0]
	for _, id := range st.SelectedIDs {
		if len(e.selected) == e.target {
			break
		}
		if e.excluded[id] || slices.Contains(e.selected, id) {
			continue
		}
		e.selected = append(e.selected, id)
	}
	return nil
}

func (e *Engine) reseedLocked() {
	e.selected = seed(e.ranked, e.target, e.price, e.excluded)
}

func (e *Engine) indexLocked(id string) int {
	return slices.IndexFunc(e.ranked, func(item model.CatalogItem) bool { return item.ID == id })
}

func (e *Engine) excludedLocked() []string {
	out := make([]string, 0, len(e.excluded))
	for id := range e.excluded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) stateLocked() State {
	return State{
		TargetCount: e.target,
		UnitSize:    e.unit,
		PriceRange:  e.price,
		SelectedIDs: slices.Clone(e.selected),
		ExcludedIDs: e.excludedLocked(),
	}
}

func (e *Engine) persist(ctx context.Context, st State) {
	if e.kv == nil {
		return
	}
	data, err := json.Marshal(st)
	if err != nil {
		e.logger.Error("encode selection", "error", err)
		return
	}
	if err := e.kv.Set(ctx, store.KeySelectionState, string(data)); err != nil {
		e.logger.Error("persist selection", "error", err)
	}
}
