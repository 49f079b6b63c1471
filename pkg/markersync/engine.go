// Package markersync keeps one remote marker per tracked point.
//
// A point is tracked under its identity when it has one and under its
// rounded coordinates otherwise. The handle cache is the only record of
// which markers exist remotely, so it is written only after the service
// confirms a create or update, and entries move between keys only when a
// confirmed sync relocates a coordinate-keyed point.
package markersync

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/pario-ai/dimsync/pkg/cache"
	"github.com/pario-ai/dimsync/pkg/models"
	"github.com/pario-ai/dimsync/pkg/protocol"
)

// MarkerService creates and moves remote markers. Coordinates are meters.
type MarkerService interface {
	CreateHotspot(ctx context.Context, x, y float64, correlationID string) (string, protocol.Result)
	UpdateHotspot(ctx context.Context, handle string, x, y float64) protocol.Result
}

// State is a point's marker state at the start of a pass.
type State int

const (
	StateNoHandle State = iota
	StateClean
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateNoHandle:
		return "no-handle"
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Action is what a pass did for one point.
type Action int

const (
	ActionNone Action = iota
	ActionCreated
	ActionUpdated
	// ActionRecreated is an update that failed and was replaced by a create.
	ActionRecreated
	ActionFailed
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCreated:
		return "created"
	case ActionUpdated:
		return "updated"
	case ActionRecreated:
		return "recreated"
	case ActionFailed:
		return "failed"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// PointSync reports the pass result for one point.
type PointSync struct {
	State  State
	Action Action
	Handle string
	// Err is set when the point ended the pass without a handle.
	Err     error
	Message string
}

// Ready reports whether the point has a marker after the pass.
func (p PointSync) Ready() bool { return p.Handle != "" }

// PairSync reports the pass result for both points of a pair.
type PairSync struct {
	Point1 PointSync
	Point2 PointSync
}

// Ready reports whether both markers exist.
func (ps PairSync) Ready() bool { return ps.Point1.Ready() && ps.Point2.Ready() }

// Option configures an Engine.
type Option func(*Engine)

// WithUnits sets the unit system input coordinates are expressed in.
func WithUnits(u models.UnitSystem) Option {
	return func(e *Engine) { e.units = u }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine synchronizes point pairs with remote markers. It is safe for
// concurrent use; passes are serialized.
type Engine struct {
	mu        sync.Mutex
	markers   MarkerService
	handles   cache.Store
	baselines map[string]models.Point
	// forced holds the keys already synced by a forced call in this pass.
	forced map[string]bool
	units     models.UnitSystem
	logger    *slog.Logger
}

// New returns an Engine calling markers and caching handles in handles. A
// nil store gets a fresh in-memory one.
func New(markers MarkerService, handles cache.Store, opts ...Option) *Engine {
	if handles == nil {
		handles = cache.NewMemory("handles")
	}
	e := &Engine{
		markers:   markers,
		handles:   handles,
		baselines: make(map[string]models.Point),
		forced:    make(map[string]bool),
		units:     models.Millimeters,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Units returns the engine's input unit system.
func (e *Engine) Units() models.UnitSystem { return e.units }

// HandleStats returns the handle cache statistics.
func (e *Engine) HandleStats() (models.CacheStats, error) {
	return e.handles.Stats()
}

// IdentityKey is the tracking key for a point with an identity.
func IdentityKey(id models.Identity) string {
	return "id_" + string(id)
}

// CoordinateKey is the tracking key for a point without an identity:
// coordinates rounded to three decimals.
func CoordinateKey(p models.Point) string {
	return fmt.Sprintf("pt_%.3f_%.3f_%.3f", round3(p.X), round3(p.Y), round3(p.Z))
}

func round3(v float64) float64 {
	r := math.Round(v*1000) / 1000
	if r == 0 {
		return 0 // drop the sign of -0
	}
	return r
}

// BeginPass starts a new pass. Within a pass, force moves each tracked
// point at most once, so a point shared by consecutive pairs is not updated
// twice.
func (e *Engine) BeginPass() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forced = make(map[string]bool)
}

// SyncPair brings both markers of pp in line with its coordinates. force
// updates markers whose coordinates have not changed, once per key per
// pass. pp is updated in
// place with the handles and baselines the service confirmed.
func (e *Engine) SyncPair(ctx context.Context, pp *models.PointPair, force bool) PairSync {
	e.mu.Lock()
	defer e.mu.Unlock()

	return PairSync{
		Point1: e.syncPoint(ctx, 1, pp.Point1, pp.Identity1, &pp.Marker1, &pp.Previous1, force),
		Point2: e.syncPoint(ctx, 2, pp.Point2, pp.Identity2, &pp.Marker2, &pp.Previous2, force),
	}
}

func (e *Engine) syncPoint(ctx context.Context, n int, p models.Point, id models.Identity, handle *string, prev **models.Point, force bool) PointSync {
	key, staleKey := e.keys(p, id, *prev)

	h := *handle
	if h == "" {
		h, _ = e.handles.Get(key)
	}
	if h == "" && staleKey != "" {
		h, _ = e.handles.Get(staleKey)
	}

	if h == "" {
		ps := e.create(ctx, n, p, id, key, staleKey, handle, prev, PointSync{State: StateNoHandle}, "")
		e.markForced(key, force, ps)
		return ps
	}

	baseline, ok := e.baseline(key, staleKey, *prev)
	changed := !ok || baseline.DistanceTo(p) > models.Epsilon
	if !changed && (!force || e.forced[key]) {
		*handle = h
		return PointSync{State: StateClean, Action: ActionNone, Handle: h}
	}

	ps := PointSync{State: StateDirty}
	x, y := e.units.ToMeters(p.X), e.units.ToMeters(p.Y)
	res := e.markers.UpdateHotspot(ctx, h, x, y)
	if res.OK() {
		e.commit(key, staleKey, h, p, handle, prev)
		ps.Action = ActionUpdated
		ps.Handle = h
		e.markForced(key, force, ps)
		return ps
	}

	e.logger.Warn("marker update failed, recreating",
		"point", n, "handle", h, "kind", res.Kind.String(), "message", res.Message)
	*handle = ""
	ps = e.create(ctx, n, p, id, key, staleKey, handle, prev, ps,
		fmt.Sprintf("Failed to update hotspot %d: %s", n, res.Describe()))
	e.markForced(key, force, ps)
	return ps
}

func (e *Engine) markForced(key string, force bool, ps PointSync) {
	if force && ps.Ready() {
		e.forced[key] = true
	}
}

// create issues the single create call of a pass. updateFailure is the
// message of the update it replaces, if any.
func (e *Engine) create(ctx context.Context, n int, p models.Point, id models.Identity, key, staleKey string, handle *string, prev **models.Point, ps PointSync, updateFailure string) PointSync {
	x, y := e.units.ToMeters(p.X), e.units.ToMeters(p.Y)
	h, res := e.markers.CreateHotspot(ctx, x, y, string(id))
	if res.OK() {
		e.commit(key, staleKey, h, p, handle, prev)
		ps.Handle = h
		ps.Action = ActionCreated
		if updateFailure != "" {
			ps.Action = ActionRecreated
		}
		return ps
	}

	ps.Action = ActionFailed
	ps.Err = res.Err()
	ps.Message = fmt.Sprintf("Failed to create hotspot %d: %s", n, res.Describe())
	if updateFailure != "" {
		ps.Message = updateFailure + "; " + ps.Message
	}
	e.logger.Warn("marker create failed", "point", n, "kind", res.Kind.String(), "message", res.Message)
	return ps
}

// commit records a confirmed sync: the handle on the pair and in the cache,
// the new baseline, and the move from staleKey to key.
func (e *Engine) commit(key, staleKey, h string, p models.Point, handle *string, prev **models.Point) {
	*handle = h
	cp := p
	*prev = &cp
	e.baselines[key] = p

	if err := e.handles.Put(key, h); err != nil {
		e.logger.Warn("handle cache write failed", "key", key, "error", err)
		return
	}
	if staleKey != "" && staleKey != key {
		if err := e.handles.Delete(staleKey); err != nil {
			e.logger.Warn("handle cache relocation failed", "key", staleKey, "error", err)
		}
		delete(e.baselines, staleKey)
		e.logger.Debug("handle relocated", "from", staleKey, "to", key, "handle", h)
	}
}

// keys returns the current tracking key and, for coordinate-keyed points
// with a previous position, the key they were last cached under.
func (e *Engine) keys(p models.Point, id models.Identity, prev *models.Point) (key, staleKey string) {
	if id != "" {
		return IdentityKey(id), ""
	}
	key = CoordinateKey(p)
	if prev != nil {
		if k := CoordinateKey(*prev); k != key {
			staleKey = k
		}
	}
	return key, staleKey
}

func (e *Engine) baseline(key, staleKey string, prev *models.Point) (models.Point, bool) {
	if prev != nil {
		return *prev, true
	}
	if b, ok := e.baselines[key]; ok {
		return b, true
	}
	if staleKey != "" {
		b, ok := e.baselines[staleKey]
		return b, ok
	}
	return models.Point{}, false
}
