// Package session keeps the per-user route comparison in sync with the
// points and modes the user picks.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cartoway/router-demo/internal/routing"
	"github.com/cartoway/router-demo/internal/service"
)

// Phase is the reconciler state.
type Phase string

const (
	// PhaseIdle means origin or destination is missing.
	PhaseIdle Phase = "idle"
	// PhaseComputing means both points and at least one mode are set.
	PhaseComputing Phase = "computing"
	// PhaseCleared means both points are set but no mode is selected.
	PhaseCleared Phase = "cleared"
)

// Calculator computes routes for several modes at once.
type Calculator interface {
	Calculate(ctx context.Context, origin, destination routing.GeoPoint, modes []routing.TransportMode) (*service.Calculation, error)
}

// Batch is a unit of work issued by the reconciler. Its tag (Epoch plus the
// point pair) decides on arrival whether the results still apply.
type Batch struct {
	ID          uint64
	Epoch       uint64
	Origin      routing.GeoPoint
	Destination routing.GeoPoint
	Modes       []routing.TransportMode
}

// Snapshot is a consistent copy of the reconciler state.
type Snapshot struct {
	Phase       Phase
	Origin      *routing.GeoPoint
	Destination *routing.GeoPoint
	Selected    []routing.TransportMode
	Visible     []routing.TransportMode
	Calculating bool
	Error       string

	// Routes holds the current routes in selection order.
	Routes []service.DecodedRoute
}

// IsVisible reports whether mode is in the visible set.
func (s Snapshot) IsVisible(mode routing.TransportMode) bool {
	for _, m := range s.Visible {
		if m == mode {
			return true
		}
	}
	return false
}

// Reconciler decides which modes need a request as origin, destination and
// mode selection change. Mutating methods return the Batch to run, or nil.
// The caller runs it with Run, or with its own Calculator and Apply.
//
// Reconciler is safe for concurrent use.
type Reconciler struct {
	mu          sync.Mutex
	origin      *routing.GeoPoint
	destination *routing.GeoPoint
	selected    []routing.TransportMode
	visible     map[routing.TransportMode]bool
	routes      *service.RouteCollection

	// inFlight maps a mode to the batch that owns its pending request.
	inFlight map[routing.TransportMode]uint64
	epoch    uint64
	seq      uint64
	lastErr  string
	logger   *zap.Logger
}

// NewReconciler creates an idle Reconciler with the given initial selection.
func NewReconciler(selected []routing.TransportMode, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reconciler{
		selected: service.Dedupe(selected),
		visible:  make(map[routing.TransportMode]bool),
		routes:   service.NewRouteCollection(),
		inFlight: make(map[routing.TransportMode]uint64),
		logger:   logger,
	}
	for _, m := range r.selected {
		r.visible[m] = true
	}
	return r
}

// SetOrigin sets or, with nil, clears the origin.
func (r *Reconciler) SetOrigin(p *routing.GeoPoint) *Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := !samePoint(r.origin, p)
	r.origin = clonePoint(p)
	return r.reconcile(changed)
}

// SetDestination sets or, with nil, clears the destination.
func (r *Reconciler) SetDestination(p *routing.GeoPoint) *Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := !samePoint(r.destination, p)
	r.destination = clonePoint(p)
	return r.reconcile(changed)
}

// SetPoints sets both points at once so that a single batch is issued.
func (r *Reconciler) SetPoints(origin, destination *routing.GeoPoint) *Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := !samePoint(r.origin, origin) || !samePoint(r.destination, destination)
	r.origin = clonePoint(origin)
	r.destination = clonePoint(destination)
	return r.reconcile(changed)
}

// SetModes replaces the selection. Modes no longer selected lose their route
// and visibility.
func (r *Reconciler) SetModes(modes []routing.TransportMode) *Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := service.Dedupe(modes)
	keep := make(map[routing.TransportMode]bool, len(next))
	for _, m := range next {
		keep[m] = true
	}
	for _, m := range r.selected {
		if !keep[m] {
			r.drop(m)
		}
	}
	r.selected = next
	return r.reconcile(false)
}

// ToggleMode selects mode if it is not selected, or deselects it.
func (r *Reconciler) ToggleMode(mode routing.TransportMode) *Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.selected {
		if m == mode {
			r.selected = append(r.selected[:i:i], r.selected[i+1:]...)
			r.drop(mode)
			return r.reconcile(false)
		}
	}
	r.selected = append(r.selected, mode)
	return r.reconcile(false)
}

// ToggleVisibility flips whether mode is drawn. Routes are not affected.
func (r *Reconciler) ToggleVisibility(mode routing.TransportMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.visible[mode] {
		delete(r.visible, mode)
		return
	}
	r.visible[mode] = true
}

// Apply merges the outcome of b. It returns false when b is stale, in which
// case nothing changes. Modes deselected or re-requested since b was issued
// are skipped.
func (r *Reconciler) Apply(b *Batch, calc *service.Calculation, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b == nil {
		return false
	}
	if !r.current(b) {
		r.logger.Debug("stale batch discarded",
			zap.Uint64("batch", b.ID),
			zap.Uint64("epoch", b.Epoch),
			zap.Uint64("current_epoch", r.epoch),
		)
		return false
	}

	owned := make([]routing.TransportMode, 0, len(b.Modes))
	for _, m := range b.Modes {
		if r.inFlight[m] == b.ID {
			delete(r.inFlight, m)
			owned = append(owned, m)
		}
	}
	if calc == nil {
		calc = &service.Calculation{}
	}
	r.routes.Merge(&service.Calculation{
		Modes:    owned,
		Routes:   calc.Routes,
		Failures: calc.Failures,
	})

	if len(owned) == 0 {
		return true
	}
	if err != nil {
		r.lastErr = err.Error()
	}
	return true
}

// Run executes b with calc and applies the result. It reports whether the
// result was applied.
func (r *Reconciler) Run(ctx context.Context, calc Calculator, b *Batch) bool {
	if b == nil {
		return false
	}
	res, err := calc.Calculate(ctx, b.Origin, b.Destination, b.Modes)
	return r.Apply(b, res, err)
}

// Snapshot returns a copy of the current state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Phase:       r.phase(),
		Origin:      clonePoint(r.origin),
		Destination: clonePoint(r.destination),
		Selected:    append([]routing.TransportMode{}, r.selected...),
		Visible:     make([]routing.TransportMode, 0, len(r.visible)),
		Routes:      r.routes.Ordered(r.selected),
		Calculating: len(r.inFlight) > 0,
		Error:       r.lastErr,
	}
	for _, m := range r.selected {
		if r.visible[m] {
			s.Visible = append(s.Visible, m)
		}
	}
	return s
}

func (r *Reconciler) phase() Phase {
	switch {
	case r.origin == nil || r.destination == nil:
		return PhaseIdle
	case len(r.selected) == 0:
		return PhaseCleared
	default:
		return PhaseComputing
	}
}

// reconcile brings the collection in line with the current inputs and
// returns the batch to run, if any. Must be called with mu held.
func (r *Reconciler) reconcile(pointsChanged bool) *Batch {
	if pointsChanged {
		r.epoch++
		r.routes.Clear()
		clear(r.inFlight)
		r.lastErr = ""
	}

	switch r.phase() {
	case PhaseIdle:
		r.routes.Clear()
		clear(r.inFlight)
		if pointsChanged {
			clear(r.visible)
		}
		return nil
	case PhaseCleared:
		r.epoch++
		r.routes.Clear()
		clear(r.inFlight)
		clear(r.visible)
		r.lastErr = ""
		return nil
	}

	need := make([]routing.TransportMode, 0, len(r.selected))
	for _, m := range r.selected {
		if r.routes.Has(m) {
			continue
		}
		if _, busy := r.inFlight[m]; busy {
			continue
		}
		need = append(need, m)
	}
	if len(need) == 0 {
		return nil
	}

	clear(r.visible)
	for _, m := range r.selected {
		r.visible[m] = true
	}
	r.lastErr = ""

	r.seq++
	b := &Batch{
		ID:          r.seq,
		Epoch:       r.epoch,
		Origin:      *r.origin,
		Destination: *r.destination,
		Modes:       need,
	}
	for _, m := range need {
		r.inFlight[m] = b.ID
	}
	r.logger.Debug("batch issued",
		zap.Uint64("batch", b.ID),
		zap.Uint64("epoch", b.Epoch),
		zap.Int("modes", len(need)),
	)
	return b
}

// current reports whether b's tag matches the state. Must be called with mu
// held.
func (r *Reconciler) current(b *Batch) bool {
	if b.Epoch != r.epoch || r.origin == nil || r.destination == nil {
		return false
	}
	return *r.origin == b.Origin && *r.destination == b.Destination
}

// drop forgets everything about mode. Must be called with mu held.
func (r *Reconciler) drop(mode routing.TransportMode) {
	r.routes.Remove(mode)
	delete(r.visible, mode)
	delete(r.inFlight, mode)
}

func samePoint(a, b *routing.GeoPoint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clonePoint(p *routing.GeoPoint) *routing.GeoPoint {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
