package service

import (
	"context"
	"errors"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cartoway/router-demo/internal/polyline"
	"github.com/cartoway/router-demo/internal/routing"
)

// DecodedRoute is the normalized result of one successful per-mode request.
type DecodedRoute struct {
	Mode            routing.TransportMode
	DurationSeconds float64
	DistanceMeters  float64
	// Coordinates is empty when geometry was not requested or could not be
	// decoded.
	Coordinates orb.LineString
}

// ModeFailure records why a mode produced no route.
type ModeFailure struct {
	Mode routing.TransportMode
	Err  error
}

// Calculation is the outcome of one Calculate call.
type Calculation struct {
	// Modes is the requested order with duplicates removed.
	Modes []routing.TransportMode
	// Routes holds an entry for every mode that succeeded.
	Routes map[routing.TransportMode]DecodedRoute
	// Failures is in requested order.
	Failures []ModeFailure
}

// Failed reports whether mode was requested and failed.
func (c *Calculation) Failed(mode routing.TransportMode) bool {
	for _, f := range c.Failures {
		if f.Mode == mode {
			return true
		}
	}
	return false
}

// AggregateError is returned when every requested mode failed. Its message is
// the message of the first failure in requested order.
type AggregateError struct {
	Failures []ModeFailure
}

func (e *AggregateError) Error() string {
	if len(e.Failures) == 0 {
		return "service: all route requests failed"
	}
	return e.Failures[0].Err.Error()
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// RoutingService fans route requests out over several transport modes.
// It holds no state between calls.
type RoutingService struct {
	router       routing.Router
	logger       *zap.Logger
	messages     routing.Messages
	wantGeometry bool
}

// Option configures a RoutingService.
type Option func(*RoutingService)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(s *RoutingService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMessages sets the messages used for responses rejected here.
func WithMessages(m routing.Messages) Option {
	return func(s *RoutingService) { s.messages = m }
}

// WithoutGeometry asks the routing API for totals only.
func WithoutGeometry() Option {
	return func(s *RoutingService) { s.wantGeometry = false }
}

// NewRoutingService creates a RoutingService. router is a *routing.Client in
// production, or any Router implementation for testing.
func NewRoutingService(router routing.Router, opts ...Option) *RoutingService {
	s := &RoutingService{
		router:       router,
		logger:       zap.NewNop(),
		messages:     routing.EnglishMessages,
		wantGeometry: true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type slot struct {
	route DecodedRoute
	err   error
}

// Calculate requests a route for every mode concurrently and waits for all of
// them to settle. One failing mode never cancels the others.
//
// Errors:
//   - Returns *AggregateError when at least one mode was requested and every
//     one of them failed.
//   - Partial failures are reported in Calculation.Failures only.
func (s *RoutingService) Calculate(ctx context.Context, origin, destination routing.GeoPoint, modes []routing.TransportMode) (*Calculation, error) {
	order := Dedupe(modes)
	calc := &Calculation{
		Modes:  order,
		Routes: make(map[routing.TransportMode]DecodedRoute, len(order)),
	}
	if len(order) == 0 {
		return calc, nil
	}

	slots := make([]slot, len(order))
	var g errgroup.Group
	for i, mode := range order {
		g.Go(func() error {
			slots[i] = s.calculateOne(ctx, routing.RouteRequestSpec{
				Origin:       origin,
				Destination:  destination,
				Mode:         mode,
				WantGeometry: s.wantGeometry,
			})
			return nil
		})
	}
	_ = g.Wait()

	for i, mode := range order {
		if err := slots[i].err; err != nil {
			calc.Failures = append(calc.Failures, ModeFailure{Mode: mode, Err: err})
			continue
		}
		calc.Routes[mode] = slots[i].route
	}

	if len(calc.Routes) == 0 {
		s.logger.Warn("all route requests failed",
			zap.Int("modes", len(order)),
			zap.String("first_error", calc.Failures[0].Err.Error()),
		)
		return calc, &AggregateError{Failures: calc.Failures}
	}
	return calc, nil
}

func (s *RoutingService) calculateOne(ctx context.Context, spec routing.RouteRequestSpec) slot {
	resp, err := s.router.Route(ctx, spec)
	if err != nil {
		return slot{err: err}
	}
	// Clients other than routing.Client may skip validation.
	if err := resp.Validate(); err != nil {
		return slot{err: &routing.ProtocolError{
			Mode:    spec.Mode,
			Message: routing.MessagesFromContext(ctx, s.messages).InvalidResponse,
			Err:     err,
		}}
	}

	f := resp.Primary()
	line, err := polyline.LineString(f.Geometry.Polylines, routing.Precision)
	if err != nil {
		var derr *polyline.DecodeError
		if errors.As(err, &derr) {
			s.logger.Info("route geometry dropped",
				zap.String("mode", string(spec.Mode)),
				zap.Int("offset", derr.Offset),
				zap.Error(err),
			)
		}
	}
	return slot{route: DecodedRoute{
		Mode:            spec.Mode,
		DurationSeconds: f.Duration(),
		DistanceMeters:  f.Distance(),
		Coordinates:     line,
	}}
}

// Dedupe returns modes in first-seen order without duplicates or empty ids.
func Dedupe(modes []routing.TransportMode) []routing.TransportMode {
	seen := make(map[routing.TransportMode]struct{}, len(modes))
	out := make([]routing.TransportMode, 0, len(modes))
	for _, m := range modes {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
