package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartoway/router-demo/internal/modes"
	"github.com/cartoway/router-demo/internal/querystate"
	"github.com/cartoway/router-demo/internal/routing"
	"github.com/cartoway/router-demo/internal/service"
	"github.com/cartoway/router-demo/internal/trace"
	"github.com/cartoway/router-demo/internal/view"
)

type failureJSON struct {
	Mode  routing.TransportMode `json:"mode"`
	Error string                `json:"error"`
}

type compareResponse struct {
	Modes []routing.TransportMode `json:"modes"`
	view.Result
	Failures []failureJSON        `json:"failures,omitempty"`
	Trace    []routing.TraceEntry `json:"trace,omitempty"`
}

// ListModes handles GET /api/v1/modes
//
// Query params:
//   - lang (optional) "en" or "fr"
//
// Response 200:
//
//	[{"id":"car","label":"Car","color":"#2563EB","icon":"car"}]
func (h *Handler) ListModes(c *gin.Context) {
	type modeJSON struct {
		ID    routing.TransportMode `json:"id"`
		Label string                `json:"label"`
		Color string                `json:"color"`
		Icon  string                `json:"icon"`
	}

	locale := h.localeFor(c)
	enabled := h.registry.Load().Enabled()
	out := make([]modeJSON, len(enabled))
	for i, m := range enabled {
		out[i] = modeJSON{ID: m.ID, Label: m.Labels.For(locale), Color: m.Color, Icon: m.Icon}
	}
	c.JSON(http.StatusOK, out)
}

// CompareRoutes handles GET /api/v1/routes
//
// Query params:
//   - origin      (required) "lat,lng"
//   - destination (required) "lat,lng"
//   - modes       (optional) comma separated; defaults to car,cargo_bike
//   - debug       (optional) "true" or "1" adds the request trace
//   - lang        (optional) "en" or "fr"
//
// Response 200: routes in requested order, fastest/shortest flags, a GeoJSON
// FeatureCollection of the routes and markers, and their bounds. Modes that
// failed are listed under "failures".
// Response 400: missing or invalid parameters, or a disabled mode.
// Response 502: every requested mode failed; "error" holds the message of
// the first failure.
func (h *Handler) CompareRoutes(c *gin.Context) {
	st, err := querystate.Parse(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if st.Origin == nil || st.Destination == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin and destination query parameters are required"})
		return
	}

	requested := st.Modes
	if requested == nil {
		requested = h.defaultModes()
	}
	requested, rejected := h.checkModes(service.Dedupe(requested))
	if len(rejected) > 0 {
		unknownModesError(c, rejected)
		return
	}

	ctx := h.requestContext(c)
	var log *trace.Log
	if st.Debug {
		log = trace.NewLog(0)
		ctx = routing.WithTrace(ctx, log.Record)
	}

	calc, err := h.calculator.Calculate(ctx, *st.Origin, *st.Destination, requested)

	resp := compareResponse{Modes: requested}
	if calc != nil {
		for _, f := range calc.Failures {
			resp.Failures = append(resp.Failures, failureJSON{Mode: f.Mode, Error: f.Err.Error()})
		}
	}
	if log != nil {
		resp.Trace = log.Latest()
	}

	if err != nil {
		var agg *service.AggregateError
		if errors.As(err, &agg) {
			h.logger.Warn("route comparison failed",
				zap.String("modes", modes.Join(requested)),
				zap.Error(err),
			)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    agg.Error(),
				"failures": resp.Failures,
				"trace":    resp.Trace,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to calculate routes"})
		return
	}

	routes := make([]service.DecodedRoute, 0, len(calc.Routes))
	for _, m := range calc.Modes {
		if r, ok := calc.Routes[m]; ok {
			routes = append(routes, r)
		}
	}
	resp.Result = view.Build(view.Input{
		Routes:      routes,
		Registry:    h.registry.Load(),
		Locale:      h.localeFor(c),
		Origin:      st.Origin,
		Destination: st.Destination,
	})
	c.JSON(http.StatusOK, resp)
}
