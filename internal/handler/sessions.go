package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartoway/router-demo/internal/modes"
	"github.com/cartoway/router-demo/internal/querystate"
	"github.com/cartoway/router-demo/internal/routing"
	"github.com/cartoway/router-demo/internal/session"
	"github.com/cartoway/router-demo/internal/view"
)

type pointRequest struct {
	Lat *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" binding:"required,min=-180,max=180"`
}

func (p *pointRequest) geoPoint() *routing.GeoPoint {
	if p == nil {
		return nil
	}
	return &routing.GeoPoint{Lat: *p.Lat, Lng: *p.Lng}
}

type createSessionRequest struct {
	Origin      *pointRequest `json:"origin"`
	Destination *pointRequest `json:"destination"`
	Modes       []string      `json:"modes" binding:"omitempty,dive,required"`
}

type modesRequest struct {
	Modes []string `json:"modes" binding:"required,dive,required"`
}

type sessionView struct {
	ID          string                  `json:"id"`
	Phase       session.Phase           `json:"phase"`
	Origin      *routing.GeoPoint       `json:"origin"`
	Destination *routing.GeoPoint       `json:"destination"`
	Selected    []routing.TransportMode `json:"selectedModes"`
	Visible     []routing.TransportMode `json:"visibleModes"`
	Calculating bool                    `json:"calculating"`
	Error       string                  `json:"error,omitempty"`
	// Query is the shareable query string of the session inputs.
	Query string `json:"query"`
	view.Result
}

func (h *Handler) render(c *gin.Context, id string, snap session.Snapshot) sessionView {
	return sessionView{
		ID:          id,
		Phase:       snap.Phase,
		Origin:      snap.Origin,
		Destination: snap.Destination,
		Selected:    snap.Selected,
		Visible:     snap.Visible,
		Calculating: snap.Calculating,
		Error:       snap.Error,
		Query: querystate.State{
			Origin:      snap.Origin,
			Destination: snap.Destination,
			Modes:       snap.Selected,
		}.Encode().Encode(),
		Result: view.Build(view.Input{
			Routes:      snap.Routes,
			Registry:    h.registry.Load(),
			Locale:      h.localeFor(c),
			Visible:     snap.IsVisible,
			Origin:      snap.Origin,
			Destination: snap.Destination,
		}),
	}
}

// loadSession resolves :id, writing a 404 when it is unknown.
func (h *Handler) loadSession(c *gin.Context) (*session.Session, bool) {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return nil, false
	}
	return sess, true
}

// update applies change to the session and responds with the new view.
func (h *Handler) update(c *gin.Context, change func(*session.Reconciler) *session.Batch) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	snap := sess.Do(h.requestContext(c), change)
	c.JSON(http.StatusOK, h.render(c, sess.ID, snap))
}

// CreateSession handles POST /api/v1/sessions
//
// The initial state may come from the query string (origin, destination,
// modes, as in GET /api/v1/routes), from a JSON body, or both; the body
// wins. Without modes the session starts with car and cargo_bike.
//
// Body (optional):
//
//	{"origin":{"lat":48.85,"lng":2.35},"destination":{"lat":48.86,"lng":2.29},"modes":["car"]}
//
// Response 201: the session view.
// Response 400: invalid query, body, or a disabled mode.
func (h *Handler) CreateSession(c *gin.Context) {
	st, err := querystate.Parse(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if c.Request.ContentLength != 0 {
		var req createSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		if req.Origin != nil {
			st.Origin = req.Origin.geoPoint()
		}
		if req.Destination != nil {
			st.Destination = req.Destination.geoPoint()
		}
		if req.Modes != nil {
			st.Modes = toModes(req.Modes)
		}
	}

	selected := st.Modes
	if selected == nil {
		selected = h.defaultModes()
	}
	selected, rejected := h.checkModes(selected)
	if len(rejected) > 0 {
		unknownModesError(c, rejected)
		return
	}

	sess := h.sessions.Create(selected)
	h.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("modes", modes.Join(selected)),
	)

	origin, destination := st.Origin, st.Destination
	snap := sess.Do(h.requestContext(c), func(r *session.Reconciler) *session.Batch {
		return r.SetPoints(origin, destination)
	})
	c.JSON(http.StatusCreated, h.render(c, sess.ID, snap))
}

// GetSession handles GET /api/v1/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.render(c, sess.ID, sess.Reconciler().Snapshot()))
}

// DeleteSession handles DELETE /api/v1/sessions/:id
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetOrigin handles PUT /api/v1/sessions/:id/origin
//
// Body: {"lat":48.85,"lng":2.35}
func (h *Handler) SetOrigin(c *gin.Context) {
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p := req.geoPoint()
	h.update(c, func(r *session.Reconciler) *session.Batch { return r.SetOrigin(p) })
}

// ClearOrigin handles DELETE /api/v1/sessions/:id/origin
func (h *Handler) ClearOrigin(c *gin.Context) {
	h.update(c, func(r *session.Reconciler) *session.Batch { return r.SetOrigin(nil) })
}

// SetDestination handles PUT /api/v1/sessions/:id/destination
//
// Body: {"lat":48.86,"lng":2.29}
func (h *Handler) SetDestination(c *gin.Context) {
	var req pointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	p := req.geoPoint()
	h.update(c, func(r *session.Reconciler) *session.Batch { return r.SetDestination(p) })
}

// ClearDestination handles DELETE /api/v1/sessions/:id/destination
func (h *Handler) ClearDestination(c *gin.Context) {
	h.update(c, func(r *session.Reconciler) *session.Batch { return r.SetDestination(nil) })
}

// SetModes handles PUT /api/v1/sessions/:id/modes
//
// Body: {"modes":["car","bicycle"]}. An empty list clears every route.
func (h *Handler) SetModes(c *gin.Context) {
	var req modesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	selected, rejected := h.checkModes(toModes(req.Modes))
	if len(rejected) > 0 {
		unknownModesError(c, rejected)
		return
	}
	h.update(c, func(r *session.Reconciler) *session.Batch { return r.SetModes(selected) })
}

// ToggleMode handles POST /api/v1/sessions/:id/modes/:mode/toggle
//
// Selecting a disabled mode is rejected; deselecting is always allowed.
func (h *Handler) ToggleMode(c *gin.Context) {
	mode := routing.TransportMode(c.Param("mode"))
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	selected := false
	for _, m := range sess.Reconciler().Snapshot().Selected {
		if m == mode {
			selected = true
			break
		}
	}
	if !selected {
		if _, rejected := h.checkModes([]routing.TransportMode{mode}); len(rejected) > 0 {
			unknownModesError(c, rejected)
			return
		}
	}
	snap := sess.Do(h.requestContext(c), func(r *session.Reconciler) *session.Batch { return r.ToggleMode(mode) })
	c.JSON(http.StatusOK, h.render(c, sess.ID, snap))
}

// ToggleVisibility handles POST /api/v1/sessions/:id/visibility/:mode/toggle
func (h *Handler) ToggleVisibility(c *gin.Context) {
	mode := routing.TransportMode(c.Param("mode"))
	h.update(c, func(r *session.Reconciler) *session.Batch {
		r.ToggleVisibility(mode)
		return nil
	})
}

// DownloadTrace handles GET /api/v1/sessions/:id/trace
//
// Query params:
//   - latest (optional) "true" keeps only the last attempt per mode
//
// Response 200: a JSON array of request trace entries, served as an
// attachment.
func (h *Handler) DownloadTrace(c *gin.Context) {
	sess, ok := h.loadSession(c)
	if !ok {
		return
	}
	if c.Query("latest") == "true" {
		c.JSON(http.StatusOK, sess.Trace().Latest())
		return
	}
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="router-trace-`+sess.ID+`.json"`)
	c.Status(http.StatusOK)
	if err := sess.Trace().Export(c.Writer); err != nil {
		h.logger.Error("trace export failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

func toModes(ids []string) []routing.TransportMode {
	out := make([]routing.TransportMode, len(ids))
	for i, id := range ids {
		out[i] = routing.TransportMode(id)
	}
	return out
}
