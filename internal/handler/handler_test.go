package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"

	"github.com/cartoway/router-demo/internal/modes"
	"github.com/cartoway/router-demo/internal/routing"
	"github.com/cartoway/router-demo/internal/service"
	"github.com/cartoway/router-demo/internal/session"
)

func init() {
	// Suppress gin debug output in tests.
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

// fakeCalculator returns one straight-line route per mode. The i-th mode
// takes 10*(i+1) minutes over 5000/(i+1) meters, so the first mode is the
// fastest and the last the shortest.
type fakeCalculator struct {
	mu    sync.Mutex
	calls [][]routing.TransportMode
	fail  map[routing.TransportMode]error
}

func (f *fakeCalculator) Calculate(ctx context.Context, origin, destination routing.GeoPoint, ms []routing.TransportMode) (*service.Calculation, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]routing.TransportMode{}, ms...))
	call := len(f.calls)
	f.mu.Unlock()

	trace, tracing := routing.TraceFromContext(ctx)
	calc := &service.Calculation{
		Modes:  ms,
		Routes: make(map[routing.TransportMode]service.DecodedRoute),
	}
	for i, m := range ms {
		status := routing.TraceSuccess
		if err := f.fail[m]; err != nil {
			calc.Failures = append(calc.Failures, service.ModeFailure{Mode: m, Err: err})
			status = routing.TraceError
		} else {
			calc.Routes[m] = service.DecodedRoute{
				Mode:            m,
				DurationSeconds: float64(600 * (i + 1)),
				DistanceMeters:  float64(5000 / (i + 1)),
				Coordinates:     orb.LineString{{origin.Lng, origin.Lat}, {destination.Lng, destination.Lat}},
			}
		}
		if tracing {
			trace(routing.TraceEntry{ID: fmt.Sprintf("%s-%d", m, call), Mode: m, Status: status, Timestamp: time.Now()})
		}
	}
	if len(calc.Routes) == 0 && len(ms) > 0 {
		return calc, &service.AggregateError{Failures: calc.Failures}
	}
	return calc, nil
}

func (f *fakeCalculator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// newTestRouter builds a gin engine with every handler route registered.
// enabled restricts the registry; nil enables every known mode.
func newTestRouter(calc session.Calculator, enabled ...routing.TransportMode) (*gin.Engine, *session.Store) {
	holder := modes.NewHolder(modes.NewRegistry(enabled))
	store := session.NewStore(calc, time.Hour, nil)
	h := New(holder, calc, store, "en", nil)

	r := gin.New()
	r.GET("/health", h.Health)
	api := r.Group("/api/v1")
	api.GET("/modes", h.ListModes)
	api.GET("/routes", h.CompareRoutes)
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions/:id", h.GetSession)
	api.DELETE("/sessions/:id", h.DeleteSession)
	api.PUT("/sessions/:id/origin", h.SetOrigin)
	api.DELETE("/sessions/:id/origin", h.ClearOrigin)
	api.PUT("/sessions/:id/destination", h.SetDestination)
	api.DELETE("/sessions/:id/destination", h.ClearDestination)
	api.PUT("/sessions/:id/modes", h.SetModes)
	api.POST("/sessions/:id/modes/:mode/toggle", h.ToggleMode)
	api.POST("/sessions/:id/visibility/:mode/toggle", h.ToggleVisibility)
	api.GET("/sessions/:id/trace", h.DownloadTrace)
	return r, store
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	var req *http.Request
	if reader != nil {
		req = httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal response: %v\nbody: %s", err, w.Body.String())
	}
}

type routeJSON struct {
	Mode     string `json:"mode"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Duration string `json:"duration"`
	Distance string `json:"distance"`
	Fastest  bool   `json:"fastest"`
	Shortest bool   `json:"shortest"`
	Visible  bool   `json:"visible"`
}

type viewJSON struct {
	ID          string      `json:"id"`
	Phase       string      `json:"phase"`
	Selected    []string    `json:"selectedModes"`
	Visible     []string    `json:"visibleModes"`
	Calculating bool        `json:"calculating"`
	Error       string      `json:"error"`
	Query       string      `json:"query"`
	Routes      []routeJSON `json:"routes"`
	Comparison  struct {
		Fastest  string `json:"fastest"`
		Shortest string `json:"shortest"`
	} `json:"comparison"`
	GeoJSON struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	} `json:"geojson"`
	Bounds *struct {
		South float64 `json:"south"`
		North float64 `json:"north"`
	} `json:"bounds"`
	Failures []struct {
		Mode  string `json:"mode"`
		Error string `json:"error"`
	} `json:"failures"`
	Trace []routing.TraceEntry `json:"trace"`
}

func modeIDs(routes []routeJSON) string {
	ids := make([]string, len(routes))
	for i, r := range routes {
		ids[i] = r.Mode
	}
	return strings.Join(ids, ",")
}

const (
	paris   = "48.8566,2.3522"
	eiffel  = "48.8606,2.2945"
	pointA  = `{"lat":48.8566,"lng":2.3522}`
	pointB  = `{"lat":48.8606,"lng":2.2945}`
	routesQ = "/api/v1/routes?origin=" + paris + "&destination=" + eiffel
)

// ---------------------------------------------------------------------------
// Health and modes
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(&fakeCalculator{})
	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestListModes(t *testing.T) {
	r, _ := newTestRouter(&fakeCalculator{}, "car", "bicycle", "hovercraft")

	for _, tc := range []struct {
		lang      string
		wantLabel string
	}{
		{"", "Car"},
		{"fr", "Voiture"},
		{"xx", "Car"},
	} {
		w := do(r, http.MethodGet, "/api/v1/modes?lang="+tc.lang, "")
		if w.Code != http.StatusOK {
			t.Fatalf("lang %q: status = %d, want 200", tc.lang, w.Code)
		}
		var got []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
			Color string `json:"color"`
			Icon  string `json:"icon"`
		}
		decode(t, w, &got)
		if len(got) != 3 {
			t.Fatalf("lang %q: got %d modes, want 3", tc.lang, len(got))
		}
		if got[0].ID != "car" || got[0].Label != tc.wantLabel {
			t.Errorf("lang %q: first mode = %+v", tc.lang, got[0])
		}
		if got[2].ID != "hovercraft" || got[2].Label != "hovercraft" || got[2].Color != modes.DefaultColor {
			t.Errorf("lang %q: generic mode = %+v", tc.lang, got[2])
		}
	}
}

// ---------------------------------------------------------------------------
// CompareRoutes
// ---------------------------------------------------------------------------

func TestCompareRoutes_BadRequest(t *testing.T) {
	r, _ := newTestRouter(&fakeCalculator{}, "car", "bicycle")

	for _, tc := range []struct {
		name string
		path string
	}{
		{"missing origin", "/api/v1/routes?destination=" + eiffel},
		{"missing destination", "/api/v1/routes?origin=" + paris},
		{"not a point", "/api/v1/routes?origin=paris&destination=" + eiffel},
		{"latitude out of range", "/api/v1/routes?origin=95,2&destination=" + eiffel},
		{"disabled mode", routesQ + "&modes=car,truck_44"},
	} {
		w := do(r, http.MethodGet, tc.path, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tc.name, w.Code)
		}
	}
}

func TestCompareRoutes_Success(t *testing.T) {
	calc := &fakeCalculator{}
	r, _ := newTestRouter(calc)

	w := do(r, http.MethodGet, routesQ+"&modes=car,bicycle,car", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var got viewJSON
	decode(t, w, &got)

	if ids := modeIDs(got.Routes); ids != "car,bicycle" {
		t.Errorf("routes = %s, want car,bicycle", ids)
	}
	if got.Comparison.Fastest != "car" || got.Comparison.Shortest != "bicycle" {
		t.Errorf("comparison = %+v", got.Comparison)
	}
	if !got.Routes[0].Fastest || !got.Routes[1].Shortest {
		t.Errorf("flags not set: %+v", got.Routes)
	}
	if got.Routes[0].Duration != "10min" || got.Routes[0].Distance != "5.0 km" {
		t.Errorf("formatted car = %s / %s", got.Routes[0].Duration, got.Routes[0].Distance)
	}
	// Two lines plus two markers.
	if got.GeoJSON.Type != "FeatureCollection" || len(got.GeoJSON.Features) != 4 {
		t.Errorf("geojson = %s with %d features", got.GeoJSON.Type, len(got.GeoJSON.Features))
	}
	if got.Bounds == nil || got.Bounds.South != 48.8566 || got.Bounds.North != 48.8606 {
		t.Errorf("bounds = %+v", got.Bounds)
	}
	if got.Trace != nil {
		t.Error("trace should only be present in debug mode")
	}
	if calc.callCount() != 1 || len(calc.calls[0]) != 2 {
		t.Errorf("calls = %v, want one call for two modes", calc.calls)
	}
}

func TestCompareRoutes_DefaultModes(t *testing.T) {
	calc := &fakeCalculator{}
	r, _ := newTestRouter(calc)

	w := do(r, http.MethodGet, routesQ, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got viewJSON
	decode(t, w, &got)
	if ids := modeIDs(got.Routes); ids != "car,cargo_bike" {
		t.Errorf("routes = %s, want the default car,cargo_bike", ids)
	}
}

func TestCompareRoutes_PartialFailure(t *testing.T) {
	calc := &fakeCalculator{fail: map[routing.TransportMode]error{
		"car": &routing.TransportError{Message: "HTTP error, status=500"},
	}}
	r, _ := newTestRouter(calc)

	w := do(r, http.MethodGet, routesQ+"&modes=car,foot", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got viewJSON
	decode(t, w, &got)
	if ids := modeIDs(got.Routes); ids != "foot" {
		t.Errorf("routes = %s, want foot", ids)
	}
	if len(got.Failures) != 1 || got.Failures[0].Mode != "car" {
		t.Errorf("failures = %+v", got.Failures)
	}
}

func TestCompareRoutes_AllFailed(t *testing.T) {
	calc := &fakeCalculator{fail: map[routing.TransportMode]error{
		"car":  errors.New("Route not found"),
		"foot": errors.New("Network error"),
	}}
	r, _ := newTestRouter(calc)

	w := do(r, http.MethodGet, routesQ+"&modes=car,foot&debug=true", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	var got struct {
		Error    string               `json:"error"`
		Trace    []routing.TraceEntry `json:"trace"`
		Failures []json.RawMessage    `json:"failures"`
	}
	decode(t, w, &got)
	if got.Error != "Route not found" {
		t.Errorf("error = %q, want the first failure's message", got.Error)
	}
	if len(got.Failures) != 2 || len(got.Trace) != 2 {
		t.Errorf("failures = %d, trace = %d, want 2 each", len(got.Failures), len(got.Trace))
	}
}

func TestCompareRoutes_DebugTrace(t *testing.T) {
	r, _ := newTestRouter(&fakeCalculator{})

	w := do(r, http.MethodGet, routesQ+"&modes=car,scooter&debug=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got viewJSON
	decode(t, w, &got)
	if len(got.Trace) != 2 || got.Trace[0].Mode != "car" || got.Trace[1].Mode != "scooter" {
		t.Errorf("trace = %+v", got.Trace)
	}
}

func TestCompareRoutes_ExplicitEmptyModes(t *testing.T) {
	calc := &fakeCalculator{}
	r, _ := newTestRouter(calc)

	w := do(r, http.MethodGet, routesQ+"&modes=", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got viewJSON
	decode(t, w, &got)
	if len(got.Routes) != 0 {
		t.Errorf("routes = %d, want none", len(got.Routes))
	}
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func createSession(t *testing.T, r *gin.Engine, path, body string) viewJSON {
	t.Helper()
	w := do(r, http.MethodPost, path, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var v viewJSON
	decode(t, w, &v)
	if v.ID == "" {
		t.Fatal("create: empty session id")
	}
	return v
}

func TestCreateSession_Empty(t *testing.T) {
	calc := &fakeCalculator{}
	r, store := newTestRouter(calc)

	v := createSession(t, r, "/api/v1/sessions", "")
	if v.Phase != string(session.PhaseIdle) {
		t.Errorf("phase = %q, want idle", v.Phase)
	}
	if strings.Join(v.Selected, ",") != "car,cargo_bike" {
		t.Errorf("selected = %v", v.Selected)
	}
	if calc.callCount() != 0 {
		t.Error("no route should be requested without points")
	}
	if store.Len() != 1 {
		t.Errorf("store has %d sessions, want 1", store.Len())
	}
}

func TestCreateSession_FromQuery(t *testing.T) {
	calc := &fakeCalculator{}
	r, _ := newTestRouter(calc)

	v := createSession(t, r, "/api/v1/sessions?origin="+paris+"&destination="+eiffel+"&modes=bicycle", "")
	if v.Phase != string(session.PhaseComputing) || v.Calculating {
		t.Errorf("phase = %q calculating = %v", v.Phase, v.Calculating)
	}
	if ids := modeIDs(v.Routes); ids != "bicycle" {
		t.Errorf("routes = %s, want bicycle", ids)
	}
	if !strings.Contains(v.Query, "modes=bicycle") || !strings.Contains(v.Query, "origin=48.8566%2C2.3522") {
		t.Errorf("query = %q", v.Query)
	}
}

func TestCreateSession_FromBody(t *testing.T) {
	r, _ := newTestRouter(&fakeCalculator{})

	v := createSession(t, r, "/api/v1/sessions",
		`{"origin":`+pointA+`,"destination":`+pointB+`,"modes":["foot","car"]}`)
	if ids := modeIDs(v.Routes); ids != "foot,car" {
		t.Errorf("routes = %s, want foot,car", ids)
	}
	if strings.Join(v.Visible, ",") != "foot,car" {
		t.Errorf("visible = %v", v.Visible)
	}
}

func TestCreateSession_Validation(t *testing.T) {
	r, _ := newTestRouter(&fakeCalculator{}, "car")

	cases := []struct {
		name      string
		body      string
		wantField string
	}{
		{"latitude too large", `{"origin":{"lat":91,"lng":2}}`, "origin.lat"},
		{"missing longitude", `{"destination":{"lat":48}}`, "destination.lng"},
		{"empty mode id", `{"modes":[""]}`, "modes[0]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/v1/sessions", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var got struct {
				Fields map[string]string `json:"fields"`
			}
			decode(t, w, &got)
			if _, ok := got.Fields[tc.wantField]; !ok {
				t.Errorf("fields = %v, want %q", got.Fields, tc.wantField)
			}
		})
	}

	w := do(r, http.MethodPost, "/api/v1/sessions", `{"modes":["bicycle"]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("disabled mode: status = %d, want 400", w.Code)
	}
	w = do(r, http.MethodPost, "/api/v1/sessions", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}
}

func TestSession_NotFound(t *testing.T) {
	r, _ := newTestRouter(&fakeCalculator{})

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/v1/sessions/nope", ""},
		{http.MethodPut, "/api/v1/sessions/nope/origin", pointA},
		{http.MethodPost, "/api/v1/sessions/nope/modes/car/toggle", ""},
		{http.MethodGet, "/api/v1/sessions/nope/trace", ""},
		{http.MethodDelete, "/api/v1/sessions/nope", ""},
	} {
		w := do(r, tc.method, tc.path, tc.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", tc.method, tc.path, w.Code)
		}
	}
}

func TestSession_Flow(t *testing.T) {
	calc := &fakeCalculator{}
	r, _ := newTestRouter(calc)
	id := createSession(t, r, "/api/v1/sessions", `{"modes":["car"]}`).ID
	base := "/api/v1/sessions/" + id

	// Origin alone computes nothing.
	var v viewJSON
	w := do(r, http.MethodPut, base+"/origin", pointA)
	decode(t, w, &v)
	if v.Phase != string(session.PhaseIdle) || len(v.Routes) != 0 || calc.callCount() != 0 {
		t.Fatalf("after origin: phase = %q routes = %d calls = %d", v.Phase, len(v.Routes), calc.callCount())
	}

	// Destination completes the inputs.
	decode(t, do(r, http.MethodPut, base+"/destination", pointB), &v)
	if ids := modeIDs(v.Routes); ids != "car" {
		t.Fatalf("after destination: routes = %s", ids)
	}

	// Adding a mode requests only that mode.
	decode(t, do(r, http.MethodPost, base+"/modes/bicycle/toggle", ""), &v)
	if ids := modeIDs(v.Routes); ids != "car,bicycle" {
		t.Errorf("after toggle: routes = %s", ids)
	}
	if last := calc.calls[len(calc.calls)-1]; len(last) != 1 || last[0] != "bicycle" {
		t.Errorf("last call = %v, want only bicycle", last)
	}

	// Hiding a mode keeps its route.
	decode(t, do(r, http.MethodPost, base+"/visibility/car/toggle", ""), &v)
	if strings.Join(v.Visible, ",") != "bicycle" || len(v.Routes) != 2 {
		t.Errorf("after hide: visible = %v routes = %d", v.Visible, len(v.Routes))
	}
	if len(v.GeoJSON.Features) != 3 {
		t.Errorf("after hide: %d features, want one line plus two markers", len(v.GeoJSON.Features))
	}

	// Replacing the selection drops the removed mode.
	decode(t, do(r, http.MethodPut, base+"/modes", `{"modes":["bicycle"]}`), &v)
	if ids := modeIDs(v.Routes); ids != "bicycle" {
		t.Errorf("after set modes: routes = %s", ids)
	}

	// No modes: cleared.
	decode(t, do(r, http.MethodPut, base+"/modes", `{"modes":[]}`), &v)
	if v.Phase != string(session.PhaseCleared) || len(v.Routes) != 0 {
		t.Errorf("after clearing modes: phase = %q routes = %d", v.Phase, len(v.Routes))
	}

	// Clearing a point returns to idle.
	decode(t, do(r, http.MethodDelete, base+"/destination", ""), &v)
	if v.Phase != string(session.PhaseIdle) {
		t.Errorf("after clearing destination: phase = %q", v.Phase)
	}

	w = do(r, http.MethodDelete, base, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d, want 204", w.Code)
	}
	if w := do(r, http.MethodGet, base, ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", w.Code)
	}
}

func TestSession_Errors(t *testing.T) {
	calc := &fakeCalculator{fail: map[routing.TransportMode]error{"car": errors.New("Route not found")}}
	r, _ := newTestRouter(calc)

	v := createSession(t, r, "/api/v1/sessions", `{"origin":`+pointA+`,"destination":`+pointB+`,"modes":["car"]}`)
	if v.Error != "Route not found" {
		t.Errorf("error = %q", v.Error)
	}

	var next viewJSON
	decode(t, do(r, http.MethodPost, "/api/v1/sessions/"+v.ID+"/modes/foot/toggle", ""), &next)
	if next.Error != "" {
		t.Errorf("error = %q, want it reset by the new batch", next.Error)
	}
	if ids := modeIDs(next.Routes); ids != "foot" {
		t.Errorf("routes = %s, want foot", ids)
	}
}

func TestSession_ToggleDisabledMode(t *testing.T) {
	r, _ := newTestRouter(&fakeCalculator{}, "car", "foot")
	id := createSession(t, r, "/api/v1/sessions", "").ID

	w := do(r, http.MethodPost, "/api/v1/sessions/"+id+"/modes/truck_44/toggle", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w = do(r, http.MethodPut, "/api/v1/sessions/"+id+"/modes", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing modes: status = %d, want 400", w.Code)
	}
}

func TestSession_InvalidPoint(t *testing.T) {
	r, _ := newTestRouter(&fakeCalculator{})
	id := createSession(t, r, "/api/v1/sessions", "").ID

	w := do(r, http.MethodPut, "/api/v1/sessions/"+id+"/origin", `{"lat":0,"lng":200}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var got struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &got)
	if got.Fields["lng"] != "must be at most 180" {
		t.Errorf("fields = %v", got.Fields)
	}

	// Zero is a valid coordinate.
	w = do(r, http.MethodPut, "/api/v1/sessions/"+id+"/origin", `{"lat":0,"lng":0}`)
	if w.Code != http.StatusOK {
		t.Errorf("zero point: status = %d, want 200", w.Code)
	}
}

func TestSession_DownloadTrace(t *testing.T) {
	r, _ := newTestRouter(&fakeCalculator{})
	v := createSession(t, r, "/api/v1/sessions", `{"origin":`+pointA+`,"destination":`+pointB+`,"modes":["car","foot"]}`)

	w := do(r, http.MethodGet, "/api/v1/sessions/"+v.ID+"/trace", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	var entries []routing.TraceEntry
	decode(t, w, &entries)
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}

	// A second batch for car records another attempt; latest keeps one per mode.
	do(r, http.MethodPut, "/api/v1/sessions/"+v.ID+"/origin", `{"lat":48.85,"lng":2.35}`)
	w = do(r, http.MethodGet, "/api/v1/sessions/"+v.ID+"/trace?latest=true", "")
	decode(t, w, &entries)
	if len(entries) != 2 || entries[0].ID != "car-2" {
		t.Errorf("latest: got %d entries, want 2", len(entries))
	}
}
