package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public Cartoway router.
	DefaultBaseURL = "https://router.cartoway.com"

	// routesPath is the single-route endpoint, relative to the base URL.
	routesPath = "/0.1/routes"

	// DefaultTimeout bounds a whole request, body included. Without it a
	// stalled connection would keep its mode unsettled forever.
	DefaultTimeout = 10 * time.Second

	// maxResponseBytes caps the body read from the routing API.
	maxResponseBytes = 8 << 20

	// traceCellPrecision is the geohash length used in trace entries
	// (about 150m cells).
	traceCellPrecision = 7

	// redactedKey replaces the API key in trace entries.
	redactedKey = "***"

	httpMaxIdleConns    = 16
	httpIdleConnTimeout = 30 * time.Second
)

// Client implements Router against the Cartoway routing API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	messages   Messages
	trace      TraceFunc
	logger     *zap.Logger
	now        func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client. The caller's client is
// responsible for its own timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMessages sets the message table used to describe failures.
func WithMessages(m Messages) ClientOption {
	return func(c *Client) { c.messages = m }
}

// WithTraceFunc sets a trace function called for every request.
func WithTraceFunc(fn TraceFunc) ClientOption {
	return func(c *Client) { c.trace = fn }
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client for baseURL authenticated with apiKey. A
// non-positive timeout selects DefaultTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		messages: EnglishMessages,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Route requests one route. Failures are *TransportError or *ProtocolError;
// nothing is retried and nothing is cached.
func (c *Client) Route(ctx context.Context, spec RouteRequestSpec) (*RawRouteResponse, error) {
	params := c.queryParams(spec)
	endpoint := c.baseURL + routesPath + "?" + params.Encode()
	shown := c.queryParams(spec)
	shown.Set("api_key", redactedKey)

	start := c.now()
	entry := TraceEntry{
		ID:              uuid.NewString(),
		Timestamp:       start,
		Method:          http.MethodGet,
		URL:             c.baseURL + routesPath + "?" + shown.Encode(),
		Mode:            spec.Mode,
		RequestData:     flatten(shown),
		Status:          TracePending,
		OriginCell:      geohash.EncodeWithPrecision(spec.Origin.Lat, spec.Origin.Lng, traceCellPrecision),
		DestinationCell: geohash.EncodeWithPrecision(spec.Destination.Lat, spec.Destination.Lng, traceCellPrecision),
	}
	c.emit(ctx, entry)

	c.logger.Debug("routing request dispatched",
		zap.String("mode", string(spec.Mode)),
		zap.String("trace_id", entry.ID),
		zap.String("origin_cell", entry.OriginCell),
		zap.String("destination_cell", entry.DestinationCell),
	)

	resp, err := c.do(ctx, spec.Mode, endpoint)

	elapsed := c.now().Sub(start).Milliseconds()
	entry.DurationMs = &elapsed
	if err != nil {
		entry.Status = TraceError
		entry.Error = err.Error()
		c.emit(ctx, entry)
		c.logger.Warn("routing request failed",
			zap.String("mode", string(spec.Mode)),
			zap.String("trace_id", entry.ID),
			zap.String("origin_cell", entry.OriginCell),
			zap.String("destination_cell", entry.DestinationCell),
			zap.Int64("duration_ms", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	entry.Status = TraceSuccess
	entry.ResponseData = resp
	c.emit(ctx, entry)
	return resp, nil
}

func (c *Client) do(ctx context.Context, mode TransportMode, endpoint string) (*RawRouteResponse, error) {
	msgs := MessagesFromContext(ctx, c.messages)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{
			Mode:    mode,
			Message: msgs.Network,
			Err:     fmt.Errorf("routing: cartoway: create request: %w", err),
		}
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// *url.Error carries the full URL, API key included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, &TransportError{
			Mode:    mode,
			Message: msgs.Network,
			Err:     fmt.Errorf("routing: cartoway: http: %w", err),
		}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{
			Mode:    mode,
			Message: msgs.Network,
			Err:     fmt.Errorf("routing: cartoway: read response: %w", err),
		}
	}

	code := httpResp.StatusCode
	if code < 200 || code > 299 || code == http.StatusNoContent {
		return nil, &ProtocolError{
			Mode:       mode,
			StatusCode: code,
			Message:    msgs.ForStatus(code),
			Err:        fmt.Errorf("routing: cartoway: status %d: %s", code, snippet(body)),
		}
	}

	var out RawRouteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProtocolError{
			Mode:       mode,
			StatusCode: code,
			Message:    msgs.InvalidResponse,
			Err:        fmt.Errorf("routing: cartoway: unmarshal response: %w", err),
		}
	}
	if err := out.Validate(); err != nil {
		return nil, &ProtocolError{
			Mode:       mode,
			StatusCode: code,
			Message:    msgs.InvalidResponse,
			Err:        fmt.Errorf("routing: cartoway: validate response: %w", err),
		}
	}

	return &out, nil
}

// queryParams builds the query for spec. url.Values.Encode sorts keys, which
// keeps URLs stable across calls.
func (c *Client) queryParams(spec RouteRequestSpec) url.Values {
	locs := strings.Join([]string{
		formatCoord(spec.Origin.Lat),
		formatCoord(spec.Origin.Lng),
		formatCoord(spec.Destination.Lat),
		formatCoord(spec.Destination.Lng),
	}, ",")

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("mode", string(spec.Mode))
	params.Set("locs", locs)
	params.Set("geometry", strconv.FormatBool(spec.WantGeometry))
	params.Set("precision", strconv.Itoa(Precision))
	return params
}

func (c *Client) emit(ctx context.Context, entry TraceEntry) {
	if c.trace != nil {
		c.trace(entry)
	}
	if fn, ok := TraceFromContext(ctx); ok {
		fn(entry)
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', Precision, 64)
}

func flatten(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for k := range v {
		out[k] = v.Get(k)
	}
	return out
}

// snippet trims a response body for error messages.
func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
