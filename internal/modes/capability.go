package modes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cartoway/router-demo/internal/routing"
)

const (
	capabilityPath = "/0.1/capability"
	userAgent      = "router-demo-sync/1.0"
)

// capabilityResponse is the subset of the capability document we read.
type capabilityResponse struct {
	Route []struct {
		Mode string `json:"mode"`
	} `json:"route"`
}

// CapabilityClient asks the routing backend which modes it serves.
type CapabilityClient struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// CapabilityOption configures a CapabilityClient.
type CapabilityOption func(*CapabilityClient)

// WithURL replaces the capability URL built from the base URL and key.
func WithURL(u string) CapabilityOption {
	return func(c *CapabilityClient) {
		if u != "" {
			c.url = u
		}
	}
}

// WithCapabilityHTTPClient replaces the default HTTP client.
func WithCapabilityHTTPClient(hc *http.Client) CapabilityOption {
	return func(c *CapabilityClient) { c.httpClient = hc }
}

// WithCapabilityLogger sets the logger. A nil logger is ignored.
func WithCapabilityLogger(l *zap.Logger) CapabilityOption {
	return func(c *CapabilityClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCapabilityClient creates a client for {baseURL}/0.1/capability.
func NewCapabilityClient(baseURL, apiKey string, timeout time.Duration, opts ...CapabilityOption) *CapabilityClient {
	if baseURL == "" {
		baseURL = routing.DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = routing.DefaultTimeout
	}
	c := &CapabilityClient{
		url:        strings.TrimRight(baseURL, "/") + capabilityPath + "?api_key=" + url.QueryEscape(apiKey),
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URL returns the URL Fetch requests.
func (c *CapabilityClient) URL() string { return c.url }

// Fetch returns the distinct modes advertised by the backend, in document
// order. Entries without a string mode are skipped.
func (c *CapabilityClient) Fetch(ctx context.Context) ([]routing.TransportMode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("modes: capability: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error carries the full URL, API key included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("modes: capability: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("modes: capability: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("modes: capability: read response: %w", err)
	}

	var doc capabilityResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("modes: capability: unmarshal response: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Route))
	out := make([]routing.TransportMode, 0, len(doc.Route))
	for _, r := range doc.Route {
		if r.Mode == "" {
			continue
		}
		if _, ok := seen[r.Mode]; ok {
			continue
		}
		seen[r.Mode] = struct{}{}
		out = append(out, routing.TransportMode(r.Mode))
	}

	c.logger.Debug("capability fetched", zap.Int("modes", len(out)))
	return out, nil
}

// Report compares the backend's modes with the configured ones.
type Report struct {
	FetchedFrom    string                  `json:"fetchedFrom"`
	AvailableModes []routing.TransportMode `json:"availableModes"`
	EnabledKnown   []routing.TransportMode `json:"enabledKnown"`
	DisabledKnown  []routing.TransportMode `json:"disabledKnown"`
	Unknown        []routing.TransportMode `json:"unknown"`
	EnvSuggestion  string                  `json:"envSuggestion"`
	Timestamp      time.Time               `json:"timestamp"`
}

// Diff builds a Report. EnabledKnown and Unknown follow the order of
// available; DisabledKnown follows the order of known.
func Diff(fetchedFrom string, available, known []routing.TransportMode, now time.Time) Report {
	avail := make(map[routing.TransportMode]struct{}, len(available))
	for _, m := range available {
		avail[m] = struct{}{}
	}
	knownSet := make(map[routing.TransportMode]struct{}, len(known))
	for _, m := range known {
		knownSet[m] = struct{}{}
	}

	r := Report{
		FetchedFrom:    fetchedFrom,
		AvailableModes: append([]routing.TransportMode{}, available...),
		EnabledKnown:   []routing.TransportMode{},
		DisabledKnown:  []routing.TransportMode{},
		Unknown:        []routing.TransportMode{},
		Timestamp:      now.UTC(),
	}
	for _, m := range available {
		if _, ok := knownSet[m]; ok {
			r.EnabledKnown = append(r.EnabledKnown, m)
		} else {
			r.Unknown = append(r.Unknown, m)
		}
	}
	for _, m := range known {
		if _, ok := avail[m]; !ok {
			r.DisabledKnown = append(r.DisabledKnown, m)
		}
	}
	r.EnvSuggestion = "ENABLED_TRANSPORT_MODES=" + Join(r.EnabledKnown)
	return r
}

// Join formats ids as a comma separated list.
func Join(ids []routing.TransportMode) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

// Split parses a comma separated list, trimming blanks.
func Split(s string) []routing.TransportMode {
	var out []routing.TransportMode
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, routing.TransportMode(p))
		}
	}
	return out
}
