// Package directions talks to a Mapbox/OSRM style walking-directions API.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/pkg/metrics"
	"github.com/samirrijal/walkies/internal/pkg/telemetry"
)

const (
	DefaultBaseURL        = "https://api.mapbox.com/directions/v5/mapbox/walking"
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 10 * time.Second

	maxBodyBytes = 4 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL        string
	AccessToken    string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	UserAgent      string
}

// Client implements ports.DirectionsProvider. It is safe for concurrent use.
type Client struct {
	baseURL     string
	accessToken string
	userAgent   string
	http        *http.Client
}

// NewClient creates a Client. Zero timeouts fall back to the 10 s defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "walkies/1.0"
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		userAgent:   cfg.UserAgent,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
		},
	}
}

type apiResponse struct {
	Code    string     `json:"code"`
	Message string     `json:"message,omitempty"`
	Routes  []apiRoute `json:"routes"`
}

type apiRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Geometry struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
}

// Route fetches the walking route from one point to another. Every failure is
// returned as *domain.RouteUnavailableError.
func (c *Client) Route(ctx context.Context, from, to domain.WalkLocation) (*domain.RouteInfo, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "directions.Route")
	defer span.End()

	start := time.Now()
	route, reason, err := c.fetch(ctx, from, to)
	metrics.DirectionsRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.DirectionsErrors.WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return nil, err
	}
	span.SetAttributes(
		attribute.Float64("route.distance_meters", route.DistanceMeters),
		attribute.Int("route.points", len(route.Path)),
	)
	return route, nil
}

func (c *Client) fetch(ctx context.Context, from, to domain.WalkLocation) (*domain.RouteInfo, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(from, to), nil)
	if err != nil {
		return nil, "request", &domain.RouteUnavailableError{Cause: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		reason := "transport"
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			reason = "timeout"
		}
		return nil, reason, &domain.RouteUnavailableError{Cause: "directions request " + reason, Err: redact(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, "status", &domain.RouteUnavailableError{Cause: fmt.Sprintf("provider returned HTTP %d", resp.StatusCode)}
	}

	var body apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, "decode", &domain.RouteUnavailableError{Cause: "malformed provider response", Err: err}
	}
	if !strings.EqualFold(body.Code, "Ok") {
		cause := "provider returned code " + body.Code
		if body.Message != "" {
			cause += ": " + body.Message
		}
		return nil, "code", &domain.RouteUnavailableError{Cause: cause}
	}
	if len(body.Routes) == 0 {
		return nil, "empty", &domain.RouteUnavailableError{Cause: "no route found"}
	}

	first := body.Routes[0]
	path := make([]domain.RoutePoint, 0, len(first.Geometry.Coordinates))
	for i, pair := range first.Geometry.Coordinates {
		if len(pair) < 2 {
			return nil, "decode", &domain.RouteUnavailableError{Cause: fmt.Sprintf("coordinate %d has %d values", i, len(pair))}
		}
		path = append(path, domain.RoutePoint{Lng: pair[0], Lat: pair[1]})
	}
	if len(path) == 0 {
		return nil, "empty", &domain.RouteUnavailableError{Cause: "route has no geometry"}
	}

	return &domain.RouteInfo{
		Path:            path,
		DistanceMeters:  first.Distance,
		DurationSeconds: first.Duration,
	}, "", nil
}

func (c *Client) requestURL(from, to domain.WalkLocation) string {
	q := url.Values{}
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}
	return fmt.Sprintf("%s/%f,%f;%f,%f?%s", c.baseURL, from.Lng, from.Lat, to.Lng, to.Lat, q.Encode())
}

// redact strips the query string, which carries the access token, from URL errors.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
		}
	}
	return err
}
