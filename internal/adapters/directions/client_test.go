package directions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/walkies/internal/core/domain"
)

var (
	from = domain.WalkLocation{Lat: 43.2630, Lng: -2.9350}
	to   = domain.WalkLocation{Lat: 43.2680, Lng: -2.9400}
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/walking", AccessToken: "secret-token"})
}

func TestRoute_Success(t *testing.T) {
	var gotPath, gotToken, gotGeometries string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		gotGeometries = r.URL.Query().Get("geometries")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": "Ok",
			"routes": [
				{"distance": 812.4, "duration": 583.1,
				 "geometry": {"type": "LineString", "coordinates": [[-2.935, 43.263], [-2.937, 43.265], [-2.94, 43.268]]}},
				{"distance": 900, "duration": 650, "geometry": {"coordinates": [[0, 0], [1, 1]]}}
			]
		}`))
	})

	route, err := c.Route(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, "/walking/-2.935000,43.263000;-2.940000,43.268000", gotPath)
	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, "geojson", gotGeometries)

	assert.InDelta(t, 812.4, route.DistanceMeters, 1e-9)
	assert.InDelta(t, 583.1, route.DurationSeconds, 1e-9)
	require.Len(t, route.Path, 3)
	assert.Equal(t, domain.RoutePoint{Lng: -2.935, Lat: 43.263}, route.Path[0])
	assert.Equal(t, domain.RoutePoint{Lng: -2.94, Lat: 43.268}, route.Path[2])
}

func TestRoute_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		cause  string
	}{
		{"non-200", http.StatusUnauthorized, `{"message":"Not Authorized"}`, "HTTP 401"},
		{"server error", http.StatusBadGateway, ``, "HTTP 502"},
		{"empty routes", http.StatusOK, `{"code":"Ok","routes":[]}`, "no route found"},
		{"provider code", http.StatusOK, `{"code":"NoRoute","message":"no walkable path"}`, "NoRoute"},
		{"malformed json", http.StatusOK, `{"code":`, "malformed"},
		{"bad coordinate", http.StatusOK, `{"code":"Ok","routes":[{"distance":1,"duration":1,"geometry":{"coordinates":[[1]]}}]}`, "coordinate 0"},
		{"no geometry", http.StatusOK, `{"code":"Ok","routes":[{"distance":1,"duration":1}]}`, "no geometry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			route, err := c.Route(context.Background(), from, to)
			assert.Nil(t, route)
			require.ErrorIs(t, err, domain.ErrRouteUnavailable)

			var rue *domain.RouteUnavailableError
			require.ErrorAs(t, err, &rue)
			assert.Contains(t, rue.Cause, tt.cause)
		})
	}
}

func TestRoute_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{BaseURL: srv.URL, ReadTimeout: 50 * time.Millisecond, ConnectTimeout: time.Second})

	start := time.Now()
	_, err := c.Route(context.Background(), from, to)
	require.ErrorIs(t, err, domain.ErrRouteUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRoute_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Route(ctx, from, to)
	require.ErrorIs(t, err, domain.ErrRouteUnavailable)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRoute_TransportErrorHidesToken(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1/walking", AccessToken: "secret-token", ConnectTimeout: time.Second})

	_, err := c.Route(context.Background(), from, to)
	require.ErrorIs(t, err, domain.ErrRouteUnavailable)
	assert.False(t, strings.Contains(err.Error(), "secret-token"), "error leaks token: %v", err)
}
