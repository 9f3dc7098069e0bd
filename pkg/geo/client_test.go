package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealroute/lunchbox-backend/pkg/config"
	pkgerrors "github.com/mealroute/lunchbox-backend/pkg/errors"
)

func TestHaversineKilometers(t *testing.T) {
	// Bangalore city center to Whitefield, roughly 15.5 km apart.
	from := LatLng{Latitude: 12.9716, Longitude: 77.5946}
	to := LatLng{Latitude: 12.9698, Longitude: 77.7500}

	got := HaversineKilometers(from, to)
	assert.InDelta(t, 16.8, got, 1.0)
	assert.Zero(t, HaversineKilometers(from, from))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.GeocoderConfig{
		BaseURL:   server.URL,
		UserAgent: "lunchbox-test",
		Timeout:   2 * time.Second,
		Country:   "in",
	})
	require.NoError(t, err)
	return client
}

func TestGeocodeSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "in", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "lunchbox-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"12.9716","lon":"77.5946"}]`))
	})

	got, err := client.Geocode(context.Background(), "MG Road, Bangalore")
	require.NoError(t, err)
	assert.InDelta(t, 12.9716, got.Latitude, 1e-9)
	assert.InDelta(t, 77.5946, got.Longitude, 1e-9)
}

func TestGeocodeNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := client.Geocode(context.Background(), "nowhere at all")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGeocodeUpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "over capacity", http.StatusServiceUnavailable)
	})

	_, err := client.Geocode(context.Background(), "MG Road, Bangalore")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestGeocodeEmptyAddress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("request should not be sent")
	})

	_, err := client.Geocode(context.Background(), "   ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
