package nominatim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geomonitor-etl/internal/geocode"
)

const testUserAgent = "geomonitor_test"

func TestClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Kyiv", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"50.4500336","lon":"30.5241361","display_name":"Kyiv, Ukraine"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testUserAgent, 5*time.Second)
	got, err := c.Geocode(context.Background(), "Kyiv")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 50.4500336, got.Lat, 1e-9)
	assert.InDelta(t, 30.5241361, got.Lon, 1e-9)
	assert.Equal(t, "nominatim", c.Name())
}

func TestClient_Geocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, testUserAgent, 5*time.Second).Geocode(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_Geocode_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, testUserAgent, 5*time.Second).Geocode(context.Background(), "Kyiv")
	var pe *geocode.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, pe.RateLimited())
}

func TestClient_Geocode_BadCoordinate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"north","lon":"30.5"}]`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, testUserAgent, 5*time.Second).Geocode(context.Background(), "Kyiv")
	assert.ErrorContains(t, err, "parse lat")
}
