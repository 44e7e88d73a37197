package restserver

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/skywatch/internal/controllers"
	"github.com/chrissnell/skywatch/internal/locator"
	"github.com/chrissnell/skywatch/internal/observation"
	"github.com/chrissnell/skywatch/internal/render"
	"github.com/chrissnell/skywatch/pkg/celestial"
	"github.com/chrissnell/skywatch/pkg/config"
	"github.com/chrissnell/skywatch/pkg/ephemeris"
	"github.com/chrissnell/skywatch/pkg/horizon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// steadySky keeps the Sun and Jupiter up and everything else down
var steadySky = ephemeris.Funcs{
	AltAz: func(body celestial.Body, loc celestial.GeoCoordinate, t time.Time) (float64, float64, error) {
		switch body {
		case celestial.Sun:
			return 45, 135, nil
		case celestial.Jupiter:
			return 20, 250, nil
		default:
			return -30, 10, nil
		}
	},
	Position: func(body celestial.Body, t time.Time, frame ephemeris.Frame) (r3.Vec, error) {
		switch body {
		case celestial.Sun:
			return r3.Vec{X: 1}, nil
		case celestial.Moon:
			return r3.Vec{X: -0.0026}, nil
		default:
			return r3.Vec{}, nil
		}
	},
}

func newTestController(t *testing.T, withCharts bool) *Controller {
	t.Helper()
	logger := zap.NewNop().Sugar()

	tz, err := horizon.ParseUTCOffset(config.DefaultUTCOffset)
	require.NoError(t, err)

	var presets []locator.Place
	for _, l := range config.DefaultLocations() {
		presets = append(presets, locator.Place{Name: l.Name, Coordinate: celestial.GeoCoordinate{Latitude: l.Latitude, Longitude: l.Longitude}})
	}
	loc, err := locator.New(presets, config.DefaultLocationName)
	require.NoError(t, err)

	deps := controllers.Deps{
		Service:        observation.NewService(steadySky, observation.WithTimezone(tz), observation.WithSampleCount(24)),
		Locator:        loc,
		Renderer:       render.NewPNG(render.WithSize(200)),
		ChartURLPrefix: config.DefaultChartURLPrefix,
		RequestTimeout: 5 * time.Second,
	}
	if withCharts {
		deps.Charts, err = render.NewFileStore(t.TempDir(), 2, deps.Renderer, logger)
		require.NoError(t, err)
	}

	ctrl, err := NewController(context.Background(), &sync.WaitGroup{}, config.RESTServerData{}, deps, logger)
	require.NoError(t, err)
	return ctrl
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewControllerDefaults(t *testing.T) {
	ctrl := newTestController(t, false)
	assert.Equal(t, "0.0.0.0:8080", ctrl.Server.Addr)

	_, err := NewController(context.Background(), &sync.WaitGroup{}, config.RESTServerData{Cert: "c.pem"}, ctrl.deps, zap.NewNop().Sugar())
	assert.Error(t, err, "a certificate without a key must be rejected")

	_, err = NewController(context.Background(), &sync.WaitGroup{}, config.RESTServerData{}, controllers.Deps{}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestGetObservation(t *testing.T) {
	ctrl := newTestController(t, true)
	h := ctrl.Handler()

	rec := get(t, h, "/api/observe?location=Sohar&date=2024-06-01&time=12:00")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result observation.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	assert.Equal(t, "Sohar", result.Location.Name)
	assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), result.Instant)
	assert.Equal(t, "+04:00", result.UTCOffset)
	assert.Equal(t, []celestial.Body{celestial.Sun, celestial.Jupiter}, result.Visible)
	assert.Len(t, result.Bodies, len(celestial.Bodies))
	assert.Equal(t, "Full Moon", result.Moon.PhaseName)
	require.NotEmpty(t, result.ChartURL)

	file := get(t, h, result.ChartURL)
	require.Equal(t, http.StatusOK, file.Code)
	_, err := png.Decode(bytes.NewReader(file.Body.Bytes()))
	assert.NoError(t, err)
}

func TestGetObservationRawCoordinates(t *testing.T) {
	h := newTestController(t, false).Handler()

	rec := get(t, h, "/api/observe?location=my-location&lat=23.5880%20N&lon=58.3829%20E")
	require.Equal(t, http.StatusOK, rec.Code)

	var result observation.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "My Location", result.Location.Name)
	assert.InDelta(t, 23.588, result.Location.Coordinate.Latitude, 1e-9)
	assert.Empty(t, result.ChartURL, "chart files are disabled")
}

func TestGetObservationBadInput(t *testing.T) {
	h := newTestController(t, false).Handler()

	tests := []struct {
		name   string
		target string
	}{
		{"latitude out of range", "/api/observe?location=my-location&lat=95&lon=10"},
		{"missing longitude", "/api/observe?location=my-location&lat=10"},
		{"bad date", "/api/observe?date=2024-13-40"},
		{"bad time", "/api/observe?time=25:99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetObservationMsgPack(t *testing.T) {
	h := newTestController(t, false).Handler()

	rec := get(t, h, "/api/observe?format=msgpack")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}

func TestGetMoon(t *testing.T) {
	h := newTestController(t, false).Handler()

	rec := get(t, h, "/api/moon?date=2024-06-01&time=00:30")
	require.Equal(t, http.StatusOK, rec.Code)

	var moon MoonResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &moon))
	assert.Equal(t, time.Date(2024, 5, 31, 20, 30, 0, 0, time.UTC), moon.Instant)
	assert.Equal(t, "2024-06-01 12:30 AM", moon.LocalTime)
	// the Moon sits opposite the Sun
	assert.Equal(t, "Full Moon", moon.Moon.PhaseName)
	assert.InDelta(t, 1, moon.Moon.Illumination, 1e-4)
}

func TestGetLocations(t *testing.T) {
	h := newTestController(t, false).Handler()

	rec := get(t, h, "/api/locations")
	require.Equal(t, http.StatusOK, rec.Code)

	var body LocationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Muscat", body.Default)
	assert.Len(t, body.Locations, 10)
}

func TestGetChartPNG(t *testing.T) {
	h := newTestController(t, false).Handler()

	rec := get(t, h, "/chart.png?location=Salalah")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestGetChartFileNotFound(t *testing.T) {
	h := newTestController(t, true).Handler()

	assert.Equal(t, http.StatusNotFound, get(t, h, "/charts/sky_map_missing.png").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/charts/notes.txt").Code)

	disabled := newTestController(t, false).Handler()
	assert.Equal(t, http.StatusNotFound, get(t, disabled, "/charts/sky_map_missing.png").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestController(t, false).Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)

	get(t, h, "/api/locations")
	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `skywatch_http_requests_total{code="200",route="/api/locations"}`)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", clientIP(req).String())

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req).String())
}
