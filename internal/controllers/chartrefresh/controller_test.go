package chartrefresh

import (
	"context"
	"os"
	"path/filepath"
	"strings"
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

var fixedNow = time.Date(2024, 9, 1, 18, 0, 0, 0, time.UTC)

func testDeps(t *testing.T) controllers.Deps {
	t.Helper()
	sky := ephemeris.Funcs{
		AltAz: func(body celestial.Body, loc celestial.GeoCoordinate, t time.Time) (float64, float64, error) {
			if body == celestial.Moon {
				return 25, 120, nil
			}
			return -10, 300, nil
		},
		Position: func(body celestial.Body, t time.Time, frame ephemeris.Frame) (r3.Vec, error) {
			switch body {
			case celestial.Sun:
				return r3.Vec{X: 1}, nil
			case celestial.Moon:
				return r3.Vec{Y: 0.0026}, nil
			default:
				return r3.Vec{}, nil
			}
		},
	}

	loc, err := locator.New([]locator.Place{
		{Name: "Muscat", Coordinate: celestial.GeoCoordinate{Latitude: 23.588, Longitude: 58.3829}},
		{Name: "Salalah", Coordinate: celestial.GeoCoordinate{Latitude: 17.0151, Longitude: 54.0924}},
	}, "Muscat")
	require.NoError(t, err)

	png := render.NewPNG(render.WithSize(120))
	store, err := render.NewFileStore(t.TempDir(), 3, png, zap.NewNop().Sugar())
	require.NoError(t, err)

	return controllers.Deps{
		Service: observation.NewService(sky,
			observation.WithSampleCount(12),
			observation.WithClock(func() time.Time { return fixedNow })),
		Locator:        loc,
		Renderer:       png,
		Charts:         store,
		ChartURLPrefix: "/charts/",
	}
}

func TestRefresh(t *testing.T) {
	deps := testDeps(t)
	c, err := NewController(context.Background(), &sync.WaitGroup{}, config.ChartRefreshData{Location: "salalah"}, deps, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Empty(t, c.Latest())

	result, err := c.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Salalah", result.Location.Name)
	assert.Equal(t, fixedNow, result.Instant)
	assert.Equal(t, []celestial.Body{celestial.Moon}, result.Visible)
	assert.True(t, strings.HasPrefix(result.ChartURL, "/charts/sky_map_"))
	assert.Equal(t, result.ChartURL, c.Latest())

	name := strings.TrimPrefix(result.ChartURL, "/charts/")
	_, err = os.Stat(filepath.Join(deps.Charts.Dir(), name))
	assert.NoError(t, err)
}

func TestNewControllerSchedules(t *testing.T) {
	deps := testDeps(t)
	logger := zap.NewNop().Sugar()

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"default", "", false},
		{"duration", "90s", false},
		{"cron", "*/10 * * * *", false},
		{"negative duration", "-5m", true},
		{"garbage", "every so often", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewController(context.Background(), &sync.WaitGroup{}, config.ChartRefreshData{Schedule: tt.schedule}, deps, logger)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewControllerRequiresChartStore(t *testing.T) {
	deps := testDeps(t)
	deps.Charts = nil

	_, err := NewController(context.Background(), &sync.WaitGroup{}, config.ChartRefreshData{}, deps, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	c, err := NewController(ctx, &wg, config.ChartRefreshData{Schedule: "1h"}, testDeps(t), zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, c.StartController())

	// interval jobs run once on start
	assert.Eventually(t, func() bool { return c.Latest() != "" }, 5*time.Second, 20*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop")
	}
}
