package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrissnell/skywatch/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func defaultConfig(t *testing.T) *config.ConfigData {
	t.Helper()
	cfg := &config.ConfigData{}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuild(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Chart.Enabled = true
	cfg.Chart.OutputDir = filepath.Join(t.TempDir(), "charts")

	deps, closer, err := New(cfg, zap.NewNop().Sugar()).Build()
	require.NoError(t, err)
	defer closer()

	assert.NotNil(t, deps.Service)
	assert.NotNil(t, deps.Renderer)
	require.NotNil(t, deps.Charts)
	assert.Equal(t, "Muscat", deps.Locator.Default().Name)
	assert.Equal(t, 10*time.Second, deps.RequestTimeout)
	assert.Equal(t, "UTC+04:00", deps.Service.Timezone().String())

	_, err = os.Stat(cfg.Chart.OutputDir)
	assert.NoError(t, err, "chart directory should be created")
}

func TestBuildWithoutCharts(t *testing.T) {
	deps, closer, err := New(defaultConfig(t), zap.NewNop().Sugar()).Build()
	require.NoError(t, err)
	defer closer()
	assert.Nil(t, deps.Charts)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.ConfigData)
	}{
		{"bad offset", func(c *config.ConfigData) { c.Observer.UTCOffset = "+25:00" }},
		{"bad tolerance", func(c *config.ConfigData) { c.Observer.Tolerance = "soon" }},
		{"missing geoip database", func(c *config.ConfigData) { c.GeoIP.Database = "/nonexistent/GeoLite2-City.mmdb" }},
		{"unknown default location", func(c *config.ConfigData) { c.Observer.DefaultLocation = "Atlantis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)
			_, _, err := New(cfg, zap.NewNop().Sugar()).Build()
			assert.Error(t, err)
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Controllers = nil

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- New(cfg, zap.NewNop().Sugar()).Run(ctx) }()

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
