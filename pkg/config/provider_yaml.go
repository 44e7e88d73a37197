package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Observer    ObserverYAML     `yaml:"observer"`
		Locations   []LocationYAML   `yaml:"locations,omitempty"`
		Ephemeris   EphemerisYAML    `yaml:"ephemeris,omitempty"`
		Chart       ChartYAML        `yaml:"chart,omitempty"`
		GeoIP       GeoIPYAML        `yaml:"geoip,omitempty"`
		Log         LogYAML          `yaml:"log,omitempty"`
		Controllers []ControllerYAML `yaml:"controllers,omitempty"`
	}

	err = yaml.UnmarshalStrict(cfgFile, &yamlConfig)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", y.filename, err)
	}

	// Convert to our internal format
	config := &ConfigData{
		Observer: ObserverData{
			UTCOffset:       yamlConfig.Observer.UTCOffset,
			DefaultLocation: yamlConfig.Observer.DefaultLocation,
			SampleCount:     yamlConfig.Observer.SampleCount,
			Tolerance:       yamlConfig.Observer.Tolerance,
			MaxIterations:   yamlConfig.Observer.MaxIterations,
			Workers:         yamlConfig.Observer.Workers,
			RequestTimeout:  yamlConfig.Observer.RequestTimeout,
		},
		Ephemeris: EphemerisData{
			VSOP87Dir: yamlConfig.Ephemeris.VSOP87Dir,
			MinYear:   yamlConfig.Ephemeris.MinYear,
			MaxYear:   yamlConfig.Ephemeris.MaxYear,
		},
		Chart: ChartData{
			Enabled:   yamlConfig.Chart.Enabled,
			OutputDir: yamlConfig.Chart.OutputDir,
			SizePx:    yamlConfig.Chart.SizePx,
			Keep:      yamlConfig.Chart.Keep,
			FontFile:  yamlConfig.Chart.FontFile,
			URLPrefix: yamlConfig.Chart.URLPrefix,
		},
		GeoIP: GeoIPData{
			Database: yamlConfig.GeoIP.Database,
		},
		Log: LogData{
			File:       yamlConfig.Log.File,
			MaxSizeMB:  yamlConfig.Log.MaxSizeMB,
			MaxBackups: yamlConfig.Log.MaxBackups,
			MaxAgeDays: yamlConfig.Log.MaxAgeDays,
		},
		Controllers: make([]ControllerData, len(yamlConfig.Controllers)),
	}

	// Convert locations
	for _, loc := range yamlConfig.Locations {
		config.Locations = append(config.Locations, LocationData{
			Name:      loc.Name,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		})
	}

	// Convert controllers
	for i, controller := range yamlConfig.Controllers {
		config.Controllers[i] = ControllerData{
			Type: controller.Type,
		}

		if controller.RESTServer != nil {
			config.Controllers[i].RESTServer = &RESTServerData{
				Cert:       controller.RESTServer.Cert,
				Key:        controller.RESTServer.Key,
				Port:       controller.RESTServer.Port,
				ListenAddr: controller.RESTServer.ListenAddr,
			}
		}

		if controller.ChartRefresh != nil {
			config.Controllers[i].ChartRefresh = &ChartRefreshData{
				Schedule: controller.ChartRefresh.Schedule,
				Location: controller.ChartRefresh.Location,
			}
		}
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

// GetLocations returns the location presets
func (y *YAMLProvider) GetLocations() ([]LocationData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return y.config.Locations, nil
}

// GetControllers returns controller configurations
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return y.config.Controllers, nil
}

// IsReadOnly returns true for YAML provider
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags
type ObserverYAML struct {
	UTCOffset       string `yaml:"utc-offset,omitempty"`
	DefaultLocation string `yaml:"default-location,omitempty"`
	SampleCount     int    `yaml:"sample-count,omitempty"`
	Tolerance       string `yaml:"tolerance,omitempty"`
	MaxIterations   int    `yaml:"max-iterations,omitempty"`
	Workers         int    `yaml:"workers,omitempty"`
	RequestTimeout  string `yaml:"request-timeout,omitempty"`
}

type LocationYAML struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

type EphemerisYAML struct {
	VSOP87Dir string `yaml:"vsop87-dir,omitempty"`
	MinYear   int    `yaml:"min-year,omitempty"`
	MaxYear   int    `yaml:"max-year,omitempty"`
}

type ChartYAML struct {
	Enabled   bool   `yaml:"enabled,omitempty"`
	OutputDir string `yaml:"output-dir,omitempty"`
	SizePx    int    `yaml:"size-px,omitempty"`
	Keep      int    `yaml:"keep,omitempty"`
	FontFile  string `yaml:"font-file,omitempty"`
	URLPrefix string `yaml:"url-prefix,omitempty"`
}

type GeoIPYAML struct {
	Database string `yaml:"database,omitempty"`
}

type LogYAML struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max-size-mb,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty"`
	MaxAgeDays int    `yaml:"max-age-days,omitempty"`
}

type ControllerYAML struct {
	Type         string            `yaml:"type,omitempty"`
	RESTServer   *RESTServerYAML   `yaml:"rest,omitempty"`
	ChartRefresh *ChartRefreshYAML `yaml:"chartrefresh,omitempty"`
}

type RESTServerYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}

type ChartRefreshYAML struct {
	Schedule string `yaml:"schedule,omitempty"`
	Location string `yaml:"location,omitempty"`
}
