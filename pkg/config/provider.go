package config

import (
	"fmt"
	"strings"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration, defaults applied
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetLocations() ([]LocationData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Observer    ObserverData     `json:"observer"`
	Locations   []LocationData   `json:"locations"`
	Ephemeris   EphemerisData    `json:"ephemeris"`
	Chart       ChartData        `json:"chart"`
	GeoIP       GeoIPData        `json:"geoip,omitempty"`
	Log         LogData          `json:"log,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty"`
}

// ObserverData holds the defaults and tuning of observation requests
type ObserverData struct {
	UTCOffset       string `json:"utc_offset"`
	DefaultLocation string `json:"default_location"`
	SampleCount     int    `json:"sample_count,omitempty"`
	Tolerance       string `json:"tolerance,omitempty"`
	MaxIterations   int    `json:"max_iterations,omitempty"`
	Workers         int    `json:"workers,omitempty"`
	RequestTimeout  string `json:"request_timeout,omitempty"`
}

// LocationData is a named observer location preset
type LocationData struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EphemerisData configures the position source
type EphemerisData struct {
	VSOP87Dir string `json:"vsop87_dir,omitempty"`
	MinYear   int    `json:"min_year,omitempty"`
	MaxYear   int    `json:"max_year,omitempty"`
}

// ChartData configures sky chart rendering
type ChartData struct {
	Enabled   bool   `json:"enabled"`
	OutputDir string `json:"output_dir,omitempty"`
	SizePx    int    `json:"size_px,omitempty"`
	Keep      int    `json:"keep,omitempty"`
	FontFile  string `json:"font_file,omitempty"`
	URLPrefix string `json:"url_prefix,omitempty"`
}

// GeoIPData points at a MaxMind City database
type GeoIPData struct {
	Database string `json:"database,omitempty"`
}

// LogData configures log output
type LogData struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// ControllerData holds the configuration for the service's controllers
type ControllerData struct {
	Type         string            `json:"type,omitempty"`
	RESTServer   *RESTServerData   `json:"rest,omitempty"`
	ChartRefresh *ChartRefreshData `json:"chartrefresh,omitempty"`
}

type RESTServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

// ChartRefreshData schedules rendering of the current sky. Schedule is a
// cron expression or a Go duration such as "5m".
type ChartRefreshData struct {
	Schedule string `json:"schedule,omitempty"`
	Location string `json:"location,omitempty"`
}

// Defaults
const (
	DefaultUTCOffset       = "+04:00"
	DefaultLocationName    = "Muscat"
	DefaultSampleCount     = 288
	DefaultTolerance       = "1s"
	DefaultMaxIterations   = 64
	DefaultWorkers         = 4
	DefaultRequestTimeout  = "10s"
	DefaultMinYear         = 1900
	DefaultMaxYear         = 2100
	DefaultChartDir        = "charts"
	DefaultChartSizePx     = 800
	DefaultChartKeep       = 8
	DefaultChartURLPrefix  = "/charts/"
	DefaultRESTPort        = 8080
	DefaultRefreshSchedule = "5m"
)

// DefaultLocations are the presets used when none are configured
func DefaultLocations() []LocationData {
	return []LocationData{
		{Name: "Muscat", Latitude: 23.5880, Longitude: 58.3829},
		{Name: "Sohar", Latitude: 24.3429, Longitude: 56.7290},
		{Name: "Rustaq", Latitude: 23.3909, Longitude: 57.4244},
		{Name: "Khasab", Latitude: 26.1766, Longitude: 56.2406},
		{Name: "Buraimi", Latitude: 24.2500, Longitude: 55.7500},
		{Name: "Nizwa", Latitude: 22.9333, Longitude: 57.5333},
		{Name: "Ibra", Latitude: 22.6908, Longitude: 58.5339},
		{Name: "Sur", Latitude: 22.5667, Longitude: 59.5289},
		{Name: "Haima", Latitude: 19.9500, Longitude: 56.3167},
		{Name: "Salalah", Latitude: 17.0190, Longitude: 54.0897},
	}
}

// ApplyDefaults fills every unset value
func (c *ConfigData) ApplyDefaults() {
	o := &c.Observer
	if o.UTCOffset == "" {
		o.UTCOffset = DefaultUTCOffset
	}
	if len(c.Locations) == 0 {
		c.Locations = DefaultLocations()
	}
	if o.DefaultLocation == "" {
		o.DefaultLocation = DefaultLocationName
		if !c.hasLocation(o.DefaultLocation) {
			o.DefaultLocation = c.Locations[0].Name
		}
	}
	if o.SampleCount == 0 {
		o.SampleCount = DefaultSampleCount
	}
	if o.Tolerance == "" {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.RequestTimeout == "" {
		o.RequestTimeout = DefaultRequestTimeout
	}

	if c.Ephemeris.MinYear == 0 {
		c.Ephemeris.MinYear = DefaultMinYear
	}
	if c.Ephemeris.MaxYear == 0 {
		c.Ephemeris.MaxYear = DefaultMaxYear
	}

	if c.Chart.OutputDir == "" {
		c.Chart.OutputDir = DefaultChartDir
	}
	if c.Chart.SizePx == 0 {
		c.Chart.SizePx = DefaultChartSizePx
	}
	if c.Chart.Keep == 0 {
		c.Chart.Keep = DefaultChartKeep
	}
	if c.Chart.URLPrefix == "" {
		c.Chart.URLPrefix = DefaultChartURLPrefix
	}

	for i := range c.Controllers {
		ctl := &c.Controllers[i]
		if ctl.Type == "rest" {
			if ctl.RESTServer == nil {
				ctl.RESTServer = &RESTServerData{}
			}
			if ctl.RESTServer.Port == 0 {
				ctl.RESTServer.Port = DefaultRESTPort
			}
		}
		if ctl.Type == "chartrefresh" {
			if ctl.ChartRefresh == nil {
				ctl.ChartRefresh = &ChartRefreshData{}
			}
			if ctl.ChartRefresh.Schedule == "" {
				ctl.ChartRefresh.Schedule = DefaultRefreshSchedule
			}
			if ctl.ChartRefresh.Location == "" {
				ctl.ChartRefresh.Location = o.DefaultLocation
			}
		}
	}
}

// Validate checks values that cannot be defaulted
func (c *ConfigData) Validate() error {
	if !c.hasLocation(c.Observer.DefaultLocation) {
		return fmt.Errorf("default location %q is not among the configured locations", c.Observer.DefaultLocation)
	}
	if c.Observer.SampleCount < 2 {
		return fmt.Errorf("observer sample_count must be at least 2, got %d", c.Observer.SampleCount)
	}
	if _, err := c.Observer.ToleranceDuration(); err != nil {
		return err
	}
	if _, err := c.Observer.RequestTimeoutDuration(); err != nil {
		return err
	}
	if c.Ephemeris.MinYear > c.Ephemeris.MaxYear {
		return fmt.Errorf("ephemeris min_year %d is after max_year %d", c.Ephemeris.MinYear, c.Ephemeris.MaxYear)
	}
	for _, ctl := range c.Controllers {
		switch ctl.Type {
		case "rest", "chartrefresh":
		default:
			return fmt.Errorf("unknown controller type %q", ctl.Type)
		}
	}
	return nil
}

// ToleranceDuration parses the event search tolerance
func (o ObserverData) ToleranceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(o.Tolerance)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid observer tolerance %q", o.Tolerance)
	}
	return d, nil
}

// RequestTimeoutDuration parses the per-request timeout
func (o ObserverData) RequestTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(o.RequestTimeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid observer request_timeout %q", o.RequestTimeout)
	}
	return d, nil
}

func (c *ConfigData) hasLocation(name string) bool {
	for _, l := range c.Locations {
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}
