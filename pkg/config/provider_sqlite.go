package config

import (
	"database/sql"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS locations (
	name       TEXT PRIMARY KEY COLLATE NOCASE,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS controllers (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	type        TEXT NOT NULL,
	enabled     BOOLEAN NOT NULL DEFAULT 1,
	cert        TEXT,
	key         TEXT,
	port        INTEGER,
	listen_addr TEXT,
	schedule    TEXT,
	location    TEXT
);
`

// Setting keys understood by the SQLite provider
const (
	SettingUTCOffset       = "observer.utc_offset"
	SettingDefaultLocation = "observer.default_location"
	SettingSampleCount     = "observer.sample_count"
	SettingTolerance       = "observer.tolerance"
	SettingMaxIterations   = "observer.max_iterations"
	SettingWorkers         = "observer.workers"
	SettingRequestTimeout  = "observer.request_timeout"
	SettingVSOP87Dir       = "ephemeris.vsop87_dir"
	SettingMinYear         = "ephemeris.min_year"
	SettingMaxYear         = "ephemeris.max_year"
	SettingChartEnabled    = "chart.enabled"
	SettingChartOutputDir  = "chart.output_dir"
	SettingChartSizePx     = "chart.size_px"
	SettingChartKeep       = "chart.keep"
	SettingChartFontFile   = "chart.font_file"
	SettingChartURLPrefix  = "chart.url_prefix"
	SettingGeoIPDatabase   = "geoip.database"
	SettingLogFile         = "log.file"
	SettingLogMaxSizeMB    = "log.max_size_mb"
	SettingLogMaxBackups   = "log.max_backups"
	SettingLogMaxAgeDays   = "log.max_age_days"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider, creating
// the schema if the database is new
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	settings, err := s.getSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	config := &ConfigData{}
	if err := settings.apply(config); err != nil {
		return nil, err
	}

	locations, err := s.GetLocations()
	if err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	config.Locations = locations

	controllers, err := s.GetControllers()
	if err != nil {
		return nil, fmt.Errorf("failed to load controllers: %w", err)
	}
	config.Controllers = controllers

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.dbPath, err)
	}
	return config, nil
}

type settingsMap map[string]string

func (s *SQLiteProvider) getSettings() (settingsMap, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := settingsMap{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

func (m settingsMap) apply(c *ConfigData) error {
	strs := map[string]*string{
		SettingUTCOffset:       &c.Observer.UTCOffset,
		SettingDefaultLocation: &c.Observer.DefaultLocation,
		SettingTolerance:       &c.Observer.Tolerance,
		SettingRequestTimeout:  &c.Observer.RequestTimeout,
		SettingVSOP87Dir:       &c.Ephemeris.VSOP87Dir,
		SettingChartOutputDir:  &c.Chart.OutputDir,
		SettingChartFontFile:   &c.Chart.FontFile,
		SettingChartURLPrefix:  &c.Chart.URLPrefix,
		SettingGeoIPDatabase:   &c.GeoIP.Database,
		SettingLogFile:         &c.Log.File,
	}
	ints := map[string]*int{
		SettingSampleCount:   &c.Observer.SampleCount,
		SettingMaxIterations: &c.Observer.MaxIterations,
		SettingWorkers:       &c.Observer.Workers,
		SettingMinYear:       &c.Ephemeris.MinYear,
		SettingMaxYear:       &c.Ephemeris.MaxYear,
		SettingChartSizePx:   &c.Chart.SizePx,
		SettingChartKeep:     &c.Chart.Keep,
		SettingLogMaxSizeMB:  &c.Log.MaxSizeMB,
		SettingLogMaxBackups: &c.Log.MaxBackups,
		SettingLogMaxAgeDays: &c.Log.MaxAgeDays,
	}

	for k, v := range m {
		if p, ok := strs[k]; ok {
			*p = v
			continue
		}
		if p, ok := ints[k]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("setting %s: %q is not an integer", k, v)
			}
			*p = n
			continue
		}
		if k == SettingChartEnabled {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("setting %s: %q is not a boolean", k, v)
			}
			c.Chart.Enabled = b
			continue
		}
		return fmt.Errorf("unknown setting %q", k)
	}
	return nil
}

// GetLocations returns location presets from the database
func (s *SQLiteProvider) GetLocations() ([]LocationData, error) {
	rows, err := s.db.Query(`SELECT name, latitude, longitude FROM locations ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []LocationData
	for rows.Next() {
		var loc LocationData
		if err := rows.Scan(&loc.Name, &loc.Latitude, &loc.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan location row: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// GetControllers returns enabled controller configurations from the database
func (s *SQLiteProvider) GetControllers() ([]ControllerData, error) {
	query := `
		SELECT type, cert, key, port, listen_addr, schedule, location
		FROM controllers
		WHERE enabled = 1
		ORDER BY id
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query controllers: %w", err)
	}
	defer rows.Close()

	var controllers []ControllerData
	for rows.Next() {
		var ctl ControllerData
		var cert, key, listenAddr, schedule, location sql.NullString
		var port sql.NullInt64

		if err := rows.Scan(&ctl.Type, &cert, &key, &port, &listenAddr, &schedule, &location); err != nil {
			return nil, fmt.Errorf("failed to scan controller row: %w", err)
		}

		switch ctl.Type {
		case "rest":
			ctl.RESTServer = &RESTServerData{
				Cert:       cert.String,
				Key:        key.String,
				Port:       int(port.Int64),
				ListenAddr: listenAddr.String,
			}
		case "chartrefresh":
			ctl.ChartRefresh = &ChartRefreshData{
				Schedule: schedule.String,
				Location: location.String,
			}
		}

		controllers = append(controllers, ctl)
	}
	return controllers, rows.Err()
}

// SetSetting stores one setting
func (s *SQLiteProvider) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// PutLocation inserts or replaces a location preset
func (s *SQLiteProvider) PutLocation(loc LocationData, sortOrder int) error {
	_, err := s.db.Exec(`INSERT INTO locations (name, latitude, longitude, sort_order) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET latitude = excluded.latitude, longitude = excluded.longitude, sort_order = excluded.sort_order`,
		loc.Name, loc.Latitude, loc.Longitude, sortOrder)
	if err != nil {
		return fmt.Errorf("failed to store location %s: %w", loc.Name, err)
	}
	return nil
}

// AddController stores a controller configuration
func (s *SQLiteProvider) AddController(ctl ControllerData) error {
	var cert, key, listenAddr, schedule, location sql.NullString
	var port sql.NullInt64

	if r := ctl.RESTServer; r != nil {
		cert = sql.NullString{String: r.Cert, Valid: r.Cert != ""}
		key = sql.NullString{String: r.Key, Valid: r.Key != ""}
		listenAddr = sql.NullString{String: r.ListenAddr, Valid: r.ListenAddr != ""}
		port = sql.NullInt64{Int64: int64(r.Port), Valid: r.Port != 0}
	}
	if c := ctl.ChartRefresh; c != nil {
		schedule = sql.NullString{String: c.Schedule, Valid: c.Schedule != ""}
		location = sql.NullString{String: c.Location, Valid: c.Location != ""}
	}

	_, err := s.db.Exec(`INSERT INTO controllers (type, cert, key, port, listen_addr, schedule, location)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, ctl.Type, cert, key, port, listenAddr, schedule, location)
	if err != nil {
		return fmt.Errorf("failed to store %s controller: %w", ctl.Type, err)
	}
	return nil
}

// SaveConfig writes every setting, location and controller of c. Existing
// settings and locations are replaced; controllers are appended.
func (s *SQLiteProvider) SaveConfig(c *ConfigData) error {
	for k, v := range settingsOf(c) {
		if err := s.SetSetting(k, v); err != nil {
			return err
		}
	}
	for i, loc := range c.Locations {
		if err := s.PutLocation(loc, i); err != nil {
			return err
		}
	}
	for _, ctl := range c.Controllers {
		if err := s.AddController(ctl); err != nil {
			return err
		}
	}
	return nil
}

// settingsOf is the inverse of settingsMap.apply
func settingsOf(c *ConfigData) settingsMap {
	return settingsMap{
		SettingUTCOffset:       c.Observer.UTCOffset,
		SettingDefaultLocation: c.Observer.DefaultLocation,
		SettingSampleCount:     strconv.Itoa(c.Observer.SampleCount),
		SettingTolerance:       c.Observer.Tolerance,
		SettingMaxIterations:   strconv.Itoa(c.Observer.MaxIterations),
		SettingWorkers:         strconv.Itoa(c.Observer.Workers),
		SettingRequestTimeout:  c.Observer.RequestTimeout,
		SettingVSOP87Dir:       c.Ephemeris.VSOP87Dir,
		SettingMinYear:         strconv.Itoa(c.Ephemeris.MinYear),
		SettingMaxYear:         strconv.Itoa(c.Ephemeris.MaxYear),
		SettingChartEnabled:    strconv.FormatBool(c.Chart.Enabled),
		SettingChartOutputDir:  c.Chart.OutputDir,
		SettingChartSizePx:     strconv.Itoa(c.Chart.SizePx),
		SettingChartKeep:       strconv.Itoa(c.Chart.Keep),
		SettingChartFontFile:   c.Chart.FontFile,
		SettingChartURLPrefix:  c.Chart.URLPrefix,
		SettingGeoIPDatabase:   c.GeoIP.Database,
		SettingLogFile:         c.Log.File,
		SettingLogMaxSizeMB:    strconv.Itoa(c.Log.MaxSizeMB),
		SettingLogMaxBackups:   strconv.Itoa(c.Log.MaxBackups),
		SettingLogMaxAgeDays:   strconv.Itoa(c.Log.MaxAgeDays),
	}
}

// IsReadOnly returns false for SQLite provider
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
