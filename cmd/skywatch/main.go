package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/skywatch/internal/app"
	"github.com/chrissnell/skywatch/internal/constants"
	"github.com/chrissnell/skywatch/internal/log"
	"github.com/chrissnell/skywatch/pkg/config"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	cfgFile := flag.String("config", envOr("SKYWATCH_CONFIG", "config.yaml"), "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db")
	cfgBackend := flag.String("config-backend", envOr("SKYWATCH_CONFIG_BACKEND", "yaml"), "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("skywatch %s\n", constants.Version)
		os.Exit(0)
	}

	// Console logging until the config says where else to log
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfgData, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		log.Sync()
		os.Exit(1)
	}

	if cfgData.Log.File != "" {
		err := log.InitWithFile(*debug, log.FileOptions{
			Path:       cfgData.Log.File,
			MaxSizeMB:  cfgData.Log.MaxSizeMB,
			MaxBackups: cfgData.Log.MaxBackups,
			MaxAgeDays: cfgData.Log.MaxAgeDays,
		})
		if err != nil {
			fmt.Printf("Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer log.Sync()

	log.Infof("skywatch %s starting", constants.Version)

	application := app.New(cfgData, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		log.Sync()
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}
