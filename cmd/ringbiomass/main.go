package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/chrissnell/ringbiomass/internal/app"
	"github.com/chrissnell/ringbiomass/internal/constants"
	"github.com/chrissnell/ringbiomass/internal/log"
	"github.com/chrissnell/ringbiomass/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db (see config-convert)")
	outDir := flag.String("out", "", "Override the output directory")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ringbiomass %s\n", constants.Version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfgData, err := loadConfig(*cfgFile)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if flag.NArg() > 0 {
		cfgData.Inputs = flag.Args()
	}
	if *outDir != "" {
		cfgData.Output.Dir = *outDir
	}
	if err := initFileLog(*debug || cfgData.Log.Debug, cfgData.Log); err != nil {
		log.Errorf("Failed to initialize log file: %v", err)
		os.Exit(1)
	}

	application, err := app.New(cfgData, log.GetSugaredLogger())
	if err != nil {
		log.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manifest, err := application.Run(ctx)
	if manifest != nil {
		log.Infof("run %s finished, manifest in %s", manifest.RunID, cfgData.Output.Dir)
	}
	if err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(cfgFile string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	provider, err := config.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("error opening configuration: %w", err)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}

func initFileLog(debug bool, lc config.LogData) error {
	if lc.File == "" && !debug {
		return nil
	}
	return log.InitWithFile(debug, log.FileOptions{
		Path:       lc.File,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAgeDays: lc.MaxAgeDays,
	})
}
