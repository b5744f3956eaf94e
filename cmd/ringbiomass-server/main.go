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
	"github.com/chrissnell/ringbiomass/internal/controllers/restserver"
	"github.com/chrissnell/ringbiomass/internal/log"
	"github.com/chrissnell/ringbiomass/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source (YAML or SQLite)")
	listen := flag.String("listen", "", "Override the listen address")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	filename, _ := filepath.Abs(*cfgFile)
	provider, err := config.Open(filename)
	if err != nil {
		log.Fatalf("error opening configuration: %v", err)
	}
	cfgData, err := provider.LoadConfig()
	provider.Close()
	if err != nil {
		log.Fatalf("error reading config file: %v", err)
	}
	if *listen != "" {
		cfgData.REST.ListenAddr = *listen
	}

	if cfgData.Log.File != "" {
		err := log.InitWithFile(*debug || cfgData.Log.Debug, log.FileOptions{
			Path:       cfgData.Log.File,
			MaxSizeMB:  cfgData.Log.MaxSizeMB,
			MaxBackups: cfgData.Log.MaxBackups,
			MaxAgeDays: cfgData.Log.MaxAgeDays,
		})
		if err != nil {
			log.Fatalf("Failed to initialize log file: %v", err)
		}
	}

	// Batch inputs are ignored by the server.
	cfgData.Inputs = nil
	application, err := app.New(cfgData, log.GetSugaredLogger())
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("ringbiomass-server %s", constants.Version)
	ctrl := restserver.NewController(cfgData.REST, application.Pipeline(), application.Resolver(), log.GetSugaredLogger())
	if err := ctrl.Run(ctx); err != nil {
		log.Errorf("REST server error: %v", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
