package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/ringbiomass/internal/metadata"
	"github.com/chrissnell/ringbiomass/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		sitesFile  = flag.String("sites", "", "Optional site metadata CSV to import into the same database")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db> [-sites sites.csv]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if SQLite file already exists
	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	configData, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}
	if err := configData.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		printConfigSummary(configData)
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}
	if err := os.MkdirAll(filepath.Dir(*sqliteFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	if err := saveConfig(*sqliteFile, configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration into SQLite: %v\n", err)
		os.Exit(1)
	}

	if *sitesFile != "" {
		n, err := importSites(*sqliteFile, *sitesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error importing site metadata: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  Imported %d sites; set metadata.sqlite to %s to use them\n", n, *sqliteFile)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now run: ringbiomass -config %s\n", *sqliteFile)
}

func saveConfig(dbPath string, configData *config.ConfigData) error {
	provider, err := config.NewSQLiteProvider(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create SQLite provider: %w", err)
	}
	defer provider.Close()

	if err := provider.SaveConfig(configData); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

func importSites(dbPath, csvPath string) (int, error) {
	src, err := metadata.NewCSVProvider(csvPath)
	if err != nil {
		return 0, err
	}
	db, err := metadata.NewSQLiteProvider(dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if err := db.Import(context.Background(), src.Static); err != nil {
		return 0, err
	}
	return len(src.Static), nil
}

func printConfigSummary(configData *config.ConfigData) {
	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("Inputs (%d):\n", len(configData.Inputs))
	for _, in := range configData.Inputs {
		fmt.Printf("  - %s\n", in)
	}

	c := configData.Corrections
	fmt.Printf("\nCorrections:\n")
	fmt.Printf("  - initial width: %s\n", orNone(c.InitialWidth.Mode))
	fmt.Printf("  - geometric: %s\n", orNone(c.Geometric.Mode))
	fmt.Printf("  - bark: %s\n", orNone(c.Bark.Mode))

	fmt.Printf("\nOutput: %s\n", configData.Output.Dir)
	if configData.Allodb.URL != "" {
		fmt.Printf("Equation service: %s\n", configData.Allodb.URL)
	}
}

func orNone(mode string) string {
	if mode == "" {
		return "none"
	}
	return mode
}
