// -----------------------------------------------------------------------
// Permit collector entry point
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"permit-collector/internal/common"
	"permit-collector/internal/interfaces"
	"permit-collector/internal/services"

	"github.com/ternarybob/arbor"
)

const appName = "permit-collector"

func main() {
	var (
		configPath     = flag.String("config", "", "Path to configuration file")
		mode           = flag.String("mode", "dev", "Environment mode: 'dev', 'development', 'prod', or 'production'")
		quiet          = flag.Bool("quiet", false, "Suppress banner output")
		version        = flag.Bool("version", false, "Show version information")
		help           = flag.Bool("help", false, "Show help message")
		validateConfig = flag.Bool("validate", false, "Validate configuration file and exit")
		report         = flag.Bool("report", false, "Print the outcomes of the last run and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", appName, common.GetFullVersion())
		os.Exit(0)
	}

	if *help {
		showHelp()
		os.Exit(0)
	}

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.Collector.Environment = parseMode(*mode)

	if *validateConfig {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	if err := common.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := common.GetLogger()

	logger.Info().
		Str("version", common.GetVersion()).
		Str("build", common.GetBuild()).
		Str("environment", cfg.Collector.Environment).
		Str("config_path", *configPath).
		Msg("Starting permit collector")

	var store interfaces.OutcomeStore
	if cfg.Storage.Enabled {
		store, err = services.NewStorage(&cfg.Storage)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to open outcome ledger")
			os.Exit(1)
		}
		defer store.Close()
	}

	if *report {
		if err := printLastRun(store); err != nil {
			logger.Error().Err(err).Msg("Failed to print last run")
			os.Exit(1)
		}
		return
	}

	if !*quiet {
		common.PrintBanner(cfg, *configPath, common.GetLogFilePath())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, store, logger); err != nil {
		logger.Error().Err(err).Msg("Harvest aborted")
		stop()
		if store != nil {
			store.Close()
		}
		os.Exit(1)
	}

	logger.Info().Msg("Permit collector finished")
}

func run(ctx context.Context, cfg *common.Config, store interfaces.OutcomeStore, logger arbor.ILogger) error {
	sessions, err := services.NewSessionFactory(&cfg.Browser)
	if err != nil {
		return err
	}

	navigator := services.NewNavigator(&cfg.Portal, logger)
	streets, err := navigator.DiscoverStreets(ctx)
	if err != nil {
		return err
	}

	harvester := services.NewHarvester(services.HarvesterOptions{
		Fetcher:    services.NewFetcher(&cfg.Portal, sessions, logger),
		Extractor:  services.NewExtractor(logger),
		Output:     services.NewCSVWriter(cfg.Harvest.OutputPath),
		Store:      store,
		Logger:     logger,
		Out:        os.Stdout,
		SourceURL:  cfg.Portal.URL,
		RetryDelay: cfg.Harvest.RetryDelay.Duration,
	})

	result, err := harvester.Run(ctx, streets)
	if err != nil {
		return err
	}

	logger.Info().
		Str("run_id", result.RunID).
		Int("processed", result.State.Processed).
		Int("failed", len(result.Failed)).
		Msg("Harvest complete")
	return nil
}

func printLastRun(store interfaces.OutcomeStore) error {
	if store == nil {
		return common.NewConfigurationError("storage_disabled", "the outcome ledger is disabled")
	}

	last, err := store.LastRun()
	if err != nil {
		return err
	}
	if last == nil {
		fmt.Println("No runs recorded")
		return nil
	}

	outcomes, err := store.LoadOutcomes(last.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s started %s (%d streets)\n", last.ID, last.Started.Format("2006-01-02 15:04:05"), last.Streets)
	if last.Finished.IsZero() {
		common.PrintWarning("Run did not finish")
	}
	for _, o := range outcomes {
		line := fmt.Sprintf("pass %d  %5d  %-7s %s", o.Pass, o.Sequence, o.Status, o.Street)
		if o.Rows > 0 {
			line += fmt.Sprintf(" (%d rows)", o.Rows)
		}
		fmt.Println(line)
	}

	if len(last.Failed) > 0 {
		common.PrintError(fmt.Sprintf("%d streets still failing: %v", len(last.Failed), last.Failed))
	} else if !last.Finished.IsZero() {
		common.PrintSuccess("All streets saved")
	}
	return nil
}

func parseMode(mode string) string {
	switch strings.ToLower(mode) {
	case "prod", "production":
		return "production"
	default:
		return "development"
	}
}

func showHelp() {
	fmt.Printf("%s v%s - Active Street Construction Permits harvester\n\n", appName, common.GetVersion())
	fmt.Println("Usage:")
	fmt.Printf("  %s [flags]\n\n", os.Args[0])
	fmt.Println("Flags:")
	fmt.Println("  -mode string        Environment mode: 'dev', 'development', 'prod', or 'production' (default \"dev\")")
	fmt.Println("  -config string      Configuration file path")
	fmt.Println("  -quiet              Suppress banner output")
	fmt.Println("  -version            Show version information")
	fmt.Println("  -help               Show help message")
	fmt.Println("  -validate           Validate configuration file and exit")
	fmt.Println("  -report             Print the outcomes of the last run and exit")
	fmt.Println("\nExamples:")
	fmt.Printf("  %s                                  # Harvest every street of the configured borough\n", os.Args[0])
	fmt.Printf("  %s -config /path/to/config.toml     # Use custom config file\n", os.Args[0])
	fmt.Printf("  %s -report                          # Show the last run's outcomes\n", os.Args[0])
	fmt.Println("\nNote: rows are appended to the output file; remove it first for a clean export.")
}
