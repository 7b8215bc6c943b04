package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Collector CollectorConfig `toml:"collector"`
	Portal    PortalConfig    `toml:"portal"`
	Browser   BrowserConfig   `toml:"browser"`
	Harvest   HarvestConfig   `toml:"harvest"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
}

type CollectorConfig struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
}

// PortalConfig describes the permit search form. BoroughValue "1" selects Manhattan.
type PortalConfig struct {
	URL            string   `toml:"url"`
	FormName       string   `toml:"form_name"`
	BoroughField   string   `toml:"borough_field"`
	BoroughValue   string   `toml:"borough_value"`
	StreetField    string   `toml:"street_field"`
	SearchSelector string   `toml:"search_selector"`
	LeadingOptions int      `toml:"leading_options"`
	HTTPTimeout    Duration `toml:"http_timeout"`
}

type BrowserConfig struct {
	Driver   string   `toml:"driver"`
	Headless bool     `toml:"headless"`
	ExecPath string   `toml:"exec_path"`
	Timeout  Duration `toml:"timeout"`
}

type HarvestConfig struct {
	OutputPath string   `toml:"output_path"`
	RetryDelay Duration `toml:"retry_delay"`
}

type StorageConfig struct {
	Enabled      bool   `toml:"enabled"`
	DatabasePath string `toml:"database_path"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Output     string `toml:"output"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
}

// Duration reads Go duration strings ("30s", "2m") from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
)

func DefaultConfig() *Config {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)
	execName := filepath.Base(execPath)
	execName = execName[:len(execName)-len(filepath.Ext(execName))]

	defaultDBPath := filepath.Join(execDir, "data", execName+".db")

	return &Config{
		Collector: CollectorConfig{
			Name:        execName,
			Environment: "development",
		},
		Portal: PortalConfig{
			URL:            "http://a841-dotweb01.nyc.gov/permit/permit/web_permits/permitsearchform.asp",
			FormName:       "PermitSearch",
			BoroughField:   "borough",
			BoroughValue:   "1",
			StreetField:    "on_street",
			SearchSelector: `input[type='button'][value='SEARCH PERMITS']`,
			LeadingOptions: 1,
			HTTPTimeout:    Duration{30 * time.Second},
		},
		Browser: BrowserConfig{
			Driver:   DriverChromedp,
			Headless: true,
			Timeout:  Duration{60 * time.Second},
		},
		Harvest: HarvestConfig{
			OutputPath: "constructionPermits.csv",
		},
		Storage: StorageConfig{
			Enabled:      true,
			DatabasePath: defaultDBPath,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "both",
			MaxSize:    100,
			MaxBackups: 3,
		},
	}
}

func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	if configFile == "" {
		// Auto-detect config file
		execPath, _ := os.Executable()
		execDir := filepath.Dir(execPath)
		execName := filepath.Base(execPath)
		execName = execName[:len(execName)-len(filepath.Ext(execName))]

		possiblePaths := []string{
			filepath.Join(execDir, execName+".toml"),
			filepath.Join(execDir, "config.toml"),
			"config.toml",
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, WrapError(err, ErrorTypeConfiguration, "read_failed",
				fmt.Sprintf("failed to read config file %s", configFile))
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, WrapError(err, ErrorTypeConfiguration, "parse_failed", "failed to parse config file")
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if portalURL := os.Getenv("PORTAL_URL"); portalURL != "" {
		config.Portal.URL = portalURL
	}
	if outputPath := os.Getenv("OUTPUT_PATH"); outputPath != "" {
		config.Harvest.OutputPath = outputPath
	}

	if driver := os.Getenv("BROWSER_DRIVER"); driver != "" {
		config.Browser.Driver = driver
	}
	if headless := os.Getenv("BROWSER_HEADLESS"); headless != "" {
		if v, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = v
		}
	}

	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		config.Storage.DatabasePath = dbPath
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}
	if logOutput := os.Getenv("LOG_OUTPUT"); logOutput != "" {
		config.Logging.Output = logOutput
	}
}

func (c *Config) Validate() error {
	if c.Portal.URL == "" {
		return NewConfigurationError("missing_url", "portal url is required")
	}
	if c.Portal.BoroughField == "" || c.Portal.StreetField == "" {
		return NewConfigurationError("missing_field", "portal borough_field and street_field are required")
	}
	if c.Portal.BoroughValue == "" {
		return NewConfigurationError("missing_borough", "portal borough_value is required")
	}
	if c.Portal.SearchSelector == "" {
		return NewConfigurationError("missing_selector", "portal search_selector is required")
	}
	if c.Portal.LeadingOptions < 0 {
		return NewConfigurationError("invalid_options", "portal leading_options must not be negative")
	}
	if c.Portal.HTTPTimeout.Duration <= 0 {
		c.Portal.HTTPTimeout = Duration{30 * time.Second}
	}

	switch c.Browser.Driver {
	case DriverChromedp, DriverPlaywright:
	default:
		return NewConfigurationError("invalid_driver", fmt.Sprintf("invalid browser driver: %s", c.Browser.Driver))
	}
	if c.Browser.Timeout.Duration <= 0 {
		c.Browser.Timeout = Duration{60 * time.Second}
	}

	if c.Harvest.OutputPath == "" {
		return NewConfigurationError("missing_output", "harvest output_path is required")
	}
	if c.Harvest.RetryDelay.Duration < 0 {
		return NewConfigurationError("invalid_delay", "harvest retry_delay must not be negative")
	}

	if c.Storage.Enabled && c.Storage.DatabasePath == "" {
		return NewConfigurationError("missing_database", "storage database_path is required when storage is enabled")
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.Logging.Level == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return NewConfigurationError("invalid_level", fmt.Sprintf("invalid log level: %s", c.Logging.Level))
	}

	validOutputs := []string{"console", "file", "both"}
	validOutput := false
	for _, output := range validOutputs {
		if c.Logging.Output == output {
			validOutput = true
			break
		}
	}
	if !validOutput {
		return NewConfigurationError("invalid_output", fmt.Sprintf("invalid log output: %s", c.Logging.Output))
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Collector.Environment == "production"
}
