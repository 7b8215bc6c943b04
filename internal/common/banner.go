package common

import (
	"fmt"
	"strings"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner
func PrintBanner(cfg *Config, configPath, logFile string) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorPurple).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")

	b.PrintTopLine()
	b.PrintCenteredText("PERMIT COLLECTOR")
	b.PrintCenteredText("Active Street Construction Permits Harvester")
	b.PrintSeparatorLine()

	b.PrintKeyValue("Version", GetVersion(), 15)
	b.PrintKeyValue("Build", GetBuild(), 15)
	b.PrintKeyValue("Environment", cfg.Collector.Environment, 15)
	b.PrintKeyValue("Driver", cfg.Browser.Driver, 15)
	b.PrintKeyValue("Borough", cfg.Portal.BoroughValue, 15)
	b.PrintBottomLine()

	fmt.Printf("\n")

	fmt.Printf("📋 Configuration:\n")
	if configPath == "" {
		configPath = "defaults"
	}
	fmt.Printf("   • Config File: %s\n", configPath)
	fmt.Printf("   • Output File: %s\n", cfg.Harvest.OutputPath)
	if cfg.Storage.Enabled {
		fmt.Printf("   • Ledger: %s\n", cfg.Storage.DatabasePath)
	}

	if logFile != "" {
		pattern := strings.Replace(logFile, ".log", ".{YYYY-MM-DDTHH-MM-SS}.log", 1)
		fmt.Printf("   • Log File: %s\n", pattern)
	}
	fmt.Printf("\n")
}

// PrintColorizedMessage prints a message with specified color
func PrintColorizedMessage(color, message string) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

// PrintSuccess prints a success message in green
func PrintSuccess(message string) {
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("✓ %s", message))
}

// PrintError prints an error message in red
func PrintError(message string) {
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("✗ %s", message))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(message string) {
	PrintColorizedMessage(banner.ColorYellow, fmt.Sprintf("⚠ %s", message))
}
