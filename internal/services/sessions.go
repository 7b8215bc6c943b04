package services

import (
	"fmt"

	"permit-collector/internal/common"
	"permit-collector/internal/interfaces"
)

// NewSessionFactory returns the session factory for the configured driver
func NewSessionFactory(config *common.BrowserConfig) (interfaces.SessionFactory, error) {
	switch config.Driver {
	case common.DriverChromedp:
		return NewChromedpFactory(config), nil
	case common.DriverPlaywright:
		return NewPlaywrightFactory(config), nil
	default:
		return nil, common.NewConfigurationError("invalid_driver", fmt.Sprintf("unsupported browser driver: %s", config.Driver))
	}
}
