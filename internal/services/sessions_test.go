package services

import (
	"testing"

	"permit-collector/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionFactory(t *testing.T) {
	cfg := common.DefaultConfig().Browser

	factory, err := NewSessionFactory(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &chromedpFactory{}, factory)

	cfg.Driver = common.DriverPlaywright
	factory, err = NewSessionFactory(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &playwrightFactory{}, factory)

	cfg.Driver = "selenium"
	_, err = NewSessionFactory(&cfg)
	require.Error(t, err)
	assert.True(t, common.IsErrorType(err, common.ErrorTypeConfiguration))
}
