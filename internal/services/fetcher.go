package services

import (
	"context"
	"time"

	. "permit-collector/internal/common"
	. "permit-collector/internal/interfaces"
	"permit-collector/internal/models"

	"github.com/ternarybob/arbor"
)

type fetcher struct {
	config   *PortalConfig
	sessions SessionFactory
	logger   arbor.ILogger
}

// NewFetcher creates the per-street page fetcher. Every street gets its own
// browser session so form state never leaks between searches.
func NewFetcher(config *PortalConfig, sessions SessionFactory, logger arbor.ILogger) PageFetcher {
	return &fetcher{
		config:   config,
		sessions: sessions,
		logger:   logger,
	}
}

func (f *fetcher) FetchStreetPage(ctx context.Context, street models.Street) (page string, err error) {
	start := time.Now()

	session, err := f.sessions.NewSession(ctx)
	if err != nil {
		return "", WrapError(err, ErrorTypeFetch, "session_failed", "failed to start browser session").
			WithContext("street", string(street))
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			f.logger.Warn().Err(closeErr).Str("street", string(street)).Msg("Failed to close browser session")
		}
	}()

	workflow := NewFormWorkflow(session, f.config)
	page, err = workflow.Run(ctx, street)
	if err != nil {
		f.logger.Debug().
			Err(err).
			Str("street", string(street)).
			Str("state", string(workflow.State())).
			Msg("Street fetch failed")
		return "", err
	}

	f.logger.Debug().
		Str("street", string(street)).
		Int("bytes", len(page)).
		Dur("duration", time.Since(start)).
		Msg("Street page captured")

	return page, nil
}
