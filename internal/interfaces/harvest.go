package interfaces

import (
	"context"

	"permit-collector/internal/models"
)

// BrowserSession is a drivable browser window used to operate the search form.
type BrowserSession interface {
	Open(ctx context.Context, url string) error
	// SelectOption picks value in the select element named field, waiting for
	// the option to appear when it is populated by an earlier selection.
	SelectOption(ctx context.Context, field, value string) error
	// ClickForPopup clicks selector and makes the window it spawns the active one.
	ClickForPopup(ctx context.Context, selector string) error
	PageSource(ctx context.Context) (string, error)
	Close() error
}

// SessionFactory starts a fresh browser session.
type SessionFactory interface {
	NewSession(ctx context.Context) (BrowserSession, error)
}

type StreetDiscoverer interface {
	DiscoverStreets(ctx context.Context) ([]models.Street, error)
}

type PageFetcher interface {
	FetchStreetPage(ctx context.Context, street models.Street) (string, error)
}

type TableExtractor interface {
	ExtractTable(htmlContent string) (models.TableState, error)
}

// OutputWriter appends permit rows to the export.
type OutputWriter interface {
	WriteHeader(headers []string) error
	AppendRows(table *models.PermitTable) error
	Path() string
}

// OutcomeStore is the run ledger.
type OutcomeStore interface {
	BeginRun(streets int) (*models.RunRecord, error)
	RecordOutcome(runID string, outcome models.HarvestOutcome) error
	FinishRun(runID string, failed []models.Street) error
	LastRun() (*models.RunRecord, error)
	LoadOutcomes(runID string) ([]models.HarvestOutcome, error)
	Close() error
}
