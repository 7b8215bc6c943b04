package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	. "permit-collector/internal/common"
	. "permit-collector/internal/interfaces"
	"permit-collector/internal/models"

	"github.com/ternarybob/arbor"
)

// HarvesterOptions wires the collaborators of a Harvester. Store and Out are optional.
type HarvesterOptions struct {
	Fetcher    PageFetcher
	Extractor  TableExtractor
	Output     OutputWriter
	Store      OutcomeStore
	Logger     arbor.ILogger
	Out        io.Writer
	SourceURL  string
	RetryDelay time.Duration
}

// Harvester runs the two harvesting passes over the discovered streets
type Harvester struct {
	fetcher    PageFetcher
	extractor  TableExtractor
	output     OutputWriter
	store      OutcomeStore
	logger     arbor.ILogger
	out        io.Writer
	sourceURL  string
	retryDelay time.Duration
	runID      string
}

func NewHarvester(opts HarvesterOptions) *Harvester {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return &Harvester{
		fetcher:    opts.Fetcher,
		extractor:  opts.Extractor,
		output:     opts.Output,
		store:      opts.Store,
		logger:     opts.Logger,
		out:        out,
		sourceURL:  opts.SourceURL,
		retryDelay: opts.RetryDelay,
	}
}

// Run harvests every street, then retries the failures exactly once.
// Streets that fail twice are reported, not returned as an error.
func (h *Harvester) Run(ctx context.Context, streets []models.Street) (models.RunReport, error) {
	var report models.RunReport

	if h.store != nil {
		run, err := h.store.BeginRun(len(streets))
		if err != nil {
			return report, err
		}
		h.runID = run.ID
		report.RunID = run.ID
	}

	first, state, err := h.RunPass(ctx, 1, streets, models.RunState{})
	report.Passes = append(report.Passes, first)
	report.State = state
	if err != nil {
		return report, err
	}

	failed := first.Failed()
	if len(failed) > 0 {
		fmt.Fprintf(h.out, "\nTrying the failed streets again to see if they load properly this time.\n")

		if err := h.waitRetryDelay(ctx); err != nil {
			return report, err
		}

		var second models.PassResult
		second, state, err = h.RunPass(ctx, 2, failed, state)
		report.Passes = append(report.Passes, second)
		report.State = state
		if err != nil {
			return report, err
		}
		failed = second.Failed()

		if len(failed) > 0 {
			fmt.Fprintf(h.out, "One or more streets failed to load during the second try. Please manually check the failed streets.\n")
			h.logger.Warn().
				Int("failed", len(failed)).
				Str("streets", joinStreets(failed)).
				Msg("Streets failed on both passes")
		} else {
			h.printSuccess()
		}
	} else {
		h.printSuccess()
	}
	report.Failed = failed

	if h.store != nil {
		if err := h.store.FinishRun(h.runID, failed); err != nil {
			return report, err
		}
	}

	return report, nil
}

// RunPass processes streets in order. state carries the processed counter and
// header flag from earlier passes; the updated state is returned.
func (h *Harvester) RunPass(ctx context.Context, pass int, streets []models.Street, state models.RunState) (models.PassResult, models.RunState, error) {
	result := models.PassResult{Pass: pass}

	fmt.Fprintf(h.out, "Harvesting permit information for %d streets...\n", len(streets))
	h.logger.Info().
		Int("pass", pass).
		Int("streets", len(streets)).
		Msg("Starting harvest pass")

	for _, street := range streets {
		if err := ctx.Err(); err != nil {
			return result, state, err
		}

		state.Processed++
		outcome := models.HarvestOutcome{
			Street:    street,
			Pass:      pass,
			Sequence:  state.Processed,
			Processed: time.Now(),
		}

		var err error
		outcome, state, err = h.harvestStreet(ctx, outcome, state)
		if err != nil {
			return result, state, err
		}

		result.Outcomes = append(result.Outcomes, outcome)
		if h.store != nil {
			if err := h.store.RecordOutcome(h.runID, outcome); err != nil {
				return result, state, err
			}
		}
	}

	h.printSummary(result)
	return result, state, nil
}

// harvestStreet classifies one street. Only fetch and extraction faults become
// a failed outcome; anything else is returned to abort the run.
func (h *Harvester) harvestStreet(ctx context.Context, outcome models.HarvestOutcome, state models.RunState) (models.HarvestOutcome, models.RunState, error) {
	n, street := state.Processed, outcome.Street

	tableState, err := h.fetchAndExtract(ctx, street)
	if err != nil {
		if ctx.Err() != nil {
			return outcome, state, ctx.Err()
		}
		if !IsRecoverable(err) {
			return outcome, state, err
		}

		outcome.Status = models.OutcomeFailed
		outcome.Cause = err.Error()
		fmt.Fprintf(h.out, "%d: %s failed to load properly from the website.\n", n, street)
		h.logger.Warn().Err(err).Str("street", string(street)).Int("pass", outcome.Pass).Msg("Street failed")
		return outcome, state, nil
	}

	if tableState.Empty {
		outcome.Status = models.OutcomeBlank
		fmt.Fprintf(h.out, "%d: %s is blank.\n", n, street)
		return outcome, state, nil
	}

	table := tableState.Table
	if !state.HeaderWritten {
		if err := h.output.WriteHeader(table.Headers); err != nil {
			return outcome, state, err
		}
		state.HeaderWritten = true
	}
	if err := h.output.AppendRows(table); err != nil {
		return outcome, state, err
	}

	outcome.Status = models.OutcomeSaved
	outcome.Rows = len(table.Rows)
	fmt.Fprintf(h.out, "%d: Permit information for %s is saved to file.\n", n, street)
	h.logger.Debug().Str("street", string(street)).Int("rows", outcome.Rows).Msg("Street saved")
	return outcome, state, nil
}

func (h *Harvester) fetchAndExtract(ctx context.Context, street models.Street) (models.TableState, error) {
	page, err := h.fetcher.FetchStreetPage(ctx, street)
	if err != nil {
		return models.TableState{}, err
	}
	return h.extractor.ExtractTable(page)
}

func (h *Harvester) waitRetryDelay(ctx context.Context) error {
	if h.retryDelay <= 0 {
		return nil
	}

	h.logger.Info().Dur("delay", h.retryDelay).Msg("Waiting before retry pass")

	timer := time.NewTimer(h.retryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Harvester) printSummary(result models.PassResult) {
	blank, failed, saved := result.Blank(), result.Failed(), result.Saved()

	fmt.Fprintf(h.out, "\nHARVEST SUMMARY:\n")
	fmt.Fprintf(h.out, "%d streets processed.\n", len(result.Outcomes))

	fmt.Fprintf(h.out, "%d of these streets were blank (did not have permit information).\n", len(blank))
	if len(blank) > 0 {
		fmt.Fprintf(h.out, "The blank street(s) are: %s.\n", joinStreets(blank))
	}

	fmt.Fprintf(h.out, "%d of these streets failed to load properly.\n", len(failed))
	if len(failed) > 0 {
		fmt.Fprintf(h.out, "The failed street(s) are: %s.\n", joinStreets(failed))
	}

	fmt.Fprintf(h.out, "\nPermit information for %d streets saved to %s.\n", len(saved), h.output.Path())

	h.logger.Info().
		Int("pass", result.Pass).
		Int("processed", len(result.Outcomes)).
		Int("saved", len(saved)).
		Int("rows", result.RowsSaved()).
		Int("blank", len(blank)).
		Int("failed", len(failed)).
		Msg("Harvest pass complete")
}

func (h *Harvester) printSuccess() {
	fmt.Fprintf(h.out, "\nFinished harvesting construction permit information from %s!\n", h.sourceURL)
	fmt.Fprintf(h.out, "\nAll streets saved to %s successfully!\n", h.output.Path())
}

func joinStreets(streets []models.Street) string {
	names := make([]string, len(streets))
	for i, s := range streets {
		names[i] = string(s)
	}
	return "[" + strings.Join(names, ", ") + "]"
}
