package models

import "time"

// OutcomeStatus classifies how a street fared in a pass
type OutcomeStatus string

const (
	OutcomeSaved  OutcomeStatus = "saved"
	OutcomeBlank  OutcomeStatus = "blank"
	OutcomeFailed OutcomeStatus = "failed"
)

// HarvestOutcome records the result of processing one street
type HarvestOutcome struct {
	Street    Street        `json:"street"`
	Status    OutcomeStatus `json:"status"`
	Rows      int           `json:"rows,omitempty"`
	Cause     string        `json:"cause,omitempty"`
	Pass      int           `json:"pass"`
	Sequence  int           `json:"sequence"`
	Processed time.Time     `json:"processed"`
}

// RunState is carried from one pass to the next
type RunState struct {
	// Processed counts streets handled across all passes of the run
	Processed     int  `json:"processed"`
	HeaderWritten bool `json:"header_written"`
}

// PassResult collects the outcomes of one pass in processing order
type PassResult struct {
	Pass     int              `json:"pass"`
	Outcomes []HarvestOutcome `json:"outcomes"`
}

func (p PassResult) streets(status OutcomeStatus) []Street {
	var streets []Street
	for _, o := range p.Outcomes {
		if o.Status == status {
			streets = append(streets, o.Street)
		}
	}
	return streets
}

func (p PassResult) Saved() []Street  { return p.streets(OutcomeSaved) }
func (p PassResult) Blank() []Street  { return p.streets(OutcomeBlank) }
func (p PassResult) Failed() []Street { return p.streets(OutcomeFailed) }

// RowsSaved totals the rows appended during the pass
func (p PassResult) RowsSaved() int {
	total := 0
	for _, o := range p.Outcomes {
		if o.Status == OutcomeSaved {
			total += o.Rows
		}
	}
	return total
}

// RunReport summarises a whole harvest
type RunReport struct {
	RunID  string       `json:"run_id"`
	Passes []PassResult `json:"passes"`
	State  RunState     `json:"state"`
	Failed []Street     `json:"failed"`
}

// Succeeded reports whether no street is left failed after the last pass
func (r RunReport) Succeeded() bool {
	return len(r.Failed) == 0
}

// RunRecord is the ledger entry for one run
type RunRecord struct {
	ID       string    `json:"id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitempty"`
	Streets  int       `json:"streets"`
	Failed   []Street  `json:"failed,omitempty"`
}
