package services

import (
	"context"
	"fmt"

	"permit-collector/internal/common"
	"permit-collector/internal/interfaces"
	"permit-collector/internal/models"
)

// FormState names the steps of one search through the permit form
type FormState string

const (
	StateNew             FormState = "new"
	StateFormLoaded      FormState = "form_loaded"
	StateBoroughSelected FormState = "borough_selected"
	StateStreetSelected  FormState = "street_selected"
	StateSubmitted       FormState = "submitted"
	StateResultCaptured  FormState = "result_captured"
)

// FormWorkflow walks a browser session through the search form for one street.
// Each step is only valid from the state before it.
type FormWorkflow struct {
	session interfaces.BrowserSession
	config  *common.PortalConfig
	state   FormState
	html    string
}

func NewFormWorkflow(session interfaces.BrowserSession, config *common.PortalConfig) *FormWorkflow {
	return &FormWorkflow{
		session: session,
		config:  config,
		state:   StateNew,
	}
}

func (w *FormWorkflow) State() FormState {
	return w.state
}

// HTML returns the captured result page once the workflow reached StateResultCaptured
func (w *FormWorkflow) HTML() string {
	return w.html
}

func (w *FormWorkflow) LoadForm(ctx context.Context) error {
	return w.step(StateNew, StateFormLoaded, func() error {
		return w.session.Open(ctx, w.config.URL)
	})
}

func (w *FormWorkflow) SelectBorough(ctx context.Context) error {
	return w.step(StateFormLoaded, StateBoroughSelected, func() error {
		return w.session.SelectOption(ctx, w.config.BoroughField, w.config.BoroughValue)
	})
}

func (w *FormWorkflow) SelectStreet(ctx context.Context, street models.Street) error {
	return w.step(StateBoroughSelected, StateStreetSelected, func() error {
		return w.session.SelectOption(ctx, w.config.StreetField, string(street))
	})
}

func (w *FormWorkflow) Submit(ctx context.Context) error {
	return w.step(StateStreetSelected, StateSubmitted, func() error {
		return w.session.ClickForPopup(ctx, w.config.SearchSelector)
	})
}

func (w *FormWorkflow) Capture(ctx context.Context) error {
	return w.step(StateSubmitted, StateResultCaptured, func() error {
		html, err := w.session.PageSource(ctx)
		if err != nil {
			return err
		}
		w.html = html
		return nil
	})
}

// Run performs every step in order and returns the result page
func (w *FormWorkflow) Run(ctx context.Context, street models.Street) (string, error) {
	steps := []func(context.Context) error{
		w.LoadForm,
		w.SelectBorough,
		func(ctx context.Context) error { return w.SelectStreet(ctx, street) },
		w.Submit,
		w.Capture,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return "", err
		}
	}
	return w.html, nil
}

func (w *FormWorkflow) step(from, to FormState, action func() error) error {
	if w.state != from {
		return common.NewInternalError("invalid_transition",
			fmt.Sprintf("cannot move to %s from %s", to, w.state))
	}
	if err := action(); err != nil {
		return common.WrapError(err, common.ErrorTypeFetch, "step_failed",
			fmt.Sprintf("form step %s failed", to)).
			WithContext("state", string(w.state))
	}
	w.state = to
	return nil
}
