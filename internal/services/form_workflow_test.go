package services

import (
	"context"
	"testing"

	"permit-collector/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormWorkflowRun(t *testing.T) {
	cfg := testPortalConfig()
	session := &fakeSession{source: emptyPage}
	w := NewFormWorkflow(session, cfg)

	html, err := w.Run(context.Background(), "BROADWAY")
	require.NoError(t, err)

	assert.Equal(t, emptyPage, html)
	assert.Equal(t, StateResultCaptured, w.State())
	assert.Equal(t, []string{
		"open " + cfg.URL,
		"select borough=1",
		"select on_street=BROADWAY",
		"click " + cfg.SearchSelector,
		"source",
	}, session.calls)
}

func TestFormWorkflowStopsOnFailedStep(t *testing.T) {
	session := &fakeSession{failOn: "select on_street"}
	w := NewFormWorkflow(session, testPortalConfig())

	_, err := w.Run(context.Background(), "5 AVE")
	require.Error(t, err)

	assert.True(t, common.IsErrorType(err, common.ErrorTypeFetch))
	assert.Equal(t, StateBoroughSelected, w.State())
	assert.Len(t, session.calls, 3)
}

func TestFormWorkflowRejectsOutOfOrderSteps(t *testing.T) {
	session := &fakeSession{}
	w := NewFormWorkflow(session, testPortalConfig())

	err := w.Submit(context.Background())
	require.Error(t, err)

	assert.True(t, common.IsErrorType(err, common.ErrorTypeInternal))
	assert.False(t, common.IsRecoverable(err))
	assert.Empty(t, session.calls)
	assert.Equal(t, StateNew, w.State())
}

func TestFormWorkflowStepByStep(t *testing.T) {
	ctx := context.Background()
	w := NewFormWorkflow(&fakeSession{source: "<html></html>"}, testPortalConfig())

	require.NoError(t, w.LoadForm(ctx))
	assert.Equal(t, StateFormLoaded, w.State())
	require.NoError(t, w.SelectBorough(ctx))
	assert.Equal(t, StateBoroughSelected, w.State())
	require.NoError(t, w.SelectStreet(ctx, "BROADWAY"))
	assert.Equal(t, StateStreetSelected, w.State())
	require.NoError(t, w.Submit(ctx))
	assert.Equal(t, StateSubmitted, w.State())
	require.NoError(t, w.Capture(ctx))
	assert.Equal(t, "<html></html>", w.HTML())

	assert.Error(t, w.LoadForm(ctx))
}
