package services

import (
	"testing"

	"permit-collector/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTablePopulated(t *testing.T) {
	ex := NewExtractor(testLogger())

	state, err := ex.ExtractTable(resultPage(
		[]string{"Permit Number", " Permit\tStatus "},
		[][]string{
			{" M01-2016 ", "Issued"},
			{"M02-2016", "Pending"},
		},
	))
	require.NoError(t, err)
	require.False(t, state.Empty)
	require.NotNil(t, state.Table)

	assert.Equal(t, []string{"PermitNumber", "PermitStatus"}, state.Table.Headers)
	require.Len(t, state.Table.Rows, 2)
	assert.Equal(t, []string{"M01-2016", "Issued"}, state.Table.Rows[0].Values)
	assert.Equal(t, "Pending", state.Table.Rows[1].Get(state.Table.Headers, "PermitStatus"))
}

func TestExtractTablePadsShortRows(t *testing.T) {
	ex := NewExtractor(testLogger())

	state, err := ex.ExtractTable(resultPage(
		[]string{"PermitNumber", "Status", "Street"},
		[][]string{
			{"M01"},
			{"M02", "Issued", "BROADWAY"},
		},
	))
	require.NoError(t, err)

	for _, row := range state.Table.Rows {
		assert.Len(t, row.Values, 3)
	}
	assert.Equal(t, []string{"M01", "", ""}, state.Table.Rows[0].Values)
}

func TestExtractTableDropsBlankAndDuplicateRows(t *testing.T) {
	ex := NewExtractor(testLogger())

	state, err := ex.ExtractTable(resultPage(
		[]string{"PermitNumber", "Status"},
		[][]string{
			{"M01", "Issued"},
			{"  ", ""},
			{"M01", " Issued "},
			{"M02", "Issued"},
			{},
		},
	))
	require.NoError(t, err)

	require.Len(t, state.Table.Rows, 2)
	assert.Equal(t, []string{"M01", "Issued"}, state.Table.Rows[0].Values)
	assert.Equal(t, []string{"M02", "Issued"}, state.Table.Rows[1].Values)
}

func TestExtractTableEmptyMarker(t *testing.T) {
	ex := NewExtractor(testLogger())

	state, err := ex.ExtractTable(emptyPage)
	require.NoError(t, err)
	assert.True(t, state.Empty)
	assert.Nil(t, state.Table)
}

func TestExtractTableUnknownPage(t *testing.T) {
	ex := NewExtractor(testLogger())

	_, err := ex.ExtractTable(`<html><body><p>Service unavailable</p></body></html>`)
	require.Error(t, err)
	assert.True(t, common.IsErrorType(err, common.ErrorTypeExtraction))
	assert.True(t, common.IsRecoverable(err))
}

func TestExtractTableWithoutHeaders(t *testing.T) {
	ex := NewExtractor(testLogger())

	_, err := ex.ExtractTable(resultPage(nil, [][]string{{"M01"}}))
	require.Error(t, err)
	assert.True(t, common.IsErrorType(err, common.ErrorTypeExtraction))
}

func TestExtractTableIsDeterministic(t *testing.T) {
	ex := NewExtractor(testLogger())
	html := resultPage(
		[]string{"PermitNumber", "Status"},
		[][]string{{"M03", "Issued"}, {"M01", "Issued"}, {"M03", "Issued"}, {"M02", ""}},
	)

	first, err := ex.ExtractTable(html)
	require.NoError(t, err)
	second, err := ex.ExtractTable(html)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
