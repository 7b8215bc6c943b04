package services

import (
	"os"
	"path/filepath"
	"testing"

	"permit-collector/internal/common"
	"permit-collector/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "permits.csv")
	w := NewCSVWriter(path)

	require.NoError(t, w.WriteHeader([]string{"PermitNumber", "Location"}))
	require.NoError(t, w.AppendRows(&models.PermitTable{
		Headers: []string{"PermitNumber", "Location"},
		Rows: []models.Row{
			{Values: []string{"M01", "BROADWAY, 5 AVE"}},
			{Values: []string{"M02", ""}},
		},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PermitNumber,Location\nM01,\"BROADWAY, 5 AVE\"\nM02,\n", string(data))
	assert.Equal(t, path, w.Path())
}

func TestCSVWriterKeepsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permits.csv")
	require.NoError(t, os.WriteFile(path, []byte("old,row\n"), 0644))

	w := NewCSVWriter(path)
	require.NoError(t, w.AppendRows(&models.PermitTable{
		Headers: []string{"a", "b"},
		Rows:    []models.Row{{Values: []string{"new", "row"}}},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old,row\nnew,row\n", string(data))
}

func TestCSVWriterEmptyTableLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permits.csv")
	w := NewCSVWriter(path)

	require.NoError(t, w.AppendRows(&models.PermitTable{Headers: []string{"a"}}))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestCSVWriterOpenFailure(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir) // a directory cannot be opened for writing

	err := w.WriteHeader([]string{"a"})
	require.Error(t, err)
	assert.True(t, common.IsErrorType(err, common.ErrorTypeOutput))
	assert.False(t, common.IsRecoverable(err))
}
