package services

import (
	"context"
	"errors"
	"testing"

	"permit-collector/internal/common"
	"permit-collector/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherUsesFreshSessionPerStreet(t *testing.T) {
	factory := &fakeFactory{next: func() *fakeSession { return &fakeSession{source: emptyPage} }}
	f := NewFetcher(testPortalConfig(), factory, testLogger())

	for _, street := range []string{"BROADWAY", "5 AVE"} {
		html, err := f.FetchStreetPage(context.Background(), models.Street(street))
		require.NoError(t, err)
		assert.Equal(t, emptyPage, html)
	}

	require.Len(t, factory.sessions, 2)
	for _, s := range factory.sessions {
		assert.Equal(t, 1, s.closed)
	}
	assert.Contains(t, factory.sessions[1].calls, "select on_street=5 AVE")
}

func TestFetcherClosesSessionOnFailure(t *testing.T) {
	factory := &fakeFactory{next: func() *fakeSession { return &fakeSession{failOn: "click"} }}
	f := NewFetcher(testPortalConfig(), factory, testLogger())

	_, err := f.FetchStreetPage(context.Background(), "BROADWAY")
	require.Error(t, err)

	assert.True(t, common.IsRecoverable(err))
	require.Len(t, factory.sessions, 1)
	assert.Equal(t, 1, factory.sessions[0].closed)
}

func TestFetcherSessionStartFailure(t *testing.T) {
	factory := &fakeFactory{err: errors.New("chrome not found")}
	f := NewFetcher(testPortalConfig(), factory, testLogger())

	_, err := f.FetchStreetPage(context.Background(), "BROADWAY")
	require.Error(t, err)
	assert.True(t, common.IsErrorType(err, common.ErrorTypeFetch))
}

func TestFetcherIgnoresCloseError(t *testing.T) {
	factory := &fakeFactory{next: func() *fakeSession {
		return &fakeSession{source: emptyPage, closeFn: func() error { return errors.New("already closed") }}
	}}
	f := NewFetcher(testPortalConfig(), factory, testLogger())

	html, err := f.FetchStreetPage(context.Background(), "BROADWAY")
	require.NoError(t, err)
	assert.Equal(t, emptyPage, html)
}
