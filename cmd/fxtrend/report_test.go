package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 30, 15, 4, 5, 0, time.UTC)

func TestReportFlags_DefaultPeriod(t *testing.T) {
	f, err := parseReportFlags([]string{"-pair", "USD/EUR"})
	require.NoError(t, err)
	assert.Equal(t, "insights", f.out)

	req, err := f.resolve(now)
	require.NoError(t, err)
	assert.Equal(t, "USD/EUR", req.Pair)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), req.EndDate)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), req.StartDate)
	assert.Nil(t, req.Threshold)
}

func TestReportFlags_ExplicitRange(t *testing.T) {
	f, err := parseReportFlags([]string{"-pair", "GBPJPY", "-start", "2024-01-01", "-end", "2024-01-31", "-threshold", "0.5", "-out", ""})
	require.NoError(t, err)
	assert.Empty(t, f.out)

	req, err := f.resolve(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), req.StartDate)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), req.EndDate)
	require.NotNil(t, req.Threshold)
	assert.Equal(t, 0.5, *req.Threshold)
}

func TestReportFlags_Days(t *testing.T) {
	f, err := parseReportFlags([]string{"-pair", "USDEUR", "-end", "2024-03-10", "-days", "7"})
	require.NoError(t, err)

	req, err := f.resolve(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), req.StartDate)
}

func TestReportFlags_Errors(t *testing.T) {
	_, err := parseReportFlags(nil)
	assert.Error(t, err)

	f, err := parseReportFlags([]string{"-pair", "USDEUR", "-days", "0"})
	require.NoError(t, err)
	_, err = f.resolve(now)
	assert.Error(t, err)

	f, err = parseReportFlags([]string{"-pair", "USDEUR", "-start", "March 1"})
	require.NoError(t, err)
	_, err = f.resolve(now)
	assert.Error(t, err)
}
