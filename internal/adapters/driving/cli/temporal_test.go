package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wve/internal/core/domain"
)

func TestAsOfCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	before := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	saveAlpha(t, alphaV1, "initial")
	saveAlpha(t, alphaV2, "more evidence")
	after := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	out, err := execute("as-of", "alpha", after)
	require.NoError(t, err)
	assert.Contains(t, out, "alpha v2")

	_, err = execute("as-of", "alpha", before)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = execute("as-of", "alpha", "last tuesday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid time")
}

func TestRangeCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	from := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	saveAlpha(t, alphaV1, "initial")
	saveAlpha(t, alphaV2, "more evidence")
	to := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	out, err := execute("range", "alpha", from, to)
	require.NoError(t, err)
	assert.Contains(t, out, "v1")
	assert.Contains(t, out, "v2")

	out, err = execute("range", "alpha", "2000-01-01", "2000-01-02")
	require.NoError(t, err)
	assert.Contains(t, out, "No versions in range.")

	_, err = execute("range", "alpha", to, from)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-06-01T09:00:00Z", time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)},
		{"2024-06-01T09:00:00.5Z", time.Date(2024, 6, 1, 9, 0, 0, 500_000_000, time.UTC)},
		{"2024-06-01", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseTimestamp(tt.input)
		require.NoError(t, err, tt.input)
		assert.True(t, tt.want.Equal(got), tt.input)
	}

	_, err := parseTimestamp("06/01/2024")
	assert.Error(t, err)
}
