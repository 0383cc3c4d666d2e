package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wve/internal/core/domain"
)

func newBufferedCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	return cmd, buf
}

func TestRender(t *testing.T) {
	value := domain.ChangeSummary{Added: 1, Replaced: 2}

	t.Run("text calls the printer", func(t *testing.T) {
		cmd, buf := newBufferedCmd()
		require.NoError(t, render(cmd, formatText, value, func() { cmd.Print("plain") }))
		assert.Equal(t, "plain", buf.String())
	})

	t.Run("json uses field tags", func(t *testing.T) {
		cmd, buf := newBufferedCmd()
		require.NoError(t, render(cmd, formatJSON, value, func() {}))
		assert.Contains(t, buf.String(), `"replaced": 2`)
	})

	t.Run("yaml uses json field names", func(t *testing.T) {
		cmd, buf := newBufferedCmd()
		require.NoError(t, render(cmd, formatYAML, value, func() {}))
		assert.Contains(t, buf.String(), "added: 1\n")
		assert.Contains(t, buf.String(), "removed: 0\n")
	})

	t.Run("unknown format", func(t *testing.T) {
		cmd, _ := newBufferedCmd()
		assert.Error(t, render(cmd, "toml", value, func() {}))
	})
}

func TestPrintChanges(t *testing.T) {
	cmd, buf := newBufferedCmd()
	printChanges(cmd, []domain.Change{
		{Path: "points/climate", Op: domain.ChangeAdd, NewValue: json.RawMessage(`{"theme":"climate"}`)},
		{Path: "points/space", Op: domain.ChangeRemove, OldValue: json.RawMessage(`{"theme":"space"}`)},
		{Path: "subject", Op: domain.ChangeReplace, OldValue: json.RawMessage(`"A"`), NewValue: json.RawMessage(`"B"`)},
	})

	assert.Contains(t, buf.String(), "+ points/climate")
	assert.Contains(t, buf.String(), "- points/space")
	assert.Contains(t, buf.String(), `~ subject: "A" -> "B"`)

	cmd, buf = newBufferedCmd()
	printChanges(cmd, nil)
	assert.Contains(t, buf.String(), "(no changes)")
}
