package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPCmd_Use(t *testing.T) {
	assert.Equal(t, "mcp", mcpCmd.Use)
	assert.Equal(t, "serve", mcpServeCmd.Use)
}

func TestMCPServeCmd_HTTPFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("http")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestMCPServeCmd_RequiresDocumentService(t *testing.T) {
	SetServices(Services{})

	_, err := execute("mcp", "serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "document service is required")
}
