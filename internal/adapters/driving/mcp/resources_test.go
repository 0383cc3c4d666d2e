package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSlug(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid uri", "wve://documents/alpha", "alpha"},
		{"slug with dots", "wve://documents/a.b-c", "a.b-c"},
		{"nested path", "wve://documents/alpha/versions", ""},
		{"wrong scheme", "other://documents/alpha", ""},
		{"listing uri", "wve://documents", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractSlug(tt.uri))
		})
	}
}

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists stored documents", func(t *testing.T) {
		server := newTestServer(t)
		saveAlpha(t, server, 0.6, "initial")

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("wve://documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"slug": "alpha"`)
	})

	t.Run("empty store is an empty list", func(t *testing.T) {
		server := newTestServer(t)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("wve://documents"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Document: failingDocumentService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, makeReadResourceRequest("wve://documents"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleDocumentResource(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)
	saveAlpha(t, server, 0.6, "initial")

	t.Run("returns the latest version", func(t *testing.T) {
		result, err := server.handleDocumentResource(ctx, makeReadResourceRequest("wve://documents/alpha"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"version": 1`)
		assert.Contains(t, result.Contents[0].Text, `"economics"`)
	})

	t.Run("unknown slug is not found", func(t *testing.T) {
		_, err := server.handleDocumentResource(ctx, makeReadResourceRequest("wve://documents/ghost"))
		require.Error(t, err)
	})

	t.Run("malformed uri is not found", func(t *testing.T) {
		_, err := server.handleDocumentResource(ctx, makeReadResourceRequest("wve://documents/"))
		require.Error(t, err)
	})
}
