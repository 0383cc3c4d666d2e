package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/wve/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for wve resources.
	uriScheme = "wve://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Summary of every stored document",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for the latest snapshot of a document.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{slug}",
		Name:        "document",
		Description: "Latest version of a document",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

// handleDocumentsResource returns a summary of all documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	summaries, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return jsonResource(req.Params.URI, summaryOutputs(summaries))
}

// handleDocumentResource returns the latest version of one document.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract slug from URI: wve://documents/{slug}
	slug := extractSlug(req.Params.URI)
	if slug == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	v, err := s.ports.Document.Get(ctx, slug, 0)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return jsonResource(req.Params.URI, versionOutput(*v))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSlug extracts the slug from a URI like wve://documents/{slug}.
func extractSlug(uri string) string {
	const prefix = uriScheme + "documents/"

	slug, ok := strings.CutPrefix(uri, prefix)
	if !ok || strings.Contains(slug, "/") {
		return ""
	}
	return slug
}
