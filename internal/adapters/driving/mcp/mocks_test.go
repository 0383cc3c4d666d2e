package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wve/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/wve/internal/core/domain"
	"github.com/custodia-labs/wve/internal/core/ports/driving"
	"github.com/custodia-labs/wve/internal/core/services"
)

// newTestPorts wires real services over an in-memory store.
func newTestPorts() *Ports {
	store := memory.NewVersionStore()
	return &Ports{
		Document: services.NewDocumentService(store, nil, domain.SaveSettings{MaxAttempts: 3, RetryPerSecond: 1000}),
		History:  services.NewHistoryService(store, nil),
		Temporal: services.NewTemporalService(store),
		Merge:    services.NewMergeService(store, nil, domain.ResolveYours),
		Compare:  services.NewCompareService(store),
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewServer(newTestPorts())
	require.NoError(t, err)
	return server
}

func alphaInput(confidence float64) DocumentInput {
	return DocumentInput{
		Slug:    "alpha",
		Subject: "Alpha",
		Points: []PointInput{
			{Theme: "economics", Stance: "skeptical", Confidence: confidence, Evidence: []string{"ep1"}},
		},
	}
}

func saveAlpha(t *testing.T, s *Server, confidence float64, reason string) SaveOutput {
	t.Helper()
	_, out, err := s.handleSave(context.Background(), nil, SaveInput{
		Document: alphaInput(confidence),
		Author:   "tester",
		Reason:   reason,
	})
	require.NoError(t, err)
	return out
}

// failingDocumentService fails every call.
type failingDocumentService struct{}

var errStoreDown = errors.New("store down")

func (failingDocumentService) Save(context.Context, driving.SaveRequest) (*driving.SaveResult, error) {
	return nil, errStoreDown
}

func (failingDocumentService) Get(context.Context, string, int) (*domain.Version, error) {
	return nil, errStoreDown
}

func (failingDocumentService) ListVersions(context.Context, string) ([]domain.VersionInfo, error) {
	return nil, errStoreDown
}

func (failingDocumentService) List(context.Context) ([]domain.DocumentSummary, error) {
	return nil, errStoreDown
}

func (failingDocumentService) Search(context.Context, string) ([]domain.DocumentSummary, error) {
	return nil, errStoreDown
}

func (failingDocumentService) Delete(context.Context, string, string, string) (*domain.DeletionRecord, error) {
	return nil, errStoreDown
}

func (failingDocumentService) Deletions(context.Context) ([]domain.DeletionRecord, error) {
	return nil, errStoreDown
}
