package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wve/internal/core/domain"
)

// Save Tests

func TestSaveCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute("save")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSaveCmd_CreatesVersions(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("save", "alpha", "-f", writeDocument(t, "a.yaml", alphaV1), "-r", "initial")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved alpha v1")

	out, err = execute("save", "alpha", "-f", writeDocument(t, "a.yaml", alphaV2), "-r", "more evidence",
		"--meta", "source=ep2")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved alpha v2")
	assert.Contains(t, out, "points/economics/confidence")
	assert.Contains(t, out, "points/economics/evidence")
}

func TestSaveCmd_RequiresReason(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("save", "alpha", "-f", writeDocument(t, "a.yaml", alphaV1))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSaveCmd_SlugMismatch(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeDocument(t, "b.yaml", "slug: beta\nsubject: Beta\n")
	_, err := execute("save", "alpha", "-f", path, "-r", "initial")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestSaveCmd_MissingFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("save", "alpha", "-f", "/nonexistent/alpha.yaml", "-r", "initial")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open document")
}

// Get Tests

func TestGetCmd_ShowsLatestAndPinnedVersions(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	saveAlpha(t, alphaV1, "initial")
	saveAlpha(t, alphaV2, "more evidence")

	out, err := execute("get", "alpha")
	require.NoError(t, err)
	assert.Contains(t, out, "alpha v2")
	assert.Contains(t, out, "economics (0.80)")

	out, err = execute("get", "alpha", "--version", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "alpha v1")
	assert.Contains(t, out, "initial")
}

func TestGetCmd_UnknownVersionIsNotFound(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	saveAlpha(t, alphaV1, "initial")

	_, err := execute("get", "alpha", "--version", "5")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetCmd_InvalidSlug(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	for _, slug := range []string{"Alpha", "a/b", ".hidden"} {
		_, err := execute("get", slug)
		require.Error(t, err, slug)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, slug)
		assert.Contains(t, err.Error(), "invalid slug", slug)
	}
}

func TestGetCmd_Formats(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	saveAlpha(t, alphaV1, "initial")

	out, err := execute("get", "alpha", "--format", "json")
	require.NoError(t, err)
	var v domain.Version
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, 1, v.Number)
	assert.InDelta(t, 0.6, v.Document.Points["economics"].Confidence, 1e-9)

	out, err = execute("get", "alpha", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "number: 1")
	assert.Contains(t, out, "stance: skeptical of tariffs")

	_, err = execute("get", "alpha", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

// Versions, List and Search Tests

func TestVersionsCmd_NewestFirst(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	saveAlpha(t, alphaV1, "initial")
	saveAlpha(t, alphaV2, "more evidence")

	out, err := execute("versions", "alpha")

	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "v2"), strings.Index(out, "v1"))
	assert.Contains(t, out, "more evidence")
}

func TestListCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("list")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents found.")

	saveAlpha(t, alphaV1, "initial")
	out, err = execute("list")
	require.NoError(t, err)
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "Total: 1 documents")
}

func TestSearchCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	saveAlpha(t, alphaV1, "initial")

	out, err := execute("search", "econ")
	require.NoError(t, err)
	assert.Contains(t, out, "alpha")

	out, err = execute("search", "climate")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents found.")
}

// Delete Tests

func TestDeleteCmd_WithYes(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	saveAlpha(t, alphaV1, "initial")

	out, err := execute("delete", "alpha", "--yes", "--reason", "duplicate")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted alpha (1 versions)")

	_, err = execute("get", "alpha")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func withTerminal(t *testing.T, isTerminal bool, input string) {
	t.Helper()
	original := stdinIsTerminal
	stdinIsTerminal = func() bool { return isTerminal }
	rootCmd.SetIn(strings.NewReader(input))
	t.Cleanup(func() {
		stdinIsTerminal = original
		rootCmd.SetIn(nil)
	})
}

func TestDeleteCmd_Confirmation(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	saveAlpha(t, alphaV1, "initial")

	withTerminal(t, true, "n\n")
	out, err := execute("delete", "alpha", "--reason", "duplicate")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")

	withTerminal(t, true, "yes\n")
	out, err = execute("delete", "alpha", "--reason", "duplicate")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted alpha")
}

func TestDeleteCmd_RefusesWithoutTerminal(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	saveAlpha(t, alphaV1, "initial")
	withTerminal(t, false, "")

	_, err := execute("delete", "alpha", "--reason", "duplicate")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestDeletionsCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("deletions")
	require.NoError(t, err)
	assert.Contains(t, out, "No deleted documents.")

	saveAlpha(t, alphaV1, "initial")
	_, err = execute("delete", "alpha", "--yes", "--reason", "duplicate")
	require.NoError(t, err)

	out, err = execute("deletions")
	require.NoError(t, err)
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "1 versions")
	assert.Contains(t, out, "duplicate")

	out, err = execute("deletions", "--format", "json")
	require.NoError(t, err)
	var records []domain.DeletionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "alpha", records[0].Slug)
	assert.Equal(t, "tester", records[0].Author)
}

// Service Not Configured Tests

func TestDocumentCommands_ServiceNotConfigured(t *testing.T) {
	SetServices(Services{})
	resetFlags()

	for _, args := range [][]string{
		{"get", "alpha"},
		{"versions", "alpha"},
		{"list"},
		{"search", "x"},
		{"delete", "alpha", "--yes"},
		{"deletions"},
	} {
		_, err := execute(args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "document service not configured", args)
	}
}

// Document File Tests

func TestDecodeDocument(t *testing.T) {
	t.Run("yaml with slug default", func(t *testing.T) {
		doc, err := decodeDocument(strings.NewReader(alphaV1), "alpha")
		require.NoError(t, err)
		assert.Equal(t, "alpha", doc.Slug)
		assert.Equal(t, []string{"ep1"}, doc.Points["economics"].Evidence)
	})

	t.Run("json is accepted", func(t *testing.T) {
		doc, err := decodeDocument(strings.NewReader(
			`{"subject": "Alpha", "points": [{"theme": "climate", "confidence": 0.5}]}`), "alpha")
		require.NoError(t, err)
		assert.Contains(t, doc.Points, "climate")
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, err := decodeDocument(strings.NewReader("subject: A\ntitle: B\n"), "alpha")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("duplicate themes are rejected", func(t *testing.T) {
		_, err := decodeDocument(strings.NewReader(
			"subject: A\npoints:\n  - theme: x\n  - theme: x\n"), "alpha")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
