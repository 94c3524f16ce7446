package crawler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogAdd(t *testing.T) {
	catalog := NewCatalog()
	assert.True(t, catalog.Add("300", "https://slashdot.org/story/300"))
	assert.True(t, catalog.Add("100", "https://slashdot.org/story/100"))
	assert.False(t, catalog.Add("300", "https://slashdot.org/story/other"))

	assert.Equal(t, 2, catalog.Len())
	url, ok := catalog.Get("300")
	assert.True(t, ok)
	assert.Equal(t, "https://slashdot.org/story/300", url)

	assert.Equal(t, []CatalogEntry{
		{ID: "300", URL: "https://slashdot.org/story/300"},
		{ID: "100", URL: "https://slashdot.org/story/100"},
	}, catalog.Entries())
}

func TestCatalogSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.json")

	catalog := NewCatalog()
	catalog.Add("9", "https://slashdot.org/story/9")
	catalog.Add("10", "https://slashdot.org/story/10")
	catalog.Add("1", "https://slashdot.org/story/1")

	require.NoError(t, SaveCatalog(path, catalog))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"9\": \"https://slashdot.org/story/9\",\n    \"10\": \"https://slashdot.org/story/10\",\n    \"1\": \"https://slashdot.org/story/1\"\n}\n", string(data))

	loaded, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, catalog.Entries(), loaded.Entries())
}

func TestCatalogSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.json")

	catalog := NewCatalog()
	catalog.Add("7", "https://slashdot.org/story/7?a=1&b=<2>")
	require.NoError(t, SaveCatalog(path, catalog))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"7\": \"https://slashdot.org/story/7?a=1&b=<2>\"\n}\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	loaded, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, catalog.Entries(), loaded.Entries())

	// no temp files left behind
	files, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestCatalogEmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.json")
	require.NoError(t, SaveCatalog(path, NewCatalog()))

	loaded, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
}

func TestCatalogUnmarshalErrors(t *testing.T) {
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), NewCatalog()))
	assert.Error(t, json.Unmarshal([]byte(`{"a": 1}`), NewCatalog()))

	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
