// File: internal/store/store_test.go
package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "config.json"), zap.NewNop())
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	s := newTestStore(t)
	doc := s.Load()

	assert.Empty(t, doc.Profiles)
	assert.Empty(t, doc.LastActive)
	assert.NotNil(t, doc.LastURLs)
	assert.Equal(t, 320, doc.AccountsPanelWidth)
	assert.Equal(t, 160, doc.LeftbarWidth)
	assert.False(t, doc.AccountsVisible)
}

func TestLoadCorruptFileYieldsDefaults(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	doc := s.Load()
	assert.Empty(t, doc.Profiles)
	assert.NotNil(t, doc.LastURLs)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	doc := NewDocument()
	doc.Profiles = []string{"Steam 1", "Steam 2", "Steam 3"}
	doc.LastActive = "Steam 2"
	doc.LastURLs["Steam 1"] = "https://steamcommunity.com/id/a"
	doc.LastURLs["Steam 2"] = "https://store.steampowered.com/app/440"
	doc.AccountsVisible = true
	doc.AccountsPanelWidth = 400
	doc.LeftbarWidth = 180
	doc.WinGeometry = "01d9d0cb"

	require.NoError(t, s.Save(doc))

	got := s.Load()
	assert.Equal(t, doc.Profiles, got.Profiles)
	assert.Equal(t, doc.LastActive, got.LastActive)
	assert.Equal(t, doc.LastURLs, got.LastURLs)
	assert.True(t, got.AccountsVisible)
	assert.Equal(t, 400, got.AccountsPanelWidth)
	assert.Equal(t, 180, got.LeftbarWidth)
	assert.Equal(t, "01d9d0cb", got.WinGeometry)
}

func TestSaveOverwritesInFull(t *testing.T) {
	s := newTestStore(t)

	doc := NewDocument()
	doc.Profiles = []string{"Steam 1", "Steam 2"}
	doc.LastURLs["Steam 2"] = "https://steamcommunity.com/"
	require.NoError(t, s.Save(doc))

	doc.Profiles = []string{"Steam 1"}
	delete(doc.LastURLs, "Steam 2")
	require.NoError(t, s.Save(doc))

	got := s.Load()
	assert.Equal(t, []string{"Steam 1"}, got.Profiles)
	assert.NotContains(t, got.LastURLs, "Steam 2")
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	s := Open(filepath.Join(dir, "nested", "state", "config.json"), zap.NewNop())

	require.NoError(t, s.Save(NewDocument()))
	_, err := os.Stat(s.Path())
	assert.NoError(t, err)
}
