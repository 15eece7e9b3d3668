// File: internal/registry/registry_test.go
package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSession struct {
	name   string
	dir    string
	closed bool
}

func (s *fakeSession) Name() string                            { return s.name }
func (s *fakeSession) StorageDir() string                      { return s.dir }
func (s *fakeSession) CurrentURL() string                      { return "" }
func (s *fakeSession) Navigate(string)                         {}
func (s *fakeSession) Back()                                   {}
func (s *fakeSession) Forward()                                {}
func (s *fakeSession) Reload()                                 {}
func (s *fakeSession) ReloadBypassCache()                      {}
func (s *fakeSession) ProbeBlank(func(blank bool, err error))  {}
func (s *fakeSession) Show()                                   {}
func (s *fakeSession) Hide()                                   {}
func (s *fakeSession) Close(context.Context) error             { s.closed = true; return nil }

type registryFixture struct {
	reg          *Registry
	launched     []string
	sessions     map[string]*fakeSession
	launchErr    error
	closedPopups []string
}

func newRegistryFixture(t *testing.T) *registryFixture {
	t.Helper()
	f := &registryFixture{sessions: make(map[string]*fakeSession)}
	f.reg = New(zap.NewNop(), filepath.Join(t.TempDir(), "profiles"),
		func(ctx context.Context, name, dir string) (Session, error) {
			if f.launchErr != nil {
				return nil, f.launchErr
			}
			f.launched = append(f.launched, name)
			s := &fakeSession{name: name, dir: dir}
			f.sessions[name] = s
			return s, nil
		},
		func(owner string) { f.closedPopups = append(f.closedPopups, owner) })
	return f
}

func TestValidateName(t *testing.T) {
	valid := []string{"Steam 1", "work account", "alt-2", "üser"}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), name)
	}

	invalid := []string{"", " padded", "padded ", "a/b", `a\b`, "..", ".", "a\x00b", "tab\there"}
	for _, name := range invalid {
		assert.Error(t, ValidateName(name), "%q should be rejected", name)
	}
}

func TestRegistryCreatePreparesStorageDir(t *testing.T) {
	f := newRegistryFixture(t)

	sess, err := f.reg.Create(context.Background(), "Steam 1")
	require.NoError(t, err)

	info, err := os.Stat(sess.StorageDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "Steam 1", filepath.Base(sess.StorageDir()))
	assert.NotNil(t, f.reg.Record("Steam 1"))
}

func TestRegistryCreateRejectsDuplicates(t *testing.T) {
	f := newRegistryFixture(t)

	_, err := f.reg.Create(context.Background(), "Steam 1")
	require.NoError(t, err)
	_, err = f.reg.Create(context.Background(), "Steam 1")
	assert.Error(t, err)
	assert.Len(t, f.launched, 1)
}

func TestRegistryCreateLaunchFailureLeavesNoSession(t *testing.T) {
	f := newRegistryFixture(t)
	f.launchErr = errors.New("chrome did not start")

	_, err := f.reg.Create(context.Background(), "Steam 1")
	assert.Error(t, err)
	assert.Nil(t, f.reg.Get("Steam 1"))
	assert.Nil(t, f.reg.Record("Steam 1"))
	assert.Zero(t, f.reg.Len())
}

func TestRegistryNextNameSkipsLiveSessions(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()

	assert.Equal(t, "Steam 1", f.reg.NextName())
	_, err := f.reg.Create(ctx, "Steam 1")
	require.NoError(t, err)
	_, err = f.reg.Create(ctx, "Steam 2")
	require.NoError(t, err)
	assert.Equal(t, "Steam 3", f.reg.NextName())

	require.NoError(t, f.reg.Destroy(ctx, "Steam 1"))
	assert.Equal(t, "Steam 1", f.reg.NextName())
}

func TestRegistryDestroyRemovesEverything(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()

	sess, err := f.reg.Create(ctx, "Steam 1")
	require.NoError(t, err)
	dir := sess.StorageDir()

	require.NoError(t, f.reg.Destroy(ctx, "Steam 1"))
	assert.True(t, f.sessions["Steam 1"].closed)
	assert.Equal(t, []string{"Steam 1"}, f.closedPopups)
	assert.Nil(t, f.reg.Get("Steam 1"))
	assert.Nil(t, f.reg.Record("Steam 1"))
	assert.NotContains(t, f.reg.Names(), "Steam 1")

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "profile directory should be deleted")
}

func TestRegistryDestroyUnknownName(t *testing.T) {
	f := newRegistryFixture(t)
	assert.Error(t, f.reg.Destroy(context.Background(), "ghost"))
}

func TestRegistryCloseAllKeepsProfilesOnDisk(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()

	a, err := f.reg.Create(ctx, "Steam 1")
	require.NoError(t, err)
	b, err := f.reg.Create(ctx, "Steam 2")
	require.NoError(t, err)

	f.reg.CloseAll(ctx)
	assert.True(t, f.sessions["Steam 1"].closed)
	assert.True(t, f.sessions["Steam 2"].closed)
	assert.Zero(t, f.reg.Len())

	for _, dir := range []string{a.StorageDir(), b.StorageDir()} {
		_, statErr := os.Stat(dir)
		assert.NoError(t, statErr, "stored profile should survive shutdown")
	}
}

func TestRegistryNamesInCreationOrder(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()

	for _, name := range []string{"alpha", "beta", "gamma"} {
		_, err := f.reg.Create(ctx, name)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, f.reg.Names())

	require.NoError(t, f.reg.Destroy(ctx, "beta"))
	assert.Equal(t, []string{"alpha", "gamma"}, f.reg.Names())
}
