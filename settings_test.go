package cfddns_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Travis-Britz/cfddns"
)

func TestFileStoreMissingFile(t *testing.T) {
	st := cfddns.NewFileStore(filepath.Join(t.TempDir(), "settings.ini"))

	s, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, cfddns.Settings{}, s)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfddns", "settings.ini")
	st := cfddns.NewFileStore(path)
	want := cfddns.Settings{Token: testToken, ZoneID: testZone, RecordID: testRecord}

	require.NoError(t, st.Save(want))
	got, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[cloudflare]")
	assert.Contains(t, string(b), "zone_id")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files should not be left behind")
}

func TestFileStoreEmptyRecordID(t *testing.T) {
	st := cfddns.NewFileStore(filepath.Join(t.TempDir(), "settings.ini"))
	want := cfddns.Settings{Token: testToken, ZoneID: testZone}

	require.NoError(t, st.Save(want))
	got, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, "", got.RecordID)
	assert.False(t, got.Complete())
	assert.True(t, got.HasZone())
}

func TestFileStoreReset(t *testing.T) {
	st := cfddns.NewFileStore(filepath.Join(t.TempDir(), "settings.ini"))
	require.NoError(t, st.Save(cfddns.Settings{Token: testToken, ZoneID: testZone, RecordID: testRecord}))

	for i := 0; i < 2; i++ {
		require.NoError(t, st.Reset())
		got, err := st.Load()
		require.NoError(t, err)
		assert.Equal(t, cfddns.Settings{}, got)
	}
}

func TestFileStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permissions are not checked on windows")
	}
	path := filepath.Join(t.TempDir(), "settings.ini")
	require.NoError(t, os.WriteFile(path, []byte("[cloudflare]\napi_token = abc\n"), 0644))
	require.NoError(t, os.Chmod(path, 0644))

	_, err := cfddns.NewFileStore(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected file permissions "-rw-------"`)

	require.NoError(t, os.Chmod(path, 0400))
	s, err := cfddns.NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", s.Token)
}
