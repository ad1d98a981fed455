package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("HOME", dir)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", dir)
	}
}

func TestEnsureDataDir_CreatesDirectoryInHome(t *testing.T) {
	tmp := t.TempDir()
	withHome(t, tmp)

	got, err := EnsureDataDir(".recordbase")
	require.NoError(t, err)

	want := filepath.Join(tmp, ".recordbase")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm())
	}
}

func TestEnsureDataDir_Idempotent(t *testing.T) {
	tmp := t.TempDir()
	withHome(t, tmp)

	first, err := EnsureDataDir(".recordbase")
	require.NoError(t, err)

	second, err := EnsureDataDir(".recordbase")
	require.NoError(t, err)

	require.Equal(t, first, second)
	fi, err := os.Stat(second)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestEnsureDataDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	withHome(t, tmp)

	path := filepath.Join(tmp, ".recordbase")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := EnsureDataDir(".recordbase")
	require.Error(t, err)
}
