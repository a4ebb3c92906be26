package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact-splitter/internal/config"
)

func newWorkspace(t *testing.T) (*Workspace, config.StorageConfig) {
	t.Helper()
	root := t.TempDir()
	cfg := config.StorageConfig{
		UploadDir:    filepath.Join(root, "uploads"),
		ProcessedDir: filepath.Join(root, "processed"),
	}
	ws, err := NewWorkspace(cfg)
	require.NoError(t, err)
	return ws, cfg
}

func TestSaveAndRemoveUpload(t *testing.T) {
	ws, cfg := newWorkspace(t)

	path, err := ws.SaveUpload(strings.NewReader("name,phone\n"), ".CSV")
	require.NoError(t, err)
	assert.Equal(t, cfg.UploadDir, filepath.Dir(path))
	assert.Equal(t, ".csv", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name,phone\n", string(data))

	ws.RemoveUpload(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestResetOutputIsRunScoped(t *testing.T) {
	ws, _ := newWorkspace(t)
	runA, err := ws.NewRun()
	require.NoError(t, err)
	runB, err := ws.NewRun()
	require.NoError(t, err)

	dirA, err := ws.ResetOutput(runA)
	require.NoError(t, err)
	dirB, err := ws.ResetOutput(runB)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dirA, "PlanilhaUP_1.csv"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dirB, "PlanilhaUP_1.csv"), nil, 0o644))

	_, err = ws.ResetOutput(runA)
	require.NoError(t, err)

	namesA, err := ws.List(runA)
	require.NoError(t, err)
	assert.Empty(t, namesA)
	namesB, err := ws.List(runB)
	require.NoError(t, err)
	assert.Equal(t, []string{"PlanilhaUP_1.csv"}, namesB)
}

func TestListOrdersByChunkIndex(t *testing.T) {
	ws, _ := newWorkspace(t)
	run, err := ws.NewRun()
	require.NoError(t, err)
	dir, err := ws.ResetOutput(run)
	require.NoError(t, err)
	for _, n := range []string{"PlanilhaUP_10.xlsx", "PlanilhaUP_2.xlsx", "PlanilhaUP_1.xlsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), nil, 0o644))
	}

	names, err := ws.List(run)
	require.NoError(t, err)
	assert.Equal(t, []string{"PlanilhaUP_1.xlsx", "PlanilhaUP_2.xlsx", "PlanilhaUP_10.xlsx"}, names)
}

func TestListUnknownRun(t *testing.T) {
	ws, _ := newWorkspace(t)
	run, err := ws.NewRun()
	require.NoError(t, err)

	_, err = ws.List(run)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ws.List("not-a-run")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPathRejectsTraversal(t *testing.T) {
	ws, _ := newWorkspace(t)
	run, err := ws.NewRun()
	require.NoError(t, err)
	dir, err := ws.ResetOutput(run)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "PlanilhaUP_1.csv"), nil, 0o644))

	path, err := ws.Path(run, "PlanilhaUP_1.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "PlanilhaUP_1.csv"), path)

	for _, name := range []string{"", "../x", "..", ".hidden", "PlanilhaUP_2.csv"} {
		_, err := ws.Path(run, name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
	_, err = ws.Path("../../etc", "passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}
