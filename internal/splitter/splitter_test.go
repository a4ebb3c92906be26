package splitter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contact-splitter/internal/config"
	"contact-splitter/internal/db"
	"contact-splitter/internal/metrics"
	"contact-splitter/internal/models"
	"contact-splitter/internal/storage"
)

type fakeRecorder struct {
	runs []*db.Run
	err  error
}

func (f *fakeRecorder) RecordRun(_ context.Context, run *db.Run) error {
	f.runs = append(f.runs, run)
	return f.err
}

type fixture struct {
	splitter  *Splitter
	workspace *storage.Workspace
	recorder  *fakeRecorder
	metrics   *metrics.Metrics
	root      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Storage = config.StorageConfig{
		UploadDir:    filepath.Join(root, "uploads"),
		ProcessedDir: filepath.Join(root, "processed"),
	}
	ws, err := storage.NewWorkspace(cfg.Storage)
	require.NoError(t, err)
	rec := &fakeRecorder{}
	m := metrics.New()
	return &fixture{
		splitter:  NewSplitter(cfg, ws, rec, m),
		workspace: ws,
		recorder:  rec,
		metrics:   m,
		root:      root,
	}
}

func (f *fixture) upload(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(f.root, "uploads", "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func (f *fixture) newRun(t *testing.T) string {
	t.Helper()
	id, err := f.workspace.NewRun()
	require.NoError(t, err)
	return id
}

const contacts = "name,phone\nAna,5511999998888\nBia,11999998888\nCaio,5511888887777\nDani,5511777776666\nAna2,5511888887777\n"

func TestSplitWritesChunks(t *testing.T) {
	f := newFixture(t)
	run := f.newRun(t)

	res, err := f.splitter.Split(context.Background(), Request{
		RunID:         run,
		FilePath:      f.upload(t, contacts),
		SourceName:    "contatos.csv",
		ContactColumn: " phone ",
		Numbers:       []string{"11999998888"},
		MaxRows:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"PlanilhaUP_1.csv", "PlanilhaUP_2.csv"}, res.Files)
	assert.Equal(t, 5, res.RowsIn)
	assert.Equal(t, 2, res.RowsOut)

	path, err := f.workspace.Path(run, "PlanilhaUP_2.csv")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name,phone\nDani,5511777776666\n", string(data))

	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, "phone", f.recorder.runs[0].ContactColumn)
	assert.Equal(t, 2, f.recorder.runs[0].ChunkCount)
	assertRunSeries(t, f, 1)
}

func assertRunSeries(t *testing.T, f *fixture, want int) {
	t.Helper()
	n, err := testutil.GatherAndCount(f.metrics.Registry(), "contact_splitter_runs_total")
	require.NoError(t, err)
	assert.Equal(t, want, n)
}

func TestSplitFailureKeepsPreviousOutput(t *testing.T) {
	f := newFixture(t)
	run := f.newRun(t)
	input := f.upload(t, contacts)

	_, err := f.splitter.Split(context.Background(), Request{RunID: run, FilePath: input, ContactColumn: "phone", MaxRows: 10})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  Request
	}{
		{name: "missing column", req: Request{RunID: run, FilePath: input, ContactColumn: "telefone", MaxRows: 10}},
		{name: "bad max rows", req: Request{RunID: run, FilePath: input, ContactColumn: "phone", MaxRows: 0}},
		{name: "unreadable file", req: Request{RunID: run, FilePath: filepath.Join(f.root, "gone.xlsx"), ContactColumn: "phone", MaxRows: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.splitter.Split(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, models.IsValidationError(err))

			names, err := f.workspace.List(run)
			require.NoError(t, err)
			assert.Equal(t, []string{"PlanilhaUP_1.csv"}, names)
		})
	}
	assertRunSeries(t, f, 2)
	assert.Len(t, f.recorder.runs, 1)
}

func TestSplitMissingColumnNamesIt(t *testing.T) {
	f := newFixture(t)
	_, err := f.splitter.Split(context.Background(), Request{
		RunID: f.newRun(t), FilePath: f.upload(t, contacts), ContactColumn: "celular", MaxRows: 5,
	})
	require.Error(t, err)
	assert.Equal(t, `contact column "celular" not found`, models.UserMessage(err))
}

func TestSplitRerunReplacesOutputs(t *testing.T) {
	f := newFixture(t)
	run := f.newRun(t)
	input := f.upload(t, contacts)

	_, err := f.splitter.Split(context.Background(), Request{RunID: run, FilePath: input, ContactColumn: "phone", MaxRows: 1})
	require.NoError(t, err)
	res, err := f.splitter.Split(context.Background(), Request{RunID: run, FilePath: input, ContactColumn: "phone", MaxRows: 10})
	require.NoError(t, err)

	names, err := f.workspace.List(run)
	require.NoError(t, err)
	assert.Equal(t, res.Files, names)
	assert.Equal(t, []string{"PlanilhaUP_1.csv"}, names)
}

func TestSplitRecorderFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.recorder.err = errors.New("db down")

	res, err := f.splitter.Split(context.Background(), Request{
		RunID: f.newRun(t), FilePath: f.upload(t, contacts), ContactColumn: "phone", MaxRows: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.RowsOut)
}

func TestSplitWithoutRecorderOrMetrics(t *testing.T) {
	f := newFixture(t)
	s := NewSplitter(config.Default(), f.workspace, nil, nil)

	res, err := s.Split(context.Background(), Request{
		RunID: f.newRun(t), FilePath: f.upload(t, "phone\n"), ContactColumn: "phone", MaxRows: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
}
