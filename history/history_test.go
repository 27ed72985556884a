package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flow/history"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/orchestrate/workflows"
	"github.com/tailored-agentic-units/flow/schema"
)

func stores(t *testing.T) map[string]history.Store {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlite, err := history.NewSQLiteStore(db)
	require.NoError(t, err)

	return map[string]history.Store{
		"memory": history.NewMemoryStore(0),
		"sqlite": sqlite,
	}
}

func entry(runID, workflowID string, started time.Time) history.Entry {
	return history.Entry{
		RunID:      runID,
		WorkflowID: workflowID,
		Status:     history.StatusSucceeded,
		Started:    started,
		Duration:   15 * time.Millisecond,
		Steps: []history.StepRecord{
			{StepID: "assess", Duration: 5 * time.Millisecond},
		},
	}
}

func TestStore_SaveGet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			started := time.Unix(1700000000, 0)

			want := entry("run-1", "content", started)
			require.NoError(t, store.Save(ctx, want))

			got, err := store.Get(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, want.RunID, got.RunID)
			assert.Equal(t, want.WorkflowID, got.WorkflowID)
			assert.Equal(t, want.Status, got.Status)
			assert.True(t, want.Started.Equal(got.Started))
			assert.Equal(t, want.Duration, got.Duration)
			assert.Equal(t, want.Steps, got.Steps)

			_, err = store.Get(ctx, "missing")
			assert.ErrorIs(t, err, history.ErrRunNotFound)
		})
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := entry("run-1", "content", time.Unix(1700000000, 0))
			require.NoError(t, store.Save(ctx, e))

			e.Status = history.StatusFailed
			e.Error = "boom"
			require.NoError(t, store.Save(ctx, e))

			got, err := store.Get(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, history.StatusFailed, got.Status)
			assert.Equal(t, "boom", got.Error)

			all, err := store.List(ctx, history.Filter{})
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestStore_List(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Unix(1700000000, 0)

			require.NoError(t, store.Save(ctx, entry("r1", "content", base)))
			require.NoError(t, store.Save(ctx, entry("r2", "parallel", base.Add(time.Second))))
			require.NoError(t, store.Save(ctx, entry("r3", "content", base.Add(2*time.Second))))

			all, err := store.List(ctx, history.Filter{})
			require.NoError(t, err)
			assert.Equal(t, []string{"r3", "r2", "r1"}, runIDs(all))

			content, err := store.List(ctx, history.Filter{WorkflowID: "content"})
			require.NoError(t, err)
			assert.Equal(t, []string{"r3", "r1"}, runIDs(content))

			limited, err := store.List(ctx, history.Filter{Limit: 2})
			require.NoError(t, err)
			assert.Equal(t, []string{"r3", "r2"}, runIDs(limited))
		})
	}
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore(2)
	base := time.Unix(1700000000, 0)

	for i, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, store.Save(ctx, entry(id, "content", base.Add(time.Duration(i)*time.Second))))
	}

	all, err := store.List(ctx, history.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2"}, runIDs(all))

	_, err = store.Get(ctx, "r1")
	assert.ErrorIs(t, err, history.ErrRunNotFound)
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     history.Config
		wantNil bool
		wantErr error
	}{
		{name: "disabled", cfg: history.DefaultConfig(), wantNil: true},
		{name: "memory", cfg: history.Config{Driver: history.DriverMemory}},
		{name: "sqlite", cfg: history.Config{Driver: history.DriverSQLite, Path: filepath.Join(t.TempDir(), "h.db")}},
		{name: "unknown", cfg: history.Config{Driver: "postgres"}, wantNil: true, wantErr: history.ErrUnknownDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := history.NewStore(&tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, store)
				return
			}
			require.NotNil(t, store)
			assert.NoError(t, store.Close())
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := history.DefaultConfig()
	cfg.Merge(&history.Config{Driver: history.DriverSQLite, Path: "runs.db"})

	assert.Equal(t, history.DriverSQLite, cfg.Driver)
	assert.Equal(t, "runs.db", cfg.Path)
	assert.Equal(t, history.DefaultConfig().Limit, cfg.Limit)
}

func TestRecorder_RecordsRuns(t *testing.T) {
	store := history.NewMemoryStore(0)
	recorder := history.NewRecorder(store, nil)

	in := schema.Object(schema.Fields{"n": schema.Number()})
	double := workflows.NewStep("double", in, in,
		func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
			n, _ := schema.Get[float64](input, "n")
			return map[string]any{"n": n * 2}, nil
		},
	)
	boom := errors.New("boom")
	fail := workflows.NewStep("fail", in, in,
		func(ctx context.Context, input any, rc *workflows.RunContext) (any, error) {
			return nil, boom
		},
	)

	ok := workflows.New("ok", in, in, workflows.WithObserver(recorder)).Then(double)
	require.NoError(t, ok.Commit())
	bad := workflows.New("bad", in, in, workflows.WithObserver(observability.NoOpObserver{})).Then(double).Then(fail)
	require.NoError(t, bad.Commit())

	ctx := context.Background()
	result, err := ok.Run(ctx, map[string]any{"n": 2})
	require.NoError(t, err)

	_, runErr := bad.Run(ctx, map[string]any{"n": 2}, workflows.WithRunObserver(recorder))
	require.Error(t, runErr)

	assert.Zero(t, recorder.Pending())

	succeeded, err := store.Get(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, history.StatusSucceeded, succeeded.Status)
	assert.Equal(t, "ok", succeeded.WorkflowID)
	require.Len(t, succeeded.Steps, 1)
	assert.Equal(t, "double", succeeded.Steps[0].StepID)

	failed, err := store.List(ctx, history.Filter{WorkflowID: "bad"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, history.StatusFailed, failed[0].Status)
	assert.Equal(t, 1, failed[0].Stage)
	assert.Equal(t, "fail", failed[0].StepID)
	assert.Equal(t, string(workflows.FailureExecution), failed[0].ErrorKind)
	assert.Contains(t, failed[0].Error, "boom")
	require.Len(t, failed[0].Steps, 2)
	assert.Contains(t, failed[0].Steps[1].Error, "boom")
}

func TestRecorder_IgnoresEventsWithoutRun(t *testing.T) {
	store := history.NewMemoryStore(0)
	recorder := history.NewRecorder(store, nil)

	recorder.OnEvent(context.Background(), observability.Event{
		Type: workflows.EventWorkflowCommit,
		Data: map[string]any{observability.AttrWorkflowID: "w"},
	})
	recorder.OnEvent(context.Background(), observability.Event{
		Type: workflows.EventRunComplete,
		Data: map[string]any{observability.AttrRunID: "unknown"},
	})

	all, err := store.List(context.Background(), history.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func runIDs(entries []history.Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.RunID
	}
	return ids
}
