package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/pipeline"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndList(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.Insert(ctx, Summary{RunID: "a", Pipeline: "promo", Status: "completed", StartedAt: base, Duration: 2 * time.Second, TotalCost: 0.5, Steps: 3}))
	require.NoError(t, db.Insert(ctx, Summary{RunID: "b", Pipeline: "promo", Status: "failed", StartedAt: base.Add(time.Hour), TotalCost: 0.25, FailedStep: "animate", Error: "boom"}))
	require.NoError(t, db.Insert(ctx, Summary{RunID: "c", Pipeline: "teaser", Status: "cancelled", StartedAt: base.Add(2 * time.Hour)}))

	all, err := db.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].RunID, all[1].RunID, all[2].RunID})
	assert.Equal(t, "animate", all[1].FailedStep)
	assert.Equal(t, 2*time.Second, all[2].Duration)
	assert.True(t, all[2].StartedAt.Equal(base))

	recent, err := db.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "c", recent[0].RunID)
}

func TestInsertReplaces(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	require.NoError(t, db.Insert(ctx, Summary{RunID: "a", Pipeline: "p", Status: "failed", StartedAt: time.Now()}))
	require.NoError(t, db.Insert(ctx, Summary{RunID: "a", Pipeline: "p", Status: "completed", StartedAt: time.Now()}))

	all, err := db.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "completed", all[0].Status)
}

func TestTotals(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	empty, err := db.Totals(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Runs)

	now := time.Now()
	rows := []Summary{
		{RunID: "1", Pipeline: "promo", Status: "completed", StartedAt: now, TotalCost: 1.0, Duration: time.Second},
		{RunID: "2", Pipeline: "promo", Status: "failed", StartedAt: now, TotalCost: 0.5, Duration: time.Second},
		{RunID: "3", Pipeline: "teaser", Status: "cancelled", StartedAt: now, TotalCost: 0.25},
	}
	for _, r := range rows {
		require.NoError(t, db.Insert(ctx, r))
	}

	tot, err := db.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, tot.Runs)
	assert.Equal(t, 1, tot.Completed)
	assert.Equal(t, 1, tot.Failed)
	assert.Equal(t, 1, tot.Cancelled)
	assert.InDelta(t, 1.75, tot.Cost, 1e-9)
	assert.Equal(t, 2*time.Second, tot.Duration)

	per, err := db.ByPipeline(ctx)
	require.NoError(t, err)
	require.Len(t, per, 2)
	assert.Equal(t, "promo", per[0].Pipeline)
	assert.Equal(t, 2, per[0].Runs)
	assert.InDelta(t, 1.5, per[0].Cost, 1e-9)
}

func TestSummaryOf(t *testing.T) {
	res := &pipeline.RunResult{
		ID:         "r1",
		Pipeline:   "promo",
		TotalCost:  0.4,
		FailedStep: "animate",
		Err:        &pipeline.Error{Kind: pipeline.KindExecutorFailure, Step: "animate", Msg: "quota"},
		Steps:      []*pipeline.StepResult{{Name: "keyframe"}, {Name: "animate"}},
	}
	s := SummaryOf(res, "failed", "/tmp/run")
	assert.Equal(t, "r1", s.RunID)
	assert.Equal(t, 2, s.Steps)
	assert.Equal(t, `step "animate": quota`, s.Error)
	assert.Equal(t, "/tmp/run", s.Dir)
}
