package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buyvia/catalogsync/internal/catalog"
)

func newTestScheduler(t *testing.T, cat catalog.Catalog, localizeInterval time.Duration) *Scheduler {
	t.Helper()

	eng := newTestEngine(t, cat, nil)
	sched, err := NewScheduler(eng, cat, time.Hour, 24*time.Hour, localizeInterval, quietLogger())
	require.NoError(t, err)
	return sched
}

func TestNewScheduler_RegistersCronEntries(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, catalog.NewMemoryCatalog(), 12*time.Hour)
	assert.Len(t, sched.Entries(), 3)
}

func TestNewScheduler_LocalizationDisabled(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, catalog.NewMemoryCatalog(), 0)
	assert.Len(t, sched.Entries(), 2)
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	sched := newTestScheduler(t, catalog.NewMemoryCatalog(), 0)

	sched.Start()
	ctx := sched.Stop()
	<-ctx.Done()
}

func TestScheduler_RunPass_Success(t *testing.T) {
	t.Parallel()

	cat := catalog.NewMemoryCatalog()
	sched := newTestScheduler(t, cat, 0)

	called := false
	sched.runPass("test-pass", func(_ context.Context) (int, error) {
		called = true
		return 7, nil
	})
	assert.True(t, called)

	runs, err := cat.ListPassRuns(context.Background(), "test-pass", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "succeeded", runs[0].Status)
	assert.Empty(t, runs[0].ErrorText)
	require.NotNil(t, runs[0].RowsAffected)
	assert.Equal(t, 7, *runs[0].RowsAffected)
	require.NotNil(t, runs[0].CompletedAt)

	// The lock must be free again after the run.
	acquired, err := cat.AcquirePassLock(context.Background(), "test-pass", "someone-else", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestScheduler_RunPass_Failure(t *testing.T) {
	t.Parallel()

	cat := catalog.NewMemoryCatalog()
	sched := newTestScheduler(t, cat, 0)

	sched.runPass("fail-pass", func(_ context.Context) (int, error) {
		return 0, assert.AnError
	})

	runs, err := cat.ListPassRuns(context.Background(), "fail-pass", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
	assert.Equal(t, assert.AnError.Error(), runs[0].ErrorText)
}

func TestScheduler_RunPass_SkipsWhenLockedElsewhere(t *testing.T) {
	t.Parallel()

	cat := catalog.NewMemoryCatalog()
	sched := newTestScheduler(t, cat, 0)

	acquired, err := cat.AcquirePassLock(context.Background(), PassSync, "another-instance", time.Hour)
	require.NoError(t, err)
	require.True(t, acquired)

	called := false
	sched.runPass(PassSync, func(_ context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.False(t, called)

	runs, err := cat.ListPassRuns(context.Background(), PassSync, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	// The foreign lock must not be released by the skipped run.
	acquired, err = cat.AcquirePassLock(context.Background(), PassSync, "third-instance", time.Hour)
	require.NoError(t, err)
	assert.False(t, acquired)
}
