package retention

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurovision/pkg/config"
	"neurovision/pkg/models"
	"neurovision/pkg/store"
	"neurovision/pkg/timeutil"
)

type fakePurger struct {
	cutoff time.Time
	dryRun bool
	res    store.PurgeResult
	err    error
}

func (f *fakePurger) PurgeBefore(cutoff time.Time, dryRun bool) (store.PurgeResult, error) {
	f.cutoff, f.dryRun = cutoff, dryRun
	return f.res, f.err
}

func retentionCfg(dryRun bool) config.RetentionConfig {
	return config.RetentionConfig{
		Enabled: true,
		Cron:    "0 2 * * *",
		Period:  config.Duration(24 * time.Hour),
		DryRun:  dryRun,
	}
}

func TestRunImmediate_ComputesCutoff(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	defer timeutil.SetClock(timeutil.Fixed(now))()

	p := &fakePurger{res: store.PurgeResult{Matched: 3, Deleted: 3}}
	m := New(retentionCfg(false), p, t.TempDir())

	res, err := m.RunImmediate(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), p.cutoff)
	assert.False(t, p.dryRun)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 3, res.Purged)
	assert.NotEmpty(t, res.RunID)

	last, ok := m.LastRun()
	require.True(t, ok)
	assert.Equal(t, res, last)
}

func TestRunImmediate_ConfiguredDryRunWins(t *testing.T) {
	p := &fakePurger{}
	m := New(retentionCfg(true), p, "")

	res, err := m.RunImmediate(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, p.dryRun)
	assert.True(t, res.DryRun)
}

func TestRunImmediate_PurgeError(t *testing.T) {
	p := &fakePurger{err: errors.New("boom")}
	m := New(retentionCfg(false), p, "")

	_, err := m.RunImmediate(context.Background(), false)
	assert.Error(t, err)
	_, ok := m.LastRun()
	assert.False(t, ok)
}

func TestRunImmediate_SkipsWhenLeaseHeld(t *testing.T) {
	dir := t.TempDir()
	held := newFileLease(dir)
	ok, err := held.Acquire("other", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	p := &fakePurger{}
	m := New(retentionCfg(false), p, dir)
	res, err := m.RunImmediate(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.True(t, p.cutoff.IsZero())

	require.NoError(t, held.Release("other"))
	res, err = m.RunImmediate(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
}

func TestFileLease(t *testing.T) {
	dir := t.TempDir()
	l := newFileLease(dir)
	assert.Equal(t, filepath.Join(dir, "retention.lock"), l.path)

	ok, err := l.Acquire("a", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire("b", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, l.Release("b"), errNotOwner)
	require.NoError(t, l.Release("a"))

	ok, err = l.Acquire("b", -time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.Acquire("c", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease is taken over")
}

func TestRunImmediate_AgainstArchive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	defer timeutil.SetClock(timeutil.Fixed(now))()

	s, err := store.Open("archive", store.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	defer s.Close()

	for _, age := range []time.Duration{48 * time.Hour, 36 * time.Hour, time.Hour} {
		_, err := s.SaveReport("sess", models.Report{RegionID: "thalamus", GeneratedAt: now.Add(-age)})
		require.NoError(t, err)
	}

	m := New(retentionCfg(false), s, t.TempDir())
	res, err := m.RunImmediate(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Purged)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStart_DisabledIsNoop(t *testing.T) {
	m := New(config.RetentionConfig{}, &fakePurger{}, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	_, ok := m.LastRun()
	assert.False(t, ok)
}
