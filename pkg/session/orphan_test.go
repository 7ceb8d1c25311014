package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaimana/seachat/pkg/engine"
	"github.com/kaimana/seachat/pkg/store"
)

func TestOrphanSweepRemovesUnknownDirectories(t *testing.T) {
	st := store.NewMemoryStore()
	staticDir := t.TempDir()
	factory := func(string) (engine.Engine, error) { return &fakeEngine{}, nil }
	registry := NewRegistry(factory, st, staticDir)
	ctx := context.Background()

	// Live session: keep
	_, err := registry.Resolve(ctx, "live")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(registry.UploadDir("live"), 0755))

	// Known to the store but not live here: keep (another process owns it)
	require.NoError(t, os.MkdirAll(filepath.Join(staticDir, "remote"), 0755))
	require.NoError(t, st.SetLastActive(ctx, "remote", time.Now()))

	// Neither live nor durable: crash leftover, remove
	require.NoError(t, os.MkdirAll(filepath.Join(staticDir, "leftover", "uploads"), 0755))

	sweeper := NewOrphanSweeper(registry, st, staticDir, "")
	require.NoError(t, sweeper.Sweep(ctx))

	_, err = os.Stat(filepath.Join(staticDir, "live"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(staticDir, "remote"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(staticDir, "leftover"))
	assert.True(t, os.IsNotExist(err))
}

func TestOrphanSweepMissingRootIsNoop(t *testing.T) {
	registry, st := newTestRegistry(t)
	sweeper := NewOrphanSweeper(registry, st, filepath.Join(t.TempDir(), "nope"), "")
	assert.NoError(t, sweeper.Sweep(context.Background()))
}

func TestOrphanSweeperStartStop(t *testing.T) {
	registry, st := newTestRegistry(t)
	sweeper := NewOrphanSweeper(registry, st, t.TempDir(), "@every 1h")

	require.NoError(t, sweeper.Start())
	assert.Error(t, sweeper.Start())
	sweeper.Stop()
	require.NoError(t, sweeper.Start())
	sweeper.Stop()
}

func TestOrphanSweeperBadSchedule(t *testing.T) {
	registry, st := newTestRegistry(t)
	sweeper := NewOrphanSweeper(registry, st, t.TempDir(), "not a schedule")
	assert.Error(t, sweeper.Start())
}
