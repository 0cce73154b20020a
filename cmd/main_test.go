package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/obchart/config"
	"github.com/vadiminshakov/obchart/internal/services/firstuse"
	"github.com/vadiminshakov/obchart/internal/storage/flags"
	"go.uber.org/zap"
)

type closeCountingStore struct {
	*flags.MemoryStore
	closed int
}

func (s *closeCountingStore) Close() error {
	s.closed++
	return nil
}

func TestRun_ClosesStoreOnError(t *testing.T) {
	store := &closeCountingStore{MemoryStore: flags.NewMemoryStore()}
	orig := openStore
	openStore = func(config.Config) (flagStore, error) { return store, nil }
	t.Cleanup(func() { openStore = orig })

	cfg := config.Config{
		Addr: "127.0.0.1:0",
		Data: filepath.Join(t.TempDir(), "missing.json"),
	}
	err := run(cfg, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "load snapshots")
	require.Equal(t, 1, store.closed)

	_, used, err := store.Get(firstuse.CLIKey)
	require.NoError(t, err)
	require.True(t, used)
}

func TestRun_OpenStoreError(t *testing.T) {
	orig := openStore
	openStore = func(config.Config) (flagStore, error) { return nil, flags.ErrClosed }
	t.Cleanup(func() { openStore = orig })

	err := run(config.Config{}, zap.NewNop())
	require.ErrorIs(t, err, flags.ErrClosed)
	require.Contains(t, err.Error(), "open flag store")
}

func TestOpenFlagStore(t *testing.T) {
	store, err := openFlagStore(config.Config{Ephemeral: true})
	require.NoError(t, err)
	require.IsType(t, &flags.MemoryStore{}, store)
	require.NoError(t, store.Close())

	dir := t.TempDir()
	store, err = openFlagStore(config.Config{StateDir: dir})
	require.NoError(t, err)
	require.NoError(t, store.Set("k", "v"))
	require.NoError(t, store.Close())

	store, err = openFlagStore(config.Config{StateDir: dir})
	require.NoError(t, err)
	defer store.Close()
	v, ok, err := store.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}
