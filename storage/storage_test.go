package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func backends(t *testing.T) map[string]KV {
	t.Helper()
	ctx := context.Background()

	fileKV, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	sqliteKV, err := NewSQLiteKV(ctx, filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteKV.Close() })

	return map[string]KV{"file": fileKV, "sqlite": sqliteKV}
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var missing doc
			assert.ErrorIs(t, kv.Load(ctx, "tickets", &missing), ErrNotFound)

			require.NoError(t, kv.Save(ctx, "tickets", doc{Name: "first", Count: 1}))
			require.NoError(t, kv.Save(ctx, "tickets", doc{Name: "second", Count: 2}))

			var got doc
			require.NoError(t, kv.Load(ctx, "tickets", &got))
			assert.Equal(t, doc{Name: "second", Count: 2}, got)
		})
	}
}

func TestLoadReportsCorruptDocument(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Save(ctx, "tickets", []string{"not", "a", "doc"}))

			var got doc
			err := kv.Load(ctx, "tickets", &got)
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileKVSanitisesKeys(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	require.NoError(t, kv.Save(context.Background(), "../guilds/123", doc{Name: "x"}))
	assert.FileExists(t, filepath.Join(dir, "__guilds_123.json"))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "postgres"}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenDefaultsToFile(t *testing.T) {
	kv, err := Open(context.Background(), Config{File: FileConfig{Dir: t.TempDir()}}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &FileKV{}, kv)
}
