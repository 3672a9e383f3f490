package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canchaya/canchaya/pkg/storage"
)

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// exerciseKV runs the behaviour every backend must share.
func exerciseKV(t *testing.T, kv storage.KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, kv.Set(ctx, storage.KeyAlerts, []byte(`[{"id":"a"}]`)))
	got, err := kv.Get(ctx, storage.KeyAlerts)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(got))

	// Overwrite
	require.NoError(t, kv.Set(ctx, storage.KeyAlerts, []byte(`[]`)))
	got, err = kv.Get(ctx, storage.KeyAlerts)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, kv.Delete(ctx, storage.KeyAlerts))
	_, err = kv.Get(ctx, storage.KeyAlerts)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting twice is fine
	assert.NoError(t, kv.Delete(ctx, storage.KeyAlerts))
}

func TestSQLite_KV(t *testing.T) {
	exerciseKV(t, newTestDB(t))
}

func TestMemory_KV(t *testing.T) {
	exerciseKV(t, storage.NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	m := storage.NewMemory()
	ctx := context.Background()

	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestRedis_KV(t *testing.T) {
	addr := os.Getenv("CYA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CYA_TEST_REDIS_ADDR not set")
	}
	r, err := storage.NewRedis(context.Background(), addr, "", 0, "canchaya-test")
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	exerciseKV(t, r)
}

func TestSQLite_Keys(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, "b", []byte("2")))
	require.NoError(t, db.Set(ctx, "a", []byte("1")))

	keys, err := db.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	db1, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, db1.Set(ctx, storage.KeyGeocodeCache, []byte(`{"version":1}`)))
	db1.Close()

	db2, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.Get(ctx, storage.KeyGeocodeCache)
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(got))
}

func TestSQLite_MigrationIdempotency(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	// Open and close twice to verify migration idempotency
	db1, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	db1.Close()

	db2, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	db2.Close()
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	kv, err := storage.Open(ctx, storage.Options{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &storage.Memory{}, kv)

	kv, err = storage.Open(ctx, storage.Options{Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &storage.SQLite{}, kv)
	kv.Close()

	_, err = storage.Open(ctx, storage.Options{Driver: "etcd"})
	assert.ErrorContains(t, err, "unknown storage driver")
}
