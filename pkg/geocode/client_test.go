package geocode_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canchaya/canchaya/pkg/geocode"
	"github.com/canchaya/canchaya/pkg/storage"
)

type fakeGeocoder struct {
	server *httptest.Server
	calls  atomic.Int64
}

func newFakeGeocoder(t *testing.T, handler http.HandlerFunc) *fakeGeocoder {
	t.Helper()
	f := &fakeGeocoder{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

const obelisco = `[{"lat":"-34.6037","lon":"-58.3816","display_name":"Obelisco, Buenos Aires"}]`

type testEnv struct {
	client *geocode.Client
	cache  *geocode.Cache
	kv     storage.KV
	now    time.Time
}

func newEnv(t *testing.T, baseURL string) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	env := &testEnv{
		kv:  storage.NewMemory(),
		now: time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC),
	}
	env.cache = geocode.NewCache(env.kv, logger, geocode.WithClock(func() time.Time { return env.now }))
	env.client = geocode.NewClient(env.cache, geocode.Options{BaseURL: baseURL, UserAgent: "canchaya-test"}, logger)
	return env
}

func TestGeocode_RequestShape(t *testing.T) {
	var gotQuery, gotUA string
	fake := newFakeGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(obelisco))
	})
	env := newEnv(t, fake.server.URL)

	res := env.client.Geocode(context.Background(), "Av. 9 de Julio, Buenos Aires")
	require.NotNil(t, res)
	assert.InDelta(t, -34.6037, res.Latitude, 1e-9)
	assert.InDelta(t, -58.3816, res.Longitude, 1e-9)
	assert.Equal(t, "Obelisco, Buenos Aires", res.DisplayName)

	assert.Contains(t, gotQuery, "limit=1")
	assert.Contains(t, gotQuery, "q=Av.+9+de+Julio%2C+Buenos+Aires")
	assert.Equal(t, "canchaya-test", gotUA)
}

func TestGeocode_CacheHit(t *testing.T) {
	fake := newFakeGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(obelisco))
	})
	env := newEnv(t, fake.server.URL)
	ctx := context.Background()

	first := env.client.Geocode(ctx, "Obelisco")
	env.now = env.now.Add(29 * 24 * time.Hour)
	second := env.client.Geocode(ctx, "Obelisco")

	require.NotNil(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), fake.calls.Load())

	stats := env.client.Stats()
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.Lookups)
}

func TestGeocode_NotFoundIsCachedThenExpires(t *testing.T) {
	fake := newFakeGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[]`))
	})
	env := newEnv(t, fake.server.URL)
	ctx := context.Background()

	assert.Nil(t, env.client.Geocode(ctx, "Calle Falsa 123"))
	assert.Nil(t, env.client.Geocode(ctx, "Calle Falsa 123"))
	assert.Equal(t, int64(1), fake.calls.Load(), "cached not-found skips the network")

	env.now = env.now.Add(31 * 24 * time.Hour)
	assert.Nil(t, env.client.Geocode(ctx, "Calle Falsa 123"))
	assert.Equal(t, int64(2), fake.calls.Load(), "expired entry triggers a fresh lookup")
}

func TestCache_EvictsExpiredOnRead(t *testing.T) {
	env := newEnv(t, "http://unused.invalid")
	ctx := context.Background()

	require.NoError(t, env.cache.Set(ctx, "Obelisco", nil))
	assert.Equal(t, 1, env.cache.Len(ctx))

	env.now = env.now.Add(31 * 24 * time.Hour)
	_, ok := env.cache.Get(ctx, "Obelisco")
	assert.False(t, ok)
	assert.Equal(t, 0, env.cache.Len(ctx), "expired entry removed from the store")
}

func TestGeocode_ServerErrorNotCached(t *testing.T) {
	fake := newFakeGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	env := newEnv(t, fake.server.URL)
	ctx := context.Background()

	assert.Nil(t, env.client.Geocode(ctx, "Obelisco"))
	assert.Nil(t, env.client.Geocode(ctx, "Obelisco"))
	assert.Equal(t, int64(2), fake.calls.Load(), "failures are retried")
	assert.Equal(t, 0, env.cache.Len(ctx))
	assert.Equal(t, int64(2), env.client.Stats().Failures)
}

func TestGeocode_BadCoordinatesNotCached(t *testing.T) {
	fake := newFakeGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[{"lat":"north","lon":"-58.3816"}]`))
	})
	env := newEnv(t, fake.server.URL)
	ctx := context.Background()

	assert.Nil(t, env.client.Geocode(ctx, "Obelisco"))
	assert.Equal(t, 0, env.cache.Len(ctx))
}

func TestGeocode_EmptyAddress(t *testing.T) {
	fake := newFakeGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(obelisco))
	})
	env := newEnv(t, fake.server.URL)

	assert.Nil(t, env.client.Geocode(context.Background(), ""))
	assert.Nil(t, env.client.Geocode(context.Background(), "   \t"))
	assert.Equal(t, int64(0), fake.calls.Load())
}

func TestCache_CorruptDocumentReadsEmpty(t *testing.T) {
	env := newEnv(t, "http://unused.invalid")
	ctx := context.Background()

	require.NoError(t, env.kv.Set(ctx, storage.KeyGeocodeCache, []byte(`{not json`)))
	_, ok := env.cache.Get(ctx, "Obelisco")
	assert.False(t, ok)

	require.NoError(t, env.kv.Set(ctx, storage.KeyGeocodeCache, []byte(`{"version":99,"entries":{"Obelisco":{"result":null,"timestamp":"2024-05-01T12:00:00Z"}}}`)))
	_, ok = env.cache.Get(ctx, "Obelisco")
	assert.False(t, ok)

	require.NoError(t, env.cache.Set(ctx, "Obelisco", nil))
	_, ok = env.cache.Get(ctx, "Obelisco")
	assert.True(t, ok)
}

// flakyKV fails the next failReads Get calls.
type flakyKV struct {
	storage.KV
	failReads atomic.Int32
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failReads.Add(-1) >= 0 {
		return nil, errors.New("connection reset")
	}
	return f.KV.Get(ctx, key)
}

func TestCache_ReadFailureDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	kv := &flakyKV{KV: storage.NewMemory()}
	cache := geocode.NewCache(kv, logger)

	require.NoError(t, cache.Set(ctx, "a", nil))
	require.NoError(t, cache.Set(ctx, "b", nil))
	require.NoError(t, cache.Set(ctx, "c", nil))

	kv.failReads.Store(1)
	err := cache.Set(ctx, "d", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	assert.Equal(t, 3, cache.Len(ctx))
	_, ok := cache.Get(ctx, "a")
	assert.True(t, ok)

	kv.failReads.Store(1)
	_, ok = cache.Get(ctx, "a")
	assert.False(t, ok, "unreadable cache reports a miss")
	_, ok = cache.Get(ctx, "a")
	assert.True(t, ok)
}

func TestGeocodeBatch_DelaysBetweenLookups(t *testing.T) {
	fake := newFakeGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(obelisco))
	})
	env := newEnv(t, fake.server.URL)

	start := time.Now()
	results, err := env.client.GeocodeBatch(context.Background(), []string{"a", "b", "c"}, 30*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, int64(3), fake.calls.Load())
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestGeocodeBatch_CacheHitsDoNotWait(t *testing.T) {
	fake := newFakeGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(obelisco))
	})
	env := newEnv(t, fake.server.URL)
	ctx := context.Background()

	require.NotNil(t, env.client.Geocode(ctx, "a"))

	start := time.Now()
	results, err := env.client.GeocodeBatch(ctx, []string{"a", "", "b"}, time.Hour)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	require.Len(t, results, 3)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
	assert.NotNil(t, results[2])
	assert.Equal(t, int64(2), fake.calls.Load())
}

func TestGeocodeBatch_Cancel(t *testing.T) {
	fake := newFakeGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(obelisco))
	})
	env := newEnv(t, fake.server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	results, err := env.client.GeocodeBatch(ctx, []string{"x", "y", "z"}, time.Hour)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, results, 1)
	assert.Equal(t, int64(1), fake.calls.Load())
}
