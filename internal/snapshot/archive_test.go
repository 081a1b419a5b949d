package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/syncmeta/internal/errs"
	"github.com/koustreak/syncmeta/internal/filestore"
)

// memStore is an in-memory filestore.Store.
type memStore struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{buckets: map[string]map[string][]byte{}}
}

func (m *memStore) Ping(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) EnsureBucket(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buckets[bucket] == nil {
		m.buckets[bucket] = map[string][]byte{}
	}
	return nil
}

func (m *memStore) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, ct string) (*filestore.ObjectInfo, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucket][key] = data
	return &filestore.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: ct, LastModified: time.Now()}, nil
}

type memObject struct {
	io.Reader
	info *filestore.ObjectInfo
}

func (o *memObject) Close() error                { return nil }
func (o *memObject) Info() *filestore.ObjectInfo { return o.info }

func (m *memStore) GetObject(_ context.Context, bucket, key string) (filestore.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.buckets[bucket][key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key")
	}
	return &memObject{Reader: bytes.NewReader(data), info: &filestore.ObjectInfo{Key: key, Size: int64(len(data))}}, nil
}

func (m *memStore) StatObject(_ context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.buckets[bucket][key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key")
	}
	return &filestore.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memStore) ListObjects(_ context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []filestore.ObjectInfo
	for k, v := range m.buckets[bucket] {
		if strings.HasPrefix(k, opts.Prefix) {
			out = append(out, filestore.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func sampleSnapshot(clock int64) *Snapshot {
	return &Snapshot{
		Version: FormatVersion,
		Driver:  "sqlite",
		Clock:   clock,
		TakenAt: time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC),
		Tables: []Table{{
			Name:       "orders",
			Key:        "orders",
			Columns:    []Column{{Name: "id", Ordinal: 1, DataType: "INTEGER"}},
			PrimaryKey: []KeyColumn{{Constraint: "pk_orders", Column: "id", Position: 1}},
		}},
	}
}

func TestArchive_SaveLoad(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(newMemStore(), "meta", "syncmeta/")

	snap := sampleSnapshot(20261017083000123)
	info, err := archive.Save(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, "syncmeta/sqlite/20261017083000123.json", info.Key)
	assert.Equal(t, "application/json", info.ContentType)

	got, err := archive.Load(ctx, info.Key)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestArchive_LatestPicksHighestClock(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(newMemStore(), "meta", "syncmeta/")

	for _, clock := range []int64{20261017083000123, 20261017090000000, 20261016120000999} {
		_, err := archive.Save(ctx, sampleSnapshot(clock))
		require.NoError(t, err)
	}

	objs, err := archive.List(ctx, "sqlite")
	require.NoError(t, err)
	assert.Len(t, objs, 3)

	latest, err := archive.Latest(ctx, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(20261017090000000), latest.Clock)
}

func TestArchive_LatestEmpty(t *testing.T) {
	archive := NewArchive(newMemStore(), "meta", "syncmeta/")

	_, err := archive.Latest(context.Background(), "postgres")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestArchive_LoadMissingKeepsKind(t *testing.T) {
	store := newMemStore()
	archive := NewArchive(store, "meta", "syncmeta/")
	require.NoError(t, store.EnsureBucket(context.Background(), "meta"))

	_, err := archive.Load(context.Background(), "syncmeta/sqlite/1.json")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))

	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, opLoad, e.Op)
	assert.Equal(t, "syncmeta/sqlite/1.json", e.Object)
}

func TestArchive_LoadRejectsUnknownVersion(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	archive := NewArchive(store, "meta", "syncmeta/")
	require.NoError(t, store.EnsureBucket(ctx, "meta"))

	doc := `{"version": 99, "driver": "sqlite", "clock": 1}`
	_, err := store.PutObject(ctx, "meta", "syncmeta/sqlite/x.json", strings.NewReader(doc), int64(len(doc)), "application/json")
	require.NoError(t, err)

	_, err = archive.Load(ctx, "syncmeta/sqlite/x.json")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestArchive_SaveFailures(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	archive := NewArchive(store, "meta", "syncmeta/")

	_, err := archive.Save(ctx, &Snapshot{Driver: "sqlite"})
	assert.True(t, errs.IsInvalidInput(err))

	store.putErr = errs.New(errs.ErrKindPermissionDenied, "access denied")
	_, err = archive.Save(ctx, sampleSnapshot(20261017083000123))
	require.Error(t, err)
	assert.True(t, errs.IsPermissionDenied(err))
}
