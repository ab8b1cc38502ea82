package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-labels/internal/config"
	"github.com/andresuchdata/autopo-labels/internal/domain"
	"github.com/andresuchdata/autopo-labels/internal/storage"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) GetObject(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeObjects) PutObject(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

// storeFactories builds a fresh, empty store per backend.
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"file": func() Store {
			return NewFileStore(filepath.Join(t.TempDir(), "nested", "processed_pos.log"))
		},
		"object": func() Store {
			return NewObjectStore(newFakeObjects(), "processed_pos.log")
		},
		"redis": func() Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewRedisStore(client, "ledger:processed_pos")
		},
	}
}

func TestLedgerBackends(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := New(factory())

			found, err := l.Contains(ctx, "UPD-PO100")
			require.NoError(t, err, "missing resource reads as empty")
			assert.False(t, found)

			require.NoError(t, l.Append(ctx, "UPD-PO100"))
			require.NoError(t, l.Append(ctx, "UPD-PO200"))
			require.NoError(t, l.Append(ctx, "UPD-PO100"))

			found, err = l.Contains(ctx, "UPD-PO100")
			require.NoError(t, err)
			assert.True(t, found)

			found, err = l.Contains(ctx, "UPD-PO10")
			require.NoError(t, err)
			assert.False(t, found, "prefix must not match")

			ids, err := l.IDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"UPD-PO100", "UPD-PO200"}, ids)
		})
	}
}

func TestFileStorePreservesExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_pos.log")
	require.NoError(t, os.WriteFile(path, []byte("OLD-2\r\nOLD-1\n"), 0o644))

	l := New(NewFileStore(path))
	ctx := context.Background()

	found, err := l.Contains(ctx, "OLD-2")
	require.NoError(t, err)
	assert.True(t, found, "CRLF lines still match")

	require.NoError(t, l.Append(ctx, "NEW-1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OLD-2\r\nOLD-1\nNEW-1\n", string(data))
}

func TestFileStoreAddsMissingTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_pos.log")
	require.NoError(t, os.WriteFile(path, []byte("OLD-1"), 0o644))

	l := New(NewFileStore(path))
	ctx := context.Background()
	require.NoError(t, l.Append(ctx, "NEW-1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OLD-1\nNEW-1\n", string(data))

	for _, id := range []string{"OLD-1", "NEW-1"} {
		found, err := l.Contains(ctx, id)
		require.NoError(t, err)
		assert.True(t, found, id)
	}
}

func TestObjectStoreAddsMissingTrailingNewline(t *testing.T) {
	objects := newFakeObjects()
	objects.objects["processed_pos.log"] = []byte("OLD-1")

	require.NoError(t, New(NewObjectStore(objects, "processed_pos.log")).Append(context.Background(), "NEW-1"))
	assert.Equal(t, "OLD-1\nNEW-1\n", string(objects.objects["processed_pos.log"]))
}

func TestLedgerUnavailable(t *testing.T) {
	objects := newFakeObjects()
	objects.getErr = errors.New("connection refused")
	l := New(NewObjectStore(objects, "processed_pos.log"))

	_, err := l.Contains(context.Background(), "UPD-PO100")
	require.ErrorIs(t, err, domain.ErrLedgerUnavailable)

	err = l.Append(context.Background(), "UPD-PO100")
	require.ErrorIs(t, err, domain.ErrLedgerUnavailable)

	objects.getErr = nil
	objects.putErr = errors.New("access denied")
	err = l.Append(context.Background(), "UPD-PO100")
	require.ErrorIs(t, err, domain.ErrLedgerUnavailable)
}

func TestFileStoreUnreadable(t *testing.T) {
	dir := t.TempDir()
	// a directory where the file should be cannot be read as a ledger
	l := New(NewFileStore(dir))

	_, err := l.Contains(context.Background(), "UPD-PO100")
	require.ErrorIs(t, err, domain.ErrLedgerUnavailable)
}

func TestAppendRejectsInvalidIDs(t *testing.T) {
	l := New(NewObjectStore(newFakeObjects(), "processed_pos.log"))
	for _, id := range []string{"", "  ", "A\nB"} {
		require.Error(t, l.Append(context.Background(), id))
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := &config.Config{Ledger: config.LedgerConfig{Backend: config.LedgerFile, FilePath: filepath.Join(t.TempDir(), "l.log")}}
	l, err := Open(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, l)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cfg = &config.Config{Ledger: config.LedgerConfig{Backend: config.LedgerRedis, RedisKey: "k"}}
	l, err = Open(cfg, client)
	require.NoError(t, err)
	require.NoError(t, l.Append(context.Background(), "UPD-PO100"))
	list, err := mr.List("k")
	require.NoError(t, err)
	assert.Equal(t, []string{"UPD-PO100"}, list)

	_, err = Open(&config.Config{Ledger: config.LedgerConfig{Backend: "tape"}}, nil)
	require.Error(t, err)
}
