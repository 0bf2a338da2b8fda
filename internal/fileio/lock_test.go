package fileio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastLock() LockOptions {
	return LockOptions{Attempts: 3, RetryDelay: 5 * time.Millisecond}
}

func TestOpenExclusiveConflictTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	held, err := Open(ctx, path, os.O_RDWR|os.O_CREATE, 0600, Exclusive, fastLock())
	require.NoError(t, err)
	defer held.Close()

	_, err = Open(ctx, path, os.O_RDWR, 0600, Exclusive, fastLock())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLockTimeout))

	var lockErr *LockTimeoutError
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, path, lockErr.Path)
	assert.Equal(t, 3, lockErr.Attempts)
}

func TestOpenSharedExcludesExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	r1, err := Open(ctx, path, os.O_RDONLY|os.O_CREATE, 0600, Shared, fastLock())
	require.NoError(t, err)
	defer r1.Close()

	r2, err := Open(ctx, path, os.O_RDONLY, 0600, Shared, fastLock())
	require.NoError(t, err, "two shared locks should coexist")
	defer r2.Close()

	_, err = Open(ctx, path, os.O_RDWR, 0600, Exclusive, fastLock())
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestOpenSucceedsOnceReleased(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	ctx := context.Background()

	held, err := Open(ctx, path, os.O_RDWR|os.O_CREATE, 0600, Exclusive, fastLock())
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		held.Close()
	}()

	f, err := Open(ctx, path, os.O_RDWR, 0600, Exclusive, LockOptions{Attempts: 50, RetryDelay: 5 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestOpenHonoursCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")

	held, err := Open(context.Background(), path, os.O_RDWR|os.O_CREATE, 0600, Exclusive, fastLock())
	require.NoError(t, err)
	defer held.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Open(ctx, path, os.O_RDWR, 0600, Exclusive, LockOptions{Attempts: 100, RetryDelay: time.Second})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenMissingFileIsNotRetried(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")

	start := time.Now()
	_, err := Open(context.Background(), path, os.O_RDWR, 0600, Exclusive, LockOptions{Attempts: 10, RetryDelay: 100 * time.Millisecond})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestReplaceRequiresExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0600))

	f, err := Open(context.Background(), path, os.O_RDONLY, 0600, Shared, fastLock())
	require.NoError(t, err)
	defer f.Close()

	assert.Error(t, f.Replace([]byte("y\n")))
}
