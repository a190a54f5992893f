// storage/local_test.go
package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BotCoder254/streamvibes/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocator(t *testing.T) {
	loc, err := Locator(KindVideo, "abc-123", ".MP4")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/videos/abc-123.mp4", loc)

	kind, name, err := ParseLocator(loc)
	require.NoError(t, err)
	assert.Equal(t, KindVideo, kind)
	assert.Equal(t, "abc-123.mp4", name)

	_, err = Locator(KindThumbnail, "../etc", "jpg")
	assert.ErrorIs(t, err, models.ErrValidation)

	for _, bad := range []string{"/uploads/other/a.mp4", "/elsewhere/videos/a.mp4", "/uploads/videos/../x.mp4", "/uploads/videos/noext"} {
		_, _, err := ParseLocator(bad)
		assert.Error(t, err, bad)
	}
}

func TestLocalStoreStageCommit(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	tmp, n, err := store.Stage(ctx, strings.NewReader("video-bytes"), "mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	loc, err := store.Commit(ctx, tmp, KindVideo, "vid1", "mp4")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/videos/vid1.mp4", loc)
	assert.NoFileExists(t, tmp)

	ok, err := store.Exists(ctx, loc)
	require.NoError(t, err)
	assert.True(t, ok)

	// Same ID commits over the previous asset.
	tmp2, _, err := store.Stage(ctx, strings.NewReader("v2"), "mp4")
	require.NoError(t, err)
	loc2, err := store.Commit(ctx, tmp2, KindVideo, "vid1", "mp4")
	require.NoError(t, err)
	assert.Equal(t, loc, loc2)
	p, err := store.Path(loc)
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	require.NoError(t, store.Remove(ctx, loc))
	require.NoError(t, store.Remove(ctx, loc))
	ok, err = store.Exists(ctx, loc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStoreRejectsEmptyAndForeignFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	empty, err := store.TempFile("jpg")
	require.NoError(t, err)
	_, err = store.Commit(ctx, empty, KindThumbnail, "vid1", "jpg")
	assert.ErrorIs(t, err, models.ErrProcessing)

	outside := filepath.Join(root, "outside.mp4")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	_, err = store.Commit(ctx, outside, KindVideo, "vid1", "mp4")
	assert.ErrorIs(t, err, models.ErrStorage)

	// Discard never touches files outside the temp area.
	store.Discard(outside)
	assert.FileExists(t, outside)
	store.Discard(empty)
	assert.NoFileExists(t, empty)
}

func TestLocalStoreSweepTemp(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	old, _, err := store.Stage(context.Background(), strings.NewReader("old"), "mp4")
	require.NoError(t, err)
	fresh, _, err := store.Stage(context.Background(), strings.NewReader("fresh"), "mp4")
	require.NoError(t, err)
	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	removed, err := store.SweepTemp(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}

func TestStageStopsOnCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = store.Stage(ctx, strings.NewReader("data"), "mp4")
	assert.ErrorIs(t, err, models.ErrStorage)

	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
