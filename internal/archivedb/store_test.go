package archivedb

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archiver/internal/media"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// tick makes the store clock advance one second per call.
func tick(store *Store) {
	now := time.Date(2025, 1, 8, 2, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestStartedAndDone(t *testing.T) {
	store := openTestStore(t)
	tick(store)
	ctx := context.Background()

	rec, err := store.Started(ctx, "https://www.tiktok.com/@example/video/1234")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.NotEmpty(t, rec.ID)
	assert.Nil(t, rec.FinishedAt)

	md := media.NewMetadata(rec.URL)
	md.Set(media.KeyTitle, "Title")
	md.AddMedia(media.NewMedia("/tmp/123_video.mp4"))
	md.MarkSuccess()
	require.NoError(t, store.Done(ctx, rec.ID, md))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
	assert.Equal(t, "Title", got.Title)
	assert.Equal(t, 1, got.MediaCount)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.After(got.StartedAt))

	var decoded struct {
		URL   string `json:"url"`
		Media []struct {
			Filename string `json:"filename"`
		} `json:"media"`
	}
	require.NoError(t, json.Unmarshal(got.Metadata, &decoded))
	assert.Equal(t, rec.URL, decoded.URL)
	assert.Equal(t, "/tmp/123_video.mp4", decoded.Media[0].Filename)
}

func TestFailedAndAborted(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	failed, err := store.Started(ctx, "https://a.example")
	require.NoError(t, err)
	require.NoError(t, store.Failed(ctx, failed.ID, "tikwm: provider reported failure"))

	aborted, err := store.Started(ctx, "https://b.example")
	require.NoError(t, err)
	require.NoError(t, store.Aborted(ctx, aborted.ID))

	got, err := store.Get(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "tikwm: provider reported failure", got.Reason)
	assert.Nil(t, got.Metadata)

	got, err = store.Get(ctx, aborted.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAborted, got.Status)
}

func TestFinishedRecordsAreFinal(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec, err := store.Started(ctx, "https://a.example")
	require.NoError(t, err)
	require.NoError(t, store.Failed(ctx, rec.ID, "boom"))

	assert.ErrorIs(t, store.Aborted(ctx, rec.ID), ErrRecordFinished)
	assert.ErrorIs(t, store.Failed(ctx, "no-such-id", "boom"), ErrRecordNotFound)

	_, err = store.Get(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestList(t *testing.T) {
	store := openTestStore(t)
	tick(store)
	ctx := context.Background()

	var ids []string
	for _, url := range []string{"https://a.example", "https://b.example", "https://a.example"} {
		rec, err := store.Started(ctx, url)
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	require.NoError(t, store.Failed(ctx, ids[1], "nope"))

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")
	assert.Equal(t, ids[0], all[2].ID)

	failed, err := store.List(ctx, Filter{Status: StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, ids[1], failed[0].ID)

	byURL, err := store.List(ctx, Filter{URL: "https://a.example", Limit: 1})
	require.NoError(t, err)
	require.Len(t, byURL, 1)
	assert.Equal(t, ids[2], byURL[0].ID)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	ctx := context.Background()

	store, err := Open(ctx, path)
	require.NoError(t, err)
	rec, err := store.Started(ctx, "https://a.example")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.URL, got.URL)
}
