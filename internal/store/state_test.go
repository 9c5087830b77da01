package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/threadwatch/internal/types"
)

func TestStateFile_CreatesOnFirstLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x-monitor", "1024EX.json")
	f := NewStateFile(path)

	st, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, st.Processed)
	assert.Nil(t, st.LastRunAt)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, map[string]any{}, doc["processed"])
	assert.Nil(t, doc["lastRunAt"])
}

func TestStateFile_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	f := NewStateFile(path)

	st, err := f.Load()
	require.NoError(t, err)

	now := time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC)
	st.Mark("1001", types.ProcessingRecord{
		ProcessedAt: now,
		CreatedAt:   "Wed Oct 15 08:00:00 +0000 2025",
		ReplyCount:  types.IntPtr(12),
		Fetched:     10,
		URL:         types.PostURL("1024EX", "1001"),
	})
	require.NoError(t, f.Save(st, now))

	again, err := f.Load()
	require.NoError(t, err)
	require.True(t, again.Has("1001"))
	assert.Equal(t, 10, again.Processed["1001"].Fetched)
	assert.Equal(t, 12, *again.Processed["1001"].ReplyCount)
	assert.Nil(t, again.Processed["1001"].Views)
	require.NotNil(t, again.LastRunAt)
	assert.True(t, again.LastRunAt.Equal(now))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lastRunAt": "2025-10-16T09:00:00Z"`)
	assert.Contains(t, string(raw), `"views": null`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestStateFile_CorruptIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewStateFile(path).Load()
	assert.ErrorContains(t, err, "failed to parse state file")
}

func TestStateFile_NullProcessed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"processed":null,"lastRunAt":null}`), 0644))

	st, err := NewStateFile(path).Load()
	require.NoError(t, err)
	assert.NotNil(t, st.Processed)
}

func TestStateFile_LoadsStringCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1024EX.json")
	legacy := `{
  "processed": {
    "1978000000000000001": {
      "processedAt": "2025-10-16T09:00:00.000Z",
      "createdAt": "Wed Oct 15 08:00:00 +0000 2025",
      "replyCount": 12,
      "fetched": 10,
      "url": "https://x.com/1024EX/status/1978000000000000001",
      "views": "12345",
      "quoteCount": null,
      "bookmarkCount": "n/a"
    }
  },
  "lastRunAt": "2025-10-16T09:00:00.000Z"
}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	st, err := NewStateFile(path).Load()
	require.NoError(t, err)
	rec, ok := st.Processed["1978000000000000001"]
	require.True(t, ok)
	require.NotNil(t, rec.Views)
	assert.Equal(t, 12345, *rec.Views)
	require.NotNil(t, rec.ReplyCount)
	assert.Equal(t, 12, *rec.ReplyCount)
	assert.Nil(t, rec.QuoteCount)
	assert.Nil(t, rec.BookmarkCount)
	assert.Equal(t, 10, rec.Fetched)
	assert.Equal(t, "https://x.com/1024EX/status/1978000000000000001", rec.URL)
	assert.True(t, rec.ProcessedAt.Equal(time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC)))

	require.NoError(t, NewStateFile(path).Put(st))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"views": 12345`)
}

func TestState_ForgetAndIDs(t *testing.T) {
	st := &State{}
	st.Mark("900", types.ProcessingRecord{})
	st.Mark("10000", types.ProcessingRecord{})
	st.Mark("95", types.ProcessingRecord{})

	assert.Equal(t, []string{"95", "900", "10000"}, st.IDs())
	assert.True(t, st.Forget("900"))
	assert.False(t, st.Forget("900"))
	assert.False(t, st.Has("900"))
}

func TestCompareIDs(t *testing.T) {
	assert.Equal(t, -1, CompareIDs("9", "10"))
	assert.Equal(t, 1, CompareIDs("1979000000000000001", "1979000000000000000"))
	assert.Equal(t, 0, CompareIDs("42", "42"))
	assert.Equal(t, -1, CompareIDs("abc", "abd"))
}

func TestStateFile_PutKeepsLastRunAt(t *testing.T) {
	f := NewStateFile(filepath.Join(t.TempDir(), "state.json"))
	st, err := f.Load()
	require.NoError(t, err)
	st.Mark("1", types.ProcessingRecord{})
	st.Mark("2", types.ProcessingRecord{})
	ran := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, f.Save(st, ran))

	require.True(t, st.Forget("1"))
	require.NoError(t, f.Put(st))

	got, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, got.IDs())
	require.NotNil(t, got.LastRunAt)
	assert.True(t, got.LastRunAt.Equal(ran))
}
