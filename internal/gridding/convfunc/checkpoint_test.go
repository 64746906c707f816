package convfunc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hetgrid/internal/gridding/antclass"
	"github.com/banshee-data/hetgrid/internal/gridding/beam"
	"github.com/banshee-data/hetgrid/internal/gridding/skycoord"
	"github.com/banshee-data/hetgrid/internal/timeutil"
)

// builtCache returns a cache with entries at two fingerprints.
func builtCache(t *testing.T) *Cache {
	t.Helper()
	c := newAiryCache(t)
	c.SetClock(timeutil.NewMockClock(time.Unix(1_700_000_000, 0)))
	b := testBatch("ms1", 25, 12)
	for _, p := range []skycoord.Direction{testCentre, offsetPointing(20, 44)} {
		_, err := c.AcquireReference(p, b)
		require.NoError(t, err)
	}
	return c
}

func TestCheckpoint_EncodeDecode(t *testing.T) {
	t.Parallel()
	c := builtCache(t)
	cp := c.Snapshot()
	require.Len(t, cp.Entries, 2)
	assert.Equal(t, []string{"25", "12"}, cp.ClassKeys)
	assert.Equal(t, int64(1_700_000_000)*int64(time.Second), cp.CreatedUnixNanos)

	blob, err := EncodeCheckpoint(cp)
	require.NoError(t, err)
	got, err := DecodeCheckpoint(blob)
	require.NoError(t, err)
	if diff := cmp.Diff(cp, got); diff != "" {
		t.Errorf("checkpoint changed in round trip (-want +got):\n%s", diff)
	}
}

func TestDecodeCheckpoint_Errors(t *testing.T) {
	t.Parallel()
	_, err := DecodeCheckpoint(nil)
	assert.Error(t, err)
	_, err = DecodeCheckpoint([]byte("not gzip"))
	assert.Error(t, err)
}

func TestRestore_ServesWithoutBuilding(t *testing.T) {
	t.Parallel()
	src := builtCache(t)
	cp := src.Snapshot()
	b := testBatch("ms1", 25, 12)

	dst := newAiryCache(t)
	var builds buildCounter
	dst.SetBuildHook(builds.hook)
	require.NoError(t, dst.Restore(cp, b))
	assert.Equal(t, 2, dst.Len())

	res, err := dst.AcquireReference(offsetPointing(20, 44), b)
	require.NoError(t, err)
	assert.Zero(t, builds.calls)
	assert.Equal(t, 1, dst.Stats().Hits)

	want, _ := src.Entry(Fingerprint{X: 20, Y: 44})
	if diff := cmp.Diff(want.ConvFunc.Data, res.ConvFunc.Data); diff != "" {
		t.Errorf("restored kernel differs (-want +got):\n%s", diff)
	}
	assert.Equal(t, want.Support, res.Support)
}

func TestRestore_Mismatch(t *testing.T) {
	t.Parallel()
	cp := builtCache(t).Snapshot()

	t.Run("classes", func(t *testing.T) {
		dst := newAiryCache(t)
		err := dst.Restore(cp, testBatch("ms1", 25, 12, 7))
		assert.True(t, errors.Is(err, ErrCheckpointMismatch), "got %v", err)
		assert.Zero(t, dst.Len())
	})

	t.Run("image", func(t *testing.T) {
		img := testImage()
		img.NX = 32
		dst := NewCache(img, antclass.NewResolver(beam.NewRegistry(beam.KindAiry), nil), testConfig())
		err := dst.Restore(cp, testBatch("ms1", 25, 12))
		assert.True(t, errors.Is(err, ErrCheckpointMismatch), "got %v", err)
	})

	t.Run("oversampling", func(t *testing.T) {
		cfg := testConfig()
		cfg.Oversampling = 2
		dst := NewCache(testImage(), antclass.NewResolver(beam.NewRegistry(beam.KindAiry), nil), cfg)
		err := dst.Restore(cp, testBatch("ms1", 25, 12))
		assert.True(t, errors.Is(err, ErrCheckpointMismatch), "got %v", err)
	})

	t.Run("duplicate fingerprint", func(t *testing.T) {
		dup := *cp
		dup.Entries = append([]EntrySnapshot{cp.Entries[0]}, cp.Entries...)
		err := newAiryCache(t).Restore(&dup, testBatch("ms1", 25, 12))
		assert.True(t, errors.Is(err, ErrCheckpointMismatch), "got %v", err)
	})

	t.Run("truncated arrays", func(t *testing.T) {
		bad := *cp
		bad.Entries = append([]EntrySnapshot(nil), cp.Entries...)
		bad.Entries[1].ConvWeight = bad.Entries[1].ConvWeight[:10]
		err := newAiryCache(t).Restore(&bad, testBatch("ms1", 25, 12))
		assert.True(t, errors.Is(err, ErrCheckpointMismatch), "got %v", err)
	})
}

func TestSnapshot_SkipsEntriesForOldClasses(t *testing.T) {
	t.Parallel()
	c := builtCache(t)
	// A new dataset adds a class and rebuilds only the centre.
	_, err := c.AcquireReference(testCentre, testBatch("ms2", 25, 12, 7))
	require.NoError(t, err)

	cp := c.Snapshot()
	require.Len(t, cp.Entries, 1)
	assert.Equal(t, 32, cp.Entries[0].X)
	assert.Equal(t, 6, cp.Entries[0].NPlane)
}

func TestPersistAndRestoreLatest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := &memStore{}
	src := builtCache(t)

	id, err := src.Persist(ctx, store, "run-a")
	require.NoError(t, err)
	assert.Equal(t, "cp-1", id)
	rec := store.recs[0]
	assert.Equal(t, "run-a", rec.RunID)
	assert.Equal(t, 2, rec.NEntries)
	assert.Equal(t, 2, rec.NClasses)
	assert.Equal(t, testSize, rec.ImageNX)
	assert.NotEmpty(t, rec.Blob)

	dst := newAiryCache(t)
	require.NoError(t, dst.RestoreLatest(ctx, store, "run-a", testBatch("ms1", 25, 12)))
	assert.Equal(t, 2, dst.Len())

	err = dst.RestoreLatest(ctx, store, "run-b", testBatch("ms1", 25, 12))
	assert.Error(t, err)
}
