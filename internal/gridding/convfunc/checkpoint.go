package convfunc

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"slices"

	"github.com/banshee-data/hetgrid/internal/gridding/planes"
	"github.com/banshee-data/hetgrid/internal/gridding/vis"
	"github.com/banshee-data/hetgrid/internal/monitoring"
	"github.com/banshee-data/hetgrid/internal/version"
)

// ErrCheckpointMismatch is returned by Restore when a checkpoint does not
// fit the cache or the dataset it is restored against.
var ErrCheckpointMismatch = errors.New("checkpoint does not match current configuration")

// EntrySnapshot is the serialised form of one built entry.
type EntrySnapshot struct {
	X, Y       int
	Size       int
	NPol       int
	NChan      int
	NPlane     int
	Support    []int
	BeamFreqs  []float64
	ConvFunc   []complex128
	ConvWeight []complex128
}

// Checkpoint is the restartable state of a Cache.
type Checkpoint struct {
	AppVersion       string
	CreatedUnixNanos int64
	NX, NY           int
	Oversampling     int
	ClassKeys        []string
	Entries          []EntrySnapshot
}

// CheckpointRecord is a stored checkpoint and its metadata.
type CheckpointRecord struct {
	CheckpointID     string
	RunID            string
	CreatedUnixNanos int64
	ImageNX, ImageNY int
	Oversampling     int
	NEntries         int
	NClasses         int
	AppVersion       string
	Blob             []byte
}

// CheckpointStore persists checkpoint records. Implemented by
// storage/sqlite.CheckpointStore.
type CheckpointStore interface {
	InsertCheckpoint(ctx context.Context, rec *CheckpointRecord) (string, error)
	LatestCheckpoint(ctx context.Context, runID string) (*CheckpointRecord, error)
}

// EncodeCheckpoint serialises cp with gob and gzip.
func EncodeCheckpoint(cp *Checkpoint) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(cp); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCheckpoint reverses EncodeCheckpoint.
func DecodeCheckpoint(blob []byte) (*Checkpoint, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty checkpoint blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var cp Checkpoint
	if err := gob.NewDecoder(gz).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

// Snapshot captures every ready entry built for the current antenna
// classes. Other entries are left out and will be rebuilt after a restore.
func (c *Cache) Snapshot() *Checkpoint {
	cp := &Checkpoint{
		AppVersion:       version.String(),
		CreatedUnixNanos: c.clock.Now().UnixNano(),
		NX:               c.image.NX,
		NY:               c.image.NY,
		Oversampling:     c.cfg.Oversampling,
	}
	if last := c.resolver.Last(); last != nil {
		cp.ClassKeys = last.Keys()
	}
	for _, e := range c.entries {
		if e.State != StateReady || !slices.Equal(e.ClassKeys, cp.ClassKeys) {
			continue
		}
		cp.Entries = append(cp.Entries, EntrySnapshot{
			X:          e.Fingerprint.X,
			Y:          e.Fingerprint.Y,
			Size:       e.ConvFunc.Size,
			NPol:       e.ConvFunc.NPol,
			NChan:      e.ConvFunc.NChan,
			NPlane:     e.ConvFunc.NPlane,
			Support:    append([]int(nil), e.Support...),
			BeamFreqs:  append([]float64(nil), e.BeamFreqs...),
			ConvFunc:   append([]complex128(nil), e.ConvFunc.Data...),
			ConvWeight: append([]complex128(nil), e.ConvWeight.Data...),
		})
	}
	return cp
}

// Restore replaces the cache contents with cp. The antenna classes are
// re-resolved for the dataset of b; the checkpoint must have been taken
// with the same classes, image shape and oversampling.
func (c *Cache) Restore(cp *Checkpoint, b *vis.Batch) error {
	if cp.NX != c.image.NX || cp.NY != c.image.NY {
		return fmt.Errorf("%w: image %dx%d, checkpoint %dx%d", ErrCheckpointMismatch, c.image.NX, c.image.NY, cp.NX, cp.NY)
	}
	if cp.Oversampling != c.cfg.Oversampling {
		return fmt.Errorf("%w: oversampling %d, checkpoint %d", ErrCheckpointMismatch, c.cfg.Oversampling, cp.Oversampling)
	}
	classes, _, err := c.resolver.Resolve(b.DatasetID, b.Antennas)
	if err != nil {
		return fmt.Errorf("resolve antenna classes: %w", err)
	}
	if !slices.Equal(classes.Keys(), cp.ClassKeys) {
		return fmt.Errorf("%w: antenna classes %v, checkpoint %v", ErrCheckpointMismatch, classes.Keys(), cp.ClassKeys)
	}
	want := planes.Count(classes.NumClasses())

	slotOf := make([]int, c.image.NX*c.image.NY)
	for i := range slotOf {
		slotOf[i] = -1
	}
	entries := make([]*Entry, 0, len(cp.Entries))
	for i, es := range cp.Entries {
		fp := Fingerprint{X: es.X, Y: es.Y}
		if !c.image.Contains(fp.X, fp.Y) {
			return fmt.Errorf("%w: entry %d fingerprint %v outside image", ErrCheckpointMismatch, i, fp)
		}
		if es.NPlane != want || len(es.Support) != es.NPlane {
			return fmt.Errorf("%w: entry %v has %d planes, classes need %d", ErrCheckpointMismatch, fp, es.NPlane, want)
		}
		n := kernelLen(es.Size, es.NPol, es.NChan, es.NPlane)
		if len(es.ConvFunc) != n || len(es.ConvWeight) != n || len(es.BeamFreqs) != es.NChan {
			return fmt.Errorf("%w: entry %v arrays do not match shape", ErrCheckpointMismatch, fp)
		}
		if slotOf[fp.Y*c.image.NX+fp.X] >= 0 {
			return fmt.Errorf("%w: duplicate fingerprint %v", ErrCheckpointMismatch, fp)
		}

		e := &Entry{Fingerprint: fp}
		e.allocate(es.Size, es.NPol, es.NChan, es.NPlane)
		copy(e.ConvFunc.Data, es.ConvFunc)
		copy(e.ConvWeight.Data, es.ConvWeight)
		e.Support = append([]int(nil), es.Support...)
		e.BeamFreqs = append([]float64(nil), es.BeamFreqs...)
		e.ClassKeys = append([]string(nil), cp.ClassKeys...)
		e.State = StateReady

		slotOf[fp.Y*c.image.NX+fp.X] = len(entries)
		entries = append(entries, e)
	}

	c.slotOf = slotOf
	c.entries = entries
	monitoring.Logf("[ConvFuncCache] restored %d entries (classes=%v, written by %s)", len(entries), cp.ClassKeys, cp.AppVersion)
	return nil
}

// Persist snapshots the cache and writes it to store under runID.
func (c *Cache) Persist(ctx context.Context, store CheckpointStore, runID string) (string, error) {
	cp := c.Snapshot()
	blob, err := EncodeCheckpoint(cp)
	if err != nil {
		return "", fmt.Errorf("encode checkpoint: %w", err)
	}
	rec := &CheckpointRecord{
		RunID:            runID,
		CreatedUnixNanos: cp.CreatedUnixNanos,
		ImageNX:          cp.NX,
		ImageNY:          cp.NY,
		Oversampling:     cp.Oversampling,
		NEntries:         len(cp.Entries),
		NClasses:         len(cp.ClassKeys),
		AppVersion:       cp.AppVersion,
		Blob:             blob,
	}
	id, err := store.InsertCheckpoint(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("insert checkpoint: %w", err)
	}
	monitoring.Logf("[ConvFuncCache] persisted checkpoint %s run=%s entries=%d bytes=%d", id, runID, rec.NEntries, len(blob))
	return id, nil
}

// RestoreLatest loads the newest checkpoint of runID from store and
// restores it against the dataset of b.
func (c *Cache) RestoreLatest(ctx context.Context, store CheckpointStore, runID string, b *vis.Batch) error {
	rec, err := store.LatestCheckpoint(ctx, runID)
	if err != nil {
		return fmt.Errorf("load checkpoint for run %s: %w", runID, err)
	}
	cp, err := DecodeCheckpoint(rec.Blob)
	if err != nil {
		return err
	}
	return c.Restore(cp, b)
}
