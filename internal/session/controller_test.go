package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/field"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/numbering"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/ridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCRS = "EPSG:32654"

// threeRowPoints builds 12 points in three ridges along +X at y = 0, 10,
// and 20, four plants per ridge spaced 2 m apart.
func threeRowPoints() *field.PointSet {
	ps := &field.PointSet{CRS: testCRS}
	id := int64(0)
	for _, y := range []float64{0, 10, 20} {
		for i := range 4 {
			ps.Records = append(ps.Records, field.PointRecord{
				ID:  id,
				Pos: geom.Point{X: float64(i) * 2, Y: y},
			})
			id++
		}
	}
	return ps
}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	c, err := New(nil, DefaultConfig())
	require.NoError(t, err)
	return c
}

func TestControllerRoundTrip(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.LoadPoints(threeRowPoints()))
	require.NoError(t, c.UseManualDirection(geom.Point{}, geom.Point{X: 1}))

	snap, err := c.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Peaks, 3)
	require.Len(t, snap.Intervals, 3)
	assert.Equal(t, 12, snap.Stats.TotalPoints)
	assert.Equal(t, 12, snap.Stats.InlierPoints)
	assert.Zero(t, snap.Numbering.Conflicts)

	// Ridge ranks follow perpendicular order, plants follow x.
	for i, r := range snap.Numbering.Records {
		want := fmt.Sprintf("R%d-P%d", i/4, i%4)
		assert.Equal(t, want, r.Label)
	}
	require.NoError(t, c.ReadyForSave())
}

func TestControllerRequiresDirection(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.LoadPoints(threeRowPoints()))
	_, err := c.Snapshot()
	assert.ErrorIs(t, err, ErrNoDirection)
	assert.ErrorIs(t, c.ReadyForSave(), ErrNoDirection)
}

func TestControllerRequiresPoints(t *testing.T) {
	c := newTestController(t)
	_, err := c.Snapshot()
	assert.ErrorIs(t, err, field.ErrNoPoints)
	assert.ErrorIs(t, c.LoadPoints(&field.PointSet{CRS: testCRS}), field.ErrNoPoints)
}

func TestControllerBoundaryExcludesStrays(t *testing.T) {
	pts := threeRowPoints()
	// Two strays far outside the field.
	pts.Records = append(pts.Records,
		field.PointRecord{ID: 12, Pos: geom.Point{X: 500, Y: 500}},
		field.PointRecord{ID: 13, Pos: geom.Point{X: -500, Y: -500}},
	)

	c := newTestController(t)
	require.NoError(t, c.LoadPoints(pts))
	require.NoError(t, c.SetBoundary(&field.Boundary{
		CRS: testCRS,
		Polygon: geom.Polygon{
			{X: -1, Y: -1}, {X: 7, Y: -1}, {X: 7, Y: 21}, {X: -1, Y: 21},
		},
	}))
	require.NoError(t, c.UseManualDirection(geom.Point{}, geom.Point{X: 1}))

	snap, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 14, snap.Stats.TotalPoints)
	assert.Equal(t, 12, snap.Stats.EffectivePoints)
	assert.Equal(t, 2, snap.Stats.IgnoredPoints)
	require.Len(t, snap.Peaks, 3, "strays must not seed ridges")

	// The strays stay unlabeled.
	for _, r := range snap.Numbering.Records {
		if r.PointID >= 12 {
			assert.Equal(t, numbering.Unranked, r.RidgeRank)
			assert.Empty(t, r.Label)
		}
	}

	// Dropping the boundary pulls the strays back in.
	c.ClearBoundary()
	snap, err = c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 14, snap.Stats.EffectivePoints)
}

func TestControllerBoundaryDirection(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.LoadPoints(threeRowPoints()))

	// Longest rectangle edge runs along Y, so the primary axis is
	// vertical and ridges are detected across it.
	require.NoError(t, c.SetBoundary(&field.Boundary{
		CRS: testCRS,
		Polygon: geom.Polygon{
			{X: -1, Y: -1}, {X: 7, Y: -1}, {X: 7, Y: 21}, {X: -1, Y: 21},
		},
	}))
	require.NoError(t, c.UseBoundaryDirection(ridge.SourceBoundaryPrimary))
	dir, ok := c.Direction()
	require.True(t, ok)
	assert.InDelta(t, 0, dir.Vector.X, 1e-9)

	// Clearing the boundary invalidates a boundary-derived direction.
	c.ClearBoundary()
	_, ok = c.Direction()
	assert.False(t, ok)
	_, err := c.Snapshot()
	assert.ErrorIs(t, err, ErrNoDirection)
}

func TestControllerManualDirectionSurvivesBoundaryClear(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.LoadPoints(threeRowPoints()))
	require.NoError(t, c.UseManualDirection(geom.Point{}, geom.Point{X: 1}))
	c.ClearBoundary()
	_, ok := c.Direction()
	assert.True(t, ok)
}

func TestControllerCRSMismatch(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.LoadPoints(threeRowPoints()))
	err := c.SetBoundary(&field.Boundary{
		CRS:     "EPSG:4326",
		Polygon: geom.Polygon{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}},
	})
	assert.ErrorIs(t, err, field.ErrCRSMismatch)
}

func TestControllerEditInvalidatesRanks(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.LoadPoints(threeRowPoints()))
	require.NoError(t, c.UseManualDirection(geom.Point{}, geom.Point{X: 1}))

	before, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "R0-P2", before.Numbering.Records[2].Label)

	// Deleting a mid-row plant re-densifies the ranks behind it.
	require.NoError(t, c.DeletePoint(1))
	after, err := c.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 11, after.Points.Len())
	assert.Equal(t, "R0-P1", after.Numbering.Records[1].Label, "point 2 moves up a rank")

	// Undo restores the original numbering.
	require.NoError(t, c.Undo())
	restored, err := c.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 12, restored.Points.Len())
	assert.Equal(t, "R0-P2", restored.Numbering.Records[2].Label)
	assert.Equal(t, int64(1), restored.Points.Records[1].ID, "undo restores the record in place")
}

func TestControllerAddMoveUndoRedo(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.LoadPoints(threeRowPoints()))

	id, err := c.AddPoint(geom.Point{X: 8, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	require.NoError(t, c.MovePoint(id, geom.Point{X: 10, Y: 0}))
	undo, redo := c.HistoryDepths()
	assert.Equal(t, 2, undo)
	assert.Zero(t, redo)

	require.NoError(t, c.Undo()) // move
	pts, err := c.Points()
	require.NoError(t, err)
	assert.Equal(t, geom.Point{X: 8, Y: 0}, pts.Records[pts.IndexOf(id)].Pos)

	require.NoError(t, c.Redo())
	pts, _ = c.Points()
	assert.Equal(t, geom.Point{X: 10, Y: 0}, pts.Records[pts.IndexOf(id)].Pos)

	require.NoError(t, c.Undo()) // move
	require.NoError(t, c.Undo()) // add
	pts, _ = c.Points()
	assert.Equal(t, 12, pts.Len())
	assert.ErrorIs(t, c.Undo(), ErrNothingToUndo)

	// A fresh edit clears the redo branch.
	require.NoError(t, c.Redo()) // add back
	_, err = c.AddPoint(geom.Point{X: 20, Y: 20})
	require.NoError(t, err)
	_, redo = c.HistoryDepths()
	assert.Zero(t, redo)
	assert.ErrorIs(t, c.Redo(), ErrNothingToRedo)

	assert.ErrorIs(t, c.MovePoint(999, geom.Point{}), ErrUnknownPoint)
}

func TestControllerConflictBlocksSave(t *testing.T) {
	// Twelve single-plant ridges 1 m apart, except ridge 1 carries 12
	// plants and ridge 11 carries 2. With bare numeric components and no
	// separator, ridge 1 plant 11 and ridge 11 plant 1 both render "111".
	ps := &field.PointSet{CRS: testCRS}
	id := int64(0)
	for row := range 12 {
		n := 1
		switch row {
		case 1:
			n = 12
		case 11:
			n = 2
		}
		for i := range n {
			ps.Records = append(ps.Records, field.PointRecord{
				ID:  id,
				Pos: geom.Point{X: float64(i), Y: float64(row)},
			})
			id++
		}
	}

	cfg := DefaultConfig()
	cfg.Density.MinHeight = 1
	cfg.Numbering = numbering.Config{
		Mode:  numbering.ModeRidgePlant,
		Ridge: numbering.Component{Style: numbering.StyleNumeric},
		Plant: numbering.Component{Style: numbering.StyleNumeric},
	}
	c, err := New(nil, cfg)
	require.NoError(t, err)
	require.NoError(t, c.LoadPoints(ps))
	require.NoError(t, c.UseManualDirection(geom.Point{}, geom.Point{X: 1}))

	assert.True(t, c.HasBlockingConflicts())
	err = c.ReadyForSave()
	require.ErrorIs(t, err, ErrConflicts)
	assert.Contains(t, err.Error(), "111")

	// Switching to an unambiguous scheme unblocks the save.
	require.NoError(t, c.SetNumberingConfig(numbering.DefaultConfig()))
	assert.False(t, c.HasBlockingConflicts())
	require.NoError(t, c.ReadyForSave())
}

func TestControllerSnapshotIsolation(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.LoadPoints(threeRowPoints()))
	require.NoError(t, c.UseManualDirection(geom.Point{}, geom.Point{X: 1}))

	snap, err := c.Snapshot()
	require.NoError(t, err)
	again, err := c.Snapshot()
	require.NoError(t, err)
	assert.Same(t, snap, again, "clean session reuses the cached snapshot")

	// Scribbling on a snapshot copy must not reach controller state.
	snap.Points.Records[0].Pos = geom.Point{X: 999, Y: 999}
	pts, err := c.Points()
	require.NoError(t, err)
	assert.Equal(t, geom.Point{}, pts.Records[0].Pos,
		"published snapshots must not alias controller state")
}

func TestControllerConfigValidation(t *testing.T) {
	bad := DefaultConfig()
	bad.Density.BinWidth = 0
	_, err := New(nil, bad)
	assert.ErrorIs(t, err, ridge.ErrInvalidParameter)

	c := newTestController(t)
	assert.ErrorIs(t, c.SetDensityConfig(ridge.DensityConfig{BinWidth: -1}), ridge.ErrInvalidParameter)
	assert.ErrorIs(t, c.SetNumberingConfig(numbering.Config{Mode: "bogus"}), numbering.ErrInvalidConfig)
}

func TestControllerDebouncedRefresh(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DebounceMS = 60_000 // far longer than the test; flushed explicitly
	c, err := New(nil, cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.LoadPoints(threeRowPoints()))
	require.NoError(t, c.UseManualDirection(geom.Point{}, geom.Point{X: 1}))

	// A burst of edits arms one deferred recompute and leaves the cache
	// stale until it fires.
	for i := range 5 {
		_, err := c.AddPoint(geom.Point{X: float64(i), Y: 30})
		require.NoError(t, err)
	}
	c.mu.Lock()
	stale := c.dirty
	c.mu.Unlock()
	assert.True(t, stale, "edits must invalidate the cache")

	c.FlushPending()

	c.mu.Lock()
	warmed := c.snap
	clean := !c.dirty
	c.mu.Unlock()
	require.NotNil(t, warmed, "flush must have recomputed")
	assert.True(t, clean)
	assert.Equal(t, 17, warmed.Stats.TotalPoints)

	// The next read is served from the warmed cache.
	snap, err := c.Snapshot()
	require.NoError(t, err)
	assert.Same(t, warmed, snap)
}

func TestControllerDebounceFiresOnItsOwn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DebounceMS = 5
	c, err := New(nil, cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.LoadPoints(threeRowPoints()))
	require.NoError(t, c.UseManualDirection(geom.Point{}, geom.Point{X: 1}))
	_, err = c.AddPoint(geom.Point{X: 8, Y: 0})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return !c.dirty && c.snap != nil
	}, time.Second, 5*time.Millisecond, "deferred recompute should fire after the quiet interval")
}

func TestControllerDebounceDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DebounceMS = 0
	c, err := New(nil, cfg)
	require.NoError(t, err)

	require.NoError(t, c.LoadPoints(threeRowPoints()))
	require.NoError(t, c.UseManualDirection(geom.Point{}, geom.Point{X: 1}))
	c.FlushPending() // no-op without a debouncer

	snap, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 12, snap.Stats.TotalPoints)
}
