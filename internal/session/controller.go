// Package session owns the interactive ridge-ordering workflow: one
// Controller per loaded field holds the points, boundary, direction, and
// stage parameters, and recomputes the density/assignment/numbering
// pipeline whenever any of them change. Consumers read immutable
// snapshots; the controller never hands out internal state.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/field"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/numbering"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/ridge"
	"github.com/google/uuid"
)

// ErrNoDirection is returned when the pipeline runs before a ridge
// direction has been resolved.
var ErrNoDirection = errors.New("no ridge direction resolved")

// ErrNoRidges is returned when a save is attempted with zero detected
// ridges.
var ErrNoRidges = errors.New("no ridges detected")

// ErrConflicts is returned when duplicate labels block a save.
var ErrConflicts = errors.New("label conflicts block saving")

// Config bundles all stage parameters of one session.
type Config struct {
	Density   ridge.DensityConfig `mapstructure:"density" yaml:"density" json:"density"`
	Assign    ridge.AssignConfig  `mapstructure:"assign" yaml:"assign" json:"assign"`
	Numbering numbering.Config    `mapstructure:"numbering" yaml:"numbering" json:"numbering"`
	// HistoryLimit bounds the undo stack.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit" json:"history_limit"`
	// DebounceMS is the quiet interval before a deferred recompute
	// refreshes the snapshot cache after a burst of edits or parameter
	// changes. Zero disables the background refresh; Snapshot() still
	// recomputes on demand.
	DebounceMS int `mapstructure:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"`
}

// DefaultConfig returns per-stage defaults.
func DefaultConfig() Config {
	return Config{
		Density:      ridge.DefaultDensityConfig(),
		Assign:       ridge.DefaultAssignConfig(),
		Numbering:    numbering.DefaultConfig(),
		HistoryLimit: 100,
		DebounceMS:   150,
	}
}

// Validate checks all stage parameters.
func (c Config) Validate() error {
	if err := c.Density.Validate(); err != nil {
		return err
	}
	if err := c.Assign.Validate(); err != nil {
		return err
	}
	if c.DebounceMS < 0 {
		return fmt.Errorf("debounce interval must be >= 0 ms, got %d", c.DebounceMS)
	}
	return c.Numbering.Validate()
}

// Snapshot is one immutable result of a full pipeline pass. Slices are
// indexed in point-record order and are never mutated after publication.
type Snapshot struct {
	SessionID   uuid.UUID
	ComputedAt  time.Time
	Points      *field.PointSet
	Direction   ridge.Direction
	Along       []float64
	Perp        []float64
	Profile     ridge.Profile
	Peaks       []ridge.Peak
	Intervals   []ridge.Interval
	Lines       []ridge.Line
	Assignments []ridge.Assignment
	Stats       ridge.Stats
	Numbering   numbering.ResultSet
}

// Controller is the stateful coordinator for one editing session. All
// methods are safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	id     uuid.UUID
	logger *slog.Logger
	cfg    Config

	points    *field.PointSet
	boundary  *field.Boundary
	direction *ridge.Direction

	hist    *history
	snap    *Snapshot
	dirty   bool
	refresh *Debouncer
}

// New creates an empty session with the given stage parameters.
func New(logger *slog.Logger, cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		id:     uuid.New(),
		logger: logger,
		cfg:    cfg,
		hist:   newHistory(cfg.HistoryLimit),
		dirty:  true,
	}
	if cfg.DebounceMS > 0 {
		c.refresh = NewDebouncer(time.Duration(cfg.DebounceMS)*time.Millisecond, c.warmSnapshot)
	}
	return c, nil
}

// warmSnapshot refreshes the cache after the debounce quiet interval so
// the next read does not pay for the burst that preceded it.
func (c *Controller) warmSnapshot() {
	if _, err := c.Snapshot(); err != nil {
		c.logger.Debug("deferred recompute skipped", "error", err)
	}
}

// FlushPending runs any debounced recompute immediately.
func (c *Controller) FlushPending() {
	if c.refresh != nil {
		c.refresh.Flush()
	}
}

// Close cancels any pending deferred recompute.
func (c *Controller) Close() {
	if c.refresh != nil {
		c.refresh.Stop()
	}
}

// ID returns the session identifier.
func (c *Controller) ID() uuid.UUID { return c.id }

// LoadPoints replaces the session's point set. IDs are normalized, edit
// history is discarded, and boundary membership is refreshed.
func (c *Controller) LoadPoints(ps *field.PointSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ps == nil || ps.Len() == 0 {
		return field.ErrNoPoints
	}
	if c.boundary != nil {
		if err := field.EnsureSameCRS(ps.CRS, c.boundary.CRS); err != nil {
			return err
		}
	}
	next := ps.Clone()
	if err := next.Normalize(); err != nil {
		return err
	}
	if err := next.RefreshBoundaryFlags(c.boundary); err != nil {
		return err
	}
	c.points = next
	c.hist.reset()
	c.markDirtyLocked()
	c.logger.Info("points loaded", "session", c.id, "count", next.Len(), "crs", next.CRS)
	return nil
}

// SetBoundary replaces the field boundary and refreshes point membership.
// A boundary-derived direction is re-resolved against the new geometry.
func (c *Controller) SetBoundary(b *field.Boundary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := b.Validate(); err != nil {
		return err
	}
	if c.points != nil {
		if err := field.EnsureSameCRS(c.points.CRS, b.CRS); err != nil {
			return err
		}
	}
	c.boundary = b
	if c.points != nil {
		if err := c.points.RefreshBoundaryFlags(b); err != nil {
			return err
		}
	}
	if c.direction != nil && c.direction.Source.BoundaryDerived() {
		dir, err := ridge.ResolveFromBoundary(b, c.direction.Source)
		if err != nil {
			c.direction = nil
			c.logger.Warn("boundary direction invalidated", "session", c.id, "error", err)
		} else {
			c.direction = &dir
		}
	}
	c.markDirtyLocked()
	c.logger.Info("boundary set", "session", c.id, "crs", b.CRS)
	return nil
}

// ClearBoundary removes the boundary. Every point becomes effective
// again, and a boundary-derived direction is dropped since its source
// geometry is gone.
func (c *Controller) ClearBoundary() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boundary = nil
	if c.points != nil {
		_ = c.points.RefreshBoundaryFlags(nil)
	}
	if c.direction != nil && c.direction.Source.BoundaryDerived() {
		c.direction = nil
	}
	c.markDirtyLocked()
}

// UseBoundaryDirection resolves the ridge direction from the boundary's
// minimum rotated rectangle.
func (c *Controller) UseBoundaryDirection(src ridge.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dir, err := ridge.ResolveFromBoundary(c.boundary, src)
	if err != nil {
		return err
	}
	c.direction = &dir
	c.markDirtyLocked()
	c.logger.Info("direction resolved", "session", c.id, "source", dir.Source,
		"rotation_deg", dir.RotationDeg)
	return nil
}

// UseManualDirection resolves the ridge direction from two drawn points,
// p0 toward p1.
func (c *Controller) UseManualDirection(p0, p1 geom.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dir, err := ridge.ResolveManual(p0, p1)
	if err != nil {
		return err
	}
	c.direction = &dir
	c.markDirtyLocked()
	c.logger.Info("direction resolved", "session", c.id, "source", dir.Source,
		"rotation_deg", dir.RotationDeg)
	return nil
}

// Direction returns the resolved direction, or false when none is set.
func (c *Controller) Direction() (ridge.Direction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.direction == nil {
		return ridge.Direction{}, false
	}
	return *c.direction, true
}

// SetDensityConfig applies new density parameters. The value is stored
// immediately; results refresh on the next snapshot pull.
func (c *Controller) SetDensityConfig(cfg ridge.DensityConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Density = cfg
	c.markDirtyLocked()
	return nil
}

// SetAssignConfig applies new assignment parameters.
func (c *Controller) SetAssignConfig(cfg ridge.AssignConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Assign = cfg
	c.markDirtyLocked()
	return nil
}

// SetNumberingConfig applies a new labeling scheme.
func (c *Controller) SetNumberingConfig(cfg numbering.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Numbering = cfg
	c.markDirtyLocked()
	return nil
}

// ConfigSnapshot returns the current stage parameters.
func (c *Controller) ConfigSnapshot() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// AddPoint appends a new point with a fresh ID and returns it. The edit
// is undoable.
func (c *Controller) AddPoint(pos geom.Point) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.points == nil {
		return 0, field.ErrNoPoints
	}
	cmd := &addCommand{id: c.points.NextID(), pos: pos}
	if err := c.applyLocked(cmd); err != nil {
		return 0, err
	}
	return cmd.id, nil
}

// MovePoint changes a point's position. The edit is undoable.
func (c *Controller) MovePoint(id int64, pos geom.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.points == nil {
		return field.ErrNoPoints
	}
	idx := c.points.IndexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownPoint, id)
	}
	cmd := &moveCommand{id: id, from: c.points.Records[idx].Pos, to: pos}
	return c.applyLocked(cmd)
}

// DeletePoint removes a point. The edit is undoable; undo restores the
// record at its original index with its original ID.
func (c *Controller) DeletePoint(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.points == nil {
		return field.ErrNoPoints
	}
	return c.applyLocked(&deleteCommand{id: id})
}

func (c *Controller) applyLocked(cmd command) error {
	if err := cmd.apply(c.points); err != nil {
		return err
	}
	if err := c.points.RefreshBoundaryFlags(c.boundary); err != nil {
		return err
	}
	c.hist.push(cmd)
	c.markDirtyLocked()
	c.logger.Debug("edit applied", "session", c.id, "edit", cmd.describe())
	return nil
}

// Undo reverts the most recent point edit.
func (c *Controller) Undo() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd, ok := c.hist.popUndo()
	if !ok {
		return ErrNothingToUndo
	}
	if err := cmd.revert(c.points); err != nil {
		return err
	}
	if err := c.points.RefreshBoundaryFlags(c.boundary); err != nil {
		return err
	}
	c.markDirtyLocked()
	c.logger.Debug("edit undone", "session", c.id, "edit", cmd.describe())
	return nil
}

// Redo reapplies the most recently undone point edit.
func (c *Controller) Redo() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cmd, ok := c.hist.popRedo()
	if !ok {
		return ErrNothingToRedo
	}
	if err := cmd.apply(c.points); err != nil {
		return err
	}
	if err := c.points.RefreshBoundaryFlags(c.boundary); err != nil {
		return err
	}
	c.markDirtyLocked()
	return nil
}

// HistoryDepths reports undo/redo stack sizes for UI enablement.
func (c *Controller) HistoryDepths() (undo, redo int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hist.depths()
}

// Points returns a copy of the current point set.
func (c *Controller) Points() (*field.PointSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.points == nil {
		return nil, field.ErrNoPoints
	}
	return c.points.Clone(), nil
}

// Snapshot returns the current pipeline result, recomputing first if any
// input changed since the last pull. Validity is pull-based: edits only
// mark the session dirty, and the expensive pass runs here.
func (c *Controller) Snapshot() (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty {
		snap, err := c.recomputeLocked()
		if err != nil {
			return nil, err
		}
		c.snap = snap
		c.dirty = false
	}
	return c.snap, nil
}

// HasBlockingConflicts reports whether the current result contains
// duplicate labels.
func (c *Controller) HasBlockingConflicts() bool {
	snap, err := c.Snapshot()
	return err == nil && snap.Numbering.Conflicts > 0
}

// ReadyForSave gates exporting: a direction must be resolved, at least
// one ridge detected, and no label conflicts outstanding.
func (c *Controller) ReadyForSave() error {
	snap, err := c.Snapshot()
	if err != nil {
		return err
	}
	if len(snap.Intervals) == 0 {
		return ErrNoRidges
	}
	if snap.Numbering.Conflicts > 0 {
		return fmt.Errorf("%w: %s", ErrConflicts, snap.Numbering.Describe())
	}
	return nil
}

// markDirtyLocked invalidates the cache and arms the deferred refresh.
// The debouncer only arms a timer here; the recompute itself runs outside
// the controller lock.
func (c *Controller) markDirtyLocked() {
	c.dirty = true
	if c.refresh != nil {
		c.refresh.Trigger()
	}
}

// recomputeLocked runs the full pipeline: project, bin, detect, band,
// assign, refine, number.
func (c *Controller) recomputeLocked() (*Snapshot, error) {
	if c.points == nil || c.points.Len() == 0 {
		return nil, field.ErrNoPoints
	}
	if c.direction == nil {
		return nil, ErrNoDirection
	}
	start := time.Now()
	pts := c.points.Positions()
	dir := *c.direction

	along, perp, err := geom.ProjectAxes(pts, dir.Vector)
	if err != nil {
		return nil, err
	}
	effective := c.points.EffectiveMask()

	// Only in-boundary points shape the histogram; strays outside the
	// field must not seed phantom ridges.
	effPerp := make([]float64, 0, len(perp))
	for i, e := range effective {
		if e {
			effPerp = append(effPerp, perp[i])
		}
	}
	profile, err := ridge.BuildProfileFromProjections(effPerp, c.cfg.Density.BinWidth)
	if err != nil {
		return nil, err
	}
	minSpacing := ridge.SpacingToBins(c.cfg.Density.MinSpacing, c.cfg.Density.BinWidth)
	peaks := ridge.DetectPeaks(profile, minSpacing, c.cfg.Density.MinHeight)

	intervals, err := ridge.BuildIntervals(ridge.PeakCenters(peaks), c.cfg.Assign.Buffer, c.cfg.Assign.EdgePolicy)
	if err != nil {
		return nil, err
	}
	assignments, err := ridge.AssignToRidges(c.points.IDs(), perp, effective, intervals)
	if err != nil {
		return nil, err
	}
	if err := ridge.RefineInliers(assignments, along, perp, c.cfg.Assign.Ransac); err != nil {
		return nil, err
	}
	lines, err := ridge.BuildRidgeLines(peaks, pts, dir.Vector)
	if err != nil {
		return nil, err
	}

	inputs := make([]numbering.PointInput, len(assignments))
	for i, a := range assignments {
		inputs[i] = numbering.PointInput{
			ID:       a.PointID,
			RidgeID:  a.RidgeID,
			IsInlier: a.IsInlier,
			Along:    along[i],
			Perp:     perp[i],
		}
	}
	numbers, err := numbering.Compute(intervals, inputs, c.cfg.Numbering)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		SessionID:   c.id,
		ComputedAt:  time.Now(),
		Points:      c.points.Clone(),
		Direction:   dir,
		Along:       along,
		Perp:        perp,
		Profile:     profile,
		Peaks:       peaks,
		Intervals:   intervals,
		Lines:       lines,
		Assignments: assignments,
		Stats:       ridge.BuildStats(assignments, effective, len(intervals)),
		Numbering:   numbers,
	}
	c.logger.Debug("pipeline recomputed", "session", c.id,
		"points", c.points.Len(), "ridges", len(intervals),
		"conflicts", numbers.Conflicts, "took", time.Since(start))
	return snap, nil
}
