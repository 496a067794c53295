package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/field"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/numbering"
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/ridge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInputs() (*field.PointSet, []ridge.Assignment, numbering.ResultSet) {
	ps := &field.PointSet{
		CRS: "EPSG:32654",
		Records: []field.PointRecord{
			{ID: 0, Pos: geom.Point{X: 0, Y: 0}, InBoundary: true},
			{ID: 1, Pos: geom.Point{X: 2, Y: 0}, InBoundary: true},
			{ID: 2, Pos: geom.Point{X: 500, Y: 500}, InBoundary: false},
			{ID: 3, Pos: geom.Point{X: 4, Y: 7}, InBoundary: true},
		},
	}
	asn := []ridge.Assignment{
		{PointID: 0, RidgeID: 0, IsInlier: true},
		{PointID: 1, RidgeID: 0, IsInlier: true},
		{PointID: 2, RidgeID: ridge.Unassigned},
		{PointID: 3, RidgeID: ridge.Unassigned},
	}
	nums := numbering.ResultSet{Records: []numbering.Record{
		{PointID: 0, RidgeRank: 0, PlantRank: 0, Label: "R0-P0"},
		{PointID: 1, RidgeRank: 0, PlantRank: 1, Label: "R0-P1"},
		{PointID: 2, RidgeRank: numbering.Unranked, PlantRank: numbering.Unranked},
		{PointID: 3, RidgeRank: numbering.Unranked, PlantRank: numbering.Unranked},
	}}
	return ps, asn, nums
}

func TestBuildRecords(t *testing.T) {
	ps, asn, nums := sampleInputs()
	recs, err := BuildRecords(ps, asn, nums)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "R0-P0", recs[0].NewID)
	assert.Equal(t, int64(2), recs[2].OriginalID)
	assert.Empty(t, recs[2].NewID, "unlabeled points keep an empty new id")
	assert.False(t, recs[2].IsInlier)

	// Both unassigned, yet a boundary stray and an in-field miss stay
	// distinguishable in the export.
	assert.False(t, recs[2].InBoundary)
	assert.True(t, recs[3].InBoundary)
	assert.Equal(t, recs[2].RidgeID, recs[3].RidgeID)
}

func TestBuildRecordsBlocksOnConflicts(t *testing.T) {
	ps, asn, nums := sampleInputs()
	nums.Records[0].Label = "R0-P1"
	nums.Records[0].HasConflict = true
	nums.Records[1].HasConflict = true
	nums.Conflicts = 2

	_, err := BuildRecords(ps, asn, nums)
	require.ErrorIs(t, err, ErrConflicts)
	assert.Contains(t, err.Error(), "R0-P1")
}

func TestBuildRecordsLengthMismatch(t *testing.T) {
	ps, asn, nums := sampleInputs()
	_, err := BuildRecords(ps, asn[:2], nums)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = BuildRecords(&field.PointSet{}, nil, numbering.ResultSet{})
	assert.ErrorIs(t, err, field.ErrNoPoints)
}

func TestWriteCSV(t *testing.T) {
	ps, asn, nums := sampleInputs()
	recs, err := BuildRecords(ps, asn, nums)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, recs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "fid,new_id,ridge_id,ridge_rank,plant_rank,is_inlier,in_boundary,x,y", lines[0])
	assert.Equal(t, "0,R0-P0,0,0,0,true,true,0,0", lines[1])
	assert.Equal(t, "2,,-1,-1,-1,false,false,500,500", lines[3])
	assert.Equal(t, "3,,-1,-1,-1,false,true,4,7", lines[4])
}

func TestWriteGeoJSON(t *testing.T) {
	ps, asn, nums := sampleInputs()
	recs, err := BuildRecords(ps, asn, nums)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, ps.CRS, recs))

	var fc struct {
		Type string `json:"type"`
		CRS  struct {
			Properties map[string]string `json:"properties"`
		} `json:"crs"`
		Features []struct {
			Geometry struct {
				Type        string     `json:"type"`
				Coordinates [2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Equal(t, "EPSG:32654", fc.CRS.Properties["name"])
	require.Len(t, fc.Features, 4)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	assert.Equal(t, [2]float64{2, 0}, fc.Features[1].Geometry.Coordinates)
	assert.Equal(t, "R0-P1", fc.Features[1].Properties["new_id"])
	assert.Equal(t, false, fc.Features[2].Properties["in_boundary"])
	assert.Equal(t, true, fc.Features[3].Properties["in_boundary"])
}

func TestStoreRoundTrip(t *testing.T) {
	ps, asn, nums := sampleInputs()
	recs, err := BuildRecords(ps, asn, nums)
	require.NoError(t, err)

	store, err := OpenStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	sessionID := uuid.New()
	runID, err := store.SaveRun(sessionID, ps.CRS, recs)
	require.NoError(t, err)

	loaded, err := store.LoadRun(runID)
	require.NoError(t, err)
	assert.Equal(t, recs, loaded)

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, sessionID.String(), runs[0].SessionID)
	assert.Equal(t, 4, runs[0].Points)
	assert.False(t, runs[0].CreatedAt.IsZero())
}

func TestLoadRunUnknownID(t *testing.T) {
	store, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	recs, err := store.LoadRun("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
