package field

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/internal/geom"
)

// The data contract with the loading shell is GeoJSON (points, boundary)
// and CSV (points). Shapefile decoding stays in the GIS shell; by the time
// data reaches the core it is already plain coordinates plus stable IDs.

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type geoJSONFeature struct {
	Type       string          `json:"type"`
	Geometry   geoJSONGeometry `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	CRS      *geoJSONCRS      `json:"crs,omitempty"`
	Features []geoJSONFeature `json:"features"`
}

type geoJSONCRS struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

func (c *geoJSONCollection) crsName(fallback string) string {
	if c.CRS != nil {
		if name, ok := c.CRS.Properties["name"]; ok && name != "" {
			return name
		}
	}
	return fallback
}

// ReadPointsGeoJSON decodes a GeoJSON FeatureCollection of Point features.
// The feature property "fid" supplies the stable ID; features without one
// get dense IDs assigned by Normalize. fallbackCRS applies when the
// collection carries no crs member.
func ReadPointsGeoJSON(r io.Reader, fallbackCRS string) (*PointSet, error) {
	var coll geoJSONCollection
	if err := json.NewDecoder(r).Decode(&coll); err != nil {
		return nil, fmt.Errorf("decode points geojson: %w", err)
	}
	ps := &PointSet{CRS: coll.crsName(fallbackCRS)}
	for i, f := range coll.Features {
		if f.Geometry.Type != "Point" {
			return nil, fmt.Errorf("feature %d: geometry must be Point, got %q", i, f.Geometry.Type)
		}
		var xy [2]float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &xy); err != nil {
			return nil, fmt.Errorf("feature %d: decode coordinates: %w", i, err)
		}
		rec := PointRecord{ID: -1, InBoundary: true}
		rec.Pos.X, rec.Pos.Y = xy[0], xy[1]
		if v, ok := f.Properties["fid"]; ok {
			if id, ok := asInt64(v); ok {
				rec.ID = id
			}
		}
		ps.Records = append(ps.Records, rec)
	}
	if err := ps.Normalize(); err != nil {
		return nil, err
	}
	return ps, nil
}

// ReadBoundaryGeoJSON decodes the first Polygon feature of a GeoJSON
// FeatureCollection as the field boundary (exterior ring only).
func ReadBoundaryGeoJSON(r io.Reader, fallbackCRS string) (*Boundary, error) {
	var coll geoJSONCollection
	if err := json.NewDecoder(r).Decode(&coll); err != nil {
		return nil, fmt.Errorf("decode boundary geojson: %w", err)
	}
	for i, f := range coll.Features {
		if f.Geometry.Type != "Polygon" {
			continue
		}
		var rings [][][2]float64
		if err := json.Unmarshal(f.Geometry.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("feature %d: decode polygon: %w", i, err)
		}
		if len(rings) == 0 || len(rings[0]) < 3 {
			return nil, fmt.Errorf("feature %d: polygon exterior ring too short", i)
		}
		b := &Boundary{CRS: coll.crsName(fallbackCRS)}
		ring := rings[0]
		// GeoJSON rings repeat the first vertex; drop the closure.
		if ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		for _, xy := range ring {
			b.Polygon = append(b.Polygon, pointFromXY(xy))
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, ErrNoBoundary
}

// ReadPointsCSV decodes points from CSV with header columns fid,x,y.
func ReadPointsCSV(r io.Reader, crs string) (*PointSet, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read points csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrNoPoints
	}
	col := map[string]int{}
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"fid", "x", "y"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("points csv: missing column %q", required)
		}
	}
	ps := &PointSet{CRS: crs}
	for i, row := range rows[1:] {
		id, err := strconv.ParseInt(row[col["fid"]], 10, 64)
		if err != nil {
			id = -1
		}
		x, err := strconv.ParseFloat(row[col["x"]], 64)
		if err != nil {
			return nil, fmt.Errorf("points csv row %d: bad x: %w", i+1, err)
		}
		y, err := strconv.ParseFloat(row[col["y"]], 64)
		if err != nil {
			return nil, fmt.Errorf("points csv row %d: bad y: %w", i+1, err)
		}
		rec := PointRecord{ID: id, InBoundary: true}
		rec.Pos.X, rec.Pos.Y = x, y
		ps.Records = append(ps.Records, rec)
	}
	if err := ps.Normalize(); err != nil {
		return nil, err
	}
	return ps, nil
}

// LoadPointsFile reads a .geojson/.json or .csv points file.
func LoadPointsFile(path, fallbackCRS string) (*PointSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open points file: %w", err)
	}
	defer func() { _ = f.Close() }()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadPointsCSV(f, fallbackCRS)
	}
	return ReadPointsGeoJSON(f, fallbackCRS)
}

// LoadBoundaryFile reads a .geojson/.json boundary file.
func LoadBoundaryFile(path, fallbackCRS string) (*Boundary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open boundary file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadBoundaryGeoJSON(f, fallbackCRS)
}

func pointFromXY(xy [2]float64) geom.Point {
	return geom.Point{X: xy[0], Y: xy[1]}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}
